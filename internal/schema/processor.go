// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package schema

import (
	"strconv"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
)

// Processor holds an ordered list of NamingSchema and the Template
// Transformer used to expand their templates.
type Processor struct {
	schemas     []model.NamingSchema
	transformer *Transformer
}

// NewProcessor returns a Processor over the given ordered schema list.
func NewProcessor(schemas []model.NamingSchema, transformer *Transformer) *Processor {
	return &Processor{schemas: schemas, transformer: transformer}
}

// Process tries each schema in order; on the first regex match, its
// templates are expanded and a SchemaMatch is returned. A miss returns
// (nil, nil); the caller records the group as unmatched.
//
// Determinism: for a fixed schema list and fixed input, outputs are
// bit-identical; no wall-clock or random values participate.
func (p *Processor) Process(name, groupID string) (*model.SchemaMatch, error) {
	for _, s := range p.schemas {
		re, err := s.Compiled()
		if err != nil {
			return nil, err
		}

		match := re.FindStringSubmatch(name)
		if match == nil {
			continue
		}

		vars := Vars{"name": name, "group_id": groupID}
		for i, g := range re.SubexpNames() {
			if i == 0 {
				continue
			}
			if g != "" {
				vars[g] = match[i]
			} else {
				vars[strconv.Itoa(i)] = match[i]
			}
		}

		return &model.SchemaMatch{
			SchemaID:       s.ID,
			CourseIdnumber: p.transformer.Expand(s.IdnumberTemplate, vars),
			CourseShort:    p.transformer.Expand(s.ShortnameTemplate, vars),
			CourseFull:     p.transformer.Expand(s.FullnameTemplate, vars),
			CategoryPath:   p.transformer.Expand(s.CategoryTemplate, vars),
			RoleMap:        s.RoleMap,
		}, nil
	}

	return nil, nil
}
