// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package classifier implements the coarse group-typing heuristic used as
// a convenience by schemas that want it. The authoritative course-shape
// decision always belongs to the schema package.
package classifier

import (
	"regexp"
	"strings"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
)

var classPattern = regexp.MustCompile(`^(\d+[a-z]?|k1|k2|ks1|ks2|j1|j2)$`)

// Classify is a pure function over a group name. Rules are ordered; first
// match wins.
func Classify(name string) model.Classification {
	if base, ok := strings.CutSuffix(name, "-teachers"); ok {
		return model.Classification{Kind: model.KindTeacherShadow, BaseName: base}
	}

	if base, ok := strings.CutPrefix(name, "p_"); ok {
		return model.Classification{Kind: model.KindProject, BaseName: base}
	}

	if classPattern.MatchString(name) {
		return model.Classification{Kind: model.KindClass, BaseName: name}
	}

	return model.Classification{Kind: model.KindOther, BaseName: name}
}
