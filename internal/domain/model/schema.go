// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "regexp"

// RoleMap maps a membership kind ("default", "teacher") to the enrolment
// role it produces. Absence of the "teacher" key means teachers fall back
// to the default role.
type RoleMap map[string]Role

// NamingSchema is one entry in the Schema Processor's ordered schema list.
type NamingSchema struct {
	ID                string         `yaml:"id" json:"id"`
	MatchPattern       string         `yaml:"match_pattern" json:"match_pattern"`
	compiled           *regexp.Regexp `yaml:"-" json:"-"`
	IdnumberTemplate   string         `yaml:"idnumber_template" json:"idnumber_template"`
	ShortnameTemplate  string         `yaml:"shortname_template" json:"shortname_template"`
	FullnameTemplate   string         `yaml:"fullname_template" json:"fullname_template"`
	CategoryTemplate   string         `yaml:"category_template" json:"category_template"`
	RoleMap            RoleMap        `yaml:"role_map" json:"role_map"`
	IdnumberSyncPrefix string         `yaml:"idnumber_sync_prefix" json:"idnumber_sync_prefix"`
}

// Compiled lazily compiles and caches MatchPattern, returning the regexp.
func (s *NamingSchema) Compiled() (*regexp.Regexp, error) {
	if s.compiled != nil {
		return s.compiled, nil
	}
	re, err := regexp.Compile(s.MatchPattern)
	if err != nil {
		return nil, err
	}
	s.compiled = re
	return re, nil
}

// SchemaMatch is the output of running one schema against one group.
type SchemaMatch struct {
	SchemaID       string  `json:"schema_id"`
	CourseIdnumber string  `json:"course_idnumber"`
	CourseShort    string  `json:"course_shortname"`
	CourseFull     string  `json:"course_fullname"`
	CategoryPath   string  `json:"category_path"`
	RoleMap        RoleMap `json:"role_map"`
}

// GroupKind is the coarse typing the Group Classifier assigns to a group.
type GroupKind string

const (
	KindClass         GroupKind = "class"
	KindTeacherShadow GroupKind = "teacher_shadow"
	KindProject       GroupKind = "project"
	KindOther         GroupKind = "other"
)

// Classification is the output of the Group Classifier.
type Classification struct {
	Kind     GroupKind
	BaseName string
}
