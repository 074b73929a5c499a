// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package teacherdetect implements the ordered, first-match-wins teacher
// detector (P3.1) that classifies an IdP user as teacher or non-teacher.
package teacherdetect

import (
	"strings"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
)

var adminUsernames = map[string]struct{}{
	"global-admin":   {},
	"admin":          {},
	"administrator":  {},
	"moodle-admin":   {},
	"keycloak-admin": {},
}

// Config parameterizes the two rules that depend on configured attribute
// names/values; the other rules are fixed by the spec.
type Config struct {
	RoleAttribute string // default "sophomorixRole"
	TeacherValue  string // default "teacher"
}

// DefaultConfig returns the spec's default attribute name and value.
func DefaultConfig() Config {
	return Config{RoleAttribute: "sophomorixRole", TeacherValue: "teacher"}
}

// IsTeacher runs the ordered rule set against one IdP user. First match
// wins; a user matching no rule is not a teacher.
func IsTeacher(u model.IdPUser, cfg Config) bool {
	if isAdminUsername(u.Username) {
		return true
	}

	if strings.Contains(strings.ToUpper(u.Attribute("LDAP_ENTRY_DN")), "OU=TEACHERS") {
		return true
	}

	teacherValue := cfg.TeacherValue
	if teacherValue == "" {
		teacherValue = "teacher"
	}

	roleAttr := cfg.RoleAttribute
	if roleAttr == "" {
		roleAttr = "sophomorixRole"
	}
	if strings.EqualFold(u.Attribute(roleAttr), teacherValue) {
		return true
	}

	if strings.EqualFold(u.Attribute("role"), teacherValue) {
		return true
	}

	if strings.EqualFold(u.Attribute("userType"), "teacher") {
		return true
	}

	return false
}

func isAdminUsername(username string) bool {
	lower := strings.ToLower(username)
	if _, ok := adminUsernames[lower]; ok {
		return true
	}
	return strings.Contains(lower, "admin")
}
