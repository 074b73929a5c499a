// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package schema

import "github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"

// DefaultSchemas is the compiled-in German-school schema list used when no
// naming_schemas configuration file is supplied. Each emits an idnumber
// prefixed with a per-schema constant to keep them disjoint, per §4.3.
func DefaultSchemas() []model.NamingSchema {
	return []model.NamingSchema{
		{
			ID:                 "class",
			MatchPattern:       `^(?P<grade>\d+)(?P<letter>[a-z]?)$`,
			IdnumberTemplate:   "kc_{name}",
			ShortnameTemplate:  "{name}",
			FullnameTemplate:   "Class {name}",
			CategoryTemplate:   "/Classes/Grade {grade}",
			RoleMap:            model.RoleMap{"default": model.RoleStudent, "teacher": model.RoleEditingTeacher},
			IdnumberSyncPrefix: "kc_",
		},
		{
			ID:                 "subject_faculty",
			MatchPattern:       `^p_alle_(?P<subject>.+)$`,
			IdnumberTemplate:   "kc_project_faculty_{subject}",
			ShortnameTemplate:  "faculty_{subject}",
			FullnameTemplate:   "Faculty — {subject|titlecase}",
			CategoryTemplate:   "/Faculty/{subject|titlecase}",
			RoleMap:            model.RoleMap{"default": model.RoleEditingTeacher},
			IdnumberSyncPrefix: "kc_project_",
		},
		{
			ID:                 "teacher_held_class_course",
			MatchPattern:       `^p_(?P<teacher>[^_]+)_(?P<subject>[^_]+)_(?P<class>.+)$`,
			IdnumberTemplate:   "kc_project_{teacher}_{subject}_{class}",
			ShortnameTemplate:  "{teacher}_{subject}_{class}",
			FullnameTemplate:   "{subject|titlecase} ({class}) — {teacher|ucfirst}",
			CategoryTemplate:   "/Classes/Grade {class|extract_grade}/{subject|titlecase}",
			RoleMap:            model.RoleMap{"default": model.RoleStudent, "teacher": model.RoleEditingTeacher},
			IdnumberSyncPrefix: "kc_project_",
		},
		{
			ID:                 "class_owned_subject_course",
			MatchPattern:       `^p_(?P<class>[^_]+)_(?P<subject>.+)$`,
			IdnumberTemplate:   "kc_project_{class}_{subject}",
			ShortnameTemplate:  "{class}_{subject}",
			FullnameTemplate:   "{subject|titlecase} ({class})",
			CategoryTemplate:   "/Classes/Grade {class|extract_grade}/{subject|titlecase}",
			RoleMap:            model.RoleMap{"default": model.RoleStudent, "teacher": model.RoleEditingTeacher},
			IdnumberSyncPrefix: "kc_project_",
		},
		{
			ID:                 "extracurricular",
			MatchPattern:       `^p_(?P<name>.+)_ag$`,
			IdnumberTemplate:   "kc_project_ag_{name}",
			ShortnameTemplate:  "ag_{name}",
			FullnameTemplate:   "AG — {name|titlecase}",
			CategoryTemplate:   "/Extracurricular",
			RoleMap:            model.RoleMap{"default": model.RoleStudent, "teacher": model.RoleEditingTeacher},
			IdnumberSyncPrefix: "kc_project_",
		},
		{
			ID:                 "project_catchall",
			MatchPattern:       `^p_(?P<name>.+)$`,
			IdnumberTemplate:   "kc_project_{name}",
			ShortnameTemplate:  "{name|slug}",
			FullnameTemplate:   "Project — {name|titlecase}",
			CategoryTemplate:   "/Projects",
			RoleMap:            model.RoleMap{"default": model.RoleStudent, "teacher": model.RoleEditingTeacher},
			IdnumberSyncPrefix: "kc_project_",
		},
	}
}

// SyncPrefixes returns the distinct idnumber sync prefixes across the
// given schema list, used by the engine to scope the unenrol scan and to
// guard against modifying non-sync-owned courses.
func SyncPrefixes(schemas []model.NamingSchema) []string {
	seen := map[string]struct{}{}
	var prefixes []string
	for _, s := range schemas {
		if s.IdnumberSyncPrefix == "" {
			continue
		}
		if _, ok := seen[s.IdnumberSyncPrefix]; ok {
			continue
		}
		seen[s.IdnumberSyncPrefix] = struct{}{}
		prefixes = append(prefixes, s.IdnumberSyncPrefix)
	}
	return prefixes
}
