// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package syncengine implements the ten-phase Phased Sync Engine: the
// state machine that reconciles the IdP's roster into the LMS's users,
// courses, categories, and enrolments.
package syncengine

import (
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/teacherdetect"
)

// syncAuthMethod is the auth_method stamped on every user this engine
// creates, and the value P2's suspend policy checks for.
const syncAuthMethod = "oauth2"

var adminExcludedUsernames = map[string]struct{}{
	"admin": {},
	"guest": {},
}

// Config parameterizes one run of the engine, beyond the per-request
// Options already carried on model.SyncRequest.
type Config struct {
	ParentCategoryID int64
	Schemas          []model.NamingSchema
	TeacherDetect    teacherdetect.Config
	DryRun           bool
	PageSize         int
}

// DefaultConfig returns the spec's default engine configuration. Callers
// must still supply Schemas (§6 naming_schemas) and ParentCategoryID.
func DefaultConfig() Config {
	return Config{
		ParentCategoryID: 0,
		TeacherDetect:    teacherdetect.DefaultConfig(),
		PageSize:         100,
	}
}
