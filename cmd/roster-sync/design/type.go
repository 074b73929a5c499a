// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package design

import (
	"goa.design/goa/v3/dsl"
)

// OptionsAttributes describes the per-run toggles accepted by preview and
// start (spec §4.7/§6's sync_suspend_users, sync_unenroll_users,
// auto_enroll_teachers, auto_enroll_students).
func OptionsAttributes() {
	dsl.Attribute("suspend_users", dsl.Boolean, "Suspend LMS users absent from the IdP roster", func() {
		dsl.Default(true)
	})
	dsl.Attribute("unenroll_users", dsl.Boolean, "Unenrol users no longer members of their synced group", func() {
		dsl.Default(true)
	})
	dsl.Attribute("auto_enroll_teachers", dsl.Boolean, "Enrol detected teachers as editingteacher", func() {
		dsl.Default(true)
	})
	dsl.Attribute("auto_enroll_students", dsl.Boolean, "Enrol remaining members as student", func() {
		dsl.Default(true)
	})
}

// ActorIDAttribute is the trusted forwarded-identity header every Sync API
// operation requires (see DESIGN.md's Open Question decision on actor
// identity: this service does not itself verify a JWT).
func ActorIDAttribute() {
	dsl.Attribute("actor_id", dsl.String, "Identity of the caller triggering the operation", func() {
		dsl.Example("user_id_12345")
	})
	dsl.Required("actor_id")
}

// DirectionAttribute is the sync direction (spec §3's Job.direction).
func DirectionAttribute() {
	dsl.Attribute("direction", dsl.String, "Direction of the reconciliation", func() {
		dsl.Enum("idp_to_lms")
		dsl.Default("idp_to_lms")
	})
}

// JobResult is the DSL type mirroring model.Job (spec §3).
var JobResult = dsl.Type("job", func() {
	dsl.Description("Status of one sync run")
	dsl.Attribute("sync_id", dsl.String, "Run identifier")
	dsl.Attribute("actor_id", dsl.String, "Caller who started the run")
	dsl.Attribute("direction", dsl.String, "Reconciliation direction")
	dsl.Attribute("status", dsl.String, "Lifecycle state", func() {
		dsl.Enum("pending", "processing", "completed", "failed", "cancelled")
	})
	dsl.Attribute("progress", dsl.Int, "Percent complete, 0-100")
	dsl.Attribute("phase", dsl.String, "Current or last phase name")
	dsl.Attribute("processed", dsl.Int, "Items processed in the current phase")
	dsl.Attribute("total", dsl.Int, "Items expected in the current phase")
	dsl.Attribute("created", dsl.Int, "Count of created records")
	dsl.Attribute("updated", dsl.Int, "Count of updated records")
	dsl.Attribute("deleted", dsl.Int, "Count of deleted/unenrolled records")
	dsl.Attribute("error_count", dsl.Int, "Count of per-item failures")
	dsl.Attribute("errors", dsl.ArrayOf(dsl.String), "Error messages")
	dsl.Attribute("created_at", dsl.String, "Job row creation time", func() {
		dsl.Format(dsl.FormatDateTime)
	})
	dsl.Attribute("updated_at", dsl.String, "Job row last-modified time", func() {
		dsl.Format(dsl.FormatDateTime)
	})
	dsl.Attribute("finished_at", dsl.String, "Job row completion time, if finished", func() {
		dsl.Format(dsl.FormatDateTime)
	})
	dsl.Required("sync_id", "actor_id", "direction", "status", "progress")
})

// PreviewResult is the DSL type mirroring model.PreviewResult (spec §4.7).
var PreviewResult = dsl.Type("preview-result", func() {
	dsl.Description("Dry-run delta preview, computed without mutating the LMS")
	dsl.Attribute("users", dsl.Any, "User delta summary")
	dsl.Attribute("groups", dsl.Any, "Group/course delta summary")
	dsl.Attribute("enrolments", dsl.Any, "Enrolment delta summary")
})

// ErrorMedia is the DSL type for the Sync API's error envelope
// (pkg/errors.Kind mapped onto an HTTP status; see internal/syncapi/http.go).
var ErrorMedia = dsl.Type("sync-api-error", func() {
	dsl.Attribute("kind", dsl.String, "Error kind", func() {
		dsl.Enum("ValidationError", "ConflictError", "NotFound", "AuthError",
			"RemoteError", "StoreError", "CancelledError", "unexpected")
	})
	dsl.Attribute("message", dsl.String, "Human-readable error message")
	dsl.Attribute("timestamp", dsl.String, "Error time", func() {
		dsl.Format(dsl.FormatDateTime)
	})
	dsl.Required("kind", "message")
})
