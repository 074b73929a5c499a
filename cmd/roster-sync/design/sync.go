// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package design documents the Sync API surface (spec §4.7) as a Goa DSL.
// It is never built with `goa gen`: internal/syncapi hand-wires a chi
// router directly (see DESIGN.md's Sync API section for why), so this
// package produces no gen/ output and is consulted only as a readable,
// machine-checkable API contract.
package design

import (
	"goa.design/goa/v3/dsl"
)

// API describes the global properties of the Sync API.
var _ = dsl.API("roster-sync", func() {
	dsl.Title("Roster Sync API")
	dsl.Description("Reconciles an LMS roster against an external identity provider")
})

// RosterSyncService documents the five Sync API operations.
var _ = dsl.Service("roster-sync", func() {
	dsl.Description("Preview, start, monitor, and cancel phased sync runs")

	dsl.Method("preview", func() {
		dsl.Description("Compute the delta a sync would apply, without mutating the LMS")
		dsl.Payload(func() {
			ActorIDAttribute()
			DirectionAttribute()
			OptionsAttributes()
		})
		dsl.Result(PreviewResult)
		dsl.Error("ValidationError", ValidationErrorType, "actor_id missing")
		dsl.HTTP(func() {
			dsl.POST("/sync/preview")
			dsl.Response(dsl.StatusOK)
			dsl.Response("ValidationError", dsl.StatusBadRequest)
		})
	})

	dsl.Method("start", func() {
		dsl.Description("Start a sync run in the background; conflicts if one is already pending or processing")
		dsl.Payload(func() {
			ActorIDAttribute()
			DirectionAttribute()
			OptionsAttributes()
		})
		dsl.Result(func() {
			dsl.Attribute("sync_id", dsl.String, "Identifier of the started run")
			dsl.Required("sync_id")
		})
		dsl.Error("ValidationError", ValidationErrorType, "actor_id missing")
		dsl.Error("ConflictError", ConflictErrorType, "a sync is already pending, processing, or was just started by this actor")
		dsl.HTTP(func() {
			dsl.POST("/sync/start")
			dsl.Response(dsl.StatusAccepted)
			dsl.Response("ValidationError", dsl.StatusBadRequest)
			dsl.Response("ConflictError", dsl.StatusConflict)
		})
	})

	dsl.Method("status", func() {
		dsl.Description("Return the current job row for a sync_id")
		dsl.Payload(func() {
			dsl.Attribute("sync_id", dsl.String, "Run identifier")
			dsl.Required("sync_id")
		})
		dsl.Result(JobResult)
		dsl.Error("NotFound", NotFoundErrorType, "no job with this sync_id")
		dsl.HTTP(func() {
			dsl.GET("/sync/status/{sync_id}")
			dsl.Response(dsl.StatusOK)
			dsl.Response("NotFound", dsl.StatusNotFound)
		})
	})

	dsl.Method("cancel", func() {
		dsl.Description("Mark a non-terminal job cancelled; a no-op if already terminal")
		dsl.Payload(func() {
			dsl.Attribute("sync_id", dsl.String, "Run identifier")
			dsl.Required("sync_id")
		})
		dsl.Error("NotFound", NotFoundErrorType, "no job with this sync_id")
		dsl.HTTP(func() {
			dsl.POST("/sync/cancel/{sync_id}")
			dsl.Response(dsl.StatusNoContent)
			dsl.Response("NotFound", dsl.StatusNotFound)
		})
	})

	dsl.Method("ongoing", func() {
		dsl.Description("Return the actor's current non-terminal job, if any")
		dsl.Payload(func() {
			ActorIDAttribute()
		})
		dsl.Result(JobResult)
		dsl.HTTP(func() {
			dsl.GET("/sync/ongoing")
			dsl.Response(dsl.StatusOK)
			dsl.Response(dsl.StatusNoContent)
		})
	})
})

// ValidationErrorType, ConflictErrorType, NotFoundErrorType reuse the
// shared error envelope for every method's documented error responses.
var ValidationErrorType = ErrorMedia
var ConflictErrorType = ErrorMedia
var NotFoundErrorType = ErrorMedia
