// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package syncapi implements the five-operation Sync API surface
// (preview, start, status, cancel, ongoing) described in §4.7, backed by
// the Job Store and the Phased Sync Engine. Authorization policy is
// delegated to the host: every operation trusts the actor_id it is
// given and performs no authn/authz decision of its own.
package syncapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/jobstore"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/syncengine"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

// startConflictWindow and doubleClickWindow implement §8 Testable
// Property 8 and the §4.7 start() conflict rule.
const (
	startConflictWindow = time.Hour
	doubleClickWindow   = 5 * time.Second
)

// Service wires the Job Store to the engine. NewEngine must return a
// fresh *syncengine.Engine on every call: the engine claims its
// run-scoped state fields for the duration of one Run or Preview call
// and must never be shared across concurrent ones.
type Service struct {
	Jobs      port.JobStore
	NewEngine func() *syncengine.Engine
}

// Preview runs a read-only projection of the delta a start() with the
// same direction/options would produce. No job row is created.
func (s *Service) Preview(ctx context.Context, actorID string, direction model.Direction, opts model.Options) (*model.PreviewResult, error) {
	if actorID == "" {
		return nil, pkgerrors.NewValidation("actor_id is required")
	}
	e := s.NewEngine()
	return e.Preview(ctx, model.SyncRequest{ActorID: actorID, Direction: direction, Options: opts})
}

// Start enforces the conflict guard, inserts the pending job row, and
// launches the run in the background. It returns as soon as the job row
// is durable; the caller learns the outcome via Status.
func (s *Service) Start(ctx context.Context, actorID string, direction model.Direction, opts model.Options) (string, error) {
	if actorID == "" {
		return "", pkgerrors.NewValidation("actor_id is required")
	}

	now := time.Now()

	recent, err := s.Jobs.FindRecentByActor(ctx, actorID, now.Add(-doubleClickWindow).Unix())
	if err != nil {
		return "", err
	}
	if len(recent) > 0 {
		return "", pkgerrors.NewConflict("a sync was already started by this actor in the last few seconds")
	}

	nonTerminal, err := s.Jobs.FindNonTerminalSince(ctx, now.Add(-startConflictWindow).Unix())
	if err != nil {
		return "", err
	}
	if len(nonTerminal) > 0 {
		return "", pkgerrors.NewConflict("a sync is already pending or processing")
	}

	syncID := jobstore.NewSyncID()
	job := model.Job{
		SyncID:    syncID,
		ActorID:   actorID,
		Direction: direction,
		Status:    model.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Jobs.Insert(ctx, job); err != nil {
		return "", err
	}

	req := model.SyncRequest{SyncID: syncID, ActorID: actorID, Direction: direction, Options: opts}
	go s.runInBackground(req)

	return syncID, nil
}

// runInBackground is the "enqueues the background task" half of start().
// It runs detached from the request's context, since a sync run can
// outlive the HTTP request that kicked it off by a long margin.
func (s *Service) runInBackground(req model.SyncRequest) {
	ctx := context.Background()
	e := s.NewEngine()
	if _, err := e.Run(ctx, req); err != nil {
		slog.ErrorContext(ctx, "background sync run ended with an error",
			"sync_id", req.SyncID, "actor_id", req.ActorID, "error", err)
	}
}

// Status returns the job record and tail log for syncID.
func (s *Service) Status(ctx context.Context, syncID string) (*model.Job, error) {
	return s.Jobs.Get(ctx, syncID)
}

// Cancel marks syncID cancelled if it is still pending or processing.
// Cancelling an already-terminal job is a no-op, not an error.
func (s *Service) Cancel(ctx context.Context, syncID string) error {
	job, err := s.Jobs.Get(ctx, syncID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return nil
	}

	now := time.Now()
	job.Status = model.JobCancelled
	job.FinishedAt = &now
	job.UpdatedAt = now
	return s.Jobs.Update(ctx, *job)
}

// Ongoing returns actorID's non-terminal job, or nil if it has none.
func (s *Service) Ongoing(ctx context.Context, actorID string) (*model.Job, error) {
	job, err := s.Jobs.FindLatestByActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.IsTerminal() {
		return nil, nil
	}
	return job, nil
}
