// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package syncengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/category"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/schema"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/usercache"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/log"
)

// Engine drives the ten phases of one sync run. It owns the run-scoped
// delta structures and the user cache exclusively for the duration of the
// run; nothing outlives Run.
type Engine struct {
	IdP        port.IdPClient
	Users      port.UserStore
	Courses    port.CourseStore
	Categories port.CategoryStore
	Enrolments port.EnrolmentStore
	Jobs       port.JobStore
	Progress   port.ProgressSink

	Processor *schema.Processor
	Cfg       Config

	resolver *category.Resolver
	cache    *usercache.Cache

	users  engineUserState
	groups engineGroupState
	enrol  engineEnrolState

	job   model.Job
	stats map[string]int
}

// phase names, in the fixed order the spec mandates.
const (
	phaseFetchUsers     = "fetch_users"
	phaseUserDelta      = "compute_user_delta"
	phaseApplyUsers     = "apply_users"
	phaseFetchGroups    = "fetch_groups"
	phaseGroupDelta     = "compute_group_delta"
	phaseApplyGroups    = "apply_groups"
	phaseFetchMembers   = "fetch_memberships"
	phaseEnrolDelta     = "compute_enrol_delta"
	phaseApplyEnrol     = "apply_enrolments"
	phaseComplete       = "complete"
)

// phaseProgress is each phase's ending percentage, monotonic 0..100.
var phaseProgress = map[string]int{
	phaseFetchUsers:   10,
	phaseUserDelta:    20,
	phaseApplyUsers:   35,
	phaseFetchGroups:  40,
	phaseGroupDelta:   50,
	phaseApplyGroups:  65,
	phaseFetchMembers: 75,
	phaseEnrolDelta:   85,
	phaseApplyEnrol:   95,
	phaseComplete:     100,
}

// Run executes phases P1 through P10 for the given request, updating the
// job row as it goes. A phase-level error aborts the run and marks the job
// failed; per-item errors are recorded and the phase continues.
func (e *Engine) Run(ctx context.Context, req model.SyncRequest) (*model.Job, error) {
	now := time.Now()
	e.job = model.Job{
		SyncID:    req.SyncID,
		ActorID:   req.ActorID,
		Direction: req.Direction,
		Status:    model.JobProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.stats = map[string]int{}
	e.cache = usercache.New()
	e.resolver = category.NewResolver(e.Categories, e.Cfg.ParentCategoryID, e.Cfg.DryRun)

	// The runner (scheduled/ad-hoc or the Sync API's start) owns inserting
	// the pending job row before invoking Run. A client may cancel before
	// the engine ever claims the row, so check first and never clobber a
	// cancellation already recorded there.
	if cancelled, err := e.checkCancelled(ctx); err != nil {
		return e.fail(ctx, "init", err)
	} else if cancelled {
		return e.cancel(ctx, "init")
	}

	if e.Jobs != nil {
		if err := e.Jobs.Update(ctx, e.job); err != nil {
			return nil, fmt.Errorf("marking job processing: %w", err)
		}
	}

	if err := e.resolver.Init(ctx); err != nil {
		return e.fail(ctx, phaseApplyGroups, pkgerrors.NewStoreError("loading category tree", err))
	}

	type phaseFunc func(context.Context, model.SyncRequest) error
	type namedPhase struct {
		name string
		run  phaseFunc
	}

	phases := []namedPhase{
		{phaseFetchUsers, e.runFetchUsers},
		{phaseUserDelta, e.runComputeUserDelta},
		{phaseApplyUsers, e.runApplyUsers},
		{phaseFetchGroups, e.runFetchGroups},
		{phaseGroupDelta, e.runComputeGroupDelta},
		{phaseApplyGroups, e.runApplyGroups},
		{phaseFetchMembers, e.runFetchMemberships},
		{phaseEnrolDelta, e.runComputeEnrolDelta},
		{phaseApplyEnrol, e.runApplyEnrolments},
	}

	for _, p := range phases {
		if cancelled, err := e.checkCancelled(ctx); err != nil {
			return e.fail(ctx, p.name, err)
		} else if cancelled {
			return e.cancel(ctx, p.name)
		}

		if err := p.run(ctx, req); err != nil {
			return e.fail(ctx, p.name, err)
		}

		if err := e.emitProgress(ctx, p.name); err != nil {
			slog.WarnContext(ctx, "progress sink rejected update", log.PhaseAttr(p.name), "error", err)
		}
	}

	return e.complete(ctx)
}

func (e *Engine) checkCancelled(ctx context.Context) (bool, error) {
	if e.Jobs == nil {
		return false, nil
	}
	current, err := e.Jobs.Get(ctx, e.job.SyncID)
	if err != nil {
		return false, nil // job row not yet visible to readers; nothing to check
	}
	return current.Status == model.JobCancelled, nil
}

func (e *Engine) emitProgress(ctx context.Context, phase string) error {
	e.job.Phase = phase
	e.job.Progress = phaseProgress[phase]
	e.job.UpdatedAt = time.Now()
	e.syncCounters()

	if e.Jobs != nil {
		if err := e.Jobs.Update(ctx, e.job); err != nil {
			return fmt.Errorf("updating job row: %w", err)
		}
	}
	if e.Progress != nil {
		return e.Progress.Progress(ctx, phase, e.job.Progress, phaseMessage(phase), e.snapshotStats())
	}
	return nil
}

func (e *Engine) syncCounters() {
	e.job.Created = e.stats["users_created"] + e.stats["courses_created"] + e.stats["enrollments_created"]
	e.job.Updated = e.stats["users_updated"] + e.stats["courses_updated"] + e.stats["enrollments_updated_role"]
	e.job.Deleted = e.stats["users_suspended"] + e.stats["enrollments_removed"]
	e.job.ErrorCount = len(e.job.Errors)
}

func (e *Engine) snapshotStats() map[string]int {
	snap := make(map[string]int, len(e.stats))
	for k, v := range e.stats {
		snap[k] = v
	}
	return snap
}

func (e *Engine) recordItemError(phase, kind, identifier, message string) {
	e.job.Errors = append(e.job.Errors, model.ErrorDetail{
		Phase:      phase,
		Kind:       kind,
		Identifier: identifier,
		Message:    message,
	})
	e.job.LogTail = appendLogTail(e.job.LogTail, model.LogEntry{Level: "error", Message: message, Phase: phase})
}

func (e *Engine) logInfo(phase, message string) {
	e.job.LogTail = appendLogTail(e.job.LogTail, model.LogEntry{Level: "info", Message: message, Phase: phase})
}

const logTailMax = 100

func appendLogTail(tail []model.LogEntry, entry model.LogEntry) []model.LogEntry {
	tail = append(tail, entry)
	if len(tail) > logTailMax {
		tail = tail[len(tail)-logTailMax:]
	}
	return tail
}

func (e *Engine) fail(ctx context.Context, phase string, err error) (*model.Job, error) {
	e.job.Status = model.JobFailed
	e.job.Phase = phase
	kind := pkgerrors.Kind(err)
	e.recordItemError(phase, kind, "", err.Error())
	e.syncCounters()
	now := time.Now()
	e.job.FinishedAt = &now
	e.job.UpdatedAt = now

	slog.ErrorContext(ctx, "sync run failed", log.PhaseAttr(phase), "error", err, "kind", kind)

	if e.Jobs != nil {
		if uerr := e.Jobs.Update(ctx, e.job); uerr != nil {
			slog.ErrorContext(ctx, "failed to persist failed job", "error", uerr)
		}
	}
	job := e.job
	return &job, err
}

func (e *Engine) cancel(ctx context.Context, phase string) (*model.Job, error) {
	e.job.Status = model.JobCancelled
	e.job.Phase = phase
	now := time.Now()
	e.job.FinishedAt = &now
	e.job.UpdatedAt = now
	e.logInfo(phase, "run cancelled between phases")

	if e.Jobs != nil {
		if uerr := e.Jobs.Update(ctx, e.job); uerr != nil {
			slog.ErrorContext(ctx, "failed to persist cancelled job", "error", uerr)
		}
	}
	job := e.job
	return &job, pkgerrors.NewCancelledError("sync cancelled by actor")
}

func (e *Engine) complete(ctx context.Context) (*model.Job, error) {
	e.job.Status = model.JobCompleted
	e.job.Phase = phaseComplete
	e.job.Progress = 100
	now := time.Now()
	e.job.FinishedAt = &now
	e.job.UpdatedAt = now
	e.syncCounters()
	e.logInfo(phaseComplete, "sync run completed")

	if e.Jobs != nil {
		if uerr := e.Jobs.Update(ctx, e.job); uerr != nil {
			return nil, fmt.Errorf("persisting completed job: %w", uerr)
		}
	}
	if e.Progress != nil {
		if perr := e.Progress.Progress(ctx, phaseComplete, 100, phaseMessage(phaseComplete), e.snapshotStats()); perr != nil {
			slog.WarnContext(ctx, "progress sink rejected final update", "error", perr)
		}
	}

	job := e.job
	return &job, nil
}

func phaseMessage(phase string) string {
	switch phase {
	case phaseFetchUsers:
		return "fetched users from identity provider"
	case phaseUserDelta:
		return "computed user delta"
	case phaseApplyUsers:
		return "applied user changes"
	case phaseFetchGroups:
		return "fetched groups from identity provider"
	case phaseGroupDelta:
		return "computed group/course delta"
	case phaseApplyGroups:
		return "applied group/course changes"
	case phaseFetchMembers:
		return "fetched group memberships"
	case phaseEnrolDelta:
		return "computed enrolment delta"
	case phaseApplyEnrol:
		return "applied enrolment changes"
	case phaseComplete:
		return "sync run completed"
	default:
		return phase
	}
}
