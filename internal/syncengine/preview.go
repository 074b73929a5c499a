// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package syncengine

import (
	"context"
	"fmt"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/teacherdetect"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/usercache"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

// Preview runs phases 1-2, 4-5, and a read-only membership scan, and returns
// the delta the phases would produce without ever calling a store's
// create/update/delete method. No job row is created or touched; e.Jobs and
// e.Progress are never consulted. Preview reuses the same fetch/delta
// functions Run uses for those phases, since they are already side-effect
// free against the LMS.
//
// Like Run, Preview claims the engine's run-scoped state fields for the
// duration of the call; callers must not share one Engine across concurrent
// Run/Preview calls.
func (e *Engine) Preview(ctx context.Context, req model.SyncRequest) (*model.PreviewResult, error) {
	e.stats = map[string]int{}
	e.job = model.Job{SyncID: req.SyncID, ActorID: req.ActorID, Direction: req.Direction}

	if err := e.runFetchUsers(ctx, req); err != nil {
		return nil, fmt.Errorf("preview fetch_users: %w", err)
	}
	if err := e.runComputeUserDelta(ctx, req); err != nil {
		return nil, fmt.Errorf("preview compute_user_delta: %w", err)
	}

	// P3 (apply_users) never runs in a preview, so the run-scoped user cache
	// it would normally build is assembled here instead, straight from the
	// user delta: existing users keep their real LMS id, and users that
	// would be newly created get a placeholder id of 0. A placeholder can
	// never collide with a real enrolment row, so every membership routed
	// through it still reads as "would be newly enrolled", which is exactly
	// what a preview of a not-yet-existing user should show.
	e.cache = usercache.New()
	for _, c := range e.users.unchanged {
		e.cacheForPreview(c.IdPUser, c.LMSUser.ID)
	}
	for _, c := range e.users.delta.ToUpdate {
		e.cacheForPreview(c.IdPUser, c.LMSUser.ID)
	}
	for _, u := range e.users.delta.ToCreate {
		e.cacheForPreview(u, 0)
	}

	if err := e.runFetchGroups(ctx, req); err != nil {
		return nil, fmt.Errorf("preview fetch_groups: %w", err)
	}
	if err := e.runComputeGroupDelta(ctx, req); err != nil {
		return nil, fmt.Errorf("preview compute_group_delta: %w", err)
	}

	// P6 (apply_groups) never runs either, so course ids for groups that
	// already have a matching course come from the existing row; groups
	// that would create a new course get a distinct negative placeholder,
	// which likewise can never match an existing enrolment.
	e.groups.courseIDs = map[string]int64{}
	var nextPlaceholder int64 = -1
	for _, change := range e.groups.delta.ToUpdate {
		e.groups.courseIDs[change.Group.ID] = change.ExistingCourse.ID
	}
	for _, change := range e.groups.delta.ToSkip {
		existing, err := e.Courses.FindByIdnumber(ctx, change.Match.CourseIdnumber)
		if err != nil {
			return nil, pkgerrors.NewStoreError("resolving existing course for preview", err)
		}
		if existing != nil {
			e.groups.courseIDs[change.Group.ID] = existing.ID
		}
	}
	for _, change := range e.groups.delta.ToCreate {
		e.groups.courseIDs[change.Group.ID] = nextPlaceholder
		nextPlaceholder--
	}

	if err := e.runFetchMemberships(ctx, req); err != nil {
		return nil, fmt.Errorf("preview fetch_memberships: %w", err)
	}
	if err := e.runComputeEnrolDelta(ctx, req); err != nil {
		return nil, fmt.Errorf("preview compute_enrol_delta: %w", err)
	}

	warnings := make([]string, 0, len(e.groups.delta.Unmatched))
	for _, u := range e.groups.delta.Unmatched {
		warnings = append(warnings, "no schema matched group "+u.Group.Name)
	}

	result := &model.PreviewResult{
		Users:      e.users.delta,
		Groups:     e.groups.delta,
		Enrolments: *e.enrol.delta,
		Warnings:   warnings,
		Stats:      e.previewStats(),
	}
	return result, nil
}

func (e *Engine) cacheForPreview(u model.IdPUser, lmsID int64) {
	isTeacher := teacherdetect.IsTeacher(u, e.Cfg.TeacherDetect)
	e.cache.Put(u.Username, model.UserCacheEntry{LMSID: lmsID, IsTeacher: isTeacher})
}

func (e *Engine) previewStats() map[string]int {
	stats := map[string]int{
		"users_to_create":       len(e.users.delta.ToCreate),
		"users_to_update":       len(e.users.delta.ToUpdate),
		"users_to_suspend":      len(e.users.delta.ToSuspend),
		"courses_to_create":     len(e.groups.delta.ToCreate),
		"courses_to_update":     len(e.groups.delta.ToUpdate),
		"groups_unmatched":      len(e.groups.delta.Unmatched),
		"enrolments_to_create":  len(e.enrol.delta.ToEnroll),
		"enrolments_to_update":  len(e.enrol.delta.ToUpdateRole),
		"enrolments_to_unenrol": len(e.enrol.delta.ToUnenroll),
	}
	return stats
}
