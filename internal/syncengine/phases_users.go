// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package syncengine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/teacherdetect"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/log"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/redaction"
)

// idpUsers and userDelta are run-scoped, held only between P1 and P3.
type engineUserState struct {
	idpUsers  []model.IdPUser
	delta     model.UserDelta
	unchanged []model.UserChange // matched, no field diff; still needs a cache entry
}

// runFetchUsers is P1: drain list_users into idp_users[], progress every
// 100 fetched.
func (e *Engine) runFetchUsers(ctx context.Context, _ model.SyncRequest) error {
	var all []model.IdPUser
	offset := 0
	max := e.pageSize()

	for {
		page, err := e.IdP.ListUsers(ctx, offset, max)
		if err != nil {
			return pkgerrors.NewRemoteError(0, "", "fetching users page", err)
		}
		all = append(all, page...)
		if len(page) < max {
			break
		}
		offset += max
		if len(all)%100 == 0 {
			e.logInfo(phaseFetchUsers, "fetched users so far")
		}
	}

	e.users.idpUsers = all
	e.job.Total = len(all)
	return nil
}

func (e *Engine) pageSize() int {
	if e.Cfg.PageSize <= 0 {
		return 100
	}
	return e.Cfg.PageSize
}

// runComputeUserDelta is P2.
func (e *Engine) runComputeUserDelta(ctx context.Context, req model.SyncRequest) error {
	existing, err := e.Users.ListActiveUsers(ctx)
	if err != nil {
		return pkgerrors.NewStoreError("listing active LMS users", err)
	}

	byEmail := make(map[string]model.LMSUser, len(existing))
	byUsername := make(map[string]model.LMSUser, len(existing))
	idpUsernames := make(map[string]struct{}, len(e.users.idpUsers))

	for _, u := range existing {
		byEmail[strings.ToLower(u.Email)] = u
		byUsername[strings.ToLower(u.Username)] = u
	}

	var delta model.UserDelta
	var unchanged []model.UserChange
	for _, u := range e.users.idpUsers {
		if u.Username == "" || u.Email == "" {
			delta.ToSkip = append(delta.ToSkip, model.SkippedUser{IdPUser: u, Reason: model.SkipMissingField})
			continue
		}
		if !u.Enabled {
			delta.ToSkip = append(delta.ToSkip, model.SkippedUser{IdPUser: u, Reason: model.SkipDisabled})
			continue
		}

		idpUsernames[strings.ToLower(u.Username)] = struct{}{}

		match, ok := byEmail[strings.ToLower(u.Email)]
		if !ok {
			match, ok = byUsername[strings.ToLower(u.Username)]
		}

		if !ok {
			delta.ToCreate = append(delta.ToCreate, u)
			continue
		}

		var changed []string
		if match.FirstName != u.FirstName {
			changed = append(changed, "first_name")
		}
		if match.LastName != u.LastName {
			changed = append(changed, "last_name")
		}

		if len(changed) > 0 {
			delta.ToUpdate = append(delta.ToUpdate, model.UserChange{IdPUser: u, LMSUser: match, ChangedFields: changed})
		} else {
			delta.ToSkip = append(delta.ToSkip, model.SkippedUser{IdPUser: u, Reason: model.SkipNoChanges})
			unchanged = append(unchanged, model.UserChange{IdPUser: u, LMSUser: match})
		}
	}

	if req.Options.SuspendUsers {
		for _, u := range existing {
			username := strings.ToLower(u.Username)
			if _, excluded := adminExcludedUsernames[username]; excluded {
				continue
			}
			if u.Suspended {
				continue
			}
			if u.AuthMethod != syncAuthMethod {
				continue
			}
			if _, stillPresent := idpUsernames[username]; stillPresent {
				continue
			}
			delta.ToSuspend = append(delta.ToSuspend, u)
		}
	}

	e.users.delta = delta
	e.users.unchanged = unchanged
	return nil
}

// runApplyUsers is P3: creates, updates, suspends in that order, and
// builds the user cache from every touched user.
func (e *Engine) runApplyUsers(ctx context.Context, _ model.SyncRequest) error {
	d := e.users.delta

	for _, u := range d.ToCreate {
		lmsUser := model.LMSUser{
			Username:   strings.ToLower(u.Username),
			Email:      strings.ToLower(u.Email),
			AuthMethod: syncAuthMethod,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
		}
		slog.DebugContext(ctx, "creating lms user", log.PhaseAttr(phaseApplyUsers),
			"username", u.Username, "email", redaction.RedactEmail(u.Email))
		id, err := e.Users.CreateUser(ctx, lmsUser)
		if err != nil {
			e.stats["users_errors"]++
			e.recordItemError(phaseApplyUsers, pkgerrors.Kind(err), u.Username, err.Error())
			continue
		}
		e.stats["users_created"]++
		e.cacheTouchedUser(ctx, u, id)
	}

	for _, c := range d.ToUpdate {
		lmsUser := c.LMSUser
		lmsUser.FirstName = c.IdPUser.FirstName
		lmsUser.LastName = c.IdPUser.LastName
		slog.DebugContext(ctx, "updating lms user", log.PhaseAttr(phaseApplyUsers),
			"username", c.IdPUser.Username, "email", redaction.RedactEmail(c.IdPUser.Email),
			"changed_fields", c.ChangedFields)
		if err := e.Users.UpdateUser(ctx, lmsUser, c.ChangedFields); err != nil {
			e.stats["users_errors"]++
			e.recordItemError(phaseApplyUsers, pkgerrors.Kind(err), c.IdPUser.Username, err.Error())
			continue
		}
		e.stats["users_updated"]++
		e.cacheTouchedUser(ctx, c.IdPUser, lmsUser.ID)
	}

	for _, skipped := range d.ToSkip {
		if skipped.Reason == model.SkipNoChanges {
			e.stats["users_skipped"]++
		}
	}
	for _, c := range e.users.unchanged {
		e.cacheTouchedUser(ctx, c.IdPUser, c.LMSUser.ID)
	}

	for _, u := range d.ToSuspend {
		if err := e.Users.SuspendUser(ctx, u.ID); err != nil {
			e.stats["users_errors"]++
			e.recordItemError(phaseApplyUsers, pkgerrors.Kind(err), u.Username, err.Error())
			continue
		}
		e.stats["users_suspended"]++
	}

	return nil
}

func (e *Engine) cacheTouchedUser(ctx context.Context, u model.IdPUser, lmsID int64) {
	isTeacher := teacherdetect.IsTeacher(u, e.Cfg.TeacherDetect)
	e.cache.Put(u.Username, model.UserCacheEntry{LMSID: lmsID, IsTeacher: isTeacher})

	if e.Jobs != nil {
		if err := e.Jobs.PutUserMapEntry(ctx, u.ID, u.Username, lmsID); err != nil {
			slog.WarnContext(ctx, "user map entry not recorded", log.PhaseAttr(phaseApplyUsers),
				"username", u.Username, "error", err)
		}
	}

	if isTeacher {
		e.stats["teachers_detected"]++
		if err := e.Users.AssignCourseCreator(ctx, lmsID); err != nil {
			e.recordItemError(phaseApplyUsers, pkgerrors.Kind(err), u.Username, "assigning coursecreator: "+err.Error())
			return
		}
		e.stats["coursecreators_assigned"]++
	}
}
