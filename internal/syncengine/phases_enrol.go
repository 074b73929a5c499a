// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package syncengine

import (
	"context"
	"strconv"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/schema"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

type engineEnrolState struct {
	// members maps group ID to its fetched membership list; only populated
	// for groups with a SchemaMatch.
	members map[string][]model.IdPGroupMember
	delta   *model.EnrolDelta
}

// runFetchMemberships is P7: only for schema-matched groups.
func (e *Engine) runFetchMemberships(ctx context.Context, _ model.SyncRequest) error {
	e.enrol.members = map[string][]model.IdPGroupMember{}

	for _, g := range e.groups.idpGroups {
		if _, matched := e.groups.matches[g.ID]; !matched {
			continue
		}

		var all []model.IdPGroupMember
		offset := 0
		max := e.pageSize()
		for {
			page, err := e.IdP.ListGroupMembers(ctx, g.ID, offset, max)
			if err != nil {
				e.stats["memberships_errors"]++
				e.recordItemError(phaseFetchMembers, pkgerrors.Kind(err), g.Name, err.Error())
				break
			}
			all = append(all, page...)
			if len(page) < max {
				break
			}
			offset += max
		}
		e.enrol.members[g.ID] = all
	}

	return nil
}

// runComputeEnrolDelta is P8.
func (e *Engine) runComputeEnrolDelta(ctx context.Context, req model.SyncRequest) error {
	delta := model.NewEnrolDelta()

	prefixes := schema.SyncPrefixes(e.Cfg.Schemas)
	existingEnrolments, err := e.Enrolments.ListManualEnrolments(ctx, prefixes)
	if err != nil {
		return pkgerrors.NewStoreError("listing manual enrolments", err)
	}
	currentRole := make(map[model.CourseUserKey]model.Role, len(existingEnrolments))
	for _, en := range existingEnrolments {
		currentRole[model.CourseUserKey{CourseID: en.CourseID, UserID: en.UserID}] = en.Role
	}

	for groupID, match := range e.groups.matches {
		courseID, ok := e.groups.courseIDs[groupID]
		if !ok {
			continue
		}

		for _, member := range e.enrol.members[groupID] {
			username := member.Username
			entry, found := e.cache.Get(username)
			if !found {
				delta.ToSkip = append(delta.ToSkip, model.SkippedEnrol{GroupID: groupID, Username: username, Reason: model.SkipUserNotFound})
				continue
			}

			role := match.RoleMap["default"]
			if entry.IsTeacher {
				if teacherRole, hasTeacherRole := match.RoleMap["teacher"]; hasTeacherRole {
					role = teacherRole
				}
			}
			if role == model.RoleEditingTeacher && !req.Options.AutoEnrollTeachers {
				continue
			}
			if role == model.RoleStudent && !req.Options.AutoEnrollStudents {
				continue
			}

			key := model.CourseUserKey{CourseID: courseID, UserID: entry.LMSID}
			delta.ExpectedEnrolments[key] = struct{}{}

			existingRole, isEnrolled := currentRole[key]
			switch {
			case !isEnrolled:
				delta.ToEnroll = append(delta.ToEnroll, model.EnrolChange{CourseID: courseID, UserID: entry.LMSID, Role: role})
			case existingRole == role:
				delta.ToSkip = append(delta.ToSkip, model.SkippedEnrol{GroupID: groupID, Username: username, Reason: model.SkipAlready})
			default:
				delta.ToUpdateRole = append(delta.ToUpdateRole, model.RoleChange{CourseID: courseID, UserID: entry.LMSID, OldRole: existingRole, NewRole: role})
			}
		}
	}

	if req.Options.UnenrollUsers {
		for key := range currentRole {
			if _, expected := delta.ExpectedEnrolments[key]; expected {
				continue
			}
			delta.ToUnenroll = append(delta.ToUnenroll, key)
		}
	}

	e.enrol.delta = delta
	return nil
}

// runApplyEnrolments is P9.
func (e *Engine) runApplyEnrolments(ctx context.Context, _ model.SyncRequest) error {
	d := e.enrol.delta

	for _, c := range d.ToEnroll {
		if err := e.Enrolments.EnsureManualInstance(ctx, c.CourseID); err != nil {
			e.stats["enrollments_errors"]++
			e.recordItemError(phaseApplyEnrol, pkgerrors.Kind(err), enrolKey(c.CourseID, c.UserID), err.Error())
			continue
		}
		if err := e.Enrolments.Enrol(ctx, c.CourseID, c.UserID, c.Role); err != nil {
			e.stats["enrollments_errors"]++
			e.recordItemError(phaseApplyEnrol, pkgerrors.Kind(err), enrolKey(c.CourseID, c.UserID), err.Error())
			continue
		}
		e.stats["enrollments_created"]++
	}

	for _, c := range d.ToUpdateRole {
		if err := e.Enrolments.UpdateRole(ctx, c.CourseID, c.UserID, c.OldRole, c.NewRole); err != nil {
			e.stats["enrollments_errors"]++
			e.recordItemError(phaseApplyEnrol, pkgerrors.Kind(err), enrolKey(c.CourseID, c.UserID), err.Error())
			continue
		}
		e.stats["enrollments_updated_role"]++
	}

	for _, skip := range d.ToSkip {
		if skip.Reason == model.SkipAlready {
			e.stats["enrollments_skipped"]++
		}
	}

	for _, key := range d.ToUnenroll {
		if err := e.Enrolments.Unenrol(ctx, key.CourseID, key.UserID); err != nil {
			e.stats["enrollments_errors"]++
			e.recordItemError(phaseApplyEnrol, pkgerrors.Kind(err), enrolKey(key.CourseID, key.UserID), err.Error())
			continue
		}
		e.stats["enrollments_removed"]++
	}

	return nil
}

func enrolKey(courseID, userID int64) string {
	return strconv.FormatInt(courseID, 10) + ":" + strconv.FormatInt(userID, 10)
}
