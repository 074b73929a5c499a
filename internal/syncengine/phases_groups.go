// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package syncengine

import (
	"context"
	"strings"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/schema"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

type engineGroupState struct {
	idpGroups []model.IdPGroup
	delta     model.GroupDelta
	// matches maps group ID to its SchemaMatch, for groups that had one —
	// populated so P7/P8 don't need to re-run the Schema Processor.
	matches map[string]model.SchemaMatch
	// courseIDs maps group ID to the resolved course ID, populated in P6.
	courseIDs map[string]int64
	// seenIdnumbers guards the §3 SchemaMatch uniqueness invariant: first
	// schema-produced idnumber for a given value wins; later collisions are
	// recorded as unmatched-group warnings.
	seenIdnumbers map[string]string
}

// runFetchGroups is P4.
func (e *Engine) runFetchGroups(ctx context.Context, _ model.SyncRequest) error {
	groups, err := e.IdP.ListGroupsFlat(ctx)
	if err != nil {
		return pkgerrors.NewRemoteError(0, "", "fetching groups", err)
	}
	e.groups.idpGroups = groups
	return nil
}

// runComputeGroupDelta is P5.
func (e *Engine) runComputeGroupDelta(ctx context.Context, _ model.SyncRequest) error {
	e.groups.matches = map[string]model.SchemaMatch{}
	e.groups.seenIdnumbers = map[string]string{}

	var delta model.GroupDelta
	for _, g := range e.groups.idpGroups {
		match, err := e.Processor.Process(g.Name, g.ID)
		if err != nil {
			e.stats["courses_errors"]++
			e.recordItemError(phaseGroupDelta, "ValidationError", g.Name, "schema match error: "+err.Error())
			continue
		}
		if match == nil {
			delta.Unmatched = append(delta.Unmatched, model.UnmatchedGroup{Group: g})
			continue
		}

		if owner, collides := e.groups.seenIdnumbers[match.CourseIdnumber]; collides && owner != g.ID {
			delta.Unmatched = append(delta.Unmatched, model.UnmatchedGroup{Group: g})
			e.recordItemError(phaseGroupDelta, "ConflictError", g.Name,
				"idnumber collision with an earlier group for "+match.CourseIdnumber)
			continue
		}
		e.groups.seenIdnumbers[match.CourseIdnumber] = g.ID
		e.groups.matches[g.ID] = *match

		existing, err := e.Courses.FindByIdnumber(ctx, match.CourseIdnumber)
		if err != nil {
			e.stats["courses_errors"]++
			e.recordItemError(phaseGroupDelta, pkgerrors.Kind(err), g.Name, err.Error())
			continue
		}

		change := model.GroupChange{Group: g, Match: *match}
		switch {
		case existing == nil:
			delta.ToCreate = append(delta.ToCreate, change)
		case existing.Fullname != match.CourseFull:
			delta.ToUpdate = append(delta.ToUpdate, model.GroupCourseChange{
				GroupChange:    change,
				ExistingCourse: *existing,
				ChangedFields:  []string{"fullname"},
			})
		default:
			delta.ToSkip = append(delta.ToSkip, change)
		}
	}

	e.groups.delta = delta
	return nil
}

// syncPrefixSuffix marks a shortname as claimed by this sync when it
// collides with a pre-existing, non-sync-owned course.
const syncPrefixSuffix = "_SYNC"

// runApplyGroups is P6.
func (e *Engine) runApplyGroups(ctx context.Context, _ model.SyncRequest) error {
	e.groups.courseIDs = map[string]int64{}
	d := e.groups.delta

	for _, change := range d.ToCreate {
		categoryID, err := e.resolver.Resolve(ctx, change.Match.CategoryPath)
		if err != nil {
			e.stats["courses_errors"]++
			e.recordItemError(phaseApplyGroups, pkgerrors.Kind(err), change.Group.Name, err.Error())
			continue
		}

		shortname := change.Match.CourseShort
		if claimed, claimedID := e.tryClaim(ctx, shortname, change.Match.CourseIdnumber, categoryID); claimed {
			e.groups.courseIDs[change.Group.ID] = claimedID
			e.stats["courses_updated"]++
			continue
		}

		if byShort, err := e.Courses.FindByShortname(ctx, shortname); err == nil && byShort != nil &&
			!e.hasKnownSyncPrefix(byShort.Idnumber) {
			shortname += syncPrefixSuffix
		}

		courseID, err := e.Courses.CreateCourse(ctx, model.LMSCourse{
			Idnumber:   change.Match.CourseIdnumber,
			Shortname:  shortname,
			Fullname:   change.Match.CourseFull,
			CategoryID: categoryID,
			Format:     "topics",
			Visible:    true,
		})
		if err != nil {
			e.stats["courses_errors"]++
			e.recordItemError(phaseApplyGroups, pkgerrors.Kind(err), change.Group.Name, err.Error())
			continue
		}
		e.stats["courses_created"]++
		e.groups.courseIDs[change.Group.ID] = courseID
	}

	for _, change := range d.ToUpdate {
		updated := change.ExistingCourse
		updated.Fullname = change.Match.CourseFull
		if err := e.Courses.UpdateCourse(ctx, updated, change.ChangedFields); err != nil {
			e.stats["courses_errors"]++
			e.recordItemError(phaseApplyGroups, pkgerrors.Kind(err), change.Group.Name, err.Error())
			continue
		}
		e.stats["courses_updated"]++
		e.groups.courseIDs[change.Group.ID] = updated.ID
	}

	for _, change := range d.ToSkip {
		e.stats["courses_skipped"]++
		if existing, err := e.Courses.FindByIdnumber(ctx, change.Match.CourseIdnumber); err == nil && existing != nil {
			e.groups.courseIDs[change.Group.ID] = existing.ID
		}
	}

	return nil
}

// tryClaim implements the claim policy: a course already present under the
// computed shortname but with an empty idnumber is claimed rather than
// duplicated, and counted as an update.
func (e *Engine) tryClaim(ctx context.Context, shortname, idnumber string, categoryID int64) (bool, int64) {
	existing, err := e.Courses.FindByShortname(ctx, shortname)
	if err != nil || existing == nil || existing.Idnumber != "" {
		return false, 0
	}
	if err := e.Courses.ClaimCourse(ctx, existing.ID, idnumber, categoryID); err != nil {
		return false, 0
	}
	return true, existing.ID
}

func (e *Engine) hasKnownSyncPrefix(idnumber string) bool {
	for _, prefix := range schema.SyncPrefixes(e.Cfg.Schemas) {
		if strings.HasPrefix(idnumber, prefix) {
			return true
		}
	}
	return false
}
