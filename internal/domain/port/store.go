// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
	"errors"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
)

// ErrAlreadyExists is returned by CategoryStore.Create when a concurrent
// actor created the same path segment first.
var ErrAlreadyExists = errors.New("category already exists")

// UserStore is the LMS's user write/read capability.
type UserStore interface {
	ListActiveUsers(ctx context.Context) ([]model.LMSUser, error)
	CreateUser(ctx context.Context, u model.LMSUser) (int64, error)
	UpdateUser(ctx context.Context, u model.LMSUser, changedFields []string) error
	SuspendUser(ctx context.Context, userID int64) error
	AssignCourseCreator(ctx context.Context, userID int64) error
}

// CourseStore is the LMS's course write/read capability.
type CourseStore interface {
	FindByIdnumber(ctx context.Context, idnumber string) (*model.LMSCourse, error)
	FindByShortname(ctx context.Context, shortname string) (*model.LMSCourse, error)
	CreateCourse(ctx context.Context, c model.LMSCourse) (int64, error)
	UpdateCourse(ctx context.Context, c model.LMSCourse, changedFields []string) error
	ClaimCourse(ctx context.Context, courseID int64, idnumber string, categoryID int64) error
}

// CategoryStore is the LMS's category tree write/read capability.
type CategoryStore interface {
	// ListAll returns every existing category, used once at resolver init.
	ListAll(ctx context.Context) ([]model.LMSCategory, error)
	// Create creates a single category node beneath parentID and returns its ID.
	// Returns port.ErrAlreadyExists when a concurrent actor created it first.
	Create(ctx context.Context, name string, parentID int64) (int64, error)
}

// EnrolmentStore is the LMS's manual-enrolment write/read capability.
type EnrolmentStore interface {
	// ListManualEnrolments returns every manual enrolment across sync-owned
	// courses (identified by the given set of sync prefixes), for P8's preload
	// and P8's unenrol scan.
	ListManualEnrolments(ctx context.Context, syncPrefixes []string) ([]model.Enrolment, error)
	EnsureManualInstance(ctx context.Context, courseID int64) error
	Enrol(ctx context.Context, courseID, userID int64, role model.Role) error
	UpdateRole(ctx context.Context, courseID, userID int64, oldRole, newRole model.Role) error
	Unenrol(ctx context.Context, courseID, userID int64) error
}

// ProgressSink receives phase progress callbacks from the engine, in strict
// phase order and, within a phase, in item-processing order.
type ProgressSink interface {
	Progress(ctx context.Context, phase string, progressPct int, message string, stats map[string]int) error
}

// JobStore is the durable, shared-mutable-state capability between the
// engine (write-only update) and the Sync API (read-only query).
type JobStore interface {
	Insert(ctx context.Context, job model.Job) error
	Get(ctx context.Context, syncID string) (*model.Job, error)
	Update(ctx context.Context, job model.Job) error
	// FindNonTerminalSince returns non-terminal jobs created at or after
	// since, for the start-conflict guard.
	FindNonTerminalSince(ctx context.Context, since int64) ([]model.Job, error)
	// FindLatestByActor returns the actor's most recent job, for ongoing().
	FindLatestByActor(ctx context.Context, actorID string) (*model.Job, error)
	FindRecentByActor(ctx context.Context, actorID string, sinceUnixSeconds int64) ([]model.Job, error)
	// PutUserMapEntry best-effort records IdP-to-LMS user traceability,
	// populated during P3 for every user created, updated or matched
	// unchanged.
	PutUserMapEntry(ctx context.Context, idpID, idpUsername string, lmsUserID int64) error
}
