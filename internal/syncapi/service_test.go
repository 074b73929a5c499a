// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package syncapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/jobstore"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/schema"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/syncengine"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

func kindOf(err error) string { return pkgerrors.Kind(err) }

// noopIdP satisfies port.IdPClient with an empty roster, enough to drive a
// Preview or Run to completion without reaching a real identity provider.
type noopIdP struct{}

func (noopIdP) ListUsers(ctx context.Context, offset, max int) ([]model.IdPUser, error) {
	return nil, nil
}
func (noopIdP) ListGroupsFlat(ctx context.Context) ([]model.IdPGroup, error) { return nil, nil }
func (noopIdP) ListGroupMembers(ctx context.Context, groupID string, offset, max int) ([]model.IdPGroupMember, error) {
	return nil, nil
}
func (noopIdP) AddUserToGroup(ctx context.Context, userID, groupID string) error    { return nil }
func (noopIdP) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error { return nil }
func (noopIdP) CreateUser(ctx context.Context, user model.IdPUser) (string, error)  { return "", nil }
func (noopIdP) UpdateUser(ctx context.Context, user model.IdPUser) error            { return nil }

// memUserStore, memCourseStore, memCategoryStore, memEnrolmentStore are the
// minimal in-memory doubles this package's tests need; the engine's own
// fuller doubles are unexported to internal/syncengine.
type memUserStore struct{ users []model.LMSUser }

func (s *memUserStore) ListActiveUsers(ctx context.Context) ([]model.LMSUser, error) {
	return s.users, nil
}
func (s *memUserStore) CreateUser(ctx context.Context, u model.LMSUser) (int64, error) {
	u.ID = int64(len(s.users) + 1)
	s.users = append(s.users, u)
	return u.ID, nil
}
func (s *memUserStore) UpdateUser(ctx context.Context, u model.LMSUser, changedFields []string) error {
	return nil
}
func (s *memUserStore) SuspendUser(ctx context.Context, userID int64) error { return nil }
func (s *memUserStore) AssignCourseCreator(ctx context.Context, userID int64) error { return nil }

type memCourseStore struct{}

func (memCourseStore) FindByIdnumber(ctx context.Context, idnumber string) (*model.LMSCourse, error) {
	return nil, nil
}
func (memCourseStore) FindByShortname(ctx context.Context, shortname string) (*model.LMSCourse, error) {
	return nil, nil
}
func (memCourseStore) CreateCourse(ctx context.Context, c model.LMSCourse) (int64, error) {
	return 1, nil
}
func (memCourseStore) UpdateCourse(ctx context.Context, c model.LMSCourse, changedFields []string) error {
	return nil
}
func (memCourseStore) ClaimCourse(ctx context.Context, courseID int64, idnumber string, categoryID int64) error {
	return nil
}

type memCategoryStore struct{}

func (memCategoryStore) ListAll(ctx context.Context) ([]model.LMSCategory, error) { return nil, nil }
func (memCategoryStore) Create(ctx context.Context, name string, parentID int64) (int64, error) {
	return 1, nil
}

type memEnrolmentStore struct{}

func (memEnrolmentStore) ListManualEnrolments(ctx context.Context, syncPrefixes []string) ([]model.Enrolment, error) {
	return nil, nil
}
func (memEnrolmentStore) EnsureManualInstance(ctx context.Context, courseID int64) error { return nil }
func (memEnrolmentStore) Enrol(ctx context.Context, courseID, userID int64, role model.Role) error {
	return nil
}
func (memEnrolmentStore) UpdateRole(ctx context.Context, courseID, userID int64, oldRole, newRole model.Role) error {
	return nil
}
func (memEnrolmentStore) Unenrol(ctx context.Context, courseID, userID int64) error { return nil }

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := jobstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	schemas := schema.DefaultSchemas()
	processor := schema.NewProcessor(schemas, schema.NewTransformer(nil))

	return &Service{
		Jobs: store,
		NewEngine: func() *syncengine.Engine {
			return &syncengine.Engine{
				IdP:        noopIdP{},
				Users:      &memUserStore{},
				Courses:    memCourseStore{},
				Categories: memCategoryStore{},
				Enrolments: memEnrolmentStore{},
				Jobs:       store,
				Processor:  processor,
				Cfg: syncengine.Config{
					Schemas:  schemas,
					PageSize: 100,
				},
			}
		},
	}
}

func TestServicePreviewRejectsMissingActor(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Preview(context.Background(), "", model.DirectionIdPToLMS, model.Options{})
	require.Error(t, err)
}

func TestServiceStartThenStatusThenOngoing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	syncID, err := svc.Start(ctx, "actor-1", model.DirectionIdPToLMS, model.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, syncID)

	job, err := svc.Status(ctx, syncID)
	require.NoError(t, err)
	assert.Equal(t, syncID, job.SyncID)
	assert.Equal(t, "actor-1", job.ActorID)

	// The background run may or may not have reached completion yet; either
	// way the job is not unknown, and ongoing() reflects the actor's row
	// for as long as it stays non-terminal.
	ongoing, err := svc.Ongoing(ctx, "actor-1")
	require.NoError(t, err)
	if ongoing != nil {
		assert.Equal(t, syncID, ongoing.SyncID)
	}
}

func TestServiceStartRejectsDoubleClick(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, "actor-2", model.DirectionIdPToLMS, model.Options{})
	require.NoError(t, err)

	_, err = svc.Start(ctx, "actor-2", model.DirectionIdPToLMS, model.Options{})
	require.Error(t, err)
	assert.Equal(t, "ConflictError", kindOf(err))
}

func TestServiceStartRejectsConcurrentSync(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Inserted directly rather than via Start, so the assertion below does
	// not race the background run this other actor's own Start would kick
	// off (which, against a stub IdP with no data, can finish instantly).
	require.NoError(t, svc.Jobs.Insert(ctx, model.Job{
		SyncID: "still-running", ActorID: "actor-3",
		Status: model.JobProcessing, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))

	_, err := svc.Start(ctx, "actor-4", model.DirectionIdPToLMS, model.Options{})
	require.Error(t, err)
	assert.Equal(t, "ConflictError", kindOf(err))
}

func TestServiceCancelIsNoopOnTerminalJob(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	job := model.Job{
		SyncID: "already-done", ActorID: "actor-5",
		Status: model.JobCompleted, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, svc.Jobs.Insert(ctx, job))

	require.NoError(t, svc.Cancel(ctx, "already-done"))

	got, err := svc.Jobs.Get(ctx, "already-done")
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, got.Status)
}

func TestServiceOngoingReturnsNilWhenNone(t *testing.T) {
	svc := newTestService(t)
	job, err := svc.Ongoing(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, job)
}
