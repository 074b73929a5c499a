// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package syncengine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/port"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

// fakeIdP is an in-memory port.IdPClient test double.
type fakeIdP struct {
	users       []model.IdPUser
	groups      []model.IdPGroup
	members     map[string][]model.IdPGroupMember
	failFirst401 bool
	called401    bool
}

func (f *fakeIdP) ListUsers(_ context.Context, offset, max int) ([]model.IdPUser, error) {
	if f.failFirst401 && !f.called401 {
		f.called401 = true
		return nil, pkgerrors.NewAuthError("token expired")
	}
	return page(f.users, offset, max), nil
}

func (f *fakeIdP) ListGroupsFlat(_ context.Context) ([]model.IdPGroup, error) {
	return model.Flatten(f.groups), nil
}

func (f *fakeIdP) ListGroupMembers(_ context.Context, groupID string, offset, max int) ([]model.IdPGroupMember, error) {
	return page(f.members[groupID], offset, max), nil
}

func (f *fakeIdP) AddUserToGroup(_ context.Context, _, _ string) error    { return nil }
func (f *fakeIdP) RemoveUserFromGroup(_ context.Context, _, _ string) error { return nil }
func (f *fakeIdP) CreateUser(_ context.Context, _ model.IdPUser) (string, error) { return "", nil }
func (f *fakeIdP) UpdateUser(_ context.Context, _ model.IdPUser) error    { return nil }

func page[T any](items []T, offset, max int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + max
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// fakeUserStore is an in-memory port.UserStore test double.
type fakeUserStore struct {
	mu              sync.Mutex
	users           map[int64]model.LMSUser
	nextID          int64
	coursecreators  map[int64]bool
}

func newFakeUserStore(existing ...model.LMSUser) *fakeUserStore {
	s := &fakeUserStore{users: map[int64]model.LMSUser{}, nextID: 1, coursecreators: map[int64]bool{}}
	for _, u := range existing {
		s.users[u.ID] = u
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}
	return s
}

func (s *fakeUserStore) ListActiveUsers(_ context.Context) ([]model.LMSUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LMSUser
	for _, u := range s.users {
		if !u.Deleted {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeUserStore) CreateUser(_ context.Context, u model.LMSUser) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	u.ID = id
	s.users[id] = u
	return id, nil
}

func (s *fakeUserStore) UpdateUser(_ context.Context, u model.LMSUser, _ []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) SuspendUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.Suspended = true
	s.users[userID] = u
	return nil
}

func (s *fakeUserStore) AssignCourseCreator(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coursecreators[userID] = true
	return nil
}

// fakeCourseStore is an in-memory port.CourseStore test double.
type fakeCourseStore struct {
	mu      sync.Mutex
	courses map[int64]model.LMSCourse
	nextID  int64
}

func newFakeCourseStore() *fakeCourseStore {
	return &fakeCourseStore{courses: map[int64]model.LMSCourse{}, nextID: 1}
}

func (s *fakeCourseStore) FindByIdnumber(_ context.Context, idnumber string) (*model.LMSCourse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.courses {
		if c.Idnumber == idnumber {
			cc := c
			return &cc, nil
		}
	}
	return nil, nil
}

func (s *fakeCourseStore) FindByShortname(_ context.Context, shortname string) (*model.LMSCourse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.courses {
		if c.Shortname == shortname {
			cc := c
			return &cc, nil
		}
	}
	return nil, nil
}

func (s *fakeCourseStore) CreateCourse(_ context.Context, c model.LMSCourse) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	c.ID = id
	s.courses[id] = c
	return id, nil
}

func (s *fakeCourseStore) UpdateCourse(_ context.Context, c model.LMSCourse, _ []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = c
	return nil
}

func (s *fakeCourseStore) ClaimCourse(_ context.Context, courseID int64, idnumber string, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.courses[courseID]
	c.Idnumber = idnumber
	c.CategoryID = categoryID
	s.courses[courseID] = c
	return nil
}

// fakeCategoryStore is an in-memory port.CategoryStore test double.
type fakeCategoryStore struct {
	mu         sync.Mutex
	categories []model.LMSCategory
	nextID     int64
}

func newFakeCategoryStore() *fakeCategoryStore {
	return &fakeCategoryStore{nextID: 1000}
}

func (s *fakeCategoryStore) ListAll(_ context.Context) ([]model.LMSCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.LMSCategory, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

// Create stamps the same ID-based path the real lmsstore.CategoryStore
// does ("/1/3"), and rejects a second create under the same (parent, name)
// pair with port.ErrAlreadyExists, matching the real store's unique index.
func (s *fakeCategoryStore) Create(_ context.Context, name string, parentID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var parentPath string
	for _, c := range s.categories {
		if c.ParentID == parentID && c.Name == name {
			return 0, port.ErrAlreadyExists
		}
		if c.ID == parentID {
			parentPath = c.Path
		}
	}

	s.nextID++
	id := s.nextID
	s.categories = append(s.categories, model.LMSCategory{ID: id, Name: name, ParentID: parentID, Path: fmt.Sprintf("%s/%d", parentPath, id)})
	return id, nil
}

// fakeEnrolmentStore is an in-memory port.EnrolmentStore test double.
type fakeEnrolmentStore struct {
	mu          sync.Mutex
	enrolments  map[model.CourseUserKey]model.Role
	instances   map[int64]bool
}

func newFakeEnrolmentStore() *fakeEnrolmentStore {
	return &fakeEnrolmentStore{enrolments: map[model.CourseUserKey]model.Role{}, instances: map[int64]bool{}}
}

func (s *fakeEnrolmentStore) ListManualEnrolments(_ context.Context, _ []string) ([]model.Enrolment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Enrolment
	for k, role := range s.enrolments {
		out = append(out, model.Enrolment{CourseID: k.CourseID, UserID: k.UserID, Method: "manual", Role: role})
	}
	return out, nil
}

func (s *fakeEnrolmentStore) EnsureManualInstance(_ context.Context, courseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[courseID] = true
	return nil
}

func (s *fakeEnrolmentStore) Enrol(_ context.Context, courseID, userID int64, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrolments[model.CourseUserKey{CourseID: courseID, UserID: userID}] = role
	return nil
}

func (s *fakeEnrolmentStore) UpdateRole(_ context.Context, courseID, userID int64, _, newRole model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrolments[model.CourseUserKey{CourseID: courseID, UserID: userID}] = newRole
	return nil
}

func (s *fakeEnrolmentStore) Unenrol(_ context.Context, courseID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.enrolments, model.CourseUserKey{CourseID: courseID, UserID: userID})
	return nil
}

// fakeJobStore is an in-memory port.JobStore test double.
type fakeJobStore struct {
	mu        sync.Mutex
	jobs      map[string]model.Job
	userMap   map[string]int64 // idp_id -> lms_user_id
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: map[string]model.Job{}, userMap: map[string]int64{}}
}

func (s *fakeJobStore) Insert(_ context.Context, job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.SyncID] = job
	return nil
}

func (s *fakeJobStore) Get(_ context.Context, syncID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[syncID]
	if !ok {
		return nil, pkgerrors.NewNotFound("job not found")
	}
	return &j, nil
}

func (s *fakeJobStore) Update(_ context.Context, job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.SyncID] = job
	return nil
}

func (s *fakeJobStore) FindNonTerminalSince(_ context.Context, since int64) ([]model.Job, error) {
	return nil, nil
}

func (s *fakeJobStore) FindLatestByActor(_ context.Context, actorID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.Job
	for _, j := range s.jobs {
		if j.ActorID != actorID {
			continue
		}
		jj := j
		if latest == nil || jj.CreatedAt.After(latest.CreatedAt) {
			latest = &jj
		}
	}
	return latest, nil
}

func (s *fakeJobStore) FindRecentByActor(_ context.Context, actorID string, sinceUnixSeconds int64) ([]model.Job, error) {
	return nil, nil
}

func (s *fakeJobStore) PutUserMapEntry(_ context.Context, idpID, _ string, lmsUserID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userMap[idpID] = lmsUserID
	return nil
}

var _ port.IdPClient = (*fakeIdP)(nil)
var _ port.UserStore = (*fakeUserStore)(nil)
var _ port.CourseStore = (*fakeCourseStore)(nil)
var _ port.CategoryStore = (*fakeCategoryStore)(nil)
var _ port.EnrolmentStore = (*fakeEnrolmentStore)(nil)
var _ port.JobStore = (*fakeJobStore)(nil)
