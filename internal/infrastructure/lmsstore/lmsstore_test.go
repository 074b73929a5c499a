// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package lmsstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUserStoreCreateListUpdateSuspend(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	id, err := users.CreateUser(ctx, model.LMSUser{Username: "Alice", Email: "A@X.com", AuthMethod: "oauth2", FirstName: "Alice", LastName: "A"})
	require.NoError(t, err)
	require.NotZero(t, id)

	all, err := users.ListActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "alice", all[0].Username, "username is lowercased on write")
	assert.Equal(t, "a@x.com", all[0].Email)

	updated := all[0]
	updated.Email = "alice2@x.com"
	require.NoError(t, users.UpdateUser(ctx, updated, []string{"email"}))

	all, err = users.ListActiveUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice2@x.com", all[0].Email)

	require.NoError(t, users.SuspendUser(ctx, id))
	all, err = users.ListActiveUsers(ctx)
	require.NoError(t, err)
	assert.True(t, all[0].Suspended)
}

func TestUserStoreCreateRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	_, err := users.CreateUser(ctx, model.LMSUser{Username: "bob", Email: "b1@x.com", AuthMethod: "oauth2"})
	require.NoError(t, err)

	_, err = users.CreateUser(ctx, model.LMSUser{Username: "bob", Email: "b2@x.com", AuthMethod: "oauth2"})
	require.Error(t, err)
}

func TestUserStoreAssignCourseCreatorIsIdempotent(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	id, err := users.CreateUser(ctx, model.LMSUser{Username: "carol", Email: "c@x.com", AuthMethod: "oauth2"})
	require.NoError(t, err)

	require.NoError(t, users.AssignCourseCreator(ctx, id))
	require.NoError(t, users.AssignCourseCreator(ctx, id))
}

func TestCourseStoreCreateFindClaim(t *testing.T) {
	ctx := context.Background()
	courses := newTestStore(t).Courses()

	found, err := courses.FindByIdnumber(ctx, "kc_10a")
	require.NoError(t, err)
	assert.Nil(t, found)

	id, err := courses.CreateCourse(ctx, model.LMSCourse{Idnumber: "kc_10a", Shortname: "10a", Fullname: "Class 10a", Visible: true})
	require.NoError(t, err)

	found, err = courses.FindByIdnumber(ctx, "kc_10a")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, "Class 10a", found.Fullname)

	byShort, err := courses.FindByShortname(ctx, "10a")
	require.NoError(t, err)
	require.NotNil(t, byShort)
	assert.Equal(t, id, byShort.ID)

	found.Fullname = "Class 10a (renamed)"
	require.NoError(t, courses.UpdateCourse(ctx, *found, []string{"fullname"}))
	found, err = courses.FindByIdnumber(ctx, "kc_10a")
	require.NoError(t, err)
	assert.Equal(t, "Class 10a (renamed)", found.Fullname)
}

func TestCourseStoreClaimExistingCourse(t *testing.T) {
	ctx := context.Background()
	courses := newTestStore(t).Courses()

	id, err := courses.CreateCourse(ctx, model.LMSCourse{Idnumber: "", Shortname: "legacy-101", Fullname: "Legacy 101"})
	require.NoError(t, err)

	require.NoError(t, courses.ClaimCourse(ctx, id, "kc_legacy-101", 2))

	claimed, err := courses.FindByIdnumber(ctx, "kc_legacy-101")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, int64(2), claimed.CategoryID)
}

func TestCategoryStoreListAllAndCreateNested(t *testing.T) {
	ctx := context.Background()
	categories := newTestStore(t).Categories()

	all, err := categories.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	rootID, err := categories.Create(ctx, "Classes", 0)
	require.NoError(t, err)

	childID, err := categories.Create(ctx, "Grade 10", rootID)
	require.NoError(t, err)

	all, err = categories.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	var child model.LMSCategory
	for _, c := range all {
		if c.ID == childID {
			child = c
		}
	}
	assert.Equal(t, rootID, child.ParentID)
	assert.Contains(t, child.Path, "/")
}

func TestCategoryStoreCreateUnderUnknownParentIsNotFound(t *testing.T) {
	ctx := context.Background()
	categories := newTestStore(t).Categories()

	_, err := categories.Create(ctx, "Orphan", 999)
	require.Error(t, err)
}

func TestEnrolmentStoreEnrolUpdateRoleUnenrol(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	courses := store.Courses()
	users := store.Users()
	enrolments := store.Enrolments()

	courseID, err := courses.CreateCourse(ctx, model.LMSCourse{Idnumber: "kc_10a", Shortname: "10a", Fullname: "Class 10a"})
	require.NoError(t, err)
	userID, err := users.CreateUser(ctx, model.LMSUser{Username: "stu", Email: "s@x.com", AuthMethod: "oauth2"})
	require.NoError(t, err)

	require.NoError(t, enrolments.EnsureManualInstance(ctx, courseID))
	require.NoError(t, enrolments.Enrol(ctx, courseID, userID, model.RoleStudent))

	all, err := enrolments.ListManualEnrolments(ctx, []string{"kc_"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.RoleStudent, all[0].Role)

	require.NoError(t, enrolments.UpdateRole(ctx, courseID, userID, model.RoleStudent, model.RoleEditingTeacher))
	all, err = enrolments.ListManualEnrolments(ctx, []string{"kc_"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.RoleEditingTeacher, all[0].Role)

	require.NoError(t, enrolments.Unenrol(ctx, courseID, userID))
	all, err = enrolments.ListManualEnrolments(ctx, []string{"kc_"})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEnrolmentStoreListFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	courses := store.Courses()
	users := store.Users()
	enrolments := store.Enrolments()

	matched, err := courses.CreateCourse(ctx, model.LMSCourse{Idnumber: "kc_10a", Shortname: "10a", Fullname: "Class 10a"})
	require.NoError(t, err)
	unmatched, err := courses.CreateCourse(ctx, model.LMSCourse{Idnumber: "other_101", Shortname: "other", Fullname: "Other"})
	require.NoError(t, err)

	userID, err := users.CreateUser(ctx, model.LMSUser{Username: "stu", Email: "s@x.com", AuthMethod: "oauth2"})
	require.NoError(t, err)

	for _, cid := range []int64{matched, unmatched} {
		require.NoError(t, enrolments.EnsureManualInstance(ctx, cid))
		require.NoError(t, enrolments.Enrol(ctx, cid, userID, model.RoleStudent))
	}

	all, err := enrolments.ListManualEnrolments(ctx, []string{"kc_"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, matched, all[0].CourseID)
}
