// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// UserCacheEntry is the run-scoped username -> {lms_id, is_teacher} mapping
// produced in P3 and consumed by every later phase.
type UserCacheEntry struct {
	LMSID     int64
	IsTeacher bool
}

// SkipReason documents why an item was routed to a to_skip bucket.
type SkipReason string

const (
	SkipNoChanges      SkipReason = "no_changes"
	SkipAlready        SkipReason = "already"
	SkipMissingField   SkipReason = "missing_field"
	SkipDisabled       SkipReason = "disabled"
	SkipUserNotFound   SkipReason = "user_not_found"
	SkipUnmatchedGroup SkipReason = "unmatched_group"
	SkipIdentical      SkipReason = "identical"
)

// UserChange pairs an IdP user with its matched LMS user and the set of
// fields that differ, for items routed to UserDelta.ToUpdate.
type UserChange struct {
	IdPUser       IdPUser  `json:"idp_user"`
	LMSUser       LMSUser  `json:"lms_user"`
	ChangedFields []string `json:"changed_fields"`
}

// SkippedUser records an IdP user excluded from create/update/suspend, with
// the reason it was skipped.
type SkippedUser struct {
	IdPUser IdPUser    `json:"idp_user"`
	Reason  SkipReason `json:"reason"`
}

// UserDelta is the P2 output: the difference between the IdP roster and the
// LMS's non-deleted user table.
type UserDelta struct {
	ToCreate  []IdPUser     `json:"to_create"`
	ToUpdate  []UserChange  `json:"to_update"`
	ToSuspend []LMSUser     `json:"to_suspend"`
	ToSkip    []SkippedUser `json:"to_skip"`
}

// GroupChange pairs a matched group with the SchemaMatch that produced the
// course shape it will create or update.
type GroupChange struct {
	Group IdPGroup    `json:"group"`
	Match SchemaMatch `json:"match"`
}

// GroupCourseChange additionally carries the course diff for to_update items.
type GroupCourseChange struct {
	GroupChange
	ExistingCourse LMSCourse `json:"existing_course"`
	ChangedFields  []string  `json:"changed_fields"`
}

// UnmatchedGroup records a group no schema matched.
type UnmatchedGroup struct {
	Group IdPGroup `json:"group"`
}

// GroupDelta is the P5 output.
type GroupDelta struct {
	ToCreate  []GroupChange       `json:"to_create"`
	ToUpdate  []GroupCourseChange `json:"to_update"`
	ToSkip    []GroupChange       `json:"to_skip"`
	Unmatched []UnmatchedGroup    `json:"unmatched"`
}

// EnrolChange is one enrolment mutation candidate.
type EnrolChange struct {
	CourseID int64    `json:"course_id"`
	UserID   int64    `json:"user_id"`
	Role     Role     `json:"role"`
	Group    IdPGroup `json:"group"`
}

// RoleChange is an existing enrolment whose role must be updated.
type RoleChange struct {
	CourseID int64 `json:"course_id"`
	UserID   int64 `json:"user_id"`
	OldRole  Role  `json:"old_role"`
	NewRole  Role  `json:"new_role"`
}

// SkippedEnrol records a membership excluded from enrolment, with reason.
type SkippedEnrol struct {
	GroupID  string     `json:"group_id"`
	Username string     `json:"username"`
	Reason   SkipReason `json:"reason"`
}

// EnrolDelta is the P8 output. ExpectedEnrolments is used to compute
// to_unenroll when sync_unenroll_users is enabled.
type EnrolDelta struct {
	ToEnroll           []EnrolChange              `json:"to_enroll"`
	ToUpdateRole       []RoleChange               `json:"to_update_role"`
	ToUnenroll         []CourseUserKey            `json:"to_unenroll"`
	ToSkip             []SkippedEnrol             `json:"to_skip"`
	ExpectedEnrolments map[CourseUserKey]struct{} `json:"-"`
}

// NewEnrolDelta returns an EnrolDelta with its set initialized.
func NewEnrolDelta() *EnrolDelta {
	return &EnrolDelta{ExpectedEnrolments: make(map[CourseUserKey]struct{})}
}

// PreviewResult is the read-only projection of phases 1-2, 4-5, and a
// membership scan, with the same shapes the real run would produce. No job
// row backs a preview; Stats is derived the same way a completed job's
// counters would be, for display before any actor commits to start().
type PreviewResult struct {
	Users      UserDelta      `json:"users"`
	Groups     GroupDelta     `json:"groups"`
	Enrolments EnrolDelta     `json:"enrolments"`
	Warnings   []string       `json:"warnings"`
	Stats      map[string]int `json:"stats"`
}
