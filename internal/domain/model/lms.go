// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// Role is an enrolment role. Only two roles are modelled, plus the
// system-level coursecreator grant handled separately.
type Role string

const (
	// RoleStudent is the default enrolment role.
	RoleStudent Role = "student"
	// RoleEditingTeacher is the teacher enrolment role.
	RoleEditingTeacher Role = "editingteacher"
)

// LMSUser mirrors one row of the LMS's user table. Username and email are
// lowercased and unique among non-deleted users.
type LMSUser struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	AuthMethod string `json:"auth_method"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Suspended  bool   `json:"suspended"`
	Deleted    bool   `json:"deleted"`
}

// LMSCourse mirrors one row of the LMS's course table. Every sync-managed
// course carries an Idnumber prefixed by a known sync prefix.
type LMSCourse struct {
	ID         int64  `json:"id"`
	Idnumber   string `json:"idnumber"`
	Shortname  string `json:"shortname"`
	Fullname   string `json:"fullname"`
	CategoryID int64  `json:"category_id"`
	Format     string `json:"format"`
	Visible    bool   `json:"visible"`
}

// LMSCategory is one node of the LMS's category tree. The engine only ever
// creates nodes; it never moves or deletes them.
type LMSCategory struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id"`
	Path     string `json:"path"`
}

// Enrolment is a manual enrolment of a user into a course.
type Enrolment struct {
	CourseID int64  `json:"course_id"`
	UserID   int64  `json:"user_id"`
	Method   string `json:"method"`
	Role     Role   `json:"role"`
}

// CourseUserKey is the natural identity of an enrolment, used for idempotent
// apply and for the expected_enrolments set in P8.
type CourseUserKey struct {
	CourseID int64 `json:"course_id"`
	UserID   int64 `json:"user_id"`
}
