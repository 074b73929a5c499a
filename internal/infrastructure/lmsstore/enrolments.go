// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package lmsstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/port"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

// EnrolmentStore implements port.EnrolmentStore against mdl_enrol,
// mdl_user_enrolments, mdl_context, and mdl_role_assignments, restricted
// throughout to enrol=manual per spec §4.6's P8 preload contract.
type EnrolmentStore struct {
	db *sql.DB
}

var _ port.EnrolmentStore = (*EnrolmentStore)(nil)

func roleToID(r model.Role) int {
	if r == model.RoleEditingTeacher {
		return roleEditingTeacher
	}
	return roleStudent
}

func idToRole(id int) model.Role {
	if id == roleEditingTeacher {
		return model.RoleEditingTeacher
	}
	return model.RoleStudent
}

// ListManualEnrolments returns every manual enrolment across courses whose
// idnumber carries one of syncPrefixes, joining user_enrolments to the
// course's context's role assignment the same way Moodle's own enrolment
// report does it.
func (s *EnrolmentStore) ListManualEnrolments(ctx context.Context, syncPrefixes []string) ([]model.Enrolment, error) {
	if len(syncPrefixes) == 0 {
		return nil, nil
	}

	var clauses []string
	var args []any
	for _, p := range syncPrefixes {
		clauses = append(clauses, "c.idnumber LIKE ?")
		args = append(args, p+"%")
	}

	query := `
		SELECT ue.userid, c.id, ra.roleid
		FROM mdl_user_enrolments ue
		JOIN mdl_enrol e ON e.id = ue.enrolid AND e.enrol = 'manual'
		JOIN mdl_course c ON c.id = e.courseid
		JOIN mdl_context ctx ON ctx.contextlevel = ` + strconv.Itoa(contextLevelCourse) + ` AND ctx.instanceid = c.id
		JOIN mdl_role_assignments ra ON ra.contextid = ctx.id AND ra.userid = ue.userid
		WHERE ` + strings.Join(clauses, " OR ")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.NewStoreError("listing manual enrolments", err)
	}
	defer rows.Close()

	var enrolments []model.Enrolment
	for rows.Next() {
		var userID, courseID int64
		var roleID int
		if err := rows.Scan(&userID, &courseID, &roleID); err != nil {
			return nil, pkgerrors.NewStoreError("scanning enrolment row", err)
		}
		enrolments = append(enrolments, model.Enrolment{
			CourseID: courseID, UserID: userID, Method: "manual", Role: idToRole(roleID),
		})
	}
	return enrolments, rows.Err()
}

// EnsureManualInstance creates the course's manual enrol instance if it
// does not yet exist, and the course context row alongside it.
func (s *EnrolmentStore) EnsureManualInstance(ctx context.Context, courseID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO mdl_context (contextlevel, instanceid) VALUES (?, ?)
	`, contextLevelCourse, courseID); err != nil {
		return pkgerrors.NewStoreError("ensuring course context", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO mdl_enrol (enrol, courseid, status) VALUES ('manual', ?, 0)
	`, courseID); err != nil {
		return pkgerrors.NewStoreError("ensuring manual enrol instance", err)
	}
	return nil
}

// Enrol creates a manual enrolment and its role assignment. The manual
// enrol instance must already exist (EnsureManualInstance).
func (s *EnrolmentStore) Enrol(ctx context.Context, courseID, userID int64, role model.Role) error {
	var enrolID int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT id FROM mdl_enrol WHERE courseid = ? AND enrol = 'manual'
	`, courseID).Scan(&enrolID); err != nil {
		return pkgerrors.NewStoreError("loading manual enrol instance", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO mdl_user_enrolments (enrolid, userid) VALUES (?, ?)
	`, enrolID, userID); err != nil {
		return pkgerrors.NewStoreError("enrolling user", err)
	}

	var contextID int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT id FROM mdl_context WHERE contextlevel = ? AND instanceid = ?
	`, contextLevelCourse, courseID).Scan(&contextID); err != nil {
		return pkgerrors.NewStoreError("loading course context", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO mdl_role_assignments (roleid, contextid, userid) VALUES (?, ?, ?)
	`, roleToID(role), contextID, userID); err != nil {
		return pkgerrors.NewStoreError("assigning enrolment role", err)
	}
	return nil
}

// UpdateRole swaps a user's role assignment in the course's context,
// leaving the enrolment itself untouched.
func (s *EnrolmentStore) UpdateRole(ctx context.Context, courseID, userID int64, oldRole, newRole model.Role) error {
	var contextID int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT id FROM mdl_context WHERE contextlevel = ? AND instanceid = ?
	`, contextLevelCourse, courseID).Scan(&contextID); err != nil {
		return pkgerrors.NewStoreError("loading course context", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM mdl_role_assignments WHERE contextid = ? AND userid = ? AND roleid = ?
	`, contextID, userID, roleToID(oldRole)); err != nil {
		return pkgerrors.NewStoreError("clearing old enrolment role", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO mdl_role_assignments (roleid, contextid, userid) VALUES (?, ?, ?)
	`, roleToID(newRole), contextID, userID); err != nil {
		return pkgerrors.NewStoreError("assigning new enrolment role", err)
	}
	return nil
}

// Unenrol removes the manual enrolment and its role assignment.
func (s *EnrolmentStore) Unenrol(ctx context.Context, courseID, userID int64) error {
	var enrolID int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT id FROM mdl_enrol WHERE courseid = ? AND enrol = 'manual'
	`, courseID).Scan(&enrolID); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return pkgerrors.NewStoreError("loading manual enrol instance", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM mdl_user_enrolments WHERE enrolid = ? AND userid = ?
	`, enrolID, userID); err != nil {
		return pkgerrors.NewStoreError("unenrolling user", err)
	}

	var contextID int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT id FROM mdl_context WHERE contextlevel = ? AND instanceid = ?
	`, contextLevelCourse, courseID).Scan(&contextID); err == nil {
		if _, err := s.db.ExecContext(ctx, `
			DELETE FROM mdl_role_assignments WHERE contextid = ? AND userid = ?
		`, contextID, userID); err != nil {
			return pkgerrors.NewStoreError("clearing enrolment role", err)
		}
	}
	return nil
}
