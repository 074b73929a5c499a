// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package lmsstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/port"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

// UserStore implements port.UserStore against mdl_user.
type UserStore struct {
	db *sql.DB
}

var _ port.UserStore = (*UserStore)(nil)

// ListActiveUsers returns every non-deleted user, the P2 delta's base set.
func (s *UserStore) ListActiveUsers(ctx context.Context) ([]model.LMSUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, auth, firstname, lastname, suspended, deleted
		FROM mdl_user WHERE deleted = 0
	`)
	if err != nil {
		return nil, pkgerrors.NewStoreError("listing active users", err)
	}
	defer rows.Close()

	var users []model.LMSUser
	for rows.Next() {
		var u model.LMSUser
		var suspended, deleted int
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.AuthMethod, &u.FirstName, &u.LastName, &suspended, &deleted); err != nil {
			return nil, pkgerrors.NewStoreError("scanning user row", err)
		}
		u.Suspended = suspended != 0
		u.Deleted = deleted != 0
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser inserts a new non-deleted user and returns its id. A
// username/email collision with another non-deleted user surfaces as
// ConflictError per spec §7.
func (s *UserStore) CreateUser(ctx context.Context, u model.LMSUser) (int64, error) {
	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO mdl_user (username, email, auth, firstname, lastname, suspended, deleted, timecreated, timemodified)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, strings.ToLower(u.Username), strings.ToLower(u.Email), u.AuthMethod, u.FirstName, u.LastName, boolToInt(u.Suspended), now, now)
	if err != nil {
		if isUniqueConstraint(err) {
			return 0, pkgerrors.NewConflict(fmt.Sprintf("user %q already exists", u.Username), err)
		}
		return 0, pkgerrors.NewStoreError("creating user", err)
	}
	return res.LastInsertId()
}

// UpdateUser writes the given user's mutable fields. changedFields is
// advisory only here; email, first name and last name are always written
// together, whichever of them changed.
func (s *UserStore) UpdateUser(ctx context.Context, u model.LMSUser, changedFields []string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE mdl_user
		SET email = ?, firstname = ?, lastname = ?, timemodified = ?
		WHERE id = ? AND deleted = 0
	`, strings.ToLower(u.Email), u.FirstName, u.LastName, time.Now().Unix(), u.ID)
	if err != nil {
		if isUniqueConstraint(err) {
			return pkgerrors.NewConflict(fmt.Sprintf("email %q already in use", u.Email), err)
		}
		return pkgerrors.NewStoreError("updating user", err)
	}
	return nil
}

// SuspendUser flips a user's suspended flag. It never deletes or
// unsuspends: suspension in this direction is monotonic, matching the
// sync engine's one-way suspend-only P3 behaviour.
func (s *UserStore) SuspendUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE mdl_user SET suspended = 1, timemodified = ? WHERE id = ? AND deleted = 0
	`, time.Now().Unix(), userID)
	if err != nil {
		return pkgerrors.NewStoreError("suspending user", err)
	}
	return nil
}

// AssignCourseCreator grants the system-level coursecreator role used to
// mark a user detected as a teacher (spec §8 S1).
func (s *UserStore) AssignCourseCreator(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO mdl_role_assignments (roleid, contextid, userid)
		VALUES (?, ?, ?)
	`, roleCourseCreator, systemContextID, userID)
	if err != nil {
		return pkgerrors.NewStoreError("assigning coursecreator role", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraint(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
