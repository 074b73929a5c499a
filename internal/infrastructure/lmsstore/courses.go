// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package lmsstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/port"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

// CourseStore implements port.CourseStore against mdl_course.
type CourseStore struct {
	db *sql.DB
}

var _ port.CourseStore = (*CourseStore)(nil)

func scanCourse(row interface{ Scan(...any) error }) (*model.LMSCourse, error) {
	var c model.LMSCourse
	var visible int
	if err := row.Scan(&c.ID, &c.Idnumber, &c.Shortname, &c.Fullname, &c.CategoryID, &c.Format, &visible); err != nil {
		return nil, err
	}
	c.Visible = visible != 0
	return &c, nil
}

// FindByIdnumber looks up a course by its stable sync key, the course's
// natural identity per spec §6's course identity scheme.
func (s *CourseStore) FindByIdnumber(ctx context.Context, idnumber string) (*model.LMSCourse, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, idnumber, shortname, fullname, category, format, visible
		FROM mdl_course WHERE idnumber = ?
	`, idnumber)
	c, err := scanCourse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.NewStoreError("finding course by idnumber", err)
	}
	return c, nil
}

// FindByShortname looks up a course by its unique shortname, used when
// claiming a pre-existing non-prefixed course is explicitly not allowed
// and the engine instead needs to detect a shortname collision before
// creating a new course.
func (s *CourseStore) FindByShortname(ctx context.Context, shortname string) (*model.LMSCourse, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, idnumber, shortname, fullname, category, format, visible
		FROM mdl_course WHERE shortname = ?
	`, shortname)
	c, err := scanCourse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.NewStoreError("finding course by shortname", err)
	}
	return c, nil
}

// CreateCourse inserts a new course and returns its id.
func (s *CourseStore) CreateCourse(ctx context.Context, c model.LMSCourse) (int64, error) {
	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO mdl_course (category, idnumber, shortname, fullname, format, visible, timecreated, timemodified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.CategoryID, c.Idnumber, c.Shortname, c.Fullname, nonEmptyOr(c.Format, "topics"), boolToInt(c.Visible), now, now)
	if err != nil {
		if isUniqueConstraint(err) {
			return 0, pkgerrors.NewConflict(fmt.Sprintf("course %q already exists", c.Idnumber), err)
		}
		return 0, pkgerrors.NewStoreError("creating course", err)
	}
	return res.LastInsertId()
}

// UpdateCourse writes the given course's mutable fields.
func (s *CourseStore) UpdateCourse(ctx context.Context, c model.LMSCourse, changedFields []string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE mdl_course
		SET fullname = ?, category = ?, visible = ?, timemodified = ?
		WHERE id = ?
	`, c.Fullname, c.CategoryID, boolToInt(c.Visible), time.Now().Unix(), c.ID)
	if err != nil {
		return pkgerrors.NewStoreError("updating course", err)
	}
	return nil
}

// ClaimCourse stamps a pre-existing matched course with its sync idnumber
// and category, adopting it into the set of sync-managed courses.
func (s *CourseStore) ClaimCourse(ctx context.Context, courseID int64, idnumber string, categoryID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE mdl_course SET idnumber = ?, category = ?, timemodified = ? WHERE id = ?
	`, idnumber, categoryID, time.Now().Unix(), courseID)
	if err != nil {
		if isUniqueConstraint(err) {
			return pkgerrors.NewConflict(fmt.Sprintf("idnumber %q already claimed", idnumber), err)
		}
		return pkgerrors.NewStoreError("claiming course", err)
	}
	return nil
}

func nonEmptyOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
