// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package lmsstore is a modernc.org/sqlite-backed implementation of
// port.UserStore, port.CourseStore, port.CategoryStore, and
// port.EnrolmentStore against a reduced, sync-relevant slice of a
// Moodle-shaped schema (spec §4.2's LMSUser/LMSCourse/LMSCategory and
// §6's manual-enrolment role-assignment model).
package lmsstore

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Moodle's fixed role ids for the three roles this service ever assigns,
// and the two context levels it ever reads or writes.
const (
	roleStudent        = 5
	roleEditingTeacher  = 3
	roleCourseCreator   = 9
	contextLevelSystem = 10
	contextLevelCourse = 50
	systemContextID    = 1
)

// Store wraps the sqlite connection shared by all four LMS store
// implementations; one Store backs Users, Courses, Categories, and
// Enrolments so they share a single connection pool and schema.
type Store struct {
	db *sql.DB
}

// Open opens or creates a sqlite database at dbPath, ensures the schema
// exists, and seeds the fixed system context row every AssignCourseCreator
// call depends on.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create lms store directory: %w", err)
			}
		}
	}

	connStr := "file:" + strings.ReplaceAll(dbPath, " ", "%20") + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open lms store: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize lms store schema: %w", err)
	}
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO mdl_context (id, contextlevel, instanceid) VALUES (?, ?, 0)`,
		systemContextID, contextLevelSystem,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed system context row: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Users returns the port.UserStore view of this store.
func (s *Store) Users() *UserStore { return &UserStore{db: s.db} }

// Courses returns the port.CourseStore view of this store.
func (s *Store) Courses() *CourseStore { return &CourseStore{db: s.db} }

// Categories returns the port.CategoryStore view of this store.
func (s *Store) Categories() *CategoryStore { return &CategoryStore{db: s.db} }

// Enrolments returns the port.EnrolmentStore view of this store.
func (s *Store) Enrolments() *EnrolmentStore { return &EnrolmentStore{db: s.db} }

// DB exposes the underlying connection for collaborators that need direct
// access, such as the Export Pipeline's database dump component.
func (s *Store) DB() *sql.DB { return s.db }
