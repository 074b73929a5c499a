// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package jobstore is a modernc.org/sqlite-backed implementation of
// port.JobStore, persisting the durable per-run job row described in the
// External Interfaces section and, optionally, the user-traceability side
// table.
package jobstore

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

// Store wraps the sqlite connection used by the job store.
type Store struct {
	db *sql.DB

	// userMapEnabled gates whether P3 populates local_roster_user_map. The
	// side table's absence is tolerated per spec; this flag lets an operator
	// opt out of its upkeep entirely without dropping the table.
	userMapEnabled bool
}

// Option configures a Store at construction.
type Option func(*Store)

// WithUserMap enables best-effort population of the user-traceability side
// table. Disabled by default, matching the spec's "absence is tolerated"
// framing.
func WithUserMap(enabled bool) Option {
	return func(s *Store) { s.userMapEnabled = enabled }
}

// Open opens or creates a sqlite database at dbPath and ensures the schema
// exists.
func Open(dbPath string, opts ...Option) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create job store directory: %w", err)
			}
		}
	}

	connStr := "file:" + strings.ReplaceAll(dbPath, " ", "%20") + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	if dbPath == ":memory:" {
		// An in-memory database is private to the connection that created
		// it; keeping the pool at a single connection is what makes a
		// second query see the same schema and rows as the first.
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
		return nil, fmt.Errorf("initialize job store schema: %w", err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
