// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/port"
)

// Snapshotter collects the LMS's current state into a staging directory
// and hands it to a Builder. It reads through the same store ports the
// sync engine uses, so the export reflects exactly what the engine sees,
// never a separate replica.
//
// plugins/ and moodledata/ subtrees named in spec §4.8 are not produced:
// this repo manages a sqlite-backed reduced schema rather than a live
// Moodle filesystem, so there is no plugin directory or dataroot to
// snapshot. See DESIGN.md.
type Snapshotter struct {
	Users      port.UserStore
	Categories port.CategoryStore
	DB         *sql.DB
}

// NewSnapshotter builds a Snapshotter over the given LMS store ports and
// the raw database connection used for the database/dump.sql component.
// Course data has no list-all store capability of its own (the engine
// only ever looks courses up by natural key); it is reachable in the
// export through the database dump's mdl_course table instead.
func NewSnapshotter(users port.UserStore, categories port.CategoryStore, db *sql.DB) *Snapshotter {
	return &Snapshotter{Users: users, Categories: categories, DB: db}
}

// Snapshot stages users/, courses/, config/, and database/ components and
// packages them into a single ZIP archive under opts.OutputDir, returning
// the archive path and its manifest.
func (s *Snapshotter) Snapshot(ctx context.Context, opts Options) (string, model.ReportManifest, error) {
	stagingDir, err := os.MkdirTemp("", "roster-sync-export-*")
	if err != nil {
		return "", model.ReportManifest{}, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	if err := s.stageUsers(ctx, stagingDir); err != nil {
		return "", model.ReportManifest{}, err
	}
	if err := s.stageCategories(ctx, stagingDir); err != nil {
		return "", model.ReportManifest{}, err
	}
	if err := s.stageConfig(ctx, stagingDir, opts); err != nil {
		return "", model.ReportManifest{}, err
	}
	if err := s.stageDatabase(ctx, stagingDir, opts); err != nil {
		return "", model.ReportManifest{}, err
	}

	archivePath := filepath.Join(opts.OutputDir, fmt.Sprintf("roster-snapshot-%d.zip", time.Now().Unix()))
	builder := NewBuilder(opts)
	manifest, err := builder.Build(ctx, stagingDir, archivePath)
	if err != nil {
		return "", model.ReportManifest{}, err
	}
	return archivePath, manifest, nil
}

func (s *Snapshotter) stageUsers(ctx context.Context, stagingDir string) error {
	users, err := s.Users.ListActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	return writeJSONFile(filepath.Join(stagingDir, "users", "users.json"), users)
}

func (s *Snapshotter) stageCategories(ctx context.Context, stagingDir string) error {
	categories, err := s.Categories.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	return writeJSONFile(filepath.Join(stagingDir, "courses", "categories.json"), categories)
}

func (s *Snapshotter) stageConfig(ctx context.Context, stagingDir string, opts Options) error {
	cfg := map[string]any{
		"generated_at":      time.Now().UTC().Format(time.RFC3339),
		"compression_level": opts.CompressionLevel,
		"gzip_sql_dump":     opts.GzipSQLDump,
	}
	return writeJSONFile(filepath.Join(stagingDir, "config", "export.json"), cfg)
}

func (s *Snapshotter) stageDatabase(ctx context.Context, stagingDir string, opts Options) error {
	dump, err := dumpSQL(ctx, s.DB)
	if err != nil {
		return fmt.Errorf("dumping database: %w", err)
	}

	dir := filepath.Join(stagingDir, "database")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database staging directory: %w", err)
	}

	if !opts.GzipSQLDump {
		return os.WriteFile(filepath.Join(dir, "dump.sql"), []byte(dump), 0o644)
	}

	f, err := os.Create(filepath.Join(dir, "dump.sql.gz"))
	if err != nil {
		return err
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if _, err := gw.Write([]byte(dump)); err != nil {
		gw.Close()
		return fmt.Errorf("gzipping sql dump: %w", err)
	}
	return gw.Close()
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s directory: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
