// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/port"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

var _ port.JobStore = (*Store)(nil)

// Insert creates the initial job row, in JobPending status.
func (s *Store) Insert(ctx context.Context, job model.Job) error {
	errorDetails, err := json.Marshal(job.Errors)
	if err != nil {
		return fmt.Errorf("marshal error_details: %w", err)
	}
	logEntries, err := json.Marshal(job.LogTail)
	if err != nil {
		return fmt.Errorf("marshal log_entries: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO local_roster_sync_jobs (
			sync_id, actor_id, direction, status, progress, phase,
			processed, total, created_count, updated_count, deleted_count,
			error_count, error_details, log_entries,
			timecreated, timemodified, timefinished
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.SyncID, job.ActorID, string(job.Direction), string(job.Status), job.Progress, job.Phase,
		job.Processed, job.Total, job.Created, job.Updated, job.Deleted,
		job.ErrorCount, string(errorDetails), string(logEntries),
		job.CreatedAt.Unix(), job.UpdatedAt.Unix(), nullableUnix(job.FinishedAt),
	)
	if err != nil {
		return pkgerrors.NewStoreError("inserting job row", err)
	}
	return nil
}

// Get returns the job row for syncID, or a NotFound error if absent.
func (s *Store) Get(ctx context.Context, syncID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT sync_id, actor_id, direction, status, progress, phase,
			processed, total, created_count, updated_count, deleted_count,
			error_count, error_details, log_entries,
			timecreated, timemodified, timefinished
		FROM local_roster_sync_jobs WHERE sync_id = ?
	`, syncID)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, pkgerrors.NewNotFound("job not found: " + syncID)
	}
	if err != nil {
		return nil, pkgerrors.NewStoreError("reading job row", err)
	}
	return job, nil
}

// Update overwrites the mutable fields of an existing job row.
func (s *Store) Update(ctx context.Context, job model.Job) error {
	errorDetails, err := json.Marshal(job.Errors)
	if err != nil {
		return fmt.Errorf("marshal error_details: %w", err)
	}
	logEntries, err := json.Marshal(job.LogTail)
	if err != nil {
		return fmt.Errorf("marshal log_entries: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE local_roster_sync_jobs SET
			status = ?, progress = ?, phase = ?,
			processed = ?, total = ?, created_count = ?, updated_count = ?, deleted_count = ?,
			error_count = ?, error_details = ?, log_entries = ?,
			timemodified = ?, timefinished = ?
		WHERE sync_id = ?
	`,
		string(job.Status), job.Progress, job.Phase,
		job.Processed, job.Total, job.Created, job.Updated, job.Deleted,
		job.ErrorCount, string(errorDetails), string(logEntries),
		job.UpdatedAt.Unix(), nullableUnix(job.FinishedAt),
		job.SyncID,
	)
	if err != nil {
		return pkgerrors.NewStoreError("updating job row", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return pkgerrors.NewStoreError("checking job row update", err)
	}
	if n == 0 {
		return pkgerrors.NewNotFound("job not found: " + job.SyncID)
	}
	return nil
}

// FindNonTerminalSince returns non-terminal jobs created at or after since
// (a unix timestamp), for the start-conflict guard's hourly window.
func (s *Store) FindNonTerminalSince(ctx context.Context, since int64) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sync_id, actor_id, direction, status, progress, phase,
			processed, total, created_count, updated_count, deleted_count,
			error_count, error_details, log_entries,
			timecreated, timemodified, timefinished
		FROM local_roster_sync_jobs
		WHERE timecreated >= ? AND status IN ('pending', 'processing')
		ORDER BY timecreated DESC
	`, since)
	if err != nil {
		return nil, pkgerrors.NewStoreError("listing non-terminal jobs", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// FindLatestByActor returns actorID's most recent job, or nil if it has
// never started one.
func (s *Store) FindLatestByActor(ctx context.Context, actorID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT sync_id, actor_id, direction, status, progress, phase,
			processed, total, created_count, updated_count, deleted_count,
			error_count, error_details, log_entries,
			timecreated, timemodified, timefinished
		FROM local_roster_sync_jobs
		WHERE actor_id = ?
		ORDER BY timecreated DESC
		LIMIT 1
	`, actorID)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.NewStoreError("reading latest job for actor", err)
	}
	return job, nil
}

// FindRecentByActor returns actorID's jobs created at or after
// sinceUnixSeconds, for the start-conflict guard's 5-second double-click
// window.
func (s *Store) FindRecentByActor(ctx context.Context, actorID string, sinceUnixSeconds int64) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sync_id, actor_id, direction, status, progress, phase,
			processed, total, created_count, updated_count, deleted_count,
			error_count, error_details, log_entries,
			timecreated, timemodified, timefinished
		FROM local_roster_sync_jobs
		WHERE actor_id = ? AND timecreated >= ?
		ORDER BY timecreated DESC
	`, actorID, sinceUnixSeconds)
	if err != nil {
		return nil, pkgerrors.NewStoreError("listing recent jobs for actor", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// SetReportManifest attaches an Export Pipeline report to a job row,
// msgpack-encoded for compactness since the manifest is never read
// directly off the row the way error_details/log_entries are.
func (s *Store) SetReportManifest(ctx context.Context, syncID string, reportID string, manifest model.ReportManifest) error {
	encoded, err := msgpack.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal report manifest: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE local_roster_sync_jobs SET report_id = ?, report_manifest = ?
		WHERE sync_id = ?
	`, reportID, encoded, syncID)
	if err != nil {
		return pkgerrors.NewStoreError("setting report manifest", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return pkgerrors.NewStoreError("checking report manifest update", err)
	}
	if n == 0 {
		return pkgerrors.NewNotFound("job not found: " + syncID)
	}
	return nil
}

// GetReportManifest returns the report manifest attached to a job row, or
// nil if the job has none.
func (s *Store) GetReportManifest(ctx context.Context, syncID string) (*model.ReportManifest, error) {
	var reportID sql.NullString
	var encoded []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT report_id, report_manifest FROM local_roster_sync_jobs WHERE sync_id = ?
	`, syncID).Scan(&reportID, &encoded)
	if err == sql.ErrNoRows {
		return nil, pkgerrors.NewNotFound("job not found: " + syncID)
	}
	if err != nil {
		return nil, pkgerrors.NewStoreError("reading report manifest", err)
	}
	if !reportID.Valid || len(encoded) == 0 {
		return nil, nil
	}

	var manifest model.ReportManifest
	if err := msgpack.Unmarshal(encoded, &manifest); err != nil {
		return nil, fmt.Errorf("unmarshal report manifest: %w", err)
	}
	return &manifest, nil
}

// PutUserMapEntry best-effort records IdP-to-LMS user traceability. A no-op
// when the side table is disabled.
func (s *Store) PutUserMapEntry(ctx context.Context, idpID, idpUsername string, lmsUserID int64) error {
	if !s.userMapEnabled {
		return nil
	}
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_roster_user_map (idp_id, lms_user_id, idp_username, timecreated, timemodified)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (idp_id) DO UPDATE SET
			lms_user_id = excluded.lms_user_id,
			idp_username = excluded.idp_username,
			timemodified = excluded.timemodified
	`, idpID, lmsUserID, idpUsername, now, now)
	if err != nil {
		return pkgerrors.NewStoreError("upserting user map entry", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*model.Job, error) {
	var j model.Job
	var direction, status, errorDetails, logEntries string
	var timecreated, timemodified int64
	var timefinished sql.NullInt64

	if err := r.Scan(
		&j.SyncID, &j.ActorID, &direction, &status, &j.Progress, &j.Phase,
		&j.Processed, &j.Total, &j.Created, &j.Updated, &j.Deleted,
		&j.ErrorCount, &errorDetails, &logEntries,
		&timecreated, &timemodified, &timefinished,
	); err != nil {
		return nil, err
	}

	j.Direction = model.Direction(direction)
	j.Status = model.JobStatus(status)
	j.CreatedAt = time.Unix(timecreated, 0).UTC()
	j.UpdatedAt = time.Unix(timemodified, 0).UTC()
	if timefinished.Valid {
		finished := time.Unix(timefinished.Int64, 0).UTC()
		j.FinishedAt = &finished
	}

	if err := json.Unmarshal([]byte(errorDetails), &j.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal error_details: %w", err)
	}
	if err := json.Unmarshal([]byte(logEntries), &j.LogTail); err != nil {
		return nil, fmt.Errorf("unmarshal log_entries: %w", err)
	}

	return &j, nil
}

func scanJobs(rows *sql.Rows) ([]model.Job, error) {
	var out []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
