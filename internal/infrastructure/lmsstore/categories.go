// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package lmsstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/port"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

// CategoryStore implements port.CategoryStore against mdl_course_categories.
type CategoryStore struct {
	db *sql.DB
}

var _ port.CategoryStore = (*CategoryStore)(nil)

// ListAll returns every existing category, loaded once at resolver init.
func (s *CategoryStore) ListAll(ctx context.Context) ([]model.LMSCategory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, parent, path FROM mdl_course_categories`)
	if err != nil {
		return nil, pkgerrors.NewStoreError("listing categories", err)
	}
	defer rows.Close()

	var categories []model.LMSCategory
	for rows.Next() {
		var c model.LMSCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.Path); err != nil {
			return nil, pkgerrors.NewStoreError("scanning category row", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Create creates a single category node beneath parentID and returns its
// id. A concurrent actor creating the same node first surfaces as
// port.ErrAlreadyExists via the unique (name, parent) constraint the
// INSERT below hits.
func (s *CategoryStore) Create(ctx context.Context, name string, parentID int64) (int64, error) {
	var parentPath string
	if parentID != 0 {
		if err := s.db.QueryRowContext(ctx, `SELECT path FROM mdl_course_categories WHERE id = ?`, parentID).Scan(&parentPath); err != nil {
			if err == sql.ErrNoRows {
				return 0, pkgerrors.NewNotFound(fmt.Sprintf("parent category %d not found", parentID))
			}
			return 0, pkgerrors.NewStoreError("loading parent category", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, pkgerrors.NewStoreError("starting category create transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO mdl_course_categories (name, parent, path) VALUES (?, ?, '')`, name, parentID)
	if err != nil {
		if isUniqueConstraint(err) {
			return 0, port.ErrAlreadyExists
		}
		return 0, pkgerrors.NewStoreError("creating category", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, pkgerrors.NewStoreError("reading new category id", err)
	}

	path := fmt.Sprintf("%s/%d", parentPath, id)
	if _, err := tx.ExecContext(ctx, `UPDATE mdl_course_categories SET path = ? WHERE id = ?`, path, id); err != nil {
		return 0, pkgerrors.NewStoreError("stamping category path", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, pkgerrors.NewStoreError("committing category create", err)
	}
	return id, nil
}
