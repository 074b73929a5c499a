// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// dumpSQL renders a plain-text SQL dump of every user table in db: one
// CREATE TABLE statement (as sqlite already stores it) followed by one
// INSERT INTO statement per row, in table-name order. This mirrors what
// `sqlite3 .dump` produces closely enough for the export archive's
// database/dump.sql component without shelling out to the sqlite3 CLI.
func dumpSQL(ctx context.Context, db *sql.DB) (string, error) {
	tableRows, err := db.QueryContext(ctx, `
		SELECT name, sql FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}
	defer tableRows.Close()

	type table struct {
		name, createSQL string
	}
	var tables []table
	for tableRows.Next() {
		var t table
		if err := tableRows.Scan(&t.name, &t.createSQL); err != nil {
			return "", fmt.Errorf("scanning sqlite_master row: %w", err)
		}
		tables = append(tables, t)
	}
	if err := tableRows.Err(); err != nil {
		return "", fmt.Errorf("iterating sqlite_master: %w", err)
	}

	var out strings.Builder
	out.WriteString("PRAGMA foreign_keys=OFF;\nBEGIN TRANSACTION;\n")
	for _, t := range tables {
		out.WriteString(t.createSQL)
		out.WriteString(";\n")
		if err := dumpTableRows(ctx, db, t.name, &out); err != nil {
			return "", fmt.Errorf("dumping table %s: %w", t.name, err)
		}
	}
	out.WriteString("COMMIT;\n")
	return out.String(), nil
}

func dumpTableRows(ctx context.Context, db *sql.DB, table string, out *strings.Builder) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		fmt.Fprintf(out, "INSERT INTO %s (%s) VALUES (%s);\n",
			table, strings.Join(cols, ", "), sqlLiteralList(values))
	}
	return rows.Err()
}

func sqlLiteralList(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = sqlLiteral(v)
	}
	return strings.Join(parts, ", ")
}

func sqlLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("'%v'", val)
	}
}
