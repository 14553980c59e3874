// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver

	"github.com/leemgs/semantos/internal/models"
)

// DuckDBStore persists audit entries and history in DuckDB.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore wraps an open database. Call CreateTables before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// OpenDuckDBStore opens path (":memory:" for a transient database) and
// creates the schema.
func OpenDuckDBStore(ctx context.Context, path string) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", path, err)
	}
	s := NewDuckDBStore(db)
	if err := s.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// CreateTables creates audit_entries and rollout_history if missing.
func (s *DuckDBStore) CreateTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			action TEXT NOT NULL,
			recommendation_id TEXT,
			actor TEXT NOT NULL,
			detail TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_timestamp ON audit_entries(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_action ON audit_entries(action);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_rec ON audit_entries(recommendation_id);

		CREATE SEQUENCE IF NOT EXISTS rollout_history_seq;
		CREATE TABLE IF NOT EXISTS rollout_history (
			seq BIGINT PRIMARY KEY DEFAULT nextval('rollout_history_seq'),
			rec_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			percent INTEGER NOT NULL,
			p95 DOUBLE NOT NULL,
			passed BOOLEAN NOT NULL,
			source TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_rollout_history_rec ON rollout_history(rec_id)
	`
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Append inserts an entry.
func (s *DuckDBStore) Append(ctx context.Context, e *models.AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_entries (id, timestamp, action, recommendation_id, actor, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp, e.Action, nullString(e.RecommendationID), e.Actor, nullString(e.Detail))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns matching entries, newest first.
func (s *DuckDBStore) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	query := `SELECT id, timestamp, action, recommendation_id, actor, detail FROM audit_entries`
	var conds []string
	var args []interface{}
	if filter.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.RecommendationID != "" {
		conds = append(conds, "recommendation_id = ?")
		args = append(args, filter.RecommendationID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.AuditEntry, 0)
	for rows.Next() {
		var e models.AuditEntry
		var recID, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &recID, &e.Actor, &detail); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.RecommendationID = recID.String
		e.Detail = detail.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}

// AppendHistory inserts a history record.
func (s *DuckDBStore) AppendHistory(ctx context.Context, h *HistoryRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rollout_history (rec_id, timestamp, percent, p95, passed, source)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		h.RecID, h.Timestamp, h.Percent, h.P95, h.Passed, h.Source)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// History returns records in observation order, keeping the last limit.
func (s *DuckDBStore) History(ctx context.Context, recID string, limit int) ([]HistoryRecord, error) {
	query := `SELECT rec_id, timestamp, percent, p95, passed, source FROM rollout_history`
	var args []interface{}
	if recID != "" {
		query += " WHERE rec_id = ?"
		args = append(args, recID)
	}
	query += " ORDER BY seq DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]HistoryRecord, 0)
	for rows.Next() {
		var h HistoryRecord
		if err := rows.Scan(&h.RecID, &h.Timestamp, &h.Percent, &h.P95, &h.Passed, &h.Source); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Close closes the database.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
