// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package history keeps a local audit log of playback sessions in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ManuGH/replayd/internal/control"
)

const schemaVersion = 1

// Store is the SQLite-backed playback audit log.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// One writer at a time keeps SQLite happy under concurrency.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history migration: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS playbacks (
		id TEXT PRIMARY KEY,
		macro TEXT NOT NULL,
		profile TEXT NOT NULL,
		speed REAL NOT NULL,
		started_at_ms INTEGER NOT NULL,
		finished_at_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		instructions INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_playbacks_started ON playbacks(started_at_ms);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordPlayback implements control.HistorySink.
func (s *Store) RecordPlayback(ctx context.Context, rec control.PlaybackRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playbacks (id, macro, profile, speed, started_at_ms, finished_at_ms, outcome, instructions, failures, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Macro, rec.Profile, rec.Speed,
		rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(),
		rec.Outcome, rec.Instructions, rec.Failures, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert playback record: %w", err)
	}
	return nil
}

// Recent returns the most recent playback records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]control.PlaybackRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, macro, profile, speed, started_at_ms, finished_at_ms, outcome, instructions, failures, error
		FROM playbacks ORDER BY started_at_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query playback history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []control.PlaybackRecord
	for rows.Next() {
		var rec control.PlaybackRecord
		var startedMs, finishedMs int64
		if err := rows.Scan(&rec.ID, &rec.Macro, &rec.Profile, &rec.Speed,
			&startedMs, &finishedMs, &rec.Outcome, &rec.Instructions, &rec.Failures, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan playback record: %w", err)
		}
		rec.StartedAt = time.UnixMilli(startedMs)
		rec.FinishedAt = time.UnixMilli(finishedMs)
		out = append(out, rec)
	}
	return out, rows.Err()
}
