// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/replayd/internal/control"
)

func testHistory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func record(id string, started time.Time, outcome string) control.PlaybackRecord {
	return control.PlaybackRecord{
		ID:           id,
		Macro:        "farm-route",
		Profile:      "safe",
		Speed:        1.5,
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
		Outcome:      outcome,
		Instructions: 42,
		Failures:     1,
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := testHistory(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordPlayback(ctx, record("a", base, "completed")))
	require.NoError(t, s.RecordPlayback(ctx, record("b", base.Add(time.Minute), "cancelled")))
	aborted := record("c", base.Add(2*time.Minute), "aborted")
	aborted.Error = "too many injection failures: 2 in one session"
	require.NoError(t, s.RecordPlayback(ctx, aborted))

	recs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Newest first.
	require.Equal(t, "c", recs[0].ID)
	require.Equal(t, "b", recs[1].ID)

	require.Equal(t, "farm-route", recs[0].Macro)
	require.Equal(t, "aborted", recs[0].Outcome)
	require.Equal(t, 1.5, recs[0].Speed)
	require.Equal(t, 42, recs[0].Instructions)
	require.Equal(t, 1, recs[0].Failures)
	require.Equal(t, aborted.Error, recs[0].Error)
	require.Empty(t, recs[1].Error)
	require.Equal(t, base.Add(2*time.Minute).UnixMilli(), recs[0].StartedAt.UnixMilli())
}

func TestRecentDefaultLimit(t *testing.T) {
	s := testHistory(t)
	recs, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestDuplicateIDRejected(t *testing.T) {
	s := testHistory(t)
	ctx := context.Background()
	rec := record("dup", time.Now(), "completed")
	require.NoError(t, s.RecordPlayback(ctx, rec))
	require.Error(t, s.RecordPlayback(ctx, rec))
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordPlayback(context.Background(), record("kept", time.Now(), "completed")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()
	recs, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "kept", recs[0].ID)
}
