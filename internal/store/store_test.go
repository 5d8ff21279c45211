package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMarkPageAndIsDone(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	done, err := s.IsDone(ctx, "itemlist-wikidata", "Roma")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.MarkPage(ctx, "itemlist-wikidata", "Roma", "saved", "run-1"))
	done, err = s.IsDone(ctx, "itemlist-wikidata", "Roma")
	require.NoError(t, err)
	assert.True(t, done)

	// Other recipes keep their own ledger.
	done, err = s.IsDone(ctx, "citylist-wikidata", "Roma")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestMarkPage_ErrorsAreNotDone(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.MarkPage(ctx, "r", "Roma", "saved", "run-1"))
	require.NoError(t, s.MarkPage(ctx, "r", "Roma", "error", "run-2"))

	rec, ok, err := s.Page(ctx, "r", "Roma")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "error", rec.Outcome)
	assert.Equal(t, "run-2", rec.RunID)
	assert.False(t, rec.UpdatedAt.IsZero())

	done, err := s.IsDone(ctx, "r", "Roma")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestCompletedAndReset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.MarkPage(ctx, "r", "Roma", "saved", "x"))
	require.NoError(t, s.MarkPage(ctx, "r", "Milano", "unchanged", "x"))
	require.NoError(t, s.MarkPage(ctx, "r", "Napoli", "conflict", "x"))
	require.NoError(t, s.MarkPage(ctx, "other", "Torino", "saved", "x"))

	done, err := s.Completed(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"Roma": true, "Milano": true}, done)

	n, err := s.Reset(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	done, err = s.Completed(ctx, "r")
	require.NoError(t, err)
	assert.Empty(t, done)

	done, err = s.Completed(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, done, 1)
}

func TestRecordRunAndRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordRun(ctx, RunRecord{ID: "a", Recipe: "r", StartedAt: base, FinishedAt: base.Add(time.Minute), Summary: `{"saved":1}`}))
	require.NoError(t, s.RecordRun(ctx, RunRecord{ID: "b", Recipe: "r", StartedAt: base, FinishedAt: base.Add(time.Hour), Summary: `{"saved":2}`}))
	require.NoError(t, s.RecordRun(ctx, RunRecord{ID: "c", Recipe: "other", StartedAt: base, FinishedAt: base.Add(2 * time.Hour), Summary: `{}`}))

	runs, err := s.Runs(ctx, "r", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, `{"saved":2}`, runs[0].Summary)
	assert.True(t, runs[1].FinishedAt.Equal(base.Add(time.Minute)))

	all, err := s.Runs(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
}

func TestNewStore_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "voybot.db")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.MarkPage(ctx, "r", "Roma", "saved", "x"))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	done, err := s.IsDone(ctx, "r", "Roma")
	require.NoError(t, err)
	assert.True(t, done)
}
