package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob("run-1", "reformat", Selector{Titles: []string{"Roma"}}, Options{DryRun: true})
	assert.Equal(t, "run-1", job.Options.RunID)

	snap := job.Snapshot()
	assert.Equal(t, StatusQueued, snap.Status)
	assert.True(t, snap.DryRun)
	assert.Nil(t, snap.StartedAt)
	assert.Empty(t, snap.Elapsed)

	require.True(t, job.SetStatus(StatusRunning))
	job.PageDone(PageResult{Title: "Roma", Outcome: OutcomeSaved, Diff: "+ x\n"})
	snap = job.Snapshot()
	require.NotNil(t, snap.StartedAt)
	assert.Nil(t, snap.FinishedAt)
	assert.Equal(t, "Roma", snap.Progress.Current)

	require.True(t, job.SetStatus(StatusCompleted))
	assert.False(t, job.SetStatus(StatusRunning), "finished run restarted")
	snap = job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	require.NotNil(t, snap.FinishedAt)
	assert.False(t, snap.FinishedAt.Before(*snap.StartedAt))
	assert.NotEmpty(t, snap.Elapsed)
	assert.Empty(t, snap.Progress.Current)
}

func TestJob_PageDone(t *testing.T) {
	job := NewJob("pages", "add-x", Selector{}, Options{})
	job.PageDone(PageResult{Title: "Roma", Outcome: OutcomeSaved, Diff: "+ x\n"})
	job.PageDone(PageResult{Title: "Milano", Outcome: OutcomeUnchanged})
	job.PageDone(PageResult{Title: "Torino", Outcome: OutcomeSkipped})
	job.PageDone(PageResult{Title: "Napoli", Outcome: OutcomeError, Error: "fetch: boom"})

	p := job.Snapshot().Progress
	assert.Equal(t, 4, p.PagesDone)
	assert.Equal(t, 1, p.Saved)
	assert.Equal(t, 1, p.Changed)
	assert.Equal(t, 1, p.Failed)
	assert.Equal(t, map[Outcome]int{
		OutcomeSaved: 1, OutcomeUnchanged: 1, OutcomeSkipped: 1, OutcomeError: 1,
	}, p.Outcomes)
	assert.Equal(t, "Napoli", p.Current)
	assert.Equal(t, []string{"Napoli: fetch: boom"}, p.Errors)
}

func TestJob_RunErrors(t *testing.T) {
	job := &Job{ID: "err"}
	job.AddError("queue full")
	job.SetStatus(StatusFailed)

	p := job.Snapshot().Progress
	assert.Equal(t, []string{"queue full"}, p.Errors)
	assert.NotNil(t, p.Outcomes)
	assert.Zero(t, p.PagesDone)

	p = (&Job{ID: "clean"}).Snapshot().Progress
	assert.NotNil(t, p.Errors)
	assert.Empty(t, p.Errors)
}

func TestJob_SummaryInSnapshot(t *testing.T) {
	job := NewJob("sum", "add-x", Selector{}, Options{})
	_, ok := job.Summary()
	assert.False(t, ok)

	job.SetSummary(Summary{RunID: "sum", Saved: 2, Pages: []PageResult{{Title: "Roma"}}})
	got, ok := job.Summary()
	require.True(t, ok)
	assert.Equal(t, 2, got.Saved)
	assert.Len(t, got.Pages, 1)

	snap := job.Snapshot()
	require.NotNil(t, snap.Summary)
	assert.Nil(t, snap.Summary.Pages)
}

func TestJobStore_Cleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)
	assert.Zero(t, store.Cleanup())

	old := NewJob("old", "add-x", Selector{}, Options{})
	old.SetStatus(StatusCompleted)
	busy := NewJob("busy", "add-x", Selector{}, Options{})
	busy.SetStatus(StatusRunning)
	store.Put(old)
	store.Put(busy)

	time.Sleep(100 * time.Millisecond)
	fresh := NewJob("new", "add-x", Selector{}, Options{})
	fresh.SetStatus(StatusCancelled)
	store.Put(fresh)

	assert.Equal(t, 1, store.Cleanup())
	assert.Nil(t, store.Get("old"))
	assert.NotNil(t, store.Get("busy"))
	assert.NotNil(t, store.Get("new"))
	assert.Nil(t, store.Get("missing"))
}
