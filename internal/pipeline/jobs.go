package pipeline

import (
	"maps"
	"sync"
	"time"
)

// JobStatus is where a submitted run is in its life.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Finished reports whether no more pages will be processed.
func (s JobStatus) Finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job is a run submitted to the Orchestrator, updated page by page while
// the runner works through it.
type Job struct {
	mu sync.Mutex

	ID       string
	Recipe   string
	Selector Selector
	Options  Options

	status     JobStatus
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
	updatedAt  time.Time

	outcomes map[Outcome]int
	changed  int
	lastPage string
	errors   []string
	summary  *Summary
}

// NewJob returns a queued job; opts carries id as its run id.
func NewJob(id, recipe string, sel Selector, opts Options) *Job {
	now := time.Now()
	opts.RunID = id
	return &Job{
		ID:        id,
		Recipe:    recipe,
		Selector:  sel,
		Options:   opts,
		status:    StatusQueued,
		createdAt: now,
		updatedAt: now,
		outcomes:  map[Outcome]int{},
	}
}

// SetStatus moves the job to status. A finished job keeps its status.
func (j *Job) SetStatus(status JobStatus) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Finished() {
		return false
	}
	now := time.Now()
	switch {
	case status == StatusRunning && j.startedAt.IsZero():
		j.startedAt = now
	case status.Finished():
		j.finishedAt = now
		j.lastPage = ""
	}
	j.status = status
	j.updatedAt = now
	return true
}

// AddError records a run-level error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.updatedAt = time.Now()
}

// PageDone folds a finished page into the progress.
func (j *Job) PageDone(p PageResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.outcomes == nil {
		j.outcomes = map[Outcome]int{}
	}
	j.outcomes[p.Outcome]++
	if p.Changed() {
		j.changed++
	}
	if p.Outcome == OutcomeError {
		j.errors = append(j.errors, p.Title+": "+p.Error)
	}
	j.lastPage = p.Title
	j.updatedAt = time.Now()
}

// SetSummary stores the summary the runner returned.
func (j *Job) SetSummary(s Summary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.summary = &s
	j.updatedAt = time.Now()
}

// Summary returns the final summary once the run returned.
func (j *Job) Summary() (Summary, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.summary == nil {
		return Summary{}, false
	}
	return *j.summary, true
}

// Progress is how far a run got.
type Progress struct {
	PagesDone int             `json:"pages_done"`
	Saved     int             `json:"saved"`
	Changed   int             `json:"changed"`
	Failed    int             `json:"failed"`
	Outcomes  map[Outcome]int `json:"outcomes"`
	Current   string          `json:"current,omitempty"`
	Errors    []string        `json:"errors"`
}

// JobSnapshot is a copy of the job state for the status endpoint.
type JobSnapshot struct {
	ID         string     `json:"run_id"`
	Recipe     string     `json:"recipe"`
	Selector   Selector   `json:"selector"`
	DryRun     bool       `json:"dry_run"`
	Status     JobStatus  `json:"status"`
	Progress   Progress   `json:"progress"`
	Summary    *Summary   `json:"summary,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
	// Elapsed is the running time so far, or the total once finished.
	Elapsed string `json:"elapsed,omitempty"`
}

// Snapshot copies the job state. The summary comes without per-page
// records and events.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	done := 0
	for _, n := range j.outcomes {
		done += n
	}
	snap := JobSnapshot{
		ID:        j.ID,
		Recipe:    j.Recipe,
		Selector:  j.Selector,
		DryRun:    j.Options.DryRun,
		Status:    j.status,
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
		Progress: Progress{
			PagesDone: done,
			Saved:     j.outcomes[OutcomeSaved],
			Changed:   j.changed,
			Failed:    j.outcomes[OutcomeError],
			Outcomes:  maps.Clone(j.outcomes),
			Current:   j.lastPage,
			Errors:    append([]string{}, j.errors...),
		},
	}
	if snap.Progress.Outcomes == nil {
		snap.Progress.Outcomes = map[Outcome]int{}
	}
	if !j.startedAt.IsZero() {
		started := j.startedAt
		snap.StartedAt = &started
		end := time.Now()
		if !j.finishedAt.IsZero() {
			finished := j.finishedAt
			snap.FinishedAt = &finished
			end = finished
		}
		snap.Elapsed = end.Sub(started).Round(time.Millisecond).String()
	}
	if j.summary != nil {
		s := *j.summary
		s.Pages, s.Events = nil, nil
		snap.Summary = &s
	}
	return snap
}

// finishedBefore reports whether the job ended before t.
func (j *Job) finishedBefore(t time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status.Finished() && j.updatedAt.Before(t)
}

// JobStore holds the submitted runs until they have been finished for
// longer than the retention.
type JobStore struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	retention time.Duration
}

func NewJobStore(retention time.Duration) *JobStore {
	return &JobStore{jobs: map[string]*Job{}, retention: retention}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup forgets the runs that finished more than the retention ago and
// returns how many it dropped.
func (s *JobStore) Cleanup() int {
	cutoff := time.Now().Add(-s.retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, job := range s.jobs {
		if job.finishedBefore(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}
