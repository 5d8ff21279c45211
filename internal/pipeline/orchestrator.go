package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrQueueFull is returned by Submit when the run queue is at capacity.
var ErrQueueFull = errors.New("run queue is full")

// Orchestrator queues runs for the HTTP surface. A single worker drains the
// queue so pages from different runs never interleave.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	runner *Runner
	log    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the queue; call Start to begin processing.
func NewOrchestrator(runner *Runner, queueSize int, ttl time.Duration, log *slog.Logger) *Orchestrator {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Orchestrator{
		jobs:   NewJobStore(ttl),
		queue:  make(chan *Job, queueSize),
		runner: runner,
		log:    log,
	}
}

// Start launches the worker goroutine.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case job, ok := <-o.queue:
				if !ok {
					return
				}
				o.process(workerCtx, job)
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n := o.jobs.Cleanup(); n > 0 {
					o.log.Debug("forgot finished runs", "count", n)
				}
			}
		}
	}()
}

func (o *Orchestrator) process(ctx context.Context, job *Job) {
	log := o.log.With("run_id", job.ID, "recipe", job.Recipe)
	job.SetStatus(StatusRunning)

	opts := job.Options
	opts.OnPage = job.PageDone
	sum, err := o.runner.Run(ctx, job.Recipe, job.Selector, opts)
	job.SetSummary(sum)
	switch {
	case errors.Is(err, context.Canceled):
		log.Warn("run cancelled")
		job.SetStatus(StatusCancelled)
	case err != nil:
		log.Error("run failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed)
	default:
		job.SetStatus(StatusCompleted)
	}
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit validates the recipe and queues a run.
func (o *Orchestrator) Submit(recipe string, sel Selector, opts Options) (*Job, error) {
	if _, err := o.runner.Recipes().Get(recipe); err != nil {
		return nil, err
	}
	id := opts.RunID
	if id == "" {
		id = uuid.NewString()
	}
	job := NewJob(id, recipe, sel, opts)
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return job, nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed)
		return job, fmt.Errorf("%w (%d)", ErrQueueFull, cap(o.queue))
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Runner returns the runner for direct use by API handlers.
func (o *Orchestrator) Runner() *Runner {
	return o.runner
}
