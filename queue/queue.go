// Package queue implements the thin semantic layer over Store: default
// field population on enqueue, run_at resolution, JobEvent emission, and
// the read queries the CLI/dashboard boundary consumes.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/queuectl/queuectl/config"
	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/store"
)

// Status is the counts-by-state rollup behind the `status` operation.
type Status struct {
	Counts map[job.State]int64
}

// Queue wraps a Store and a Config to apply the defaulting and
// validation rules the Store itself deliberately does not know about.
type Queue struct {
	store  store.Store
	config *config.Config
}

// New builds a Queue over store s, using cfg for default field
// population (max_retries).
func New(s store.Store, cfg *config.Config) *Queue {
	return &Queue{store: s, config: cfg}
}

// Enqueue validates payload, applies the configured defaults, resolves
// run_at, and inserts (or replaces) the row. The returned snapshot is
// the job exactly as stored, i.e. after default-filling.
func (q *Queue) Enqueue(ctx context.Context, payload EnqueuePayload, replace bool) (*job.Job, error) {
	if payload.Command == "" {
		return nil, fmt.Errorf("%w: command is required", ErrInvalidPayload)
	}

	id := payload.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now().UTC()

	runAt, err := parseRunAt(payload.RunAt, now)
	if err != nil {
		return nil, err
	}

	maxRetries, err := q.config.MaxRetries(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: enqueue: %w", err)
	}
	if payload.MaxRetries != nil {
		if *payload.MaxRetries < 0 {
			return nil, fmt.Errorf("%w: max_retries must be >= 0", ErrInvalidPayload)
		}
		maxRetries = *payload.MaxRetries
	}

	var priority int32
	if payload.Priority != nil {
		priority = *payload.Priority
	}

	timeoutSeconds := 300
	if payload.TimeoutSeconds != nil {
		if *payload.TimeoutSeconds <= 0 {
			return nil, fmt.Errorf("%w: timeout_seconds must be > 0", ErrInvalidPayload)
		}
		timeoutSeconds = *payload.TimeoutSeconds
	}

	state := job.Pending
	if runAt != nil && runAt.After(now) {
		state = job.Scheduled
	}

	j := &job.Job{
		ID:             id,
		Command:        payload.Command,
		State:          state,
		Attempts:       0,
		MaxRetries:     maxRetries,
		Priority:       priority,
		TimeoutSeconds: timeoutSeconds,
		RunAt:          runAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	return q.store.Enqueue(ctx, j, replace)
}

// ClaimNext delegates to Store.ClaimNext. See store.Store.ClaimNext for
// why this does not transition the returned job's state.
func (q *Queue) ClaimNext(ctx context.Context, now time.Time) (*job.Job, error) {
	return q.store.ClaimNext(ctx, now)
}

// UpdateState delegates to Store.UpdateState.
func (q *Queue) UpdateState(ctx context.Context, id string, newState job.State, fields store.UpdateFields) error {
	return q.store.UpdateState(ctx, id, newState, fields)
}

// List returns job snapshots, optionally filtered by state.
func (q *Queue) List(ctx context.Context, state job.State) ([]*job.Job, error) {
	return q.store.List(ctx, state)
}

// Get returns a single job snapshot.
func (q *Queue) Get(ctx context.Context, id string) (*job.Job, error) {
	return q.store.Get(ctx, id)
}

// Delete removes a job row. Normal processing never calls this.
func (q *Queue) Delete(ctx context.Context, id string) error {
	return q.store.Delete(ctx, id)
}

// DLQList returns every job currently in the dead state.
func (q *Queue) DLQList(ctx context.Context) ([]*job.Job, error) {
	return q.store.List(ctx, job.Dead)
}

// DLQRetry revives a dead job back to pending.
func (q *Queue) DLQRetry(ctx context.Context, id string) (*job.Job, error) {
	return q.store.RetryFromDLQ(ctx, id)
}

// StatusCounts returns the counts-by-state rollup for the `status`
// operation, computed over all jobs regardless of age.
func (q *Queue) StatusCounts(ctx context.Context) (Status, error) {
	counts := make(map[job.State]int64)
	for _, st := range []job.State{
		job.Pending, job.Scheduled, job.Processing, job.Failed, job.Completed, job.Dead,
	} {
		jobs, err := q.store.List(ctx, st)
		if err != nil {
			return Status{}, err
		}
		counts[st] = int64(len(jobs))
	}
	return Status{Counts: counts}, nil
}

// Metrics returns the system_metrics rollup over the given window.
func (q *Queue) Metrics(ctx context.Context, windowHours int) (store.Metrics, error) {
	return q.store.SystemMetrics(ctx, windowHours)
}

// ListEvents returns a job's event log, oldest first.
func (q *Queue) ListEvents(ctx context.Context, jobID string) ([]*job.JobEvent, error) {
	return q.store.ListEvents(ctx, jobID)
}

// LogEvent appends a JobEvent. Used by the worker to record the
// started/completed/retry_scheduled/moved_to_dlq events that accompany
// each state transition; Enqueue already logs its own created/replaced
// events internally via Store.
func (q *Queue) LogEvent(ctx context.Context, jobID string, eventType job.EventType, data string) error {
	return q.store.LogEvent(ctx, jobID, eventType, data)
}

// RecordMetricSample appends a point-in-time sample to system_metrics.
// The worker calls this after every successful execution so the dashboard
// has a time series to plot, not just the aggregate SystemMetrics
// rollup; job_queue.py's _log_system_metric logs individual samples the
// same way, which this wires through rather than leaving dead.
func (q *Queue) RecordMetricSample(ctx context.Context, name string, value float64) error {
	return q.store.RecordMetricSample(ctx, name, value)
}

// PromoteScheduled delegates to Store.PromoteScheduled.
func (q *Queue) PromoteScheduled(ctx context.Context, now time.Time) (int64, error) {
	return q.store.PromoteScheduled(ctx, now)
}

// NextScheduledRunAt reports the soonest upcoming scheduled job's run_at,
// used by the worker's idle-proportional polling.
func (q *Queue) NextScheduledRunAt(ctx context.Context) (*time.Time, error) {
	return q.store.NextScheduledRunAt(ctx)
}
