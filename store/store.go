package store

import (
	"context"
	"time"

	"github.com/queuectl/queuectl/job"
)

// Field is an optional value: Set distinguishes "leave this column
// alone" from "write this value (possibly the zero value)". UpdateState
// uses it because a single call may touch any subset of a job's mutable
// fields, the way gqs's SQL UPDATE builders set only the columns a
// transition actually needs.
type Field[T any] struct {
	Set   bool
	Value T
}

// Some returns a populated Field wrapping v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// UpdateFields carries the subset of mutable Job columns a state
// transition writes.
type UpdateFields struct {
	Attempts        Field[int]
	NextRetryAt     Field[*time.Time]
	StartedAt       Field[*time.Time]
	CompletedAt     Field[*time.Time]
	WorkerID        Field[string]
	Output          Field[string]
	Error           Field[string]
	ExecutionTimeMS Field[int64]
}

// Metrics is the system-wide rollup returned by SystemMetrics.
type Metrics struct {
	CountsByState map[job.State]int64
	AvgExecMS     float64
	RatePerHour   float64
	SuccessPct    float64
	WindowHours   int
}

// Store is the durable, atomic, multi-reader/multi-writer persistence
// contract. All other components (queue, worker, scheduler, config)
// interact with the database only through a Store.
type Store interface {
	// Enqueue inserts j as a new row. If replace is true and j.ID
	// already exists, the row's mutable fields are overwritten and its
	// execution-cycle fields reset; otherwise a pre-existing id returns
	// ErrAlreadyExists.
	Enqueue(ctx context.Context, j *job.Job, replace bool) (*job.Job, error)

	// ClaimNext promotes all due Scheduled rows to Pending and returns a
	// snapshot of the single highest-priority eligible row (Pending, or
	// Failed with an elapsed or unset next_retry_at), ordered by
	// priority DESC, created_at ASC. It returns (nil, nil) when no job
	// is eligible. ClaimNext does not transition the returned job to
	// Processing — see doc.go for why.
	ClaimNext(ctx context.Context, now time.Time) (*job.Job, error)

	// UpdateState performs a conditional write: it sets state, refreshes
	// updated_at, and writes any fields set in fields. It fails with
	// ErrNotFound if id does not exist.
	UpdateState(ctx context.Context, id string, newState job.State, fields UpdateFields) error

	// List returns job snapshots ordered by created_at DESC, optionally
	// filtered to a single state. job.Unknown means no filter.
	List(ctx context.Context, state job.State) ([]*job.Job, error)

	// Get returns a single job snapshot, or ErrNotFound.
	Get(ctx context.Context, id string) (*job.Job, error)

	// Delete permanently removes a job row. Normal processing never
	// calls this; it is an explicit operator action.
	Delete(ctx context.Context, id string) error

	// RetryFromDLQ resets a Dead job to Pending, zeroing Attempts and
	// clearing Error/NextRetryAt. It fails with ErrNotFound or
	// ErrInvalidState if the job isn't currently Dead.
	RetryFromDLQ(ctx context.Context, id string) (*job.Job, error)

	// LogEvent appends a JobEvent and returns any write error unwrapped.
	// Callers treat it as best-effort and discard that error, since
	// event-log failures must never abort the enclosing job operation.
	LogEvent(ctx context.Context, jobID string, eventType job.EventType, data string) error

	// ListEvents returns a job's event log ordered by timestamp
	// ascending, grounded on job_queue.py's get_job_metrics.
	ListEvents(ctx context.Context, jobID string) ([]*job.JobEvent, error)

	// SystemMetrics computes the rollup over jobs created within the
	// last windowHours.
	SystemMetrics(ctx context.Context, windowHours int) (Metrics, error)

	// RecordMetricSample appends a point-in-time sample to the
	// system_metrics table and returns any write error. Best-effort: the
	// worker discards that error.
	RecordMetricSample(ctx context.Context, name string, value float64) error

	// PromoteScheduled converts every Scheduled row whose run_at has
	// passed into Pending and reports how many rows it touched. It runs
	// the identical statement ClaimNext folds into its own transaction,
	// so the scheduler's periodic sweep and a worker's claim can never
	// disagree about what counts as due.
	PromoteScheduled(ctx context.Context, now time.Time) (int64, error)

	// NextScheduledRunAt returns the run_at of the soonest-due Scheduled
	// job, or nil if none exist. Used by the worker's idle-proportional
	// polling.
	NextScheduledRunAt(ctx context.Context) (*time.Time, error)

	// SetConfig, GetConfig, DeleteConfig and ListConfig back the config
	// package's durable key/value façade.
	SetConfig(ctx context.Context, key, value string) error
	GetConfig(ctx context.Context, key string) (string, bool, error)
	DeleteConfig(ctx context.Context, key string) (bool, error)
	ListConfig(ctx context.Context) (map[string]string, error)
}
