package job

import "time"

// Job represents a unit of work managed by the queue storage.
//
// CreatedAt and UpdatedAt are monotone non-decreasing per job. State
// represents the current position in the job lifecycle. Attempts counts
// failed execution attempts; a successful run leaves Attempts unchanged
// from its pre-claim value (see DESIGN.md's Open Question decision).
//
// WorkerID names the owner of the current or most recent execution.
// Output and Error capture the last execution's stdout and diagnostic
// message, respectively. ExecutionTimeMS is the wall-clock duration of
// the last execution attempt.
//
// Job values returned by Store and Queue methods are snapshots. Mutating
// them does not change queue state; transitions happen only through
// Store methods.
type Job struct {
	ID             string
	Command        string
	State          State
	Attempts       int
	MaxRetries     int
	Priority       int32
	TimeoutSeconds int

	RunAt       *time.Time
	NextRetryAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	StartedAt   *time.Time
	CompletedAt *time.Time

	WorkerID string
	Output   string
	Error    string

	ExecutionTimeMS int64
}

// Clone returns an independent copy of j, including its pointer-valued
// time fields, so callers can freely mutate the result without racing
// the snapshot another goroutine may be holding.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	if j.RunAt != nil {
		t := *j.RunAt
		out.RunAt = &t
	}
	if j.NextRetryAt != nil {
		t := *j.NextRetryAt
		out.NextRetryAt = &t
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
