package store

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/queuectl/queuectl/job"
)

type jobModel struct {
	bun.BaseModel `bun:"table:jobs"`

	ID             string `bun:"id,pk"`
	Command        string `bun:"command,notnull"`
	State          string `bun:"state,notnull,default:'pending'"`
	Attempts       int    `bun:"attempts,notnull,default:0"`
	MaxRetries     int    `bun:"max_retries,notnull,default:3"`
	Priority       int32  `bun:"priority,notnull,default:0"`
	TimeoutSeconds int    `bun:"timeout_seconds,notnull,default:300"`

	RunAt       *time.Time `bun:"run_at,nullzero"`
	NextRetryAt *time.Time `bun:"next_retry_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`

	StartedAt   *time.Time `bun:"started_at,nullzero"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`

	WorkerID string `bun:"worker_id"`
	Output   string `bun:"output"`
	Error    string `bun:"error"`

	ExecutionTimeMS int64 `bun:"execution_time_ms,notnull,default:0"`
}

func (m *jobModel) toJob() *job.Job {
	state, _ := job.ParseState(m.State)
	return &job.Job{
		ID:              m.ID,
		Command:         m.Command,
		State:           state,
		Attempts:        m.Attempts,
		MaxRetries:      m.MaxRetries,
		Priority:        m.Priority,
		TimeoutSeconds:  m.TimeoutSeconds,
		RunAt:           m.RunAt,
		NextRetryAt:     m.NextRetryAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		StartedAt:       m.StartedAt,
		CompletedAt:     m.CompletedAt,
		WorkerID:        m.WorkerID,
		Output:          m.Output,
		Error:           m.Error,
		ExecutionTimeMS: m.ExecutionTimeMS,
	}
}

func jobToModel(j *job.Job) *jobModel {
	return &jobModel{
		ID:              j.ID,
		Command:         j.Command,
		State:           j.State.String(),
		Attempts:        j.Attempts,
		MaxRetries:      j.MaxRetries,
		Priority:        j.Priority,
		TimeoutSeconds:  j.TimeoutSeconds,
		RunAt:           j.RunAt,
		NextRetryAt:     j.NextRetryAt,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		WorkerID:        j.WorkerID,
		Output:          j.Output,
		Error:           j.Error,
		ExecutionTimeMS: j.ExecutionTimeMS,
	}
}

type eventModel struct {
	bun.BaseModel `bun:"table:job_metrics"`

	ID        int64     `bun:"id,pk,autoincrement"`
	JobID     string    `bun:"job_id,notnull"`
	EventType string    `bun:"event_type,notnull"`
	Timestamp time.Time `bun:"timestamp,notnull"`
	Data      string    `bun:"data"`
}

func (m *eventModel) toEvent() *job.JobEvent {
	return &job.JobEvent{
		ID:        m.ID,
		JobID:     m.JobID,
		EventType: job.EventType(m.EventType),
		Timestamp: m.Timestamp,
		Data:      m.Data,
	}
}

type systemMetricModel struct {
	bun.BaseModel `bun:"table:system_metrics"`

	ID         int64     `bun:"id,pk,autoincrement"`
	MetricName string    `bun:"metric_name,notnull"`
	Value      float64   `bun:"metric_value,notnull"`
	Timestamp  time.Time `bun:"timestamp,notnull"`
}

type configModel struct {
	bun.BaseModel `bun:"table:config"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
