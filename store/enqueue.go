package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/queuectl/queuectl/job"
)

// Enqueue implements Store.Enqueue.
func (s *SQLiteStore) Enqueue(ctx context.Context, j *job.Job, replace bool) (*job.Job, error) {
	_, err := s.Get(ctx, j.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	exists := err == nil
	if exists && !replace {
		return nil, fmt.Errorf("%w: id %q", ErrAlreadyExists, j.ID)
	}

	model := jobToModel(j)
	if exists {
		_, err = s.db.NewUpdate().
			Model(model).
			Column("command", "state", "attempts", "max_retries", "priority",
				"timeout_seconds", "run_at", "next_retry_at", "updated_at",
				"started_at", "completed_at", "worker_id", "output", "error",
				"execution_time_ms").
			Where("id = ?", j.ID).
			Exec(ctx)
	} else {
		_, err = s.db.NewInsert().Model(model).Exec(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("store: enqueue: %w", err)
	}

	eventType := job.EventCreated
	if exists {
		eventType = job.EventReplaced
	}
	_ = s.LogEvent(ctx, j.ID, eventType, fmt.Sprintf(`{"priority":%d}`, j.Priority))

	return model.toJob(), nil
}
