package store

import (
	"context"
	"fmt"
	"time"

	"github.com/queuectl/queuectl/job"
)

// UpdateState implements Store.UpdateState. It builds the SET clause from
// whichever UpdateFields members are populated, the way gqs's
// Puller/Pusher only ever set the columns a given transition needs rather
// than rewriting the whole row.
func (s *SQLiteStore) UpdateState(ctx context.Context, id string, newState job.State, fields UpdateFields) error {
	now := time.Now().UTC()
	q := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("state = ?", newState.String()).
		Set("updated_at = ?", now)

	if fields.Attempts.Set {
		q = q.Set("attempts = ?", fields.Attempts.Value)
	}
	if fields.NextRetryAt.Set {
		q = q.Set("next_retry_at = ?", fields.NextRetryAt.Value)
	}
	if fields.StartedAt.Set {
		q = q.Set("started_at = ?", fields.StartedAt.Value)
	}
	if fields.CompletedAt.Set {
		q = q.Set("completed_at = ?", fields.CompletedAt.Value)
	}
	if fields.WorkerID.Set {
		q = q.Set("worker_id = ?", fields.WorkerID.Value)
	}
	if fields.Output.Set {
		q = q.Set("output = ?", fields.Output.Value)
	}
	if fields.Error.Set {
		q = q.Set("error = ?", fields.Error.Value)
	}
	if fields.ExecutionTimeMS.Set {
		q = q.Set("execution_time_ms = ?", fields.ExecutionTimeMS.Value)
	}

	res, err := q.Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: update state: %w", err)
	}
	if !isAffected(res) {
		return fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	return nil
}
