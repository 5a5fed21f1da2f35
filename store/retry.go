package store

import (
	"context"
	"fmt"
	"time"

	"github.com/queuectl/queuectl/job"
)

// RetryFromDLQ implements Store.RetryFromDLQ, grounded on
// job_queue.py:retry_from_dlq: only a Dead job may be revived, and
// reviving it resets the retry cycle entirely rather than resuming it
// from its prior attempt count.
func (s *SQLiteStore) RetryFromDLQ(ctx context.Context, id string) (*job.Job, error) {
	now := time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("state = ?", job.Pending.String()).
		Set("attempts = 0").
		Set("next_retry_at = NULL").
		Set("error = ''").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("state = ?", job.Dead.String()).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: retry from dlq: %w", err)
	}
	if !isAffected(res) {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: id %q is not dead", ErrInvalidState, id)
	}
	_ = s.LogEvent(ctx, id, job.EventReplaced, `{"reason":"retry_from_dlq"}`)
	return s.Get(ctx, id)
}
