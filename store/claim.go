package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/queuectl/queuectl/job"
)

// promoteDue converts all Scheduled rows whose run_at has passed into
// Pending. It is shared by ClaimNext and the scheduler's periodic
// promoter so that both paths run the identical statement — a
// standalone promoter must never diverge from what claim_next itself
// considers due.
func promoteDue(ctx context.Context, db bun.IDB, now time.Time) (int64, error) {
	res, err := db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("state = ?", job.Pending.String()).
		Set("updated_at = ?", now).
		Where("state = ?", job.Scheduled.String()).
		Where("run_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return getAffected(res), nil
}

// PromoteScheduled implements Store.PromoteScheduled.
func (s *SQLiteStore) PromoteScheduled(ctx context.Context, now time.Time) (int64, error) {
	n, err := promoteDue(ctx, s.db, now)
	if err != nil {
		return 0, fmt.Errorf("store: promote scheduled: %w", err)
	}
	return n, nil
}

// ClaimNext implements Store.ClaimNext: promote due scheduled jobs, then
// select (without mutating) the best eligible candidate.
func (s *SQLiteStore) ClaimNext(ctx context.Context, now time.Time) (*job.Job, error) {
	var result *jobModel
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := promoteDue(ctx, tx, now); err != nil {
			return err
		}

		var m jobModel
		err := tx.NewSelect().
			Model(&m).
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.
					Where("state = ?", job.Pending.String()).
					WhereOr("state = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)",
						job.Failed.String(), now)
			}).
			Order("priority DESC").
			Order("created_at ASC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		result = &m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: claim next: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.toJob(), nil
}

// NextScheduledRunAt implements Store.NextScheduledRunAt.
func (s *SQLiteStore) NextScheduledRunAt(ctx context.Context) (*time.Time, error) {
	var m jobModel
	err := s.db.NewSelect().
		Model(&m).
		Column("run_at").
		Where("state = ?", job.Scheduled.String()).
		Order("run_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: next scheduled: %w", err)
	}
	return m.RunAt, nil
}
