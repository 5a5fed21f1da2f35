package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/queuectl/queuectl/job"
)

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*job.Job, error) {
	var m jobModel
	err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("store: get: %w", err)
	}
	return m.toJob(), nil
}

// List implements Store.List.
func (s *SQLiteStore) List(ctx context.Context, state job.State) ([]*job.Job, error) {
	var models []*jobModel
	q := s.db.NewSelect().Model(&models).Order("created_at DESC")
	if state != job.Unknown {
		q = q.Where("state = ?", state.String())
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	jobs := make([]*job.Job, len(models))
	for i, m := range models {
		jobs[i] = m.toJob()
	}
	return jobs, nil
}

// Delete implements Store.Delete.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*jobModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	if !isAffected(res) {
		return fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	return nil
}
