package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetConfig implements Store.SetConfig: an upsert, keyed on key, on the
// key/value table backing the durable config façade.
func (s *SQLiteStore) SetConfig(ctx context.Context, key, value string) error {
	m := &configModel{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: set config: %w", err)
	}
	return nil
}

// GetConfig implements Store.GetConfig.
func (s *SQLiteStore) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var m configModel
	err := s.db.NewSelect().Model(&m).Where("key = ?", key).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: get config: %w", err)
	}
	return m.Value, true, nil
}

// DeleteConfig implements Store.DeleteConfig.
func (s *SQLiteStore) DeleteConfig(ctx context.Context, key string) (bool, error) {
	res, err := s.db.NewDelete().Model((*configModel)(nil)).Where("key = ?", key).Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("store: delete config: %w", err)
	}
	return isAffected(res), nil
}

// ListConfig implements Store.ListConfig.
func (s *SQLiteStore) ListConfig(ctx context.Context) (map[string]string, error) {
	var models []*configModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, fmt.Errorf("store: list config: %w", err)
	}
	out := make(map[string]string, len(models))
	for _, m := range models {
		out[m.Key] = m.Value
	}
	return out, nil
}
