package store

import (
	"context"
	"time"

	"github.com/queuectl/queuectl/job"
)

// LogEvent implements Store.LogEvent. Errors are returned to the caller but
// never wrapped in a way that would be mistaken for a job-operation
// failure; callers that only care about best-effort logging discard the
// return value, as Enqueue and the transition helpers do.
func (s *SQLiteStore) LogEvent(ctx context.Context, jobID string, eventType job.EventType, data string) error {
	m := &eventModel{
		JobID:     jobID,
		EventType: string(eventType),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	return err
}

// ListEvents implements Store.ListEvents.
func (s *SQLiteStore) ListEvents(ctx context.Context, jobID string) ([]*job.JobEvent, error) {
	var models []*eventModel
	err := s.db.NewSelect().
		Model(&models).
		Where("job_id = ?", jobID).
		Order("timestamp ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]*job.JobEvent, len(models))
	for i, m := range models {
		events[i] = m.toEvent()
	}
	return events, nil
}
