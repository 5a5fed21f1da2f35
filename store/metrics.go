package store

import (
	"context"
	"fmt"
	"time"

	"github.com/queuectl/queuectl/job"
)

// SystemMetrics implements Store.SystemMetrics. Success percentage is
// computed only over completed+dead jobs created within the window,
// matching job_queue.py:get_system_metrics's "WHERE state IN
// ('completed','dead')" rather than over every job.
func (s *SQLiteStore) SystemMetrics(ctx context.Context, windowHours int) (Metrics, error) {
	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)

	var stateCounts []struct {
		State string `bun:"state"`
		N     int64  `bun:"n"`
	}
	err := s.db.NewSelect().
		Model((*jobModel)(nil)).
		ColumnExpr("state, count(*) AS n").
		Where("created_at >= ?", since).
		GroupExpr("state").
		Scan(ctx, &stateCounts)
	if err != nil {
		return Metrics{}, fmt.Errorf("store: system metrics: counts: %w", err)
	}

	counts := make(map[job.State]int64, len(stateCounts))
	for _, sc := range stateCounts {
		st, perr := job.ParseState(sc.State)
		if perr != nil {
			continue
		}
		counts[st] = sc.N
	}

	var avgExec float64
	err = s.db.NewSelect().
		Model((*jobModel)(nil)).
		ColumnExpr("COALESCE(AVG(execution_time_ms), 0)").
		Where("created_at >= ?", since).
		Where("state = ?", job.Completed.String()).
		Scan(ctx, &avgExec)
	if err != nil {
		return Metrics{}, fmt.Errorf("store: system metrics: avg exec: %w", err)
	}

	terminal := counts[job.Completed] + counts[job.Dead]
	var successPct float64
	if terminal > 0 {
		successPct = float64(counts[job.Completed]) / float64(terminal) * 100
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	ratePerHour := float64(total) / float64(windowHours)

	return Metrics{
		CountsByState: counts,
		AvgExecMS:     avgExec,
		RatePerHour:   ratePerHour,
		SuccessPct:    successPct,
		WindowHours:   windowHours,
	}, nil
}

// RecordMetricSample implements Store.RecordMetricSample.
func (s *SQLiteStore) RecordMetricSample(ctx context.Context, name string, value float64) error {
	m := &systemMetricModel{
		MetricName: name,
		Value:      value,
		Timestamp:  time.Now().UTC(),
	}
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	return err
}
