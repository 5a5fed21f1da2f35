package store

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
)

func createTables(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*jobModel)(nil),
		(*eventModel)(nil),
		(*systemMetricModel)(nil),
		(*configModel)(nil),
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func createIndices(ctx context.Context, db bun.IDB) error {
	indices := []struct {
		model any
		name  string
		exprs string
	}{
		{(*jobModel)(nil), "idx_jobs_state_priority", "state, priority DESC, created_at"},
		{(*jobModel)(nil), "idx_jobs_run_at", "run_at"},
		{(*jobModel)(nil), "idx_jobs_next_retry", "next_retry_at"},
		{(*eventModel)(nil), "idx_metrics_job", "job_id"},
	}
	for _, idx := range indices {
		if _, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			ColumnExpr(idx.exprs).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func initDB(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := createTables(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createIndices(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// InitDB creates the jobs, job_metrics, system_metrics and config tables
// and their indices inside a single transaction, if they do not already
// exist. InitDB is idempotent and never drops or alters existing data;
// schema evolution beyond adding new tables/indices is not attempted
// here (adding new columns to an already-deployed jobs table is a
// one-off migration step, not part of steady-state startup).
func InitDB(ctx context.Context, db *bun.DB) error {
	return initDB(ctx, db)
}

// MustInitDB behaves like InitDB but panics on failure. Intended for use
// during process bootstrap where a broken schema is unrecoverable.
func MustInitDB(ctx context.Context, db *bun.DB) {
	if err := initDB(ctx, db); err != nil {
		panic(err)
	}
}
