package scheduler_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/queuectl/queuectl/config"
	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/queue"
	"github.com/queuectl/queuectl/scheduler"
	"github.com/queuectl/queuectl/store"

	_ "modernc.org/sqlite"
)

func TestSchedulerPromotesDueJobs(t *testing.T) {
	sqlDB, err := sql.Open("sqlite", "file::memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	ctx := context.Background()
	if err := store.InitDB(ctx, db); err != nil {
		t.Fatal(err)
	}
	s := store.NewSQLiteStore(db)
	cfg := config.New(s)
	if err := cfg.Seed(ctx); err != nil {
		t.Fatal(err)
	}
	q := queue.New(s, cfg)

	if _, err := q.Enqueue(ctx, queue.EnqueuePayload{ID: "s1", Command: "/bin/true", RunAt: "+1s"}, false); err != nil {
		t.Fatal(err)
	}
	j, err := q.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if j.State != job.Scheduled {
		t.Fatalf("expected Scheduled before promotion, got %v", j.State)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sch := scheduler.New(q, 200*time.Millisecond, log)
	sch.Start(runCtx)
	defer func() { <-sch.Stop() }()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		j, err = q.Get(ctx, "s1")
		if err != nil {
			t.Fatal(err)
		}
		if j.State == job.Pending {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("expected s1 promoted to Pending, still %v", j.State)
}
