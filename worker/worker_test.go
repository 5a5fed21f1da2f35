package worker_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/queuectl/queuectl/config"
	"github.com/queuectl/queuectl/execlock"
	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/queue"
	"github.com/queuectl/queuectl/store"
	"github.com/queuectl/queuectl/worker"

	_ "modernc.org/sqlite"
)

func newTestHarness(t *testing.T) (*queue.Queue, *config.Config, *execlock.Lock) {
	t.Helper()
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
	lock, err := execlock.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return queue.New(s, cfg), cfg, lock
}

func awaitState(t *testing.T, q *queue.Queue, id string, want job.State, timeout time.Duration) *job.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		got, err := q.Get(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if got.State == want {
			return got
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for job %q to reach state %v", id, want)
	return nil
}

func TestHappyPath(t *testing.T) {
	q, cfg, lock := newTestHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := q.Enqueue(ctx, queue.EnqueuePayload{ID: "j1", Command: "/bin/true"}, false); err != nil {
		t.Fatal(err)
	}

	w := worker.New("worker_test_1", q, cfg, lock, discardLogger())
	go w.Run(ctx)
	defer func() { <-w.Stop() }()

	done := awaitState(t, q, "j1", job.Completed, 5*time.Second)
	if done.ExecutionTimeMS < 0 {
		t.Fatalf("expected non-negative execution time, got %d", done.ExecutionTimeMS)
	}

	events, err := q.ListEvents(ctx, "j1")
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []job.EventType{job.EventCreated, job.EventStarted, job.EventCompleted}
	if len(events) != len(wantOrder) {
		t.Fatalf("expected %d events, got %d: %+v", len(wantOrder), len(events), events)
	}
	for i, et := range wantOrder {
		if events[i].EventType != et {
			t.Fatalf("event[%d]: expected %v, got %v", i, et, events[i].EventType)
		}
	}
}

func TestFailureToDLQ(t *testing.T) {
	q, cfg, lock := newTestHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfg.Set(ctx, config.KeyMaxRetries, "2"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Set(ctx, config.KeyBackoffBase, "2"); err != nil {
		t.Fatal(err)
	}

	maxRetries := 2
	if _, err := q.Enqueue(ctx, queue.EnqueuePayload{ID: "j2", Command: "false", MaxRetries: &maxRetries}, false); err != nil {
		t.Fatal(err)
	}

	w := worker.New("worker_test_2", q, cfg, lock, discardLogger())
	go w.Run(ctx)
	defer func() { <-w.Stop() }()

	dead := awaitState(t, q, "j2", job.Dead, 10*time.Second)
	if dead.Attempts != 2 {
		t.Fatalf("expected 2 attempts before DLQ, got %d", dead.Attempts)
	}
	if dead.Error == "" {
		t.Fatal("expected non-empty error on dead job")
	}
}

func TestTimeoutBecomesFailure(t *testing.T) {
	q, cfg, lock := newTestHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timeoutSeconds := 1
	maxRetries := 0
	if _, err := q.Enqueue(ctx, queue.EnqueuePayload{
		ID:             "j3",
		Command:        "sleep 60",
		TimeoutSeconds: &timeoutSeconds,
		MaxRetries:     &maxRetries,
	}, false); err != nil {
		t.Fatal(err)
	}

	w := worker.New("worker_test_3", q, cfg, lock, discardLogger())
	go w.Run(ctx)
	defer func() { <-w.Stop() }()

	dead := awaitState(t, q, "j3", job.Dead, 5*time.Second)
	if dead.ExecutionTimeMS < 900 {
		t.Fatalf("expected execution time near 1000ms, got %d", dead.ExecutionTimeMS)
	}
}

func TestDLQRetryThenSucceed(t *testing.T) {
	q, cfg, lock := newTestHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfg.Set(ctx, config.KeyMaxRetries, "1"); err != nil {
		t.Fatal(err)
	}
	maxRetries := 1
	if _, err := q.Enqueue(ctx, queue.EnqueuePayload{ID: "j4", Command: "false", MaxRetries: &maxRetries}, false); err != nil {
		t.Fatal(err)
	}

	w := worker.New("worker_test_4", q, cfg, lock, discardLogger())
	go w.Run(ctx)

	awaitState(t, q, "j4", job.Dead, 10*time.Second)
	<-w.Stop()

	revived, err := q.DLQRetry(ctx, "j4")
	if err != nil {
		t.Fatal(err)
	}
	if revived.State != job.Pending || revived.Attempts != 0 {
		t.Fatalf("expected clean pending after retry, got %+v", revived)
	}

	if _, err := q.Enqueue(ctx, queue.EnqueuePayload{ID: "j4", Command: "/bin/true"}, true); err != nil {
		t.Fatal(err)
	}

	w2 := worker.New("worker_test_4b", q, cfg, lock, discardLogger())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	go w2.Run(ctx2)
	defer func() { <-w2.Stop() }()

	awaitState(t, q, "j4", job.Completed, 5*time.Second)
}
