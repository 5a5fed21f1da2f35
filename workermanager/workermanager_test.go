package workermanager_test

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/queuectl/queuectl/execlock"
	"github.com/queuectl/queuectl/workermanager"
)

// TestMain lets the test binary re-exec itself as a fake worker process,
// the standard library's own os/exec test idiom (see exec_test.go's
// helperCommand), so Start/StopAll exercise a real child process without
// depending on the not-yet-built cmd/queuectl binary.
func TestMain(m *testing.M) {
	if os.Getenv("QUEUECTL_HELPER_WORKER") == "1" {
		runHelperWorker()
		return
	}
	os.Exit(m.Run())
}

func runHelperWorker() {
	// SIGTERM's default disposition (what StopAll sends) already
	// terminates the process, which is all this helper needs to look like a well-behaved worker
	// that exits promptly on stop.
	time.Sleep(10 * time.Second)
}

func helperSpawner(t *testing.T) workermanager.Spawner {
	self, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	return func(workerID string) *exec.Cmd {
		cmd := exec.Command(self, "-test.run=TestMain")
		cmd.Env = append(os.Environ(), "QUEUECTL_HELPER_WORKER=1")
		return cmd
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartRejectsBadCount(t *testing.T) {
	dir := t.TempDir()
	lock, err := execlock.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	mgr := workermanager.New(helperSpawner(t), lock, discardLogger())
	if err := mgr.Start(0); err != workermanager.ErrBadCount {
		t.Fatalf("expected ErrBadCount, got %v", err)
	}
}

func TestStartSpawnsAndTracksWorkers(t *testing.T) {
	dir := t.TempDir()
	lock, err := execlock.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	mgr := workermanager.New(helperSpawner(t), lock, discardLogger())

	if err := mgr.Start(2); err != nil {
		t.Fatal(err)
	}
	defer mgr.StopAll()

	deadline := time.Now().Add(2 * time.Second)
	for mgr.ActiveCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if n := mgr.ActiveCount(); n != 2 {
		t.Fatalf("expected 2 active workers, got %d", n)
	}

	statuses := mgr.WorkerStatus()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	for _, s := range statuses {
		if s.PID == 0 || !s.Alive {
			t.Fatalf("unexpected status: %+v", s)
		}
	}
}

func TestStartRefusesSecondPool(t *testing.T) {
	dir := t.TempDir()
	lock, err := execlock.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	mgr := workermanager.New(helperSpawner(t), lock, discardLogger())

	if err := mgr.Start(1); err != nil {
		t.Fatal(err)
	}
	defer mgr.StopAll()

	if err := mgr.Start(1); err != workermanager.ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStopAllReleasesLocksAndStopsChildren(t *testing.T) {
	dir := t.TempDir()
	lock, err := execlock.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	mgr := workermanager.New(helperSpawner(t), lock, discardLogger())

	if err := mgr.Start(1); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for mgr.ActiveCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	// Simulate a lock left behind by a dead, untracked owner; StopAll's
	// ReleaseAll must clear it regardless of ownership.
	if err := lock.Acquire("orphan-job", "some-other-owner"); err != nil {
		t.Fatal(err)
	}

	if err := mgr.StopAll(); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	if _, held, err := lock.Owner("orphan-job"); err != nil {
		t.Fatal(err)
	} else if held {
		t.Fatal("expected orphan lock to be released by StopAll")
	}

	if n := mgr.ActiveCount(); n != 0 {
		t.Fatalf("expected 0 active workers after StopAll, got %d", n)
	}
}

func TestIsAliveFalseForUnknownOwner(t *testing.T) {
	dir := t.TempDir()
	lock, err := execlock.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	mgr := workermanager.New(helperSpawner(t), lock, discardLogger())
	if err := mgr.Start(1); err != nil {
		t.Fatal(err)
	}
	defer mgr.StopAll()

	if err := lock.Acquire("stale-job", "not-a-real-worker"); err != nil {
		t.Fatal(err)
	}
	n, err := lock.Sweep(func(owner string) bool {
		for _, s := range mgr.WorkerStatus() {
			if s.WorkerID == owner && s.Alive {
				return true
			}
		}
		return false
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected sweep to remove 1 stale lock, got %d", n)
	}
}
