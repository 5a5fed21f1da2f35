// Package worker implements the long-lived claim/execute/report loop.
// Each Worker is meant to run in its own OS process (the worker manager
// spawns one process per worker); there is no internal concurrency
// here beyond the single child command it supervises at a time,
// matching worker.py's single-threaded _process_next_job loop.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/queuectl/queuectl/backoff"
	"github.com/queuectl/queuectl/config"
	"github.com/queuectl/queuectl/execlock"
	"github.com/queuectl/queuectl/internal"
	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/queue"
	"github.com/queuectl/queuectl/store"
)

// Poll intervals for idle-proportional backoff: sleep briefly while
// something is due soon, longer as the horizon to the next scheduled
// job recedes.
const (
	pollNear   = time.Second
	pollSoon   = time.Minute
	pollFar    = 5 * time.Minute
	nearWindow = 5 * time.Minute
	soonWindow = time.Hour
)

// Worker pulls the next eligible job, executes its command under the
// execution lock, and reports the outcome back through Queue.
type Worker struct {
	id      string
	queue   *queue.Queue
	config  *config.Config
	lock    *execlock.Lock
	log     *slog.Logger
	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// New builds a Worker identified by id. id should be unique within a
// Manager session, e.g. "worker_<epoch>_<i>".
func New(id string, q *queue.Queue, cfg *config.Config, lock *execlock.Lock, log *slog.Logger) *Worker {
	return &Worker{
		id:     id,
		queue:  q,
		config: cfg,
		lock:   lock,
		log:    log,
	}
}

// ID returns the worker's identifier.
func (w *Worker) ID() string {
	return w.id
}

// Run executes the main loop until ctx is canceled or Stop is called.
// It blocks until the loop has fully exited. Run matches worker.py's
// start(): claim, try-execute, sleep, repeat, with all non-fatal errors
// logged and swallowed so one bad job never kills the loop.
func (w *Worker) Run(ctx context.Context) {
	w.running.Store(true)
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	defer close(w.done)
	defer w.running.Store(false)

	w.log.Info("worker started", "worker_id", w.id)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping: context canceled", "worker_id", w.id)
			return
		case <-w.stop:
			w.log.Info("worker stopped", "worker_id", w.id)
			return
		default:
		}

		claimed, err := w.processNext(ctx)
		if err != nil {
			w.log.Error("error in worker loop", "worker_id", w.id, "err", err)
			w.sleep(ctx, 5*time.Second)
			continue
		}
		if claimed {
			continue
		}
		w.sleep(ctx, w.idleInterval(ctx))
	}
}

// Stop requests the loop to exit after its current iteration and
// returns a channel closed once Run has returned.
func (w *Worker) Stop() internal.DoneChan {
	if w.running.CompareAndSwap(true, false) {
		close(w.stop)
	}
	ret := make(internal.DoneChan)
	go func() {
		if w.done != nil {
			<-w.done
		}
		close(ret)
	}()
	return ret
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.stop:
	case <-timer.C:
	}
}

// idleInterval implements idle-proportional polling: look at the
// nearest upcoming scheduled job and back off proportionally to how far
// out it is, instead of a fixed poll interval (worker.py sleeps a fixed
// 1s).
func (w *Worker) idleInterval(ctx context.Context) time.Duration {
	next, err := w.queue.NextScheduledRunAt(ctx)
	if err != nil || next == nil {
		return pollNear
	}
	until := time.Until(*next)
	switch {
	case until <= nearWindow:
		return pollNear
	case until <= soonWindow:
		return pollSoon
	default:
		return pollFar
	}
}

// processNext claims one job and, if one was available, executes it.
// It reports whether a job was claimed (so the caller can skip its idle
// sleep and immediately loop again).
func (w *Worker) processNext(ctx context.Context) (bool, error) {
	claimed, err := w.queue.ClaimNext(ctx, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("claim next: %w", err)
	}
	if claimed == nil {
		return false, nil
	}

	if err := w.lock.Acquire(claimed.ID, w.id); err != nil {
		if errors.Is(err, execlock.ErrHeld) {
			// Another worker already owns this job; relinquish without
			// touching its state.
			return true, nil
		}
		return true, err
	}
	defer func() {
		if err := w.lock.Release(claimed.ID); err != nil {
			w.log.Error("failed to release execution lock", "worker_id", w.id, "job_id", claimed.ID, "err", err)
		}
	}()

	w.execute(ctx, claimed)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j *job.Job) {
	now := time.Now().UTC()
	if err := w.queue.UpdateState(ctx, j.ID, job.Processing, store.UpdateFields{
		StartedAt: store.Some(&now),
		WorkerID:  store.Some(w.id),
	}); err != nil {
		w.log.Error("failed to record processing state", "worker_id", w.id, "job_id", j.ID, "err", err)
		return
	}
	_ = w.queue.LogEvent(ctx, j.ID, job.EventStarted, fmt.Sprintf(`{"worker_id":%q,"timeout_seconds":%d}`, w.id, j.TimeoutSeconds))

	w.log.Info("processing job", "worker_id", w.id, "job_id", j.ID, "command", j.Command, "timeout_seconds", j.TimeoutSeconds)

	result := runCommand(j.Command, time.Duration(j.TimeoutSeconds)*time.Second)

	if result.success {
		w.handleSuccess(ctx, j, result)
	} else {
		w.handleFailure(ctx, j, result)
	}
}

func (w *Worker) handleSuccess(ctx context.Context, j *job.Job, result execResult) {
	now := time.Now().UTC()
	err := w.queue.UpdateState(ctx, j.ID, job.Completed, store.UpdateFields{
		Output:          store.Some(result.output),
		CompletedAt:     store.Some(&now),
		ExecutionTimeMS: store.Some(result.executionTimeMS),
	})
	if err != nil {
		w.log.Error("failed to record completion", "worker_id", w.id, "job_id", j.ID, "err", err)
		return
	}
	_ = w.queue.LogEvent(ctx, j.ID, job.EventCompleted,
		fmt.Sprintf(`{"execution_time_ms":%d,"output_length":%d}`, result.executionTimeMS, len(result.output)))
	_ = w.queue.RecordMetricSample(ctx, "execution_time_ms", float64(result.executionTimeMS))
	w.log.Info("job completed", "worker_id", w.id, "job_id", j.ID, "execution_time_ms", result.executionTimeMS)
}

// handleFailure implements the processing→failed / processing→dead
// split and the deterministic backoff delay, grounded on
// worker.py:_handle_job_failure.
func (w *Worker) handleFailure(ctx context.Context, j *job.Job, result execResult) {
	now := time.Now().UTC()
	newAttempts := j.Attempts + 1
	maxRetries := j.MaxRetries

	if newAttempts >= maxRetries {
		err := w.queue.UpdateState(ctx, j.ID, job.Dead, store.UpdateFields{
			Attempts:        store.Some(newAttempts),
			Error:           store.Some(result.errMsg),
			CompletedAt:     store.Some(&now),
			ExecutionTimeMS: store.Some(result.executionTimeMS),
		})
		if err != nil {
			w.log.Error("failed to record dead state", "worker_id", w.id, "job_id", j.ID, "err", err)
			return
		}
		_ = w.queue.LogEvent(ctx, j.ID, job.EventMovedToDLQ,
			fmt.Sprintf(`{"final_attempts":%d,"error":%q}`, newAttempts, truncate(result.errMsg, 200)))
		w.log.Warn("job moved to DLQ", "worker_id", w.id, "job_id", j.ID, "attempts", newAttempts)
		return
	}

	backoffBase, err := w.config.BackoffBase(ctx)
	if err != nil {
		w.log.Error("failed to read backoff-base, using default", "err", err)
		backoffBase = 2
	}
	delaySeconds, _ := backoff.Config{MaxRetries: maxRetries, Base: backoffBase}.Delay(newAttempts)
	nextRetryAt := now.Add(time.Duration(delaySeconds) * time.Second)

	err = w.queue.UpdateState(ctx, j.ID, job.Failed, store.UpdateFields{
		Attempts:        store.Some(newAttempts),
		Error:           store.Some(result.errMsg),
		NextRetryAt:     store.Some(&nextRetryAt),
		ExecutionTimeMS: store.Some(result.executionTimeMS),
	})
	if err != nil {
		w.log.Error("failed to record failed state", "worker_id", w.id, "job_id", j.ID, "err", err)
		return
	}
	_ = w.queue.LogEvent(ctx, j.ID, job.EventRetryScheduled,
		fmt.Sprintf(`{"attempt":%d,"delay_seconds":%d,"error":%q}`, newAttempts, delaySeconds, truncate(result.errMsg, 200)))
	w.log.Info("job scheduled for retry", "worker_id", w.id, "job_id", j.ID, "delay_seconds", delaySeconds, "attempt", newAttempts, "max_retries", maxRetries)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

type execResult struct {
	success         bool
	output          string
	errMsg          string
	executionTimeMS int64
}

// runCommand executes command through /bin/sh -c, bounded by timeout,
// matching worker.py's subprocess.run(..., shell=True, timeout=...).
//
// The exec context is deliberately detached from the worker's own
// stop-signal context: per spec, a cooperative stop is honored only
// between jobs, and an in-flight child is preempted by nothing short of
// the worker process itself being force-killed. Deriving from the
// worker's ctx here would have a graceful worker_stop (SIGTERM) kill the
// child immediately and record it as failed/dead, which it must not.
func runCommand(command string, timeout time.Duration) execResult {
	start := time.Now()
	cctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "/bin/sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	if cctx.Err() == context.DeadlineExceeded {
		return execResult{
			success:         false,
			errMsg:          fmt.Sprintf("command timed out after %d seconds", int(timeout.Seconds())),
			executionTimeMS: elapsed,
		}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := stderrMessage(stderr.String(), exitErr.ExitCode())
			return execResult{success: false, errMsg: msg, executionTimeMS: elapsed}
		}
		return execResult{
			success:         false,
			errMsg:          fmt.Sprintf("failed to execute command: %v", err),
			executionTimeMS: elapsed,
		}
	}
	return execResult{
		success:         true,
		output:          trimTrailingNewline(stdout.String()),
		executionTimeMS: elapsed,
	}
}

func stderrMessage(stderr string, exitCode int) string {
	stderr = trimTrailingNewline(stderr)
	if stderr != "" {
		return stderr
	}
	return fmt.Sprintf("command exited with code %d", exitCode)
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
