// Command queuectl is the process entrypoint: the same binary plays one
// of two roles depending on its first argument.
//
// With no role (or "manager") it is the supervisor process: it opens
// the store, seeds config defaults, starts the scheduled->pending
// promoter, spawns a pool of worker subprocesses, and blocks until an
// interrupt arrives, at which point it stops everything cleanly.
//
// With "worker" it is a single supervised worker process, re-exec'd by
// workermanager.Manager's Spawner (see workermanager.NewExecSpawner) —
// operators never invoke this role by hand.
//
// queuectl intentionally has no enqueue/list/status/etc. subcommands;
// those operations are a library surface (queue.Queue, config.Config)
// for a caller — CLI or dashboard — to embed, not something this
// launcher re-implements.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/queuectl/queuectl/config"
	"github.com/queuectl/queuectl/execlock"
	"github.com/queuectl/queuectl/queue"
	"github.com/queuectl/queuectl/scheduler"
	"github.com/queuectl/queuectl/store"
	"github.com/queuectl/queuectl/worker"
	"github.com/queuectl/queuectl/workermanager"
)

const (
	defaultDBPath   = "jobs.db"
	defaultLockDir  = "locks"
	defaultWorkers  = 4
	defaultSchedule = time.Second
)

func main() {
	role := "manager"
	args := os.Args[1:]
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		role = args[0]
		args = args[1:]
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var err error
	switch role {
	case "worker":
		err = runWorker(log, args)
	case "manager":
		err = runManager(log, args)
	default:
		fmt.Fprintf(os.Stderr, "queuectl: unknown role %q (expected \"manager\" or \"worker\")\n", role)
		os.Exit(2)
	}
	if err != nil {
		log.Error(role+" exited with error", "err", err)
		os.Exit(1)
	}
}

// runWorker implements the worker role: open the shared store and lock
// directory, build one worker.Worker, and run its loop until SIGTERM or
// SIGINT arrives (the signal workermanager.Manager.StopAll sends).
func runWorker(log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	id := fs.String("id", "", "worker id (assigned by the manager)")
	dbPath := fs.String("db", defaultDBPath, "path to the sqlite database")
	lockDir := fs.String("locks", defaultLockDir, "execution lock directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("worker: -id is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := config.New(s)
	if err := cfg.Seed(ctx); err != nil {
		return fmt.Errorf("seed config: %w", err)
	}
	q := queue.New(s, cfg)

	lock, err := execlock.Open(*lockDir)
	if err != nil {
		return err
	}

	w := worker.New(*id, q, cfg, lock, log.With("worker_id", *id))
	w.Run(ctx)
	return nil
}

// runManager implements the manager role: seed config, start the
// scheduled->pending promoter, start a worker subprocess pool, and
// block until an interrupt tells everything to stop.
func runManager(log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("manager", flag.ExitOnError)
	count := fs.Int("workers", defaultWorkers, "number of worker subprocesses to supervise")
	dbPath := fs.String("db", defaultDBPath, "path to the sqlite database")
	lockDir := fs.String("locks", defaultLockDir, "execution lock directory")
	interval := fs.Duration("schedule-interval", defaultSchedule, "scheduled->pending promotion interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := config.New(s)
	if err := cfg.Seed(ctx); err != nil {
		return fmt.Errorf("seed config: %w", err)
	}
	q := queue.New(s, cfg)

	lock, err := execlock.Open(*lockDir)
	if err != nil {
		return err
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve self path: %w", err)
	}
	spawn := workermanager.NewExecSpawner(self, "-db", *dbPath, "-locks", *lockDir)
	mgr := workermanager.New(spawn, lock, log.With("component", "workermanager"))

	sched := scheduler.New(q, *interval, log.With("component", "scheduler"))
	sched.Start(ctx)
	defer func() { <-sched.Stop() }()

	if err := mgr.Start(*count); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	log.Info("queuectl manager running", "workers", *count, "db", *dbPath, "locks", *lockDir)
	mgr.HandleSignals(ctx)
	return nil
}
