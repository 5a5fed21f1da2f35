// Package store provides durable, process-safe persistence for jobs,
// their event log, and queue configuration.
//
// Store is the single point of contact with the database; every other
// component (queue, worker, scheduler, config) reaches the database only
// through a Store. The implementation in this package is backed by
// github.com/uptrace/bun over modernc.org/sqlite, following the same
// pattern as gqs's sql subpackage: bun models with struct tags, a single
// *bun.DB, and explicit transactions around multi-statement operations.
//
// # Schema
//
// SQLiteStore maintains four tables: jobs, job_metrics (the append-only
// JobEvent log), system_metrics (point-in-time metric samples), and
// config. InitDB creates them and their indices idempotently — it never
// drops or alters existing data.
//
// # Claim semantics
//
// Unlike gqs's Puller.Pull (a single atomic UPDATE ... RETURNING that
// both selects and transitions a job to Processing), ClaimNext only
// promotes due Scheduled jobs and selects the best eligible candidate —
// it does not transition state. The Pending/Failed -> Processing
// transition is performed by the caller via UpdateState, after it has
// acquired the job's execution lock. This mirrors job_queue.py's
// get_next_job (a plain SELECT) followed by a worker-side
// exclusive-create lock file: the execution lock, not Store atomicity,
// is what guarantees at-most-one concurrent execution, because the
// command runs outside any Store transaction.
package store
