// Package job defines the durable representation of a unit of work in
// QueueCTL's job-execution engine.
//
// A Job is an opaque shell command plus delivery state: its current
// State, retry accounting, scheduling timestamps, and the output of its
// most recent execution attempt. Job values are maintained by the store
// and worker packages; they are not intended to be constructed directly
// by user code except when building an enqueue request.
//
// JobEvent is the append-only audit trail of every state transition a
// Job undergoes, recorded by the store package on a best-effort basis.
package job
