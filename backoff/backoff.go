// Package backoff implements the deterministic retry-delay schedule used
// by the worker's failure path.
//
// The formula is delay = floor(base ^ attempts) seconds, a geometric
// schedule with no jitter. Jitter is deliberately omitted: QueueCTL runs
// on a single host, so there is no thundering herd of independent
// clients to smear, unlike the multi-host SQS-style queue gqs's
// backoff.go targets with its RandomizationFactor knob; that knob has
// no role here.
package backoff

import "math"

// Config holds the two tunables that come from durable config
// (config.Config's "max-retries" and "backoff-base" keys).
type Config struct {
	MaxRetries int
	Base       float64
}

// Delay returns the retry delay for attempts, the job's attempt count
// AFTER the failing execution has been counted (i.e. old attempts + 1),
// and whether the job should still be retried. retry is false once
// attempts reaches MaxRetries — the caller must then move the job to
// job.Dead instead of job.Failed.
func (c Config) Delay(attempts int) (seconds int64, retry bool) {
	if attempts >= c.MaxRetries {
		return 0, false
	}
	d := math.Pow(c.Base, float64(attempts))
	return int64(math.Floor(d)), true
}
