package queue

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// EnqueuePayload is the external JSON shape accepted by enqueue.
// Pointer fields distinguish "not supplied" (use Queue's default) from
// "explicitly zero".
type EnqueuePayload struct {
	Command        string `json:"command"`
	ID             string `json:"id,omitempty"`
	Priority       *int32 `json:"priority,omitempty"`
	MaxRetries     *int   `json:"max_retries,omitempty"`
	TimeoutSeconds *int   `json:"timeout_seconds,omitempty"`
	RunAt          string `json:"run_at,omitempty"`
}

var relativeRunAt = regexp.MustCompile(`^\+(\d+)([smhd])$`)

// parseRunAt resolves raw against now. raw may be empty (no run_at), an
// absolute RFC3339 timestamp, or a relative form "+<N>{s|m|h|d}".
func parseRunAt(raw string, now time.Time) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if m := relativeRunAt.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: malformed relative run_at %q", ErrInvalidPayload, raw)
		}
		var d time.Duration
		switch m[2] {
		case "s":
			d = time.Duration(n) * time.Second
		case "m":
			d = time.Duration(n) * time.Minute
		case "h":
			d = time.Duration(n) * time.Hour
		case "d":
			d = time.Duration(n) * 24 * time.Hour
		}
		t := now.Add(d)
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: run_at %q is neither absolute ISO-8601 nor +N{s|m|h|d}: %v", ErrInvalidPayload, raw, err)
	}
	t = t.UTC()
	return &t, nil
}
