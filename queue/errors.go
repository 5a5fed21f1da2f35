package queue

import "errors"

// ErrInvalidPayload is returned when an enqueue payload fails validation:
// missing command, malformed run_at, negative max_retries, or a
// non-positive timeout_seconds.
var ErrInvalidPayload = errors.New("queue: invalid payload")
