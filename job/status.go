package job

import "fmt"

// State represents the current lifecycle state of a Job.
//
// The state machine is:
//
//	Pending    -> Processing
//	Scheduled  -> Pending     (promotion, run_at <= now)
//	Processing -> Completed
//	Processing -> Failed      (retry scheduled)
//	Processing -> Dead        (retries exhausted)
//	Failed     -> Processing  (retry due)
//	Dead       -> Pending     (via retry_from_dlq only)
//
// Unknown is reserved as a zero value and may be used to indicate
// an unspecified or invalid state in filtering contexts. It is never
// persisted.
type State uint8

const (
	// Unknown represents an unspecified or invalid job state.
	// It is the zero value of State.
	Unknown State = iota

	// Pending indicates the job is eligible for claiming.
	Pending

	// Scheduled indicates the job has a future run_at and is not yet
	// eligible for claiming. Promotion converts it to Pending once
	// run_at has passed.
	Scheduled

	// Processing indicates the job has been claimed and locked by a
	// worker and is currently executing.
	Processing

	// Failed indicates the most recent execution attempt failed but
	// the retry budget is not exhausted; next_retry_at holds the next
	// eligible time.
	Failed

	// Completed indicates the job ran successfully. Terminal.
	Completed

	// Dead indicates the job exhausted its retry budget. Terminal
	// until explicitly requeued via retry_from_dlq.
	Dead
)

func stateToString(s State) string {
	switch s {
	case Pending:
		return "pending"
	case Scheduled:
		return "scheduled"
	case Processing:
		return "processing"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

func stateFromString(s string) (State, error) {
	switch s {
	case "pending":
		return Pending, nil
	case "scheduled":
		return Scheduled, nil
	case "processing":
		return Processing, nil
	case "failed":
		return Failed, nil
	case "completed":
		return Completed, nil
	case "dead":
		return Dead, nil
	case "unknown", "":
		return Unknown, nil
	default:
		return 0, fmt.Errorf("job: unknown state: %s", s)
	}
}

// ParseState converts a string representation of a state into a State
// value. Recognized values are the lowercase names of the non-zero
// constants plus "unknown" and the empty string (both of which yield
// Unknown). An error is returned for anything else.
func ParseState(s string) (State, error) {
	return stateFromString(s)
}

// IsTerminal reports whether s is a terminal state (Completed or Dead).
// Terminal jobs are mutated only by retry_from_dlq or delete.
func (s State) IsTerminal() bool {
	return s == Completed || s == Dead
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(stateToString(s)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	state, err := stateFromString(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// String returns the canonical lowercase name of the state.
func (s State) String() string {
	return stateToString(s)
}
