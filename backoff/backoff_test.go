package backoff_test

import (
	"testing"

	"github.com/queuectl/queuectl/backoff"
)

func TestDelaySequence(t *testing.T) {
	cfg := backoff.Config{MaxRetries: 3, Base: 2}

	cases := []struct {
		attempts int
		seconds  int64
		retry    bool
	}{
		{1, 2, true},
		{2, 4, true},
		{3, 0, false},
	}

	for _, c := range cases {
		seconds, retry := cfg.Delay(c.attempts)
		if retry != c.retry {
			t.Fatalf("attempts=%d: retry=%v, want %v", c.attempts, retry, c.retry)
		}
		if retry && seconds != c.seconds {
			t.Fatalf("attempts=%d: seconds=%d, want %d", c.attempts, seconds, c.seconds)
		}
	}
}

func TestDelayTruncatesToInteger(t *testing.T) {
	cfg := backoff.Config{MaxRetries: 100, Base: 1.5}
	seconds, retry := cfg.Delay(2)
	if !retry {
		t.Fatal("expected retry")
	}
	// 1.5^2 = 2.25, floored to 2.
	if seconds != 2 {
		t.Fatalf("seconds=%d, want 2", seconds)
	}
}
