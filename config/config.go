// Package config implements the small key/value façade over Store that
// the worker, scheduler and CLI boundary read tunables through. Config
// lives in the same database as jobs so every process sees the same
// values without a separate reload protocol.
package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/queuectl/queuectl/store"
)

// Recognized keys. Set is the config_set boundary and rejects any other
// key (via Validate); the Store underneath stores arbitrary string
// values, so Seed and direct Store writes are not checked.
const (
	KeyMaxRetries  = "max-retries"
	KeyBackoffBase = "backoff-base"
)

// Defaults seeded on first initialization.
const (
	DefaultMaxRetries  = "3"
	DefaultBackoffBase = "2"
)

var (
	// ErrUnknownKey is returned by the CLI-facing validation helpers when
	// a caller names a key outside the recognized set.
	ErrUnknownKey = errors.New("config: unknown key")
	// ErrInvalidValue is returned when a recognized key's value fails
	// its type/range check (max-retries ≥ 0, backoff-base > 1).
	ErrInvalidValue = errors.New("config: invalid value")
)

// IsRecognized reports whether key is one of the two recognized config
// keys. The CLI boundary uses this to reject config_set calls before
// they ever reach the Store.
func IsRecognized(key string) bool {
	return key == KeyMaxRetries || key == KeyBackoffBase
}

// Validate checks value against the type/range rule for a recognized
// key. It returns ErrUnknownKey for any other key.
func Validate(key, value string) error {
	switch key {
	case KeyMaxRetries:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: max-retries must be a non-negative integer, got %q", ErrInvalidValue, value)
		}
	case KeyBackoffBase:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 1 {
			return fmt.Errorf("%w: backoff-base must be a real number > 1, got %q", ErrInvalidValue, value)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

// Config is a thin, validated wrapper over store.Store's config methods.
type Config struct {
	store store.Store
}

// New wraps s. Callers that want the default keys present should call
// Seed once after New (typically at process bootstrap).
func New(s store.Store) *Config {
	return &Config{store: s}
}

// Seed writes max-retries and backoff-base with their defaults if they
// are not already present. It never overwrites an existing value.
func (c *Config) Seed(ctx context.Context) error {
	defaults := map[string]string{
		KeyMaxRetries:  DefaultMaxRetries,
		KeyBackoffBase: DefaultBackoffBase,
	}
	for key, value := range defaults {
		_, ok, err := c.store.GetConfig(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := c.store.SetConfig(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Set validates key/value against the recognized set and writes it.
// Use this at the CLI boundary; internal callers that already trust
// their input (e.g. Seed) may write through the Store directly.
func (c *Config) Set(ctx context.Context, key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}
	return c.store.SetConfig(ctx, key, value)
}

// Get returns the stored value for key, or def if the key is absent.
func (c *Config) Get(ctx context.Context, key, def string) (string, error) {
	v, ok, err := c.store.GetConfig(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// GetInt parses the stored value for key as an integer, or returns def
// if the key is absent or unparsable.
func (c *Config) GetInt(ctx context.Context, key string, def int) (int, error) {
	v, ok, err := c.store.GetConfig(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, nil
	}
	return n, nil
}

// GetFloat parses the stored value for key as a float64, or returns def
// if the key is absent or unparsable.
func (c *Config) GetFloat(ctx context.Context, key string, def float64) (float64, error) {
	v, ok, err := c.store.GetConfig(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, nil
	}
	return f, nil
}

// Delete removes key. It reports whether a row was actually removed.
func (c *Config) Delete(ctx context.Context, key string) (bool, error) {
	return c.store.DeleteConfig(ctx, key)
}

// Exists reports whether key currently has a stored value.
func (c *Config) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.store.GetConfig(ctx, key)
	return ok, err
}

// ListAll returns every stored key/value pair.
func (c *Config) ListAll(ctx context.Context) (map[string]string, error) {
	return c.store.ListConfig(ctx)
}

// MaxRetries returns the current max-retries value, defaulting to 3.
func (c *Config) MaxRetries(ctx context.Context) (int, error) {
	return c.GetInt(ctx, KeyMaxRetries, 3)
}

// BackoffBase returns the current backoff-base value, defaulting to 2.
func (c *Config) BackoffBase(ctx context.Context) (float64, error) {
	return c.GetFloat(ctx, KeyBackoffBase, 2)
}
