package ratelimiter

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig is returned when a limiter is built with a non-positive window or limit.
	ErrInvalidConfig = errors.New("invalid rate limit config")

	// ErrClosed is returned by Admit once the limiter has been closed.
	ErrClosed = errors.New("rate limiter closed")

	// ErrCanceled is returned when the caller's context ends while waiting for a permit.
	// The returned error also wraps the context's own error.
	ErrCanceled = errors.New("rate limit wait canceled")
)

// Config is the only configuration surface of a limiter: at most Limit admissions per Window.
type Config struct {
	// Window is the interval after which the permit budget resets.
	Window time.Duration

	// Limit is the number of admissions allowed per window.
	Limit int
}

// Per returns a Config allowing limit requests per unit (time.Second, time.Minute, ...).
func Per(unit time.Duration, limit int) Config {
	return Config{Window: unit, Limit: limit}
}

// Validate checks that both the window and the limit are positive.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, c.Window)
	}
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, c.Limit)
	}
	return nil
}

// String renders the config as "5/1s".
func (c Config) String() string {
	return fmt.Sprintf("%d/%v", c.Limit, c.Window)
}

// canceled wraps a context error so it matches both ErrCanceled and the original cause.
func canceled(err error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, err)
}
