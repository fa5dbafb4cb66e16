package ratelimiter

import (
	"context"
)

// Limiter defines the interface for rate limiters.
// Implementations can be local (in-memory) or distributed (Redis, etc.).
type Limiter interface {
	// Admit blocks until the caller may issue one request, then consumes that permission.
	// Returns an error matching ErrCanceled if ctx ends first, or ErrClosed once the
	// limiter has been shut down. A failed Admit never consumes a permit.
	Admit(ctx context.Context) error

	// Close stops background work and releases every blocked caller with ErrClosed.
	Close() error
}
