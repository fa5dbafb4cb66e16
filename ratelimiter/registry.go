package ratelimiter

import (
	"errors"
	"fmt"
	"sync"
)

// ErrLimiterNotFound is returned by Registry.Get for an unknown key.
var ErrLimiterNotFound = errors.New("rate limiter not found")

// Registry shares one limiter per key (typically one per API account) so
// that every client talking to the same account draws from the same budget.
type Registry interface {
	Get(key string) (Limiter, error)
	Set(key string, limiter Limiter)

	// GetOrCreate returns the limiter registered under key, building a
	// FixedWindow from cfg on first use. cfg is ignored when the key exists.
	GetOrCreate(key string, cfg Config, opts ...Option) (Limiter, error)

	// Close closes every registered limiter and empties the registry.
	Close() error
}

type limiterMapRegistry struct {
	registry map[string]Limiter
	mu       sync.RWMutex
}

// NewRegistry creates a new in-memory limiter registry.
func NewRegistry() Registry {
	return &limiterMapRegistry{
		registry: make(map[string]Limiter),
	}
}

func (r *limiterMapRegistry) Get(key string) (Limiter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limiter, exists := r.registry[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrLimiterNotFound, key)
	}
	return limiter, nil
}

// Set registers limiter under key. A limiter it replaces is not closed.
func (r *limiterMapRegistry) Set(key string, limiter Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registry[key] = limiter
}

func (r *limiterMapRegistry) GetOrCreate(key string, cfg Config, opts ...Option) (Limiter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, exists := r.registry[key]; exists {
		return limiter, nil
	}

	limiter, err := NewFixedWindow(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating limiter %s: %w", key, err)
	}
	r.registry[key] = limiter
	return limiter, nil
}

func (r *limiterMapRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, limiter := range r.registry {
		if err := limiter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", key, err))
		}
	}
	r.registry = make(map[string]Limiter)

	return errors.Join(errs...)
}
