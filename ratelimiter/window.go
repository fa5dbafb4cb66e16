package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// FixedWindow admits at most Config.Limit callers per Config.Window.
//
// Windows are counted from construction: window k covers
// [start+k*Window, start+(k+1)*Window). The budget is reset in bulk at each
// boundary by a background ticker; it is not trickled back per request.
// Blocked callers are served first come, first served.
//
// A FixedWindow must be built once and shared by every caller it is meant to
// throttle. Call Close to stop the ticker.
type FixedWindow struct {
	config Config
	clock  clockwork.Clock
	start  time.Time
	logger *slog.Logger

	pool   *permitPool
	refill *replenisher

	closeOnce sync.Once
}

// Ensure FixedWindow implements Limiter.
var _ Limiter = (*FixedWindow)(nil)

// Option configures a limiter.
type Option func(*options)

type options struct {
	clock  clockwork.Clock
	logger *slog.Logger
}

// WithClock sets the time source. Tests use clockwork.NewFakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets a structured logger for the limiter.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewFixedWindow validates cfg and starts the limiter's replenisher.
// It fails with ErrInvalidConfig rather than returning a limiter that could never admit anyone.
func NewFixedWindow(cfg Config, opts ...Option) (*FixedWindow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	l := &FixedWindow{
		config: cfg,
		clock:  o.clock,
		start:  o.clock.Now(),
		logger: o.logger,
	}
	l.pool = newPermitPool(cfg.Limit, l.windowIndex)
	l.refill = newReplenisher(l.pool, o.clock.NewTicker(cfg.Window), l.windowIndex, o.logger)
	go l.refill.run()

	l.logger.Debug("rate limiter started",
		"limit", cfg.Limit,
		"window", cfg.Window.String(),
	)

	return l, nil
}

// Admit blocks until a permit is available and consumes it.
func (l *FixedWindow) Admit(ctx context.Context) error {
	_, err := l.pool.acquire(ctx)
	return err
}

// TryAdmit consumes a permit only if one is available right now and nobody is queued ahead.
func (l *FixedWindow) TryAdmit() bool {
	return l.pool.tryAcquire()
}

// Available returns the permits left in the current window.
func (l *FixedWindow) Available() int {
	return l.pool.size()
}

// Waiting returns the number of callers blocked in Admit.
func (l *FixedWindow) Waiting() int {
	return l.pool.waiting()
}

// Config returns the limiter's configuration.
func (l *FixedWindow) Config() Config {
	return l.config
}

// Close stops the replenisher and releases blocked callers with ErrClosed.
// It is safe to call more than once.
func (l *FixedWindow) Close() error {
	l.closeOnce.Do(func() {
		l.refill.stop()
		l.pool.close()
		l.logger.Debug("rate limiter closed")
	})
	return nil
}

func (l *FixedWindow) windowIndex() int64 {
	return int64(l.clock.Since(l.start) / l.config.Window)
}
