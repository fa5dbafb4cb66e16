package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// admitScript increments the window counter only while it is below the
// limit, so a rejected or cancelled caller never consumes a slot.
var admitScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= limit then
	return 0
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// RedisWindow is a fixed-window limiter whose counter lives in Redis, so
// several processes sharing one prefix share one ceiling.
//
// Windows are aligned to the Unix epoch rather than to construction, since
// the participating processes start at different times. Callers blocked on
// a full window poll again at the next boundary; there is no FIFO ordering
// across processes.
type RedisWindow struct {
	rdb    redis.Scripter
	config Config
	prefix string
	clock  clockwork.Clock
	logger *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// Ensure RedisWindow implements Limiter.
var _ Limiter = (*RedisWindow)(nil)

// NewRedisWindow creates a Redis-backed limiter storing its counters under prefix.
func NewRedisWindow(rdb redis.Scripter, prefix string, cfg Config, opts ...Option) (*RedisWindow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rdb == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "crptapi:ratelimit"
	}
	o := buildOptions(opts)

	return &RedisWindow{
		rdb:    rdb,
		config: cfg,
		prefix: prefix,
		clock:  o.clock,
		logger: o.logger,
		done:   make(chan struct{}),
	}, nil
}

// TryAdmit consumes a slot in the current window if one is left.
func (l *RedisWindow) TryAdmit(ctx context.Context) (bool, error) {
	ok, _, err := l.try(ctx)
	return ok, err
}

// Admit blocks until a slot is available in some window and consumes it.
func (l *RedisWindow) Admit(ctx context.Context) error {
	for {
		select {
		case <-l.done:
			return ErrClosed
		default:
		}
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}

		ok, next, err := l.try(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return canceled(ctxErr)
			}
			return fmt.Errorf("redis admit: %w", err)
		}
		if ok {
			return nil
		}

		l.logger.Debug("redis window full, waiting for next window",
			"prefix", l.prefix,
			"wait_ms", l.clock.Until(next).Milliseconds(),
		)

		timer := l.clock.NewTimer(l.clock.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return canceled(ctx.Err())
		case <-l.done:
			timer.Stop()
			return ErrClosed
		case <-timer.Chan():
		}
	}
}

// Config returns the limiter's configuration.
func (l *RedisWindow) Config() Config {
	return l.config
}

// Close releases blocked callers with ErrClosed. The Redis client is owned by the caller.
func (l *RedisWindow) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	return nil
}

// try runs the admission script for the window containing now and returns
// the start of the following window.
func (l *RedisWindow) try(ctx context.Context) (bool, time.Time, error) {
	now := l.clock.Now()
	index := l.windowIndex(now)
	next := time.Unix(0, (index+1)*int64(l.config.Window))

	ttl := 2 * l.config.Window.Milliseconds()
	if ttl < 1 {
		ttl = 1
	}

	res, err := admitScript.Run(ctx, l.rdb, []string{l.key(index)}, l.config.Limit, ttl).Int()
	if err != nil {
		return false, next, err
	}
	return res == 1, next, nil
}

func (l *RedisWindow) windowIndex(t time.Time) int64 {
	return t.UnixNano() / int64(l.config.Window)
}

func (l *RedisWindow) key(index int64) string {
	return fmt.Sprintf("%s:%d", l.prefix, index)
}
