package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores counters as hashes:
//
//	<prefix>:total               outcome -> count
//	<prefix>:minute:<YYYYMMDDhhmm> outcome -> count (expires after ttl)
//	<prefix>:wait_ms             outcome -> summed wait in milliseconds
type Redis struct {
	rdb redis.Cmdable

	prefix string
	// ttl applies to the per-minute buckets only; totals never expire.
	ttl    time.Duration
	bucket string // "minute" (default) or "none"
}

// RedisOption configures a Redis recorder.
type RedisOption func(*Redis)

// WithPrefix sets the key prefix. Surrounding colons are trimmed.
func WithPrefix(prefix string) RedisOption {
	return func(s *Redis) { s.prefix = strings.Trim(prefix, ":") }
}

// WithTTL sets how long per-minute buckets live. Zero keeps them forever.
func WithTTL(d time.Duration) RedisOption {
	return func(s *Redis) { s.ttl = d }
}

// WithBucket selects time bucketing: "minute" or "none".
func WithBucket(bucket string) RedisOption {
	return func(s *Redis) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

// NewRedis returns a recorder writing under "crptapi:stats" with
// per-minute buckets kept for 24h unless overridden.
func NewRedis(rdb redis.Cmdable, opts ...RedisOption) *Redis {
	s := &Redis{
		rdb:    rdb,
		prefix: "crptapi:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record increments the outcome counters in one pipeline.
func (s *Redis) Record(ctx context.Context, ev Event) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Outcome)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if ev.Wait > 0 {
		pipe.HIncrBy(ctx, s.prefix+":wait_ms", field, ev.Wait.Milliseconds())
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Totals reads the cumulative counters.
func (s *Redis) Totals(ctx context.Context) (map[Outcome]int64, error) {
	raw, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return nil, err
	}

	out := make(map[Outcome]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s counter: %w", k, err)
		}
		out[Outcome(k)] = n
	}
	return out, nil
}
