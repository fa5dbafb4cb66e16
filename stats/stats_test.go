package stats

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemory_Record(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Record(ctx, Event{Outcome: OutcomeAdmitted, Wait: 30 * time.Millisecond})
	_ = m.Record(ctx, Event{Outcome: OutcomeAdmitted, Wait: 20 * time.Millisecond})
	_ = m.Record(ctx, Event{Outcome: OutcomeFailed})

	if got := m.Count(OutcomeAdmitted); got != 2 {
		t.Errorf("expected 2 admitted, got %d", got)
	}
	if got := m.Count(OutcomeDelivered); got != 0 {
		t.Errorf("expected 0 delivered, got %d", got)
	}
	if got := m.Waited(); got != 50*time.Millisecond {
		t.Errorf("expected 50ms waited, got %v", got)
	}

	snap := m.Snapshot()
	snap[OutcomeFailed] = 100
	if m.Count(OutcomeFailed) != 1 {
		t.Error("Snapshot must return a copy")
	}
}

func TestRedis_Record(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedis(rdb, WithPrefix("test:stats:"), WithTTL(time.Hour))
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)

	for _, ev := range []Event{
		{Outcome: OutcomeAdmitted, Wait: 1500 * time.Millisecond, At: at},
		{Outcome: OutcomeDelivered, At: at},
		{Outcome: OutcomeAdmitted, At: at},
	} {
		if err := s.Record(ctx, ev); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	totals, err := s.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if totals[OutcomeAdmitted] != 2 || totals[OutcomeDelivered] != 1 {
		t.Errorf("unexpected totals %v", totals)
	}

	bucket := "test:stats:minute:202403011015"
	if got := mr.HGet(bucket, "admitted"); got != "2" {
		t.Errorf("expected minute bucket count 2, got %q", got)
	}
	if ttl := mr.TTL(bucket); ttl != time.Hour {
		t.Errorf("expected bucket ttl 1h, got %v", ttl)
	}
	if got := mr.HGet("test:stats:wait_ms", "admitted"); got != "1500" {
		t.Errorf("expected 1500ms waited, got %q", got)
	}
}

func TestRedis_NoBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedis(rdb, WithBucket("none"))
	if err := s.Record(context.Background(), Event{Outcome: OutcomeCanceled}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	for _, key := range mr.Keys() {
		if key != "crptapi:stats:total" {
			t.Errorf("unexpected key %q with bucketing disabled", key)
		}
	}
}
