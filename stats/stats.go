// Package stats records what happened to each document submission.
//
// Recording is best-effort: callers log a Record error and carry on, it
// never fails a submission.
package stats

import (
	"context"
	"time"
)

// Outcome is the stage a submission reached.
type Outcome string

const (
	OutcomeAdmitted  Outcome = "admitted"  // a permit was consumed
	OutcomeCanceled  Outcome = "canceled"  // caller gave up while waiting for a permit
	OutcomeDelivered Outcome = "delivered" // API answered 2xx
	OutcomeFailed    Outcome = "failed"    // transport error or non-2xx
	OutcomeMalformed Outcome = "malformed" // rejected before admission
)

// Event is one recorded outcome.
type Event struct {
	Outcome Outcome

	// DocType is the envelope type tag, e.g. LP_INTRODUCE_GOODS.
	DocType string

	// Wait is the time spent blocked on the rate limiter. Zero unless Outcome is admitted or canceled.
	Wait time.Duration

	// At defaults to time.Now() when zero.
	At time.Time
}

// Recorder persists submission events. Implementations may store them in
// memory, Redis, etc.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}
