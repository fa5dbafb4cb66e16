package ratelimiter

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
)

// replenisher resets a permitPool once per window from a single ticker.
// The ticker period is fixed, so slow admissions never shift the schedule.
type replenisher struct {
	pool    *permitPool
	ticker  clockwork.Ticker
	window  func() int64
	logger  *slog.Logger
	done    chan struct{}
	stopped chan struct{}
}

func newReplenisher(pool *permitPool, ticker clockwork.Ticker, window func() int64, logger *slog.Logger) *replenisher {
	return &replenisher{
		pool:    pool,
		ticker:  ticker,
		window:  window,
		logger:  logger,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (r *replenisher) run() {
	defer close(r.stopped)

	for {
		select {
		case <-r.done:
			return
		case <-r.ticker.Chan():
			window := r.window()
			if !r.pool.replenish(window) {
				r.logger.Debug("replenish skipped, window already current",
					"window", window,
				)
			}
		}
	}
}

// stop halts the ticker and waits for the goroutine to exit.
func (r *replenisher) stop() {
	r.ticker.Stop()
	close(r.done)
	<-r.stopped
}
