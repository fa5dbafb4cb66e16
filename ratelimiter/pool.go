package ratelimiter

import (
	"container/list"
	"context"
	"sync"
)

// waiter is a caller blocked in acquire. ready is closed exactly once, after
// epoch or err has been set.
type waiter struct {
	ready chan struct{}
	epoch int64
	err   error
}

// permitPool counts the requests still allowed in the current window.
//
// A budget belongs to the window it was issued for (epoch). When the clock
// has moved past that window the leftover permits are unusable until the
// replenisher resets the pool for the new window, so no window ever sees
// more than max admissions.
type permitPool struct {
	mu        sync.Mutex
	max       int
	available int
	epoch     int64
	current   func() int64
	waiters   list.List
	closed    bool
}

func newPermitPool(max int, current func() int64) *permitPool {
	return &permitPool{
		max:       max,
		available: max,
		epoch:     current(),
		current:   current,
	}
}

// tryAcquire takes a permit without blocking. It never jumps ahead of queued waiters.
func (p *permitPool) tryAcquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.waiters.Len() > 0 || !p.usableLocked() {
		return false
	}
	p.available--
	return true
}

// acquire blocks until a permit is granted, ctx ends, or the pool is closed.
// It returns the epoch the permit was issued for.
func (p *permitPool) acquire(ctx context.Context) (int64, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	if p.waiters.Len() == 0 && p.usableLocked() {
		p.available--
		epoch := p.epoch
		p.mu.Unlock()
		return epoch, nil
	}
	if err := ctx.Err(); err != nil {
		p.mu.Unlock()
		return 0, canceled(err)
	}

	w := &waiter{ready: make(chan struct{})}
	elem := p.waiters.PushBack(w)
	p.mu.Unlock()

	select {
	case <-w.ready:
		return w.epoch, w.err

	case <-ctx.Done():
		p.mu.Lock()
		select {
		case <-w.ready:
			// Granted (or closed) between ctx.Done and taking the lock.
			p.mu.Unlock()
			if w.err == nil {
				p.release(w.epoch)
			}
		default:
			p.waiters.Remove(elem)
			p.grantLocked()
			p.mu.Unlock()
		}
		return 0, canceled(ctx.Err())
	}
}

// release hands one unused permit back. Permits from an earlier window are
// dropped, and the pool never grows past max.
func (p *permitPool) release(epoch int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || epoch != p.epoch || p.available >= p.max {
		return
	}
	p.available++
	p.grantLocked()
}

// replenish resets the budget to max for the given window. A window that is
// not newer than the current epoch is ignored, so late or repeated ticks
// cannot reset twice.
func (p *permitPool) replenish(window int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || window <= p.epoch {
		return false
	}
	p.epoch = window
	p.available = p.max
	p.grantLocked()
	return true
}

// close wakes every waiter with ErrClosed. Later acquires fail immediately.
func (p *permitPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for e := p.waiters.Front(); e != nil; e = e.Next() {
		w := e.Value.(*waiter)
		w.err = ErrClosed
		close(w.ready)
	}
	p.waiters.Init()
}

// size returns the permits usable right now.
func (p *permitPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.usableLocked() {
		return 0
	}
	return p.available
}

func (p *permitPool) waiting() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waiters.Len()
}

func (p *permitPool) usableLocked() bool {
	return p.available > 0 && p.epoch == p.current()
}

// grantLocked hands permits to waiters in FIFO order.
func (p *permitPool) grantLocked() {
	for p.usableLocked() {
		front := p.waiters.Front()
		if front == nil {
			return
		}
		w := front.Value.(*waiter)
		p.available--
		w.epoch = p.epoch
		p.waiters.Remove(front)
		close(w.ready)
	}
}
