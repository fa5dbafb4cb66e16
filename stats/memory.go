package stats

import (
	"context"
	"sync"
	"time"
)

// Memory keeps counters in process. It never expires anything, so it suits
// tests and short-lived tools.
type Memory struct {
	mu     sync.Mutex
	counts map[Outcome]int64
	waited time.Duration
}

// NewMemory returns an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{counts: make(map[Outcome]int64)}
}

// Record counts ev and adds its wait time.
func (m *Memory) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts[ev.Outcome]++
	m.waited += ev.Wait
	return nil
}

// Count returns how many events with the given outcome were recorded.
func (m *Memory) Count(o Outcome) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[o]
}

// Snapshot returns a copy of all counters.
func (m *Memory) Snapshot() map[Outcome]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Outcome]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

// Waited returns the total time callers spent blocked on the limiter.
func (m *Memory) Waited() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waited
}
