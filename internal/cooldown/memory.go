package cooldown

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Tracker guarded by a single mutex.
type Memory struct {
	window time.Duration
	clock  Clock

	mu     sync.Mutex
	marked map[string]time.Time
}

var _ Tracker = (*Memory)(nil)

// NewMemory creates a Tracker with the given window. A nil clock uses the
// system clock. A non-positive window never throttles.
func NewMemory(window time.Duration, clock Clock) *Memory {
	if clock == nil {
		clock = systemClock{}
	}
	return &Memory{
		window: window,
		clock:  clock,
		marked: make(map[string]time.Time),
	}
}

// Claim implements Tracker.
func (m *Memory) Claim(_ context.Context, key string) (bool, time.Duration, error) {
	if m.window <= 0 {
		return true, 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if last, ok := m.marked[key]; ok {
		if elapsed := now.Sub(last); elapsed < m.window {
			return false, m.window - elapsed, nil
		}
	}
	m.marked[key] = now
	return true, 0, nil
}

// Len returns the number of keys currently tracked.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.marked)
}
