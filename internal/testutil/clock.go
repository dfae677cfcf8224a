package testutil

import (
	"context"
	"sync"
	"time"
)

// Epoch is the fixed start time used by FakeClock and by golden fixtures.
var Epoch = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// FakeClock is a manually advanced wall clock for tests.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock reading start. A zero start means Epoch.
func NewFakeClock(start time.Time) *FakeClock {
	if start.IsZero() {
		start = Epoch
	}
	return &FakeClock{now: start.UTC()}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// Sleeper records requested waits instead of blocking. When Clock is set,
// each wait advances it, so code under test observes the elapsed time.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Sleeper struct {
	Clock *FakeClock

	// Err, when set, is returned from every Sleep call.
	Err error

	mu    sync.Mutex
	waits []time.Duration
}

// Sleep records d and returns immediately. Context cancellation is honoured.
func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	if s.Clock != nil {
		s.Clock.Advance(d)
	}
	return nil
}

// Waits returns a copy of every recorded wait, in call order.
func (s *Sleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.waits))
	copy(out, s.waits)
	return out
}
