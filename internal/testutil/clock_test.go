package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClock_DefaultsToEpoch(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestFakeClock_AdvanceAndSet(t *testing.T) {
	clock := NewFakeClock(Epoch)

	clock.Advance(time.Second)
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())

	later := Epoch.Add(time.Hour)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestFakeClock_ThreadSafe(t *testing.T) {
	clock := NewFakeClock(Epoch)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(100*time.Millisecond), clock.Now())
}

func TestSleeper_RecordsWaitsAndAdvancesClock(t *testing.T) {
	clock := NewFakeClock(Epoch)
	sleeper := &Sleeper{Clock: clock}

	require.NoError(t, sleeper.Sleep(t.Context(), time.Second))
	require.NoError(t, sleeper.Sleep(t.Context(), 2*time.Second))

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.Waits())
	assert.Equal(t, Epoch.Add(3*time.Second), clock.Now())
}

func TestSleeper_HonoursCancelledContext(t *testing.T) {
	sleeper := &Sleeper{}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := sleeper.Sleep(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sleeper.Waits())
}

func TestSleeper_ReturnsConfiguredError(t *testing.T) {
	boom := errors.New("boom")
	sleeper := &Sleeper{Err: boom}

	assert.ErrorIs(t, sleeper.Sleep(t.Context(), time.Second), boom)
	assert.Len(t, sleeper.Waits(), 1)
}
