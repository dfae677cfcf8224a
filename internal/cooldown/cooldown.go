// Package cooldown throttles repeated operator actions per key.
//
// A Tracker is explicit process state: built at startup, passed to the
// components that need it, discarded on shutdown. Two backends exist. Memory
// serves a single process; Redis shares the window across replicas.
package cooldown

import (
	"context"
	"time"
)

// Tracker decides whether a key may act again.
type Tracker interface {
	// Claim starts a new window for key if none is running. The check and
	// the mark are one atomic step. When the key is still throttled, ok is
	// false and remaining is the time left on its window.
	Claim(ctx context.Context, key string) (ok bool, remaining time.Duration, err error)
}

// Clock supplies time to the memory backend.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
