package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/invitetrack/internal/invite"
	"github.com/roach88/invitetrack/internal/platform"
)

// DefaultRetryDelay is how long AttributeWithRetry waits before its single
// retry. Long enough for the platform's counter to propagate, short enough
// that the join handler stays responsive.
const DefaultRetryDelay = time.Second

// BaselineStore is the persistence the engine needs. Implemented by
// *store.Store.
type BaselineStore interface {
	UpsertBaselines(ctx context.Context, rows []invite.Baseline) error
	ReadBaselines(ctx context.Context, communityID string) (map[string]invite.Baseline, error)
}

// Recorder receives engine-level counters. Implemented by *metrics.Metrics.
type Recorder interface {
	ObserveSnapshot(result string)
	ObserveRetry()
}

// Snapshot results reported to the Recorder.
const (
	SnapshotOK         = "ok"
	SnapshotPermission = "permission_denied"
	SnapshotFetchError = "fetch_error"
	SnapshotStoreError = "store_error"
)

type nopRecorder struct{}

func (nopRecorder) ObserveSnapshot(string) {}
func (nopRecorder) ObserveRetry()          {}

// Engine diffs live invite counters against a stored baseline.
//
// Thread-safety: all methods are safe for concurrent use. The engine itself
// holds no mutable state; consistency comes from the store.
type Engine struct {
	store      BaselineStore
	lister     platform.InviteLister
	clock      Clock
	sleep      SleepFunc
	retryDelay time.Duration
	log        *zap.Logger
	rec        Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetryDelay sets the pause before the single retry.
//
// Default: 1s (DefaultRetryDelay). A non-positive delay retries immediately.
func WithRetryDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.retryDelay = d
	}
}

// WithClock overrides the wall clock used for updated_at.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithSleep overrides how the retry waits. Tests use it to avoid real delays.
func WithSleep(fn SleepFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.rec = r
		}
	}
}

// New creates an Engine over a baseline store and a live invite source.
func New(s BaselineStore, lister platform.InviteLister, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		lister:     lister,
		clock:      SystemClock{},
		sleep:      Sleep,
		retryDelay: DefaultRetryDelay,
		log:        zap.NewNop(),
		rec:        nopRecorder{},
	}

	for _, opt := range opts {
		opt(e)
	}

	e.log = e.log.Named("engine")
	return e
}

// RetryDelay returns the configured pause before the single retry.
func (e *Engine) RetryDelay() time.Duration {
	return e.retryDelay
}
