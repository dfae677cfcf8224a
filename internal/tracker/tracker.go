package tracker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/invitetrack/internal/engine"
	"github.com/roach88/invitetrack/internal/invite"
	"github.com/roach88/invitetrack/internal/platform"
)

// Attributor is the engine surface the tracker drives. Implemented by
// *engine.Engine.
type Attributor interface {
	Snapshot(ctx context.Context, communityID string) error
	AttributeWithRetry(ctx context.Context, communityID string) (*invite.Attribution, error)
}

// Store is the persistence the tracker writes. Implemented by *store.Store.
type Store interface {
	WriteJoin(ctx context.Context, rec invite.JoinRecord) (int64, error)
	ClaimCreator(ctx context.Context, b invite.Baseline) error
}

// Recorder receives per-join counters. Implemented by *metrics.Metrics.
type Recorder interface {
	ObserveAttribution(outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttribution(string, time.Duration) {}

// Tracker coordinates the engine, the join log and notifications.
//
// Thread-safety: safe for concurrent use; HandleJoin is expected to run in one
// goroutine per join.
type Tracker struct {
	engine  Attributor
	store   Store
	creator platform.InviteCreator
	audit   AuditSink
	ids     engine.AttemptIDGenerator
	clock   engine.Clock
	rec     Recorder
	log     *zap.Logger

	inviteDefaults platform.InviteOptions
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(t *Tracker) {
		if r != nil {
			t.rec = r
		}
	}
}

// WithAuditSink enables audit notifications.
func WithAuditSink(s AuditSink) Option {
	return func(t *Tracker) {
		t.audit = s
	}
}

// WithAttemptIDs overrides attempt id generation.
func WithAttemptIDs(g engine.AttemptIDGenerator) Option {
	return func(t *Tracker) {
		if g != nil {
			t.ids = g
		}
	}
}

// WithClock overrides the clock used for join times and durations.
func WithClock(c engine.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithInviteCreator enables CreateInvite.
func WithInviteCreator(c platform.InviteCreator) Option {
	return func(t *Tracker) {
		t.creator = c
	}
}

// WithInviteDefaults sets the limits applied by CreateInvite.
//
// Default: 24h max age, unlimited uses.
func WithInviteDefaults(maxAge time.Duration, maxUses int) Option {
	return func(t *Tracker) {
		t.inviteDefaults.MaxAge = maxAge
		t.inviteDefaults.MaxUses = maxUses
	}
}

// New creates a Tracker.
func New(e Attributor, s Store, opts ...Option) *Tracker {
	t := &Tracker{
		engine: e,
		store:  s,
		ids:    engine.UUIDv7Generator{},
		clock:  engine.SystemClock{},
		rec:    nopRecorder{},
		log:    zap.NewNop(),
		inviteDefaults: platform.InviteOptions{
			MaxAge: 24 * time.Hour,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.Named("tracker")
	return t
}
