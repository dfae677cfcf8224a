package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/invitetrack/internal/invite"
	"github.com/roach88/invitetrack/internal/store"
	"github.com/roach88/invitetrack/internal/testutil"
)

const community = "guild-1"

type fixture struct {
	store    *store.Store
	platform *testutil.ScriptedPlatform
	clock    *testutil.FakeClock
	sleeper  *testutil.Sleeper
	rec      *recordingRecorder
	engine   *Engine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return newFixtureWithStore(t, st, opts...)
}

func newFixtureWithStore(t *testing.T, st *store.Store, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		store:    st,
		platform: testutil.NewScriptedPlatform(),
		clock:    testutil.NewFakeClock(testutil.Epoch),
		rec:      &recordingRecorder{},
	}
	f.sleeper = &testutil.Sleeper{Clock: f.clock}

	all := append([]Option{
		WithClock(f.clock),
		WithSleep(f.sleeper.Sleep),
		WithRecorder(f.rec),
	}, opts...)
	f.engine = New(st, f.platform, all...)
	return f
}

func (f *fixture) seed(t *testing.T, rows ...invite.Baseline) {
	t.Helper()
	require.NoError(t, f.store.UpsertBaselines(t.Context(), rows))
}

func (f *fixture) baseline(t *testing.T) map[string]invite.Baseline {
	t.Helper()
	got, err := f.store.ReadBaselines(t.Context(), community)
	require.NoError(t, err)
	return got
}

func row(code string, uses int, creator string) invite.Baseline {
	return invite.Baseline{
		CommunityID: community,
		Code:        code,
		Uses:        uses,
		CreatorID:   creator,
		UpdatedAt:   testutil.Epoch,
	}
}

func inv(code string, uses int, creator string) invite.Invite {
	return invite.Invite{Code: code, Uses: uses, CreatorID: creator}
}

type recordingRecorder struct {
	mu        sync.Mutex
	snapshots []string
	retries   int
}

func (r *recordingRecorder) ObserveSnapshot(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, result)
}

func (r *recordingRecorder) ObserveRetry() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries++
}

// faultyStore wraps a real store and fails chosen operations.
type faultyStore struct {
	BaselineStore
	readErr  error
	writeErr error
	writes   int
}

func (s *faultyStore) ReadBaselines(ctx context.Context, communityID string) (map[string]invite.Baseline, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.BaselineStore.ReadBaselines(ctx, communityID)
}

func (s *faultyStore) UpsertBaselines(ctx context.Context, rows []invite.Baseline) error {
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.BaselineStore.UpsertBaselines(ctx, rows)
}

var errDisk = errors.New("disk I/O error")
