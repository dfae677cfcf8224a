package tracker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/invitetrack/internal/invite"
	"github.com/roach88/invitetrack/internal/platform"
)

func TestCreateInvite_ClaimsHumanCreator(t *testing.T) {
	f := newFixture(t)
	f.platform.CreatorID = "bot"
	// The follow-up snapshot sees the new code with the bot as creator.
	f.platform.ScriptInvites(guild, invite.Invite{Code: "code-1", Uses: 0, CreatorID: "bot"})

	inv, err := f.tracker.CreateInvite(t.Context(), guild, "chan-1", "human")
	require.NoError(t, err)
	assert.Equal(t, "code-1", inv.Code)

	base, err := f.store.ReadBaselines(t.Context(), guild)
	require.NoError(t, err)
	assert.Equal(t, "human", base["code-1"].CreatorID)

	created := f.platform.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "chan-1", created[0].ChannelID)
	assert.Equal(t, 24*time.Hour, created[0].Options.MaxAge)
	assert.Zero(t, created[0].Options.MaxUses)
	assert.Equal(t, "invite requested by human", created[0].Options.Reason)
}

func TestCreateInvite_JoinAttributedToHuman(t *testing.T) {
	f := newFixture(t)
	f.platform.CreatorID = "bot"
	f.platform.
		ScriptInvites(guild, invite.Invite{Code: "code-1", Uses: 0, CreatorID: "bot"}).
		ScriptInvites(guild, invite.Invite{Code: "code-1", Uses: 1, CreatorID: "bot"})

	_, err := f.tracker.CreateInvite(t.Context(), guild, "chan-1", "human")
	require.NoError(t, err)

	out := f.tracker.HandleJoin(t.Context(), join("m1"))
	require.True(t, out.Attributed())
	assert.Equal(t, "human", out.Attribution.InviterID)
}

func TestCreateInvite_CustomDefaults(t *testing.T) {
	f := newFixture(t, WithInviteDefaults(time.Hour, 1))

	_, err := f.tracker.CreateInvite(t.Context(), guild, "chan-1", "human")
	require.NoError(t, err)

	opts := f.platform.Created()[0].Options
	assert.Equal(t, time.Hour, opts.MaxAge)
	assert.Equal(t, 1, opts.MaxUses)
}

func TestCreateInvite_Errors(t *testing.T) {
	t.Run("no creator configured", func(t *testing.T) {
		f := newFixture(t, WithInviteCreator(nil))
		_, err := f.tracker.CreateInvite(t.Context(), guild, "chan-1", "human")
		assert.ErrorIs(t, err, ErrNoInviteCreator)
	})

	t.Run("missing arguments", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.tracker.CreateInvite(t.Context(), guild, "", "human")
		assert.Error(t, err)
	})

	t.Run("platform refuses", func(t *testing.T) {
		f := newFixture(t)
		f.platform.CreateErr = platform.ErrPermission
		_, err := f.tracker.CreateInvite(t.Context(), guild, "chan-1", "human")
		assert.True(t, platform.IsPermission(err))
	})

	t.Run("claim fails", func(t *testing.T) {
		f := newFixture(t)
		tr := New(stubAttributor{}, failingWriter{}, WithInviteCreator(f.platform))
		inv, err := tr.CreateInvite(t.Context(), guild, "chan-1", "human")
		assert.ErrorContains(t, err, "claim code-1")
		assert.Equal(t, "code-1", inv.Code)
	})

	t.Run("snapshot failure is not fatal", func(t *testing.T) {
		f := newFixture(t)
		tr := New(stubAttributor{err: errors.New("down")}, f.store, WithInviteCreator(f.platform))
		_, err := tr.CreateInvite(t.Context(), guild, "chan-1", "human")
		assert.NoError(t, err)
	})
}

func TestHandleInviteCreated(t *testing.T) {
	f := newFixture(t)
	f.platform.ScriptInvites(guild, invite.Invite{Code: "A", Uses: 0, CreatorID: "u1"})

	require.NoError(t, f.tracker.HandleInviteCreated(t.Context(), guild))

	base, err := f.store.ReadBaselines(t.Context(), guild)
	require.NoError(t, err)
	assert.Contains(t, base, "A")

	f.platform.ScriptError("guild-2", platform.ErrPermission)
	assert.Error(t, f.tracker.HandleInviteCreated(t.Context(), "guild-2"))
}

func TestSnapshotAll_ContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	f.platform.
		ScriptInvites("g1", invite.Invite{Code: "A"}).
		ScriptError("g2", platform.ErrPermission).
		ScriptError("g3", errors.New("timeout")).
		ScriptInvites("g4", invite.Invite{Code: "B"})

	ok := f.tracker.SnapshotAll(t.Context(), []string{"g1", "g2", "g3", "g4"})

	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, f.platform.Calls("g4"))
}
