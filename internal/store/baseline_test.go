package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/invitetrack/internal/invite"
)

func TestUpsertBaseline_InsertsNewRow(t *testing.T) {
	s := createTestStore(t)
	created := time.Date(2026, 2, 28, 9, 30, 0, 0, time.UTC)

	b := createTestBaseline("g1", "abc", 3, "u1")
	b.CreatedAt = created
	require.NoError(t, s.UpsertBaseline(t.Context(), b))

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	require.Contains(t, got, "abc")
	assert.Equal(t, 3, got["abc"].Uses)
	assert.Equal(t, "u1", got["abc"].CreatorID)
	assert.True(t, created.Equal(got["abc"].CreatedAt))
	assert.True(t, testNow.Equal(got["abc"].UpdatedAt))
}

func TestUpsertBaseline_Idempotent(t *testing.T) {
	s := createTestStore(t)
	snapshot := []invite.Baseline{
		createTestBaseline("g1", "abc", 3, "u1"),
		createTestBaseline("g1", "def", 7, ""),
	}

	require.NoError(t, s.UpsertBaselines(t.Context(), snapshot))
	once, err := s.ListBaselines(t.Context(), "g1")
	require.NoError(t, err)

	require.NoError(t, s.UpsertBaselines(t.Context(), snapshot))
	twice, err := s.ListBaselines(t.Context(), "g1")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestUpsertBaseline_CreatorFirstWriteWins(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "abc", 1, "A")))
	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "abc", 2, "B")))

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "A", got["abc"].CreatorID)
}

func TestUpsertBaseline_CreatorFilledWhenAbsent(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "abc", 1, "")))
	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "abc", 1, "B")))

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "B", got["abc"].CreatorID)
}

func TestUpsertBaseline_CreatedAtFirstWriteWins(t *testing.T) {
	s := createTestStore(t)
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	b := createTestBaseline("g1", "abc", 1, "")
	b.CreatedAt = first
	require.NoError(t, s.UpsertBaseline(t.Context(), b))

	b.CreatedAt = second
	require.NoError(t, s.UpsertBaseline(t.Context(), b))

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.True(t, first.Equal(got["abc"].CreatedAt))
}

func TestUpsertBaseline_UsesLastWriteWins(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "abc", 5, "A")))
	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "abc", 9, "A")))

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 9, got["abc"].Uses)
}

func TestUpsertBaseline_UpdatedAtAlwaysOverwritten(t *testing.T) {
	s := createTestStore(t)

	b := createTestBaseline("g1", "abc", 5, "A")
	require.NoError(t, s.UpsertBaseline(t.Context(), b))

	later := testNow.Add(time.Hour)
	b.UpdatedAt = later
	require.NoError(t, s.UpsertBaseline(t.Context(), b))

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.True(t, later.Equal(got["abc"].UpdatedAt))
}

func TestUpsertBaseline_ClampsNegativeUses(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "abc", -4, "")))

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, got["abc"].Uses)
}

func TestUpsertBaseline_RequiresIdentity(t *testing.T) {
	s := createTestStore(t)

	assert.Error(t, s.UpsertBaseline(t.Context(), createTestBaseline("", "abc", 1, "")))
	assert.Error(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "", 1, "")))
}

func TestUpsertBaselines_EmptyIsNoop(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.UpsertBaselines(t.Context(), nil))
}

func TestUpsertBaselines_RollsBackOnInvalidRow(t *testing.T) {
	s := createTestStore(t)

	err := s.UpsertBaselines(t.Context(), []invite.Baseline{
		createTestBaseline("g1", "abc", 1, ""),
		createTestBaseline("g1", "", 1, ""),
	})
	require.Error(t, err)

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpsertBaselines_ScopedByCommunity(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.UpsertBaselines(t.Context(), []invite.Baseline{
		createTestBaseline("g1", "abc", 1, ""),
	}))
	require.NoError(t, s.UpsertBaselines(t.Context(), []invite.Baseline{
		createTestBaseline("g2", "abc", 8, ""),
	}))

	g1, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	g2, err := s.ReadBaselines(t.Context(), "g2")
	require.NoError(t, err)

	assert.Equal(t, 1, g1["abc"].Uses)
	assert.Equal(t, 8, g2["abc"].Uses)
}

func TestClaimCreator_OverridesSnapshotCreator(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "abc", 0, "bot")))
	require.NoError(t, s.ClaimCreator(t.Context(), createTestBaseline("g1", "abc", 0, "human")))

	// A later snapshot reports the bot again; the claim must survive.
	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "abc", 2, "bot")))

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "human", got["abc"].CreatorID)
	assert.Equal(t, 2, got["abc"].Uses)
}

func TestClaimCreator_CreatesMissingRow(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.ClaimCreator(t.Context(), createTestBaseline("g1", "new", 0, "human")))

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "human", got["new"].CreatorID)
	assert.Equal(t, 0, got["new"].Uses)
}

func TestClaimCreator_ClampsNegativeUses(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.ClaimCreator(t.Context(), createTestBaseline("g1", "neg", -4, "human")))

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, got["neg"].Uses)
}

func TestClaimCreator_DoesNotTouchUses(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "abc", 6, "bot")))
	require.NoError(t, s.ClaimCreator(t.Context(), createTestBaseline("g1", "abc", 0, "human")))

	got, err := s.ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 6, got["abc"].Uses)
}

func TestClaimCreator_RequiresCreator(t *testing.T) {
	s := createTestStore(t)
	assert.Error(t, s.ClaimCreator(t.Context(), createTestBaseline("g1", "abc", 0, "")))
}

func TestListBaselines_OrderedByCode(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.UpsertBaselines(t.Context(), []invite.Baseline{
		createTestBaseline("g1", "zzz", 1, ""),
		createTestBaseline("g1", "aaa", 1, ""),
		createTestBaseline("g1", "mmm", 1, ""),
	}))

	list, err := s.ListBaselines(t.Context(), "g1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"aaa", "mmm", "zzz"}, []string{list[0].Code, list[1].Code, list[2].Code})
}

func TestListBaselines_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	list, err := s.ListBaselines(t.Context(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListCommunities(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g2", "a", 1, "")))
	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "a", 1, "")))
	require.NoError(t, s.UpsertBaseline(t.Context(), createTestBaseline("g1", "b", 1, "")))

	got, err := s.ListCommunities(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, got)
}

func TestReadBaselines_ClosedStore(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.ReadBaselines(t.Context(), "g1")
	assert.Error(t, err)
}
