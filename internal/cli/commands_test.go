package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/invitetrack/internal/config"
	"github.com/roach88/invitetrack/internal/engine"
	"github.com/roach88/invitetrack/internal/invite"
	"github.com/roach88/invitetrack/internal/platform"
	"github.com/roach88/invitetrack/internal/store"
	"github.com/roach88/invitetrack/internal/testutil"
)

type cliHarness struct {
	db       string
	platform *testutil.ScriptedPlatform
	opts     *RootOptions
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()
	t.Setenv(config.EnvDiscordToken, "test-token")

	p := testutil.NewScriptedPlatform()
	sleeper := &testutil.Sleeper{}
	return &cliHarness{
		db:       filepath.Join(t.TempDir(), "cli.db"),
		platform: p,
		opts: &RootOptions{
			newPlatform:   func(string) (Platform, error) { return p, nil },
			engineOptions: []engine.Option{engine.WithSleep(sleeper.Sleep)},
		},
	}
}

// run executes the CLI and returns stdout and the command error.
func (h *cliHarness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand(h.opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", h.db, "--env-file", ""}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func (h *cliHarness) openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(h.db)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestBaselineCommand_Text(t *testing.T) {
	h := newHarness(t)
	st := h.openStore(t)
	require.NoError(t, st.UpsertBaselines(t.Context(), []invite.Baseline{
		{CommunityID: "g1", Code: "longcode", Uses: 12, UpdatedAt: testutil.Epoch},
		{CommunityID: "g1", Code: "A", Uses: 3, CreatorID: "u1", UpdatedAt: testutil.Epoch},
	}))

	out, err := h.run(t, "baseline", "g1")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "baseline_text", []byte(out))
}

func TestBaselineCommand_Empty(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "baseline", "g1")
	require.NoError(t, err)
	assert.Equal(t, "No baseline stored for g1\n", out)
}

func TestJoinsCommand_Text(t *testing.T) {
	h := newHarness(t)
	st := h.openStore(t)
	_, err := st.WriteJoin(t.Context(), invite.JoinRecord{
		CommunityID: "g1", MemberID: "m1", MemberDisplay: "Alice", JoinedAt: testutil.Epoch,
		Attribution: &invite.Attribution{Code: "A", InviterID: "u1", UsesBefore: 3, UsesAfter: 4},
	})
	require.NoError(t, err)
	_, err = st.WriteJoin(t.Context(), invite.JoinRecord{
		CommunityID: "g1", MemberID: "m2", JoinedAt: testutil.Epoch.Add(time.Second),
	})
	require.NoError(t, err)

	out, err := h.run(t, "joins", "g1")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "joins_text", []byte(out))

	out, err = h.run(t, "--format", "json", "joins", "g1", "--limit", "1")
	require.NoError(t, err)
	var resp struct {
		Data JoinsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Joins, 1)
	assert.Equal(t, "m2", resp.Data.Joins[0].MemberID)
}

func TestJoinsCommand_NegativeLimit(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "joins", "g1", "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSnapshotCommand(t *testing.T) {
	h := newHarness(t)
	h.platform.ScriptInvites("g1",
		invite.Invite{Code: "A", Uses: 1, CreatorID: "u1"},
		invite.Invite{Code: "B", Uses: 0, CreatorID: "u2"},
	)

	out, err := h.run(t, "snapshot", "g1")
	require.NoError(t, err)
	assert.Equal(t, "Snapshot stored for g1 (2 codes)\n", out)

	base, err := h.openStore(t).ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, base["A"].Uses)
}

func TestSnapshotCommand_PermissionDenied(t *testing.T) {
	h := newHarness(t)
	h.platform.ScriptError("g1", platform.ErrPermission)

	out, err := h.run(t, "snapshot", "g1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestSnapshotCommand_MissingToken(t *testing.T) {
	h := newHarness(t)
	t.Setenv(config.EnvDiscordToken, "")

	out, err := h.run(t, "snapshot", "g1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
	assert.Zero(t, h.platform.Calls("g1"))
}

func TestAttributeCommand(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.openStore(t).UpsertBaseline(t.Context(), invite.Baseline{
		CommunityID: "g1", Code: "A", Uses: 3, CreatorID: "u1", UpdatedAt: testutil.Epoch,
	}))
	h.platform.ScriptInvites("g1", invite.Invite{Code: "A", Uses: 4, CreatorID: "u1"})

	out, err := h.run(t, "attribute", "g1")
	require.NoError(t, err)
	assert.Equal(t, "Code A (inviter u1, uses 3 to 4)\n", out)

	// Counters are now absorbed; the diff finds nothing after its retry.
	out, err = h.run(t, "--format", "json", "attribute", "g1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"community_id":"g1","attribution":null}}`, out)
	assert.Equal(t, 3, h.platform.Calls("g1"))
}

func TestClaimCommand(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "claim", "g1", "abc", "human")
	require.NoError(t, err)
	assert.Equal(t, "Code abc in g1 now credits human\n", out)

	base, err := h.openStore(t).ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "human", base["abc"].CreatorID)
	assert.Zero(t, base["abc"].Uses)
}

func TestInviteCommand(t *testing.T) {
	h := newHarness(t)
	h.platform.CreatorID = "bot"
	h.platform.ScriptInvites("g1", invite.Invite{Code: "code-1", CreatorID: "bot"})

	out, err := h.run(t, "invite", "g1", "chan-1", "human")
	require.NoError(t, err)
	assert.Equal(t, "Created invite code-1 in channel chan-1 for human\n", out)

	base, err := h.openStore(t).ReadBaselines(t.Context(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "human", base["code-1"].CreatorID)

	created := h.platform.Created()
	require.Len(t, created, 1)
	assert.Equal(t, 24*time.Hour, created[0].Options.MaxAge)
}

func TestInviteCommand_PermissionDenied(t *testing.T) {
	h := newHarness(t)
	h.platform.CreateErr = platform.ErrPermission

	out, err := h.run(t, "invite", "g1", "chan-1", "human")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestConfigErrors(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "baseline", "g1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("log:\n  level: loud\n"), 0o600))
	_, err = h.run(t, "--config", bad, "baseline", "g1")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDatabaseOpenError(t *testing.T) {
	h := newHarness(t)
	h.db = filepath.Join(t.TempDir(), "missing", "dir", "cli.db")

	out, err := h.run(t, "baseline", "g1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

const scenarioDir = "../harness/testdata/scenarios"

func TestTestCommand_Scenarios(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "test", scenarioDir, "--golden", "../harness/testdata/golden")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Test Summary: 11 passed, 0 failed, 11 total")
	assert.Contains(t, out, "All scenarios passed")

	out, err = h.run(t, "--format", "json", "test", scenarioDir)
	require.NoError(t, err)
	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 11, resp.Data.Total)
	assert.Equal(t, 11, resp.Data.Passed)
}

func TestTestCommand_FailingScenario(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "never_joins.yaml"), []byte(`
name: never_joins
description: "asserts a join that never happens"
steps:
  - do: snapshot
assertions:
  - type: join_count
    count: 1
`), 0o600))

	out, err := h.run(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ never_joins.yaml")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")

	out, err = h.run(t, "--format", "json", "test", dir)
	require.Error(t, err)
	var resp struct {
		Status string    `json:"status"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenario, resp.Error.Code)
}

func TestTestCommand_UpdateWritesGoldens(t *testing.T) {
	h := newHarness(t)
	golden := filepath.Join(t.TempDir(), "golden")

	_, err := h.run(t, "test", scenarioDir, "--update")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = h.run(t, "test", scenarioDir, "--golden", golden, "--update")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(golden, "tie_first_listed.golden"))

	_, err = h.run(t, "test", scenarioDir, "--golden", golden)
	assert.NoError(t, err)
}

func TestTestCommand_MissingDir(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
