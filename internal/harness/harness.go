package harness

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/invitetrack/internal/engine"
	"github.com/roach88/invitetrack/internal/invite"
	"github.com/roach88/invitetrack/internal/store"
	"github.com/roach88/invitetrack/internal/testutil"
	"github.com/roach88/invitetrack/internal/tracker"
)

// stepInterval is how far the fake clock moves between steps.
const stepInterval = time.Second

// Harness holds the wiring for one scenario run.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	platform *testutil.ScriptedPlatform
	clock    *testutil.FakeClock
	sleeper  *testutil.Sleeper
	tracker  *tracker.Tracker
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. The engine, tracker and
// store are the production types; only the platform, clock, sleep and
// attempt ids are replaced by deterministic fakes.
//
// A returned error means the scenario could not be executed at all; failed
// expectations and assertions are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	community := scenario.community()
	clock := testutil.NewFakeClock(time.Time{})
	sleeper := &testutil.Sleeper{Clock: clock}

	p := testutil.NewScriptedPlatform()
	for _, f := range scenario.Fetches {
		p.Script(community, f.response())
	}

	eng := engine.New(st, p,
		engine.WithClock(clock),
		engine.WithSleep(sleeper.Sleep),
		engine.WithRetryDelay(scenario.retryDelay()),
		engine.WithLogger(zap.NewNop()),
	)
	tr := tracker.New(eng, st,
		tracker.WithClock(clock),
		tracker.WithAttemptIDs(testutil.NewFixedAttemptGenerator(scenario.AttemptID)),
		tracker.WithLogger(zap.NewNop()),
	)

	h := &Harness{
		scenario: scenario,
		store:    st,
		platform: p,
		clock:    clock,
		sleeper:  sleeper,
		tracker:  tr,
	}

	if err := st.UpsertBaselines(ctx, scenario.seed(clock.Now())); err != nil {
		return nil, fmt.Errorf("failed to seed baseline: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		clock.Advance(stepInterval)
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, err
		}
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	community := h.scenario.community()

	switch step.Do {
	case StepJoin:
		out := h.tracker.HandleJoin(ctx, tracker.JoinEvent{
			CommunityID:   community,
			MemberID:      step.Member,
			MemberDisplay: step.Display,
		})
		if out.RecordID == 0 {
			return fmt.Errorf("steps[%d]: join was not recorded: %v", i, out.Err)
		}
		result.AddTrace(TraceEvent{
			Step:        i,
			Kind:        StepJoin,
			MemberID:    step.Member,
			Attribution: out.Attribution,
			Reason:      string(out.Reason),
		})
		if step.Expect != nil {
			for _, msg := range checkJoin(i, *step.Expect, out) {
				result.AddError(msg)
			}
		}

	case StepSnapshot:
		err := h.tracker.HandleInviteCreated(ctx, community)
		reason := snapshotReason(err)
		result.AddTrace(TraceEvent{Step: i, Kind: StepSnapshot, Reason: reason})
		if step.Expect != nil && step.Expect.Reason != reason {
			result.AddError(fmt.Sprintf("steps[%d]: snapshot reason = %q, expected %q", i, reason, step.Expect.Reason))
		}

	case StepClaim:
		err := h.store.ClaimCreator(ctx, invite.Baseline{
			CommunityID: community,
			Code:        step.Code,
			CreatorID:   step.Creator,
			UpdatedAt:   h.clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("steps[%d]: claim failed: %w", i, err)
		}
		result.AddTrace(TraceEvent{Step: i, Kind: StepClaim, Code: step.Code, CreatorID: step.Creator})
	}

	return nil
}

// collect loads the final join log and baseline into the result.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	community := h.scenario.community()

	joins, err := h.store.ReadJoins(ctx, community, 0)
	if err != nil {
		return fmt.Errorf("failed to read join log: %w", err)
	}
	slices.Reverse(joins)
	result.Joins = joins

	rows, err := h.store.ListBaselines(ctx, community)
	if err != nil {
		return fmt.Errorf("failed to read baseline: %w", err)
	}
	result.Baseline = rows

	result.Fetches = h.platform.Calls(community)
	result.Retries = len(h.sleeper.Waits())
	return nil
}

func checkJoin(i int, want Expect, out tracker.Outcome) []string {
	var errs []string

	got := out.Attribution
	if want.Code == "" {
		if got != nil {
			errs = append(errs, fmt.Sprintf("steps[%d]: expected no attribution, got code %q", i, got.Code))
		}
	} else {
		switch {
		case got == nil:
			errs = append(errs, fmt.Sprintf("steps[%d]: expected code %q, got no attribution (reason %q)", i, want.Code, out.Reason))
		case got.Code != want.Code:
			errs = append(errs, fmt.Sprintf("steps[%d]: code = %q, expected %q", i, got.Code, want.Code))
		case got.InviterID != want.Inviter:
			errs = append(errs, fmt.Sprintf("steps[%d]: inviter = %q, expected %q", i, got.InviterID, want.Inviter))
		}
		if got != nil && want.UsesBefore != nil && got.UsesBefore != *want.UsesBefore {
			errs = append(errs, fmt.Sprintf("steps[%d]: uses_before = %d, expected %d", i, got.UsesBefore, *want.UsesBefore))
		}
		if got != nil && want.UsesAfter != nil && got.UsesAfter != *want.UsesAfter {
			errs = append(errs, fmt.Sprintf("steps[%d]: uses_after = %d, expected %d", i, got.UsesAfter, *want.UsesAfter))
		}
	}

	if want.Reason != "" && string(out.Reason) != want.Reason {
		errs = append(errs, fmt.Sprintf("steps[%d]: reason = %q, expected %q", i, out.Reason, want.Reason))
	}

	return errs
}

func snapshotReason(err error) string {
	switch {
	case err == nil:
		return ""
	case engine.IsPermissionError(err):
		return string(tracker.ReasonMissingPermission)
	case engine.IsStorageError(err):
		return string(tracker.ReasonStorage)
	default:
		return string(tracker.ReasonUnavailable)
	}
}
