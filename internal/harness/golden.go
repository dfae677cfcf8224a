package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/invitetrack/internal/invite"
)

// GoldenSnapshot is the stable, comparable view of a scenario run.
type GoldenSnapshot struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
	JoinLog  []JoinLine   `json:"join_log"`
	Baseline []CodeLine   `json:"baseline"`
	Fetches  int          `json:"fetches"`
	Retries  int          `json:"retries"`
}

// JoinLine is one join-log row, without timestamps.
type JoinLine struct {
	ID          int64               `json:"id"`
	MemberID    string              `json:"member_id"`
	AttemptID   string              `json:"attempt_id"`
	Attribution *invite.Attribution `json:"attribution"`
}

// CodeLine is one baseline row, without timestamps.
type CodeLine struct {
	Code      string `json:"code"`
	Uses      int    `json:"uses"`
	CreatorID string `json:"creator_id,omitempty"`
}

// NewGoldenSnapshot builds the snapshot of a result.
func NewGoldenSnapshot(name string, result *Result) GoldenSnapshot {
	snap := GoldenSnapshot{
		Scenario: name,
		Trace:    result.Trace,
		JoinLog:  make([]JoinLine, 0, len(result.Joins)),
		Baseline: make([]CodeLine, 0, len(result.Baseline)),
		Fetches:  result.Fetches,
		Retries:  result.Retries,
	}
	if snap.Trace == nil {
		snap.Trace = []TraceEvent{}
	}
	for _, j := range result.Joins {
		snap.JoinLog = append(snap.JoinLog, JoinLine{
			ID:          j.ID,
			MemberID:    j.MemberID,
			AttemptID:   j.AttemptID,
			Attribution: j.Attribution,
		})
	}
	for _, b := range result.Baseline {
		snap.Baseline = append(snap.Baseline, CodeLine{Code: b.Code, Uses: b.Uses, CreatorID: b.CreatorID})
	}
	return snap
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s GoldenSnapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the run against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the run doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewGoldenSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
