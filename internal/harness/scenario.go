package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/invitetrack/internal/invite"
	"github.com/roach88/invitetrack/internal/platform"
	"github.com/roach88/invitetrack/internal/testutil"
)

// DefaultCommunity is used when a scenario names none.
const DefaultCommunity = "guild-1"

// Scenario defines one attribution scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Community is the community every step runs in.
	Community string `yaml:"community,omitempty"`

	// AttemptID is the fixed attempt id stamped on every join.
	AttemptID string `yaml:"attempt_id,omitempty"`

	// RetryDelay is the wait before the single retry (Go duration syntax).
	RetryDelay string `yaml:"retry_delay,omitempty"`

	// Baseline seeds the store before the first step.
	Baseline []CodeRow `yaml:"baseline,omitempty"`

	// Fetches script the platform's answer to each invite fetch, in order.
	Fetches []Fetch `yaml:"fetches,omitempty"`

	// Steps are replayed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// CodeRow is one invite code with its counter and creator.
type CodeRow struct {
	Code    string `yaml:"code"`
	Uses    int    `yaml:"uses"`
	Creator string `yaml:"creator,omitempty"`
}

// Fetch is one scripted platform answer: either a list of invites or an
// error ("permission" or "unavailable").
type Fetch struct {
	Invites []CodeRow `yaml:"invites,omitempty"`
	Error   string    `yaml:"error,omitempty"`
}

// Fetch error names.
const (
	FetchErrPermission  = "permission"
	FetchErrUnavailable = "unavailable"
)

// errUnavailable stands in for a platform outage.
var errUnavailable = errors.New("platform unavailable")

// Step kinds.
const (
	StepJoin     = "join"
	StepSnapshot = "snapshot"
	StepClaim    = "claim"
)

// Step is one action replayed against the tracker.
type Step struct {
	// Do is the step kind: join, snapshot or claim.
	Do string `yaml:"do"`

	// Member and Display describe the joining member (join).
	Member  string `yaml:"member,omitempty"`
	Display string `yaml:"display,omitempty"`

	// Code and Creator name the claimed code (claim).
	Code    string `yaml:"code,omitempty"`
	Creator string `yaml:"creator,omitempty"`

	// Expect, when set, is compared with the step outcome.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a join or snapshot step.
//
// An empty Code expects an unattributed join. Reason uses the tracker's
// reason names ("no_delta", "missing_permission", ...).
type Expect struct {
	Code       string `yaml:"code,omitempty"`
	Inviter    string `yaml:"inviter,omitempty"`
	UsesBefore *int   `yaml:"uses_before,omitempty"`
	UsesAfter  *int   `yaml:"uses_after,omitempty"`
	Reason     string `yaml:"reason,omitempty"`
}

// Assertion validates the final trace or state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is used by join_count, fetch_count and retry_count.
	Count int `yaml:"count,omitempty"`

	// Member is used by join_attributed.
	Member string `yaml:"member,omitempty"`

	// Code is used by join_attributed, baseline and baseline_absent.
	Code string `yaml:"code,omitempty"`

	// Inviter is used by join_attributed.
	Inviter string `yaml:"inviter,omitempty"`

	// Uses and Creator are used by baseline. Nil fields are not checked.
	Uses    *int    `yaml:"uses,omitempty"`
	Creator *string `yaml:"creator,omitempty"`
}

// Assertion type constants.
const (
	AssertJoinCount      = "join_count"
	AssertJoinAttributed = "join_attributed"
	AssertFetchCount     = "fetch_count"
	AssertRetryCount     = "retry_count"
	AssertBaseline       = "baseline"
	AssertBaselineAbsent = "baseline_absent"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func (s *Scenario) community() string {
	if s.Community == "" {
		return DefaultCommunity
	}
	return s.Community
}

func (s *Scenario) retryDelay() time.Duration {
	if s.RetryDelay == "" {
		return time.Second
	}
	d, err := time.ParseDuration(s.RetryDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// seed converts the baseline rows into store rows stamped at now.
func (s *Scenario) seed(now time.Time) []invite.Baseline {
	rows := make([]invite.Baseline, 0, len(s.Baseline))
	for _, r := range s.Baseline {
		rows = append(rows, invite.Baseline{
			CommunityID: s.community(),
			Code:        r.Code,
			Uses:        r.Uses,
			CreatorID:   r.Creator,
			UpdatedAt:   now,
		})
	}
	return rows
}

// response converts a fetch into a scripted platform response.
func (f Fetch) response() testutil.ListResponse {
	switch f.Error {
	case FetchErrPermission:
		return testutil.ListResponse{Err: platform.ErrPermission}
	case FetchErrUnavailable:
		return testutil.ListResponse{Err: errUnavailable}
	}
	invites := make([]invite.Invite, 0, len(f.Invites))
	for _, r := range f.Invites {
		invites = append(invites, invite.Invite{Code: r.Code, Uses: r.Uses, CreatorID: r.Creator})
	}
	return testutil.ListResponse{Invites: invites}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.RetryDelay != "" {
		if d, err := time.ParseDuration(s.RetryDelay); err != nil || d < 0 {
			return fmt.Errorf("retry_delay: invalid duration %q", s.RetryDelay)
		}
	}

	for i, row := range s.Baseline {
		if row.Code == "" {
			return fmt.Errorf("baseline[%d]: code is required", i)
		}
		if row.Uses < 0 {
			return fmt.Errorf("baseline[%d]: uses must be non-negative", i)
		}
	}

	for i, f := range s.Fetches {
		switch f.Error {
		case "", FetchErrPermission, FetchErrUnavailable:
		default:
			return fmt.Errorf("fetches[%d]: unknown error %q", i, f.Error)
		}
		if f.Error != "" && len(f.Invites) > 0 {
			return fmt.Errorf("fetches[%d]: invites and error are exclusive", i)
		}
	}

	for i, step := range s.Steps {
		switch step.Do {
		case StepJoin:
			if step.Member == "" {
				return fmt.Errorf("steps[%d]: member is required for join", i)
			}
		case StepSnapshot:
		case StepClaim:
			if step.Code == "" || step.Creator == "" {
				return fmt.Errorf("steps[%d]: code and creator are required for claim", i)
			}
		case "":
			return fmt.Errorf("steps[%d]: do is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown step %q", i, step.Do)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertJoinCount, AssertFetchCount, AssertRetryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertJoinAttributed:
		if a.Member == "" {
			return fmt.Errorf("assertions[%d]: member is required for join_attributed", index)
		}
	case AssertBaseline:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for baseline", index)
		}
		if a.Uses == nil && a.Creator == nil {
			return fmt.Errorf("assertions[%d]: uses or creator is required for baseline", index)
		}
	case AssertBaselineAbsent:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for baseline_absent", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
