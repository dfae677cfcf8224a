package harness

import "github.com/roach88/invitetrack/internal/invite"

// TraceEvent is one replayed step and what came of it.
type TraceEvent struct {
	Step        int                 `json:"step"`
	Kind        string              `json:"kind"`
	MemberID    string              `json:"member_id,omitempty"`
	Code        string              `json:"code,omitempty"`
	CreatorID   string              `json:"creator_id,omitempty"`
	Attribution *invite.Attribution `json:"attribution,omitempty"`
	Reason      string              `json:"reason,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace lists the replayed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Joins is the final join log, oldest first.
	Joins []invite.JoinRecord `json:"-"`

	// Baseline is the final baseline, ordered by code.
	Baseline []invite.Baseline `json:"-"`

	// Fetches counts platform invite fetches.
	Fetches int `json:"fetches"`

	// Retries counts engine waits before a retry.
	Retries int `json:"retries"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
