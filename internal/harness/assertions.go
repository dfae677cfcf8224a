package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s", ev.Step, ev.Kind)
		switch {
		case ev.Attribution != nil:
			fmt.Fprintf(&buf, " %s -> %s", ev.MemberID, ev.Attribution.Code)
		case ev.MemberID != "":
			fmt.Fprintf(&buf, " %s -> unattributed", ev.MemberID)
		case ev.Code != "":
			fmt.Fprintf(&buf, " %s by %s", ev.Code, ev.CreatorID)
		}
		if ev.Reason != "" {
			fmt.Fprintf(&buf, " (%s)", ev.Reason)
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

func assertCount(result *Result, a Assertion, what string, actual int) error {
	if actual == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d %s", a.Count, what),
		Actual:   fmt.Sprintf("%d %s", actual, what),
		Trace:    result.Trace,
	}
}

// assertJoinAttributed checks the latest join of a member. An empty Code
// expects the join to be unattributed.
func assertJoinAttributed(result *Result, a Assertion) error {
	for i := len(result.Joins) - 1; i >= 0; i-- {
		rec := result.Joins[i]
		if rec.MemberID != a.Member {
			continue
		}

		expected := describeCredit(a.Code, a.Inviter)
		actual := "unattributed"
		if attr := rec.Attribution; attr != nil {
			actual = describeCredit(attr.Code, attr.InviterID)
		}
		if expected == actual {
			return nil
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("member %s %s", a.Member, expected),
			Actual:   fmt.Sprintf("member %s %s", a.Member, actual),
			Trace:    result.Trace,
		}
	}

	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("a join for member %s", a.Member),
		Actual:   "no such join",
		Trace:    result.Trace,
	}
}

func describeCredit(code, inviter string) string {
	if code == "" {
		return "unattributed"
	}
	if inviter == "" {
		return fmt.Sprintf("via %s (unknown inviter)", code)
	}
	return fmt.Sprintf("via %s invited by %s", code, inviter)
}

func assertBaseline(result *Result, a Assertion) error {
	for _, b := range result.Baseline {
		if b.Code != a.Code {
			continue
		}
		if a.Uses != nil && b.Uses != *a.Uses {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s uses=%d", a.Code, *a.Uses),
				Actual:   fmt.Sprintf("%s uses=%d", a.Code, b.Uses),
				Trace:    result.Trace,
			}
		}
		if a.Creator != nil && b.CreatorID != *a.Creator {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s creator=%q", a.Code, *a.Creator),
				Actual:   fmt.Sprintf("%s creator=%q", a.Code, b.CreatorID),
				Trace:    result.Trace,
			}
		}
		return nil
	}

	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("code %s in baseline", a.Code),
		Actual:   fmt.Sprintf("baseline has %d codes without it", len(result.Baseline)),
		Trace:    result.Trace,
	}
}

func assertBaselineAbsent(result *Result, a Assertion) error {
	for _, b := range result.Baseline {
		if b.Code == a.Code {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("code %s absent from baseline", a.Code),
				Actual:   fmt.Sprintf("%s stored with uses=%d", a.Code, b.Uses),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertJoinCount:
			err = assertCount(result, assertion, "joins", len(result.Joins))
		case AssertFetchCount:
			err = assertCount(result, assertion, "fetches", result.Fetches)
		case AssertRetryCount:
			err = assertCount(result, assertion, "retries", result.Retries)
		case AssertJoinAttributed:
			err = assertJoinAttributed(result, assertion)
		case AssertBaseline:
			err = assertBaseline(result, assertion)
		case AssertBaselineAbsent:
			err = assertBaselineAbsent(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
