// Package validate compares a decoded counterparty response against the
// expected-tag specification of one expanded case.
//
// Only tags named in the expectation are inspected; the response may carry
// any number of other tags without affecting the verdict.
package validate

import (
	"fmt"

	"github.com/tapewire/fixconf/internal/expand"
	"github.com/tapewire/fixconf/internal/expr"
	"github.com/tapewire/fixconf/internal/fixmsg"
)

// Outcome classifies one tag comparison.
type Outcome string

const (
	// OutcomePass means the tag satisfied its expectation.
	OutcomePass Outcome = "PASS"

	// OutcomeMismatch means the tag was present but its value did not match.
	OutcomeMismatch Outcome = "MISMATCH"

	// OutcomeMissing means a literal or pattern was expected but the tag was
	// absent from the response.
	OutcomeMissing Outcome = "MISSING"

	// OutcomeUnexpectedPresent means the tag was expected absent but the
	// response carried it.
	OutcomeUnexpectedPresent Outcome = "UNEXPECTED_PRESENT"
)

// TagVerdict is the result of one tag comparison.
type TagVerdict struct {
	Tag      int
	Outcome  Outcome
	Expected string // raw expected candidate, "" when expecting absence
	Actual   string // response value, "" when absent
	Present  bool   // tag was present in the response
}

// Passed reports whether this tag comparison passed.
func (v TagVerdict) Passed() bool { return v.Outcome == OutcomePass }

// Detail renders the verdict the way it appears in result reports.
func (v TagVerdict) Detail() string {
	switch v.Outcome {
	case OutcomePass:
		if !v.Present {
			return fmt.Sprintf("PASS: tag %d absent as expected", v.Tag)
		}
		return fmt.Sprintf("PASS: tag %d matched %q", v.Tag, v.Expected)
	case OutcomeMissing:
		return fmt.Sprintf("FAIL: tag %d missing, expected %q", v.Tag, v.Expected)
	case OutcomeUnexpectedPresent:
		return fmt.Sprintf("FAIL: tag %d expected absent but found %q", v.Tag, v.Actual)
	default:
		return fmt.Sprintf("FAIL: tag %d expected %q, got %q", v.Tag, v.Expected, v.Actual)
	}
}

// CaseVerdict aggregates all tag comparisons of one expanded case.
// The case passes iff every tag verdict passes.
type CaseVerdict struct {
	Pass bool
	Tags []TagVerdict
}

// Details renders every tag verdict, in expectation order.
func (v CaseVerdict) Details() []string {
	out := make([]string, len(v.Tags))
	for i, tv := range v.Tags {
		out[i] = tv.Detail()
	}
	return out
}

// Check validates a decoded response against the case's expectations.
// Neither message is mutated.
func Check(resp *fixmsg.Message, expect []expand.TagExpectation) CaseVerdict {
	verdict := CaseVerdict{Pass: true, Tags: make([]TagVerdict, 0, len(expect))}
	for _, te := range expect {
		tv := checkTag(resp, te)
		if !tv.Passed() {
			verdict.Pass = false
		}
		verdict.Tags = append(verdict.Tags, tv)
	}
	return verdict
}

func checkTag(resp *fixmsg.Message, te expand.TagExpectation) TagVerdict {
	actual, present := resp.Get(te.Tag)
	tv := TagVerdict{
		Tag:      te.Tag,
		Expected: te.Value.Raw,
		Actual:   actual,
		Present:  present,
	}

	if te.Value.Kind == expr.Absent {
		if present {
			tv.Outcome = OutcomeUnexpectedPresent
		} else {
			tv.Outcome = OutcomePass
		}
		return tv
	}

	if !present {
		tv.Outcome = OutcomeMissing
		return tv
	}
	if te.Value.Match(actual) {
		tv.Outcome = OutcomePass
	} else {
		tv.Outcome = OutcomeMismatch
	}
	return tv
}
