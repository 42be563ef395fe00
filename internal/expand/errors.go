package expand

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes expansion errors.
type ErrorCode string

const (
	// CodeExpansionMismatch indicates expected-candidate list lengths that
	// cannot be aligned with any update axis.
	CodeExpansionMismatch ErrorCode = "EXPANSION_MISMATCH"

	// CodeUnresolvableLink indicates a malformed primary/secondary pair in
	// the message-type update group.
	CodeUnresolvableLink ErrorCode = "UNRESOLVABLE_LINK"
)

// Error is a structured expansion failure. It carries enough context to
// locate the offending test-spec row.
type Error struct {
	Code       ErrorCode
	Message    string
	UseCaseID  string
	TestCaseID string
	Tag        int
}

func (e *Error) Error() string {
	if e.Tag != 0 {
		return fmt.Sprintf("%s: %s (use_case=%s, test_case=%s, tag=%d)",
			e.Code, e.Message, e.UseCaseID, e.TestCaseID, e.Tag)
	}
	return fmt.Sprintf("%s: %s (use_case=%s, test_case=%s)",
		e.Code, e.Message, e.UseCaseID, e.TestCaseID)
}

// IsMismatch reports whether err is an ExpansionMismatch, unwrapping as
// needed.
func IsMismatch(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Code == CodeExpansionMismatch
}

// IsUnresolvableLink reports whether err is an UnresolvableLink.
func IsUnresolvableLink(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Code == CodeUnresolvableLink
}
