package expand

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the timestamp written into tag 52. Injected so tests can
// freeze time; production uses SystemClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC instant.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IDSource generates process-unique message identifiers for tag 11.
//
// Uniqueness must hold across the whole run: a stateful counterparty keys
// its responses on tag 11, and the linked-message rule references a primary
// case by this value. If use cases ever run concurrently, the IDSource is
// the one piece of shared state that must stay safe for concurrent use.
type IDSource interface {
	Next(caseID string) string
}

// UUIDSource derives identifiers as <caseID>_<8 hex chars of a random UUID>.
type UUIDSource struct{}

// Next returns a fresh identifier for the given case.
func (UUIDSource) Next(caseID string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return caseID + "_" + hex[:8]
}
