// Package transport carries encoded messages to the external counterparty
// process and retrieves raw responses. The engine treats it as an opaque
// byte pipe: spawning, permissions and response-file polling live here.
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by Receive when no matching response arrives
// within the bounded wait. The case is recorded as NoResponse and never
// retried by the engine; retries are a caller-level policy.
var ErrTimeout = errors.New("transport: no response within timeout")

// ErrCounterpartyDown signals the counterparty process is no longer usable.
// Unlike ordinary transport failures this aborts the whole run.
var ErrCounterpartyDown = errors.New("transport: counterparty is not usable")

// Match identifies the response belonging to a sent message: the
// counterparty echoes the message identifier and answers with a known
// message type.
type Match struct {
	OrdID   string // tag 11 of the sent message
	MsgType string // tag 35 expected on the response line
}

// Adapter is the engine's view of the counterparty connection.
//
// Implementations with a single underlying connection must be safe for the
// engine's strictly sequential send/receive pattern; they are never called
// concurrently for one run.
type Adapter interface {
	// Send transmits one wire-encoded message.
	Send(ctx context.Context, encoded string) error

	// Receive blocks until a response matching m arrives or timeout
	// elapses, returning the raw wire string of the response.
	Receive(ctx context.Context, m Match, timeout time.Duration) (string, error)
}

// IsTimeout reports whether err is a bounded-wait expiry.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsDown reports whether err signals an unusable counterparty.
func IsDown(err error) bool { return errors.Is(err, ErrCounterpartyDown) }
