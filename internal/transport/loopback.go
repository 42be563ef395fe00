package transport

import (
	"context"
	"sync"
	"time"
)

// RespondFunc computes the raw response for a sent message. Returning
// ErrTimeout simulates a silent counterparty.
type RespondFunc func(sent string, m Match) (string, error)

// Loopback is an in-memory Adapter for tests and expansion dry runs. It
// records every sent message and answers via the configured responder.
type Loopback struct {
	// Respond produces responses. When nil, every Receive times out.
	Respond RespondFunc

	mu   sync.Mutex
	sent []string
}

// NewLoopback creates a Loopback with the given responder.
func NewLoopback(respond RespondFunc) *Loopback {
	return &Loopback{Respond: respond}
}

// Send records the message.
func (l *Loopback) Send(_ context.Context, encoded string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, encoded)
	return nil
}

// Receive answers for the most recently sent message.
func (l *Loopback) Receive(_ context.Context, m Match, _ time.Duration) (string, error) {
	l.mu.Lock()
	var last string
	if len(l.sent) > 0 {
		last = l.sent[len(l.sent)-1]
	}
	respond := l.Respond
	l.mu.Unlock()

	if respond == nil {
		return "", ErrTimeout
	}
	return respond(last, m)
}

// Sent returns a copy of all sent messages in order.
func (l *Loopback) Sent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.sent))
	copy(out, l.sent)
	return out
}
