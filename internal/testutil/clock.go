// Package testutil provides deterministic stand-ins for the expander's
// injected clock and identifier source.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// FrozenClock returns a fixed instant, optionally advancing by Step on every
// call so consecutive timestamps stay distinguishable.
//
// Thread-safety: all methods are safe for concurrent use.
type FrozenClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewFrozenClock creates a clock pinned at t.
func NewFrozenClock(t time.Time) *FrozenClock {
	return &FrozenClock{now: t}
}

// Now returns the pinned instant, then advances it by Step.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// Set repins the clock at t.
func (c *FrozenClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// SequenceIDs generates predictable identifiers <caseID>_<n> with a
// monotonically increasing n.
//
// Thread-safety: safe for concurrent use.
type SequenceIDs struct {
	mu  sync.Mutex
	seq int
}

// NewSequenceIDs creates a source starting at 1.
func NewSequenceIDs() *SequenceIDs {
	return &SequenceIDs{}
}

// Next returns the next identifier for caseID.
func (s *SequenceIDs) Next(caseID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("%s_%d", caseID, s.seq)
}

// Reset restarts the sequence. The next Next returns <caseID>_1.
func (s *SequenceIDs) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
}
