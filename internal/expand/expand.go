// Package expand turns one test-spec row into the concrete set of
// (outbound message, expected result) pairs to execute.
//
// Expansion is index-aligned: multi-valued update tags whose candidate lists
// have the same length advance together as one axis, and only lists of
// differing lengths are crossed. 35=D~G declares a linked primary/secondary
// pair rather than an axis: every primary case also emits a derived
// secondary case referencing the primary's tag 11.
package expand

import (
	"fmt"

	"github.com/tapewire/fixconf/internal/expr"
	"github.com/tapewire/fixconf/internal/fixmsg"
)

// Well-known control tags.
const (
	TagMsgType     = 35 // message type; drives the linked-message rule
	TagClOrdID     = 11 // per-message unique identifier
	TagOrigClOrdID = 41 // cross-reference to the primary message's tag 11
	TagSendingTime = 52 // always regenerated, never taken from input
)

// TimestampLayout is the tag 52 format, UTC.
const TimestampLayout = "20060102-15:04:05"

// PrimaryMsgType is the message type that may anchor a linked pair.
const PrimaryMsgType = "D"

// secondaryMsgTypes are the recognized derived types (cancel, replace).
var secondaryMsgTypes = map[string]bool{"F": true, "G": true}

// LinkedSuffix is appended to the case identifier of derived secondary cases.
const LinkedSuffix = "_cxl"

// Case is one test-spec row after parsing: the inputs to expansion.
type Case struct {
	UseCaseID  string
	TestCaseID string
	Base       *fixmsg.Message
	Updates    *expr.UpdateSpec
	Expect     *expr.ExpectSpec
}

// TagExpectation is one tag's selected expected candidate for one
// combination.
type TagExpectation struct {
	Tag   int
	Value expr.ExpectValue
}

// ExpandedCase is one fully materialized combination. It is created here,
// consumed once by the transport and validator, and never mutated.
type ExpandedCase struct {
	UseCaseID string
	CaseID    string
	Index     int // combination index within the row

	Msg    *fixmsg.Message
	Expect []TagExpectation

	MsgType string
	OrdID   string // tag 11 value of Msg

	Linked       bool   // true for a derived secondary case
	PrimaryOrdID string // tag 11 of the primary, set when Linked
}

// Expander materializes cases. The clock and identifier source are injected
// process-scoped state so tests can supply deterministic fakes.
type Expander struct {
	clock Clock
	ids   IDSource
}

// New creates an Expander.
func New(clock Clock, ids IDSource) *Expander {
	return &Expander{clock: clock, ids: ids}
}

// axis is one independent expansion dimension: all multi-valued update tags
// sharing one candidate-list length.
type axis struct {
	length int
	tags   []int
}

// Expand produces every combination for the row, in deterministic order.
// Derived secondary cases follow their primary immediately, so sequential
// submission sends a cancel only after its order.
func (e *Expander) Expand(c Case) ([]ExpandedCase, error) {
	if c.Base == nil {
		return nil, &Error{
			Code: CodeExpansionMismatch, Message: "base message is required",
			UseCaseID: c.UseCaseID, TestCaseID: c.TestCaseID,
		}
	}
	if c.Updates == nil {
		c.Updates = &expr.UpdateSpec{}
	}
	if c.Expect == nil {
		c.Expect = &expr.ExpectSpec{}
	}

	secondary, err := linkedSecondary(c)
	if err != nil {
		return nil, err
	}

	axes := buildAxes(c, secondary != "")
	if err := checkExpectAlignment(c, axes); err != nil {
		return nil, err
	}

	total := 1
	for _, ax := range axes {
		total *= ax.length
	}

	out := make([]ExpandedCase, 0, total)
	for k := 0; k < total; k++ {
		idx := decompose(k, axes)

		msg, ordID := e.applyUpdates(c, axes, idx, secondary != "")
		expect := selectExpectations(c, axes, idx)
		msgType, _ := msg.Get(TagMsgType)

		out = append(out, ExpandedCase{
			UseCaseID: c.UseCaseID,
			CaseID:    c.TestCaseID,
			Index:     k,
			Msg:       msg,
			Expect:    expect,
			MsgType:   msgType,
			OrdID:     ordID,
		})

		if secondary != "" {
			out = append(out, e.deriveLinked(c, k, msg, expect, ordID, secondary))
		}
	}
	return out, nil
}

// linkedSecondary inspects the tag 35 update group. Exactly two candidates
// declare a linked pair; the first must be the primary type and the second a
// recognized secondary type. More than two candidates is malformed: message
// types never form an expansion axis.
func linkedSecondary(c Case) (string, error) {
	g, ok := c.Updates.Group(TagMsgType)
	if !ok || len(g.Values) == 1 {
		return "", nil
	}
	fail := func(msg string) error {
		return &Error{
			Code: CodeUnresolvableLink, Message: msg,
			UseCaseID: c.UseCaseID, TestCaseID: c.TestCaseID, Tag: TagMsgType,
		}
	}
	if len(g.Values) > 2 {
		return "", fail(fmt.Sprintf("message type accepts at most two values, got %d", len(g.Values)))
	}
	if g.Values[0].Delete || g.Values[1].Delete {
		return "", fail("message type value must not be empty")
	}
	if g.Values[0].Raw != PrimaryMsgType {
		return "", fail(fmt.Sprintf("linked pair must start with primary type %q, got %q", PrimaryMsgType, g.Values[0].Raw))
	}
	if !secondaryMsgTypes[g.Values[1].Raw] {
		return "", fail(fmt.Sprintf("unrecognized secondary message type %q", g.Values[1].Raw))
	}
	return g.Values[1].Raw, nil
}

// buildAxes groups multi-valued update tags by candidate-list length, in
// declaration order. A linked tag 35 group is not an axis.
func buildAxes(c Case, linked bool) []axis {
	var axes []axis
	byLen := make(map[int]int)
	for _, g := range c.Updates.Groups() {
		if len(g.Values) < 2 {
			continue
		}
		if linked && g.Tag == TagMsgType {
			continue
		}
		if i, ok := byLen[len(g.Values)]; ok {
			axes[i].tags = append(axes[i].tags, g.Tag)
			continue
		}
		byLen[len(g.Values)] = len(axes)
		axes = append(axes, axis{length: len(g.Values), tags: []int{g.Tag}})
	}
	return axes
}

// checkExpectAlignment verifies every multi-valued expected group lines up
// with exactly one update axis. Truncating or padding would silently pair a
// message with the wrong expectation, so any other length fails.
func checkExpectAlignment(c Case, axes []axis) error {
	for _, g := range c.Expect.Groups() {
		n := len(g.Values)
		if n == 1 {
			continue
		}
		if axisIndexFor(axes, n) < 0 {
			return &Error{
				Code:       CodeExpansionMismatch,
				Message:    fmt.Sprintf("expected list has %d candidates but no update tag has %d", n, n),
				UseCaseID:  c.UseCaseID,
				TestCaseID: c.TestCaseID,
				Tag:        g.Tag,
			}
		}
	}
	return nil
}

func axisIndexFor(axes []axis, length int) int {
	for i, ax := range axes {
		if ax.length == length {
			return i
		}
	}
	return -1
}

// decompose maps a combination number to per-axis candidate indexes.
// The last axis varies fastest, like nested loops in declaration order.
func decompose(k int, axes []axis) []int {
	idx := make([]int, len(axes))
	for i := len(axes) - 1; i >= 0; i-- {
		idx[i] = k % axes[i].length
		k /= axes[i].length
	}
	return idx
}

// applyUpdates materializes one combination's message: single-valued updates
// first, then the selected candidate per multi-valued tag, then control-tag
// autofill. Returns the message and its tag 11 value.
//
// Tag 11 is honored only when the update expression supplies it; a value
// inherited from the base message is replaced by a generated identifier so
// every outbound message is uniquely addressable. Tag 52 is always
// regenerated.
func (e *Expander) applyUpdates(c Case, axes []axis, idx []int, linked bool) (*fixmsg.Message, string) {
	msg := c.Base
	suppliedID := false

	apply := func(tag int, v expr.UpdateValue) {
		if v.Delete {
			msg = msg.Remove(tag)
			return
		}
		msg = msg.Set(tag, v.Raw)
		if tag == TagClOrdID {
			suppliedID = true
		}
	}

	for _, g := range c.Updates.Groups() {
		if linked && g.Tag == TagMsgType {
			apply(g.Tag, g.Values[0]) // primary type
			continue
		}
		if len(g.Values) == 1 {
			apply(g.Tag, g.Values[0])
		}
	}
	for i, ax := range axes {
		for _, tag := range ax.tags {
			g, _ := c.Updates.Group(tag)
			apply(tag, g.Values[idx[i]])
		}
	}

	var ordID string
	if suppliedID {
		ordID, _ = msg.Get(TagClOrdID)
	} else {
		ordID = e.ids.Next(c.TestCaseID)
		msg = msg.Set(TagClOrdID, ordID)
	}
	msg = msg.Set(TagSendingTime, e.clock.Now().UTC().Format(TimestampLayout))
	return msg, ordID
}

// selectExpectations picks one expected candidate per tag for the given
// combination, index-aligned with the matching update axis.
func selectExpectations(c Case, axes []axis, idx []int) []TagExpectation {
	groups := c.Expect.Groups()
	out := make([]TagExpectation, 0, len(groups))
	for _, g := range groups {
		v := g.Values[0]
		if len(g.Values) > 1 {
			ai := axisIndexFor(axes, len(g.Values))
			v = g.Values[idx[ai]]
		}
		out = append(out, TagExpectation{Tag: g.Tag, Value: v})
	}
	return out
}

// deriveLinked synthesizes the secondary case for a resolved primary: same
// message with the secondary type, tag 41 pointing at the primary's tag 11,
// and freshly generated identifier and timestamp.
func (e *Expander) deriveLinked(c Case, k int, primary *fixmsg.Message, expect []TagExpectation, primaryOrdID, secondary string) ExpandedCase {
	caseID := c.TestCaseID + LinkedSuffix
	ordID := e.ids.Next(caseID)

	msg := primary.Set(TagMsgType, secondary)
	msg = msg.Set(TagOrigClOrdID, primaryOrdID)
	msg = msg.Set(TagClOrdID, ordID)
	msg = msg.Set(TagSendingTime, e.clock.Now().UTC().Format(TimestampLayout))

	return ExpandedCase{
		UseCaseID:    c.UseCaseID,
		CaseID:       caseID,
		Index:        k,
		Msg:          msg,
		Expect:       expect,
		MsgType:      secondary,
		OrdID:        ordID,
		Linked:       true,
		PrimaryOrdID: primaryOrdID,
	}
}
