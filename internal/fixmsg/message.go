// Package fixmsg models a single FIX-style tag/value message.
//
// A message is an ordered sequence of tag=value fields. Tags may repeat on
// the wire (repeating-group semantics); for lookup purposes the last
// occurrence of a tag wins, but the original field order is preserved so
// that re-encoding is byte-faithful apart from fields explicitly changed.
package fixmsg

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire and human-readable field delimiters.
//
// SOH is the FIX-native field separator. Human is the typable separator used
// in test-spec files; messages are converted to SOH form before transmission.
const (
	SOH   = "\x01"
	Human = "|"
)

// Field is a single tag=value pair.
type Field struct {
	Tag   int
	Value string
}

// Message is an ordered tag/value protocol message.
//
// Mutation methods (Set, Remove) return a new Message and leave the receiver
// untouched. The expander relies on this: one base message is branched
// independently for every combination of a test case.
type Message struct {
	fields []Field
	index  map[int]int // tag -> position of its last occurrence
}

// MalformedError reports a wire string that could not be decoded.
type MalformedError struct {
	Field  string // the offending tag=value segment
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed message: %s (field %q)", e.Reason, e.Field)
}

// New creates an empty message.
func New() *Message {
	return &Message{index: make(map[int]int)}
}

// Decode parses a wire string into a Message, splitting fields on delim.
//
// Empty segments (for example a trailing delimiter) are skipped. Any
// non-empty segment without '=' or with a non-positive integer tag fails
// with MalformedError. Duplicate tags are kept in order; the last wins for
// Get.
func Decode(raw, delim string) (*Message, error) {
	msg := New()
	for _, seg := range strings.Split(raw, delim) {
		if seg == "" {
			continue
		}
		tagStr, value, ok := strings.Cut(seg, "=")
		if !ok {
			return nil, &MalformedError{Field: seg, Reason: "field has no '='"}
		}
		tag, err := strconv.Atoi(tagStr)
		if err != nil || tag <= 0 {
			return nil, &MalformedError{Field: seg, Reason: "tag is not a positive integer"}
		}
		msg.append(tag, value)
	}
	return msg, nil
}

// Encode joins the fields in stored order using delim.
//
// No reordering, no checksum or body-length computation: the engine only
// alters fields it explicitly sets.
func (m *Message) Encode(delim string) string {
	parts := make([]string, len(m.fields))
	for i, f := range m.fields {
		parts[i] = strconv.Itoa(f.Tag) + "=" + f.Value
	}
	return strings.Join(parts, delim)
}

// Get returns the value of tag, using the last occurrence when the tag
// repeats. The second return is false when the tag is absent.
func (m *Message) Get(tag int) (string, bool) {
	i, ok := m.index[tag]
	if !ok {
		return "", false
	}
	return m.fields[i].Value, true
}

// Has reports whether tag is present.
func (m *Message) Has(tag int) bool {
	_, ok := m.index[tag]
	return ok
}

// Set returns a copy of the message with tag set to value. An existing tag
// is overwritten in place (last occurrence); an absent tag is appended.
func (m *Message) Set(tag int, value string) *Message {
	out := m.clone()
	if i, ok := out.index[tag]; ok {
		out.fields[i].Value = value
		return out
	}
	out.append(tag, value)
	return out
}

// Remove returns a copy of the message without any occurrence of tag.
// Removing an absent tag is a no-op copy.
func (m *Message) Remove(tag int) *Message {
	out := New()
	for _, f := range m.fields {
		if f.Tag == tag {
			continue
		}
		out.append(f.Tag, f.Value)
	}
	return out
}

// Len returns the number of fields, counting duplicates.
func (m *Message) Len() int {
	return len(m.fields)
}

// Fields returns a copy of the fields in stored order.
func (m *Message) Fields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Tags returns the distinct tags in first-occurrence order.
func (m *Message) Tags() []int {
	seen := make(map[int]bool, len(m.fields))
	out := make([]int, 0, len(m.fields))
	for _, f := range m.fields {
		if !seen[f.Tag] {
			seen[f.Tag] = true
			out = append(out, f.Tag)
		}
	}
	return out
}

func (m *Message) clone() *Message {
	out := &Message{
		fields: make([]Field, len(m.fields)),
		index:  make(map[int]int, len(m.index)),
	}
	copy(out.fields, m.fields)
	for k, v := range m.index {
		out.index[k] = v
	}
	return out
}

func (m *Message) append(tag int, value string) {
	m.fields = append(m.fields, Field{Tag: tag, Value: value})
	m.index[tag] = len(m.fields) - 1
}
