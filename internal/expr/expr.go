// Package expr parses the compact tag-update and expected-tag expressions
// used by test-spec rows.
//
// Both expressions share one grammar: groups of tag=value separated by an
// outer field separator, with an inner multi-value separator between
// candidate values of one group. An empty value is the deletion marker in an
// update expression and the absent marker in an expected expression.
//
//	35=D~G|55=MSFT|58=        three groups; 35 has two candidates, 58 deletes
//	1001=A~B~C|59=2           expected: 1001 one of three, 59 literally "2"
//	[49~56]=ACME              shorthand: same value for tags 49 and 56
package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Syntax holds the two expression delimiters. They are configurable because
// spec files use human-typable characters that must never collide with the
// wire delimiter.
type Syntax struct {
	FieldSep string // between tag=values groups
	MultiSep string // between candidate values within a group
}

// DefaultSyntax is the conventional spec-file syntax.
var DefaultSyntax = Syntax{FieldSep: "|", MultiSep: "~"}

// InvalidExprError reports an expression that does not follow the grammar.
type InvalidExprError struct {
	Expr    string
	Segment string
	Reason  string
}

func (e *InvalidExprError) Error() string {
	return fmt.Sprintf("invalid expression: %s (segment %q)", e.Reason, e.Segment)
}

// UpdateValue is one candidate value for a tag in an update expression.
// Delete marks the deletion candidate (empty value in the grammar).
type UpdateValue struct {
	Raw    string
	Delete bool
}

// UpdateGroup is the ordered candidate list for one tag.
type UpdateGroup struct {
	Tag    int
	Values []UpdateValue
}

// UpdateSpec maps tags to ordered candidate lists, preserving declaration
// order. Built once per test case; read-only afterwards.
type UpdateSpec struct {
	groups []UpdateGroup
	byTag  map[int]int
}

// ExpectKind discriminates expected-value candidates.
type ExpectKind int

const (
	// Literal compares byte-for-byte.
	Literal ExpectKind = iota
	// Pattern matches the whole response value against a regular expression.
	Pattern
	// Absent requires the tag to be missing from the response.
	Absent
)

// ExpectValue is one expected-value candidate: a tagged variant rather than
// an overloaded string, so a literal containing matcher metacharacters is
// never misread after parsing.
type ExpectValue struct {
	Kind    ExpectKind
	Raw     string
	Matcher *regexp.Regexp // set when Kind == Pattern
}

// ExpectGroup is the ordered expected-candidate list for one tag.
type ExpectGroup struct {
	Tag    int
	Values []ExpectValue
}

// ExpectSpec maps tags to ordered expected-value candidate lists.
type ExpectSpec struct {
	groups []ExpectGroup
	byTag  map[int]int
}

// metaChars are the regexp metacharacters that promote a candidate from
// Literal to Pattern. A value without any of them full-matches itself, so
// the classification cannot change the verdict for valid patterns.
const metaChars = `\.+*?()|[]{}^$`

var shorthandRe = regexp.MustCompile(`^\[([^\]]+)\]=(.*)$`)

// ParseUpdate parses a tag-update expression.
//
// An empty expression yields an empty spec (a row may update nothing).
// Duplicate tags keep their first declared position but the last group's
// candidate list wins; lists are never merged.
func ParseUpdate(raw string, syn Syntax) (*UpdateSpec, error) {
	spec := &UpdateSpec{byTag: make(map[int]int)}
	for _, seg := range splitGroups(raw, syn) {
		tag, value, err := splitGroup(raw, seg)
		if err != nil {
			return nil, err
		}
		group := UpdateGroup{Tag: tag}
		for _, cand := range strings.Split(value, syn.MultiSep) {
			group.Values = append(group.Values, UpdateValue{Raw: cand, Delete: cand == ""})
		}
		spec.put(group)
	}
	return spec, nil
}

// ParseExpect parses an expected-tag expression. Same grammar as ParseUpdate
// with the empty value meaning "tag must be absent" instead of deletion.
func ParseExpect(raw string, syn Syntax) (*ExpectSpec, error) {
	spec := &ExpectSpec{byTag: make(map[int]int)}
	for _, seg := range splitGroups(raw, syn) {
		tag, value, err := splitGroup(raw, seg)
		if err != nil {
			return nil, err
		}
		group := ExpectGroup{Tag: tag}
		for _, cand := range strings.Split(value, syn.MultiSep) {
			ev, err := classify(raw, cand)
			if err != nil {
				return nil, err
			}
			group.Values = append(group.Values, ev)
		}
		spec.put(group)
	}
	return spec, nil
}

// NewExpectValue classifies a single expected-value candidate the way
// ParseExpect does. Used when a candidate's text is only known at run time,
// such as after placeholder substitution.
func NewExpectValue(cand string) (ExpectValue, error) {
	return classify(cand, cand)
}

func classify(expr, cand string) (ExpectValue, error) {
	if cand == "" {
		return ExpectValue{Kind: Absent}, nil
	}
	if !strings.ContainsAny(cand, metaChars) {
		return ExpectValue{Kind: Literal, Raw: cand}, nil
	}
	re, err := regexp.Compile("^(?:" + cand + ")$")
	if err != nil {
		return ExpectValue{}, &InvalidExprError{Expr: expr, Segment: cand, Reason: "bad pattern: " + err.Error()}
	}
	return ExpectValue{Kind: Pattern, Raw: cand, Matcher: re}, nil
}

// splitGroups splits an expression into group segments, expanding the
// [a~b]=v multi-tag shorthand and dropping empty segments.
func splitGroups(raw string, syn Syntax) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, seg := range strings.Split(raw, syn.FieldSep) {
		if seg == "" {
			continue
		}
		if m := shorthandRe.FindStringSubmatch(seg); m != nil {
			for _, tag := range strings.Split(m[1], syn.MultiSep) {
				out = append(out, tag+"="+m[2])
			}
			continue
		}
		out = append(out, seg)
	}
	return out
}

func splitGroup(expr, seg string) (int, string, error) {
	tagStr, value, ok := strings.Cut(seg, "=")
	if !ok {
		return 0, "", &InvalidExprError{Expr: expr, Segment: seg, Reason: "group has no '='"}
	}
	tag, err := strconv.Atoi(strings.TrimSpace(tagStr))
	if err != nil || tag <= 0 {
		return 0, "", &InvalidExprError{Expr: expr, Segment: seg, Reason: "tag is not a positive integer"}
	}
	return tag, value, nil
}

func (s *UpdateSpec) put(g UpdateGroup) {
	if i, ok := s.byTag[g.Tag]; ok {
		s.groups[i] = g // last group wins, position kept
		return
	}
	s.byTag[g.Tag] = len(s.groups)
	s.groups = append(s.groups, g)
}

// Groups returns the groups in declaration order.
func (s *UpdateSpec) Groups() []UpdateGroup {
	out := make([]UpdateGroup, len(s.groups))
	copy(out, s.groups)
	return out
}

// Group returns the candidate list for tag, if declared.
func (s *UpdateSpec) Group(tag int) (UpdateGroup, bool) {
	i, ok := s.byTag[tag]
	if !ok {
		return UpdateGroup{}, false
	}
	return s.groups[i], true
}

// Len returns the number of declared tags.
func (s *UpdateSpec) Len() int { return len(s.groups) }

// String re-serializes the spec to the grammar it was parsed from.
// Parsing the result yields an identical spec.
func (s *UpdateSpec) String() string {
	return s.format(DefaultSyntax)
}

func (s *UpdateSpec) format(syn Syntax) string {
	parts := make([]string, len(s.groups))
	for i, g := range s.groups {
		vals := make([]string, len(g.Values))
		for j, v := range g.Values {
			if !v.Delete {
				vals[j] = v.Raw
			}
		}
		parts[i] = strconv.Itoa(g.Tag) + "=" + strings.Join(vals, syn.MultiSep)
	}
	return strings.Join(parts, syn.FieldSep)
}

func (s *ExpectSpec) put(g ExpectGroup) {
	if i, ok := s.byTag[g.Tag]; ok {
		s.groups[i] = g
		return
	}
	s.byTag[g.Tag] = len(s.groups)
	s.groups = append(s.groups, g)
}

// Groups returns the groups in declaration order.
func (s *ExpectSpec) Groups() []ExpectGroup {
	out := make([]ExpectGroup, len(s.groups))
	copy(out, s.groups)
	return out
}

// Group returns the expected candidates for tag, if declared.
func (s *ExpectSpec) Group(tag int) (ExpectGroup, bool) {
	i, ok := s.byTag[tag]
	if !ok {
		return ExpectGroup{}, false
	}
	return s.groups[i], true
}

// Len returns the number of declared tags.
func (s *ExpectSpec) Len() int { return len(s.groups) }

// String re-serializes the spec to the grammar it was parsed from.
func (s *ExpectSpec) String() string {
	parts := make([]string, len(s.groups))
	for i, g := range s.groups {
		vals := make([]string, len(g.Values))
		for j, v := range g.Values {
			if v.Kind != Absent {
				vals[j] = v.Raw
			}
		}
		parts[i] = strconv.Itoa(g.Tag) + "=" + strings.Join(vals, DefaultSyntax.MultiSep)
	}
	return strings.Join(parts, DefaultSyntax.FieldSep)
}

// Match reports whether value satisfies the candidate. Absent candidates
// never match a present value.
func (v ExpectValue) Match(value string) bool {
	switch v.Kind {
	case Literal:
		return value == v.Raw
	case Pattern:
		return v.Matcher.MatchString(value)
	default:
		return false
	}
}
