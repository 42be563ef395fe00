package expand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapewire/fixconf/internal/expr"
	"github.com/tapewire/fixconf/internal/fixmsg"
	"github.com/tapewire/fixconf/internal/testutil"
)

var frozen = time.Date(2025, 6, 13, 14, 30, 0, 0, time.UTC)

func newTestExpander() *Expander {
	return New(testutil.NewFrozenClock(frozen), testutil.NewSequenceIDs())
}

func mustMsg(t *testing.T, raw string) *fixmsg.Message {
	t.Helper()
	msg, err := fixmsg.Decode(raw, fixmsg.Human)
	require.NoError(t, err)
	return msg
}

func mustCase(t *testing.T, base, updates, expect string) Case {
	t.Helper()
	u, err := expr.ParseUpdate(updates, expr.DefaultSyntax)
	require.NoError(t, err)
	x, err := expr.ParseExpect(expect, expr.DefaultSyntax)
	require.NoError(t, err)
	return Case{
		UseCaseID:  "uc1",
		TestCaseID: "tc1",
		Base:       mustMsg(t, base),
		Updates:    u,
		Expect:     x,
	}
}

func get(t *testing.T, m *fixmsg.Message, tag int) string {
	t.Helper()
	v, ok := m.Get(tag)
	require.True(t, ok, "tag %d missing", tag)
	return v
}

func TestExpand_SingleCombination(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "8=FIX.4.2|35=D|55=IBM", "40=2|44=101.5", "39=0"))
	require.NoError(t, err)
	require.Len(t, cases, 1)

	c := cases[0]
	assert.Equal(t, "uc1", c.UseCaseID)
	assert.Equal(t, "tc1", c.CaseID)
	assert.Equal(t, "D", c.MsgType)
	assert.Equal(t, "2", get(t, c.Msg, 40))
	assert.Equal(t, "101.5", get(t, c.Msg, 44))
	require.Len(t, c.Expect, 1)
	assert.Equal(t, 39, c.Expect[0].Tag)
}

func TestExpand_IndexAlignedSameLengths(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "35=D", "1001=a1~a2|1002=b1~b2", ""))
	require.NoError(t, err)
	require.Len(t, cases, 2, "equal-length lists align, they do not cross")

	assert.Equal(t, "a1", get(t, cases[0].Msg, 1001))
	assert.Equal(t, "b1", get(t, cases[0].Msg, 1002))
	assert.Equal(t, "a2", get(t, cases[1].Msg, 1001))
	assert.Equal(t, "b2", get(t, cases[1].Msg, 1002))
}

func TestExpand_DifferingLengthsCross(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "35=D", "1001=a1~a2|1003=c1~c2~c3", ""))
	require.NoError(t, err)
	require.Len(t, cases, 6)

	// Declaration order: 1001 is the slow axis, 1003 the fast one.
	want := []struct{ a, c string }{
		{"a1", "c1"}, {"a1", "c2"}, {"a1", "c3"},
		{"a2", "c1"}, {"a2", "c2"}, {"a2", "c3"},
	}
	for i, w := range want {
		assert.Equal(t, w.a, get(t, cases[i].Msg, 1001), "case %d", i)
		assert.Equal(t, w.c, get(t, cases[i].Msg, 1003), "case %d", i)
		assert.Equal(t, i, cases[i].Index)
	}
}

func TestExpand_AlignedGroupCrossedAgainstOddLength(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "35=D", "1001=a1~a2|1002=b1~b2|1003=c1~c2~c3", ""))
	require.NoError(t, err)
	require.Len(t, cases, 6, "aligned (1001,1002) pair crossed against 1003")

	for _, c := range cases {
		a := get(t, c.Msg, 1001)
		b := get(t, c.Msg, 1002)
		assert.Equal(t, a[1:], b[1:], "1001 and 1002 must stay index-aligned")
	}
}

func TestExpand_DeletionMarkerRemovesTag(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "35=D|58=keep me", "58=", ""))
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.False(t, cases[0].Msg.Has(58))
}

func TestExpand_GeneratesIdentifierOverwritingBase(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "35=D|11=X", "", ""))
	require.NoError(t, err)
	require.Len(t, cases, 1)

	// Base-supplied 11 is replaced; only an update-supplied 11 is honored.
	assert.Equal(t, "tc1_1", cases[0].OrdID)
	assert.Equal(t, "tc1_1", get(t, cases[0].Msg, 11))
}

func TestExpand_HonorsUpdateSuppliedIdentifier(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "35=D", "11=ORD-7", ""))
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "ORD-7", cases[0].OrdID)
}

func TestExpand_TimestampAlwaysRegenerated(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "35=D|52=19990101-00:00:00", "52=20000101-00:00:00", ""))
	require.NoError(t, err)
	require.Len(t, cases, 1)

	assert.Equal(t, "20250613-14:30:00", get(t, cases[0].Msg, 52))
}

func TestExpand_TimestampFormat(t *testing.T) {
	t.Parallel()

	e := New(SystemClock{}, UUIDSource{})
	before := time.Now().UTC()
	cases, err := e.Expand(mustCase(t, "35=D", "", ""))
	require.NoError(t, err)

	got, err := time.Parse(TimestampLayout, get(t, cases[0].Msg, 52))
	require.NoError(t, err)
	assert.WithinDuration(t, before, got, 5*time.Second)
}

func TestExpand_LinkedDerivation(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "8=FIX.4.2|35=D|11=X", "35=D~G", ""))
	require.NoError(t, err)
	require.Len(t, cases, 2)

	primary, derived := cases[0], cases[1]

	assert.Equal(t, "D", primary.MsgType)
	assert.False(t, primary.Linked)
	assert.Equal(t, "tc1_1", primary.OrdID, "primary gets its own generated 11")

	assert.Equal(t, "G", derived.MsgType)
	assert.True(t, derived.Linked)
	assert.Equal(t, "tc1"+LinkedSuffix, derived.CaseID)
	assert.Equal(t, primary.OrdID, get(t, derived.Msg, 41), "41 references the primary's 11")
	assert.Equal(t, primary.OrdID, derived.PrimaryOrdID)
	assert.NotEqual(t, primary.OrdID, derived.OrdID, "derived case has a fresh 11")
	assert.Equal(t, derived.OrdID, get(t, derived.Msg, 11))
}

func TestExpand_LinkedFollowsEachPrimary(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "8=FIX.4.2|35=D|49=TRDR|56=BRKR", "35=D~G|1001=A~B~C", "1001=A~B~C|59=2"))
	require.NoError(t, err)
	require.Len(t, cases, 6, "3 aligned D cases, each with a derived G case")

	for i := 0; i < 6; i += 2 {
		primary, derived := cases[i], cases[i+1]
		assert.Equal(t, "D", primary.MsgType)
		assert.Equal(t, "G", derived.MsgType)
		assert.Equal(t, primary.OrdID, get(t, derived.Msg, 41))
		assert.Equal(t, primary.Index, derived.Index)

		// Both validate against the candidate at their combination index.
		want := []string{"A", "B", "C"}[i/2]
		assert.Equal(t, want, get(t, primary.Msg, 1001))
		require.Len(t, primary.Expect, 2)
		assert.Equal(t, 1001, primary.Expect[0].Tag)
		assert.Equal(t, want, primary.Expect[0].Value.Raw)
		assert.Equal(t, 59, primary.Expect[1].Tag)
		assert.Equal(t, "2", primary.Expect[1].Value.Raw)
		assert.Equal(t, primary.Expect, derived.Expect)
	}
}

func TestExpand_UnresolvableLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		updates string
	}{
		{"first value not primary", "35=F~G"},
		{"unknown secondary", "35=D~Z"},
		{"three message types", "35=D~G~F"},
		{"empty secondary", "35=D~"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newTestExpander()
			_, err := e.Expand(mustCase(t, "8=FIX.4.2|35=D", tt.updates, ""))
			require.Error(t, err)
			assert.True(t, IsUnresolvableLink(err), "got %v", err)
		})
	}
}

func TestExpand_ExpectationMismatch(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	_, err := e.Expand(mustCase(t, "35=D", "1001=A~B", "39=0~1~2"))
	require.Error(t, err)
	assert.True(t, IsMismatch(err), "got %v", err)

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 39, ee.Tag)
	assert.Equal(t, "uc1", ee.UseCaseID)
}

func TestExpand_ExpectationMismatchWithoutAxes(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	_, err := e.Expand(mustCase(t, "35=D", "40=2", "39=0~1"))
	require.Error(t, err)
	assert.True(t, IsMismatch(err))
}

func TestExpand_SingleExpectationAppliesToAllCombinations(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "35=D", "1001=A~B", "59=2"))
	require.NoError(t, err)
	require.Len(t, cases, 2)

	for _, c := range cases {
		require.Len(t, c.Expect, 1)
		assert.Equal(t, 59, c.Expect[0].Tag)
		assert.Equal(t, "2", c.Expect[0].Value.Raw)
	}
}

func TestExpand_UniqueIdentifiersAcrossCombinations(t *testing.T) {
	t.Parallel()

	e := newTestExpander()
	cases, err := e.Expand(mustCase(t, "35=D", "1001=A~B~C", ""))
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, c := range cases {
		assert.False(t, seen[c.OrdID], "duplicate id %s", c.OrdID)
		seen[c.OrdID] = true
	}
}

func TestExpand_BaseMessageNotMutated(t *testing.T) {
	t.Parallel()

	base := mustMsg(t, "8=FIX.4.2|35=D|54=1")
	u, err := expr.ParseUpdate("54=2~3", expr.DefaultSyntax)
	require.NoError(t, err)

	e := newTestExpander()
	_, err = e.Expand(Case{UseCaseID: "uc1", TestCaseID: "tc1", Base: base, Updates: u})
	require.NoError(t, err)

	v, _ := base.Get(54)
	assert.Equal(t, "1", v)
	assert.False(t, base.Has(11))
}
