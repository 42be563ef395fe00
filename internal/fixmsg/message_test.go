package fixmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_PreservesFieldOrder(t *testing.T) {
	t.Parallel()

	msg, err := Decode("8=FIX.4.2|35=D|49=TRDR|56=BRKR", Human)
	require.NoError(t, err)

	assert.Equal(t, 4, msg.Len())
	assert.Equal(t, "8=FIX.4.2|35=D|49=TRDR|56=BRKR", msg.Encode(Human))
}

func TestDecode_SOHDelimiter(t *testing.T) {
	t.Parallel()

	msg, err := Decode("35=D\x0111=ABC", SOH)
	require.NoError(t, err)

	v, ok := msg.Get(11)
	require.True(t, ok)
	assert.Equal(t, "ABC", v)
}

func TestDecode_LastTagWinsOnDuplicates(t *testing.T) {
	t.Parallel()

	msg, err := Decode("35=D|58=first|58=second", Human)
	require.NoError(t, err)

	v, ok := msg.Get(58)
	require.True(t, ok)
	assert.Equal(t, "second", v)

	// Raw duplicates survive re-encoding.
	assert.Equal(t, "35=D|58=first|58=second", msg.Encode(Human))
}

func TestDecode_EmptyValueAllowed(t *testing.T) {
	t.Parallel()

	msg, err := Decode("35=D|58=", Human)
	require.NoError(t, err)

	v, ok := msg.Get(58)
	require.True(t, ok)
	assert.Equal(t, "", v)
}

func TestDecode_SkipsEmptySegments(t *testing.T) {
	t.Parallel()

	msg, err := Decode("35=D|", Human)
	require.NoError(t, err)
	assert.Equal(t, 1, msg.Len())
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"no equals", "35=D|garbage"},
		{"non-numeric tag", "abc=D"},
		{"zero tag", "0=D"},
		{"negative tag", "-5=D"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.raw, Human)
			require.Error(t, err)
			var me *MalformedError
			assert.ErrorAs(t, err, &me)
		})
	}
}

func TestSet_OverwritesInPlace(t *testing.T) {
	t.Parallel()

	base, err := Decode("8=FIX.4.2|35=D|49=TRDR", Human)
	require.NoError(t, err)

	updated := base.Set(35, "G")
	assert.Equal(t, "8=FIX.4.2|35=G|49=TRDR", updated.Encode(Human))
}

func TestSet_AppendsWhenAbsent(t *testing.T) {
	t.Parallel()

	base, err := Decode("35=D", Human)
	require.NoError(t, err)

	updated := base.Set(11, "ORD-1")
	assert.Equal(t, "35=D|11=ORD-1", updated.Encode(Human))
}

func TestSet_DoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base, err := Decode("35=D|54=1", Human)
	require.NoError(t, err)

	a := base.Set(54, "2")
	b := base.Set(54, "3")

	v, _ := base.Get(54)
	assert.Equal(t, "1", v, "base must be untouched")
	va, _ := a.Get(54)
	vb, _ := b.Get(54)
	assert.Equal(t, "2", va)
	assert.Equal(t, "3", vb)
}

func TestRemove_DropsAllOccurrences(t *testing.T) {
	t.Parallel()

	base, err := Decode("35=D|58=x|40=2|58=y", Human)
	require.NoError(t, err)

	out := base.Remove(58)
	assert.False(t, out.Has(58))
	assert.Equal(t, "35=D|40=2", out.Encode(Human))

	// Receiver unchanged.
	assert.True(t, base.Has(58))
}

func TestRemove_AbsentTagIsNoop(t *testing.T) {
	t.Parallel()

	base, err := Decode("35=D", Human)
	require.NoError(t, err)

	out := base.Remove(99)
	assert.Equal(t, base.Encode(Human), out.Encode(Human))
}

func TestTags_DistinctFirstOccurrenceOrder(t *testing.T) {
	t.Parallel()

	msg, err := Decode("8=X|35=D|8=Y|49=A", Human)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 35, 49}, msg.Tags())
}
