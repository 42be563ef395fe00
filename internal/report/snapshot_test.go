package report

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/tapewire/fixconf/internal/expand"
	"github.com/tapewire/fixconf/internal/expr"
	"github.com/tapewire/fixconf/internal/fixmsg"
	"github.com/tapewire/fixconf/internal/testutil"
)

// TestSnapshot_Golden pins the full expansion of a linked multi-value row.
// Regenerate with: go test ./internal/report -run TestSnapshot_Golden -update
func TestSnapshot_Golden(t *testing.T) {
	base, err := fixmsg.Decode("8=FIX.4.2|35=D|49=TRDR|56=BRKR", fixmsg.Human)
	require.NoError(t, err)
	updates, err := expr.ParseUpdate("35=D~G|1001=A~B~C", expr.DefaultSyntax)
	require.NoError(t, err)
	expect, err := expr.ParseExpect("1001=A~B~C|59=2", expr.DefaultSyntax)
	require.NoError(t, err)

	clock := testutil.NewFrozenClock(time.Date(2025, 6, 13, 14, 30, 0, 0, time.UTC))
	e := expand.New(clock, testutil.NewSequenceIDs())

	cases, err := e.Expand(expand.Case{
		UseCaseID:  "UC1",
		TestCaseID: "TC1",
		Base:       base,
		Updates:    updates,
		Expect:     expect,
	})
	require.NoError(t, err)
	require.Len(t, cases, 6)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "expansion", Snapshot(cases))
}
