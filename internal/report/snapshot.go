package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tapewire/fixconf/internal/expand"
	"github.com/tapewire/fixconf/internal/expr"
	"github.com/tapewire/fixconf/internal/fixmsg"
)

// Snapshot renders expanded cases as canonical text for golden comparison
// and the expansion dry-run command. Values are NFC-normalized so visually
// identical spec files produce identical snapshots.
func Snapshot(cases []expand.ExpandedCase) []byte {
	var b strings.Builder
	for _, c := range cases {
		fmt.Fprintf(&b, "case %s#%d", c.CaseID, c.Index)
		if c.Linked {
			fmt.Fprintf(&b, " linked primary=%s", c.PrimaryOrdID)
		}
		b.WriteByte('\n')
		fmt.Fprintf(&b, "  msg: %s\n", norm.NFC.String(c.Msg.Encode(fixmsg.Human)))
		fmt.Fprintf(&b, "  expect: %s\n", expectLine(c.Expect))
	}
	return []byte(b.String())
}

func expectLine(expect []expand.TagExpectation) string {
	if len(expect) == 0 {
		return "-"
	}
	parts := make([]string, len(expect))
	for i, te := range expect {
		if te.Value.Kind == expr.Absent {
			parts[i] = fmt.Sprintf("%d=<absent>", te.Tag)
			continue
		}
		parts[i] = fmt.Sprintf("%d=%s", te.Tag, norm.NFC.String(te.Value.Raw))
	}
	return strings.Join(parts, "|")
}
