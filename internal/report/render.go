package report

import (
	"fmt"
	"strings"
)

// Render formats the run summary for the terminal: one line per use case,
// then the run totals.
func Render(sum Summary, st Styles) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", st.Header.Render(fmt.Sprintf("Run %s: %s", sum.RunID, sum.Suite)))

	for _, uc := range sum.UseCases {
		status := st.Pass.Render("PASS")
		if uc.Failed > 0 {
			status = st.Fail.Render("FAIL")
		}
		fmt.Fprintf(&b, "  %s %s  %s\n",
			status,
			uc.UseCaseID,
			st.Muted.Render(fmt.Sprintf("%d/%d passed", uc.Passed, uc.Total)))
	}

	verdict := st.Pass.Render("PASS")
	if sum.Failed > 0 {
		verdict = st.Fail.Render("FAIL")
	}
	fmt.Fprintf(&b, "%s %s  %s\n",
		st.Label.Render("total:"),
		verdict,
		fmt.Sprintf("%d cases, %d passed, %d failed", sum.Total, sum.Passed, sum.Failed))

	return b.String()
}
