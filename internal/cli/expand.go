package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tapewire/fixconf/internal/config"
	"github.com/tapewire/fixconf/internal/expand"
	"github.com/tapewire/fixconf/internal/fixmsg"
	"github.com/tapewire/fixconf/internal/report"
	"github.com/tapewire/fixconf/internal/suite"
)

// ExpandOptions holds flags for the expand command.
type ExpandOptions struct {
	*RootOptions
	Config        string
	FrozenTime    string
	SequentialIDs bool
}

// NewExpandCommand creates the expand command.
func NewExpandCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpandOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "expand <suite-file>",
		Short: "Show the expanded cases without sending anything",
		Long: `Expand every suite row into its concrete test cases and print them,
including derived cancel messages and generated identifiers. Nothing
is sent; use this to review what a run would submit.

With --frozen-time and --sequential-ids the output is fully
deterministic, which makes it diffable across spec edits.

Examples:
  fixconf expand ./suites/order-entry.yaml
  fixconf expand ./cases.csv --frozen-time 2025-06-13T14:30:00Z --sequential-ids`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return expandSuite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to TOML config file")
	cmd.Flags().StringVar(&opts.FrozenTime, "frozen-time", "", "fixed RFC3339 instant for tag 52 timestamps")
	cmd.Flags().BoolVar(&opts.SequentialIDs, "sequential-ids", false, "number generated identifiers instead of randomizing them")

	return cmd
}

// fixedClock pins the expansion timestamp for reproducible dry runs.
type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

// countingIDs numbers generated identifiers per process, newest last.
type countingIDs struct{ n int }

func (s *countingIDs) Next(caseID string) string {
	s.n++
	return caseID + "_" + strconv.Itoa(s.n)
}

func expandSuite(opts *ExpandOptions, suitePath string, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	s, err := suite.Load(suitePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load suite", err)
	}

	var clock expand.Clock = expand.SystemClock{}
	if opts.FrozenTime != "" {
		at, err := time.Parse(time.RFC3339, opts.FrozenTime)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --frozen-time", err)
		}
		clock = fixedClock{at: at.UTC()}
	}
	var ids expand.IDSource = expand.UUIDSource{}
	if opts.SequentialIDs {
		ids = &countingIDs{}
	}
	expander := expand.New(clock, ids)

	var all []expand.ExpandedCase
	for _, row := range s.Cases {
		c, err := row.Compile(cfg.Syntax())
		if err != nil {
			return WrapExitError(ExitFailure, "suite has errors", err)
		}
		cases, err := expander.Expand(c)
		if err != nil {
			return WrapExitError(ExitFailure, "suite has errors", err)
		}
		all = append(all, cases...)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(expandedJSON(all))
	}
	fmt.Fprint(cmd.OutOrStdout(), string(report.Snapshot(all)))
	fmt.Fprintf(cmd.OutOrStdout(), "%d cases from %d rows\n", len(all), len(s.Cases))
	return nil
}

// expandedCaseJSON is the JSON shape of one expanded case.
type expandedCaseJSON struct {
	UseCase string `json:"use_case"`
	Case    string `json:"case"`
	Index   int    `json:"index"`
	Message string `json:"message"`
	Linked  bool   `json:"linked,omitempty"`
	Primary string `json:"primary_clordid,omitempty"`
}

func expandedJSON(cases []expand.ExpandedCase) []expandedCaseJSON {
	out := make([]expandedCaseJSON, len(cases))
	for i, c := range cases {
		out[i] = expandedCaseJSON{
			UseCase: c.UseCaseID,
			Case:    c.CaseID,
			Index:   c.Index,
			Message: c.Msg.Encode(fixmsg.Human),
			Linked:  c.Linked,
			Primary: c.PrimaryOrdID,
		}
	}
	return out
}
