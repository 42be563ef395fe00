// Package runner drives one conformance run: it expands every suite row,
// submits the expanded cases strictly in expansion order, validates each
// response and records the outcome.
//
// Cases are never reordered or retried. Sequential submission preserves the
// identifier ordering a stateful counterparty expects: a derived cancel is
// sent only after its primary order's response has been awaited. Per-case
// failures are recorded and the run continues; only a counterparty that is
// no longer usable aborts the run.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tapewire/fixconf/internal/expand"
	"github.com/tapewire/fixconf/internal/expr"
	"github.com/tapewire/fixconf/internal/fixmsg"
	"github.com/tapewire/fixconf/internal/report"
	"github.com/tapewire/fixconf/internal/suite"
	"github.com/tapewire/fixconf/internal/transport"
	"github.com/tapewire/fixconf/internal/validate"
)

// Options configures a run.
type Options struct {
	// Syntax is the expression syntax of the suite's rows.
	Syntax expr.Syntax

	// ReceiveTimeout bounds the wait for each response.
	ReceiveTimeout time.Duration

	// Logger receives per-case progress. Defaults to slog.Default.
	Logger *slog.Logger
}

// Runner executes suites against one transport adapter.
type Runner struct {
	expander *expand.Expander
	adapter  transport.Adapter
	agg      *report.Aggregator
	opts     Options

	// sent holds the last message sent per case id, for ${case.tag}
	// placeholder references in later rows.
	sent map[string]*fixmsg.Message
}

// New creates a Runner.
func New(expander *expand.Expander, adapter transport.Adapter, agg *report.Aggregator, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReceiveTimeout <= 0 {
		opts.ReceiveTimeout = 4 * time.Second
	}
	return &Runner{
		expander: expander,
		adapter:  adapter,
		agg:      agg,
		opts:     opts,
		sent:     make(map[string]*fixmsg.Message),
	}
}

// Run executes every row of the suite and finalizes the aggregator.
//
// The returned summary is valid even on error. A non-nil error means the
// run itself failed (unusable counterparty or cancelled context), not that
// test cases failed; case failures only show in the summary.
func (r *Runner) Run(ctx context.Context, s *suite.Suite) (report.Summary, error) {
	log := r.opts.Logger
	log.Info("run started", "suite", s.Name, "rows", len(s.Cases), "run_id", r.agg.RunID())

	for _, row := range s.Cases {
		if err := ctx.Err(); err != nil {
			sum, _ := r.agg.Finalize()
			return sum, err
		}
		if err := r.runRow(ctx, row); err != nil {
			log.Error("run aborted", "use_case", row.UseCaseID, "test_case", row.TestCaseID, "error", err)
			sum, ferr := r.agg.Finalize()
			if ferr != nil {
				log.Error("report finalize failed", "error", ferr)
			}
			return sum, err
		}
	}

	sum, err := r.agg.Finalize()
	if err != nil {
		return sum, err
	}
	log.Info("run finished", "total", sum.Total, "passed", sum.Passed, "failed", sum.Failed)
	return sum, nil
}

// runRow expands one row and executes its cases. Spec-authoring errors are
// recorded against the row and are not fatal; only an unusable counterparty
// returns an error.
func (r *Runner) runRow(ctx context.Context, row suite.Row) error {
	c, err := row.Compile(r.opts.Syntax)
	if err != nil {
		r.recordError(row.UseCaseID, row.TestCaseID, report.StatusSpecError, err)
		return nil
	}

	cases, err := r.expander.Expand(c)
	if err != nil {
		r.recordError(row.UseCaseID, row.TestCaseID, report.StatusSpecError, err)
		return nil
	}

	for _, ec := range cases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runCase(ctx, ec); err != nil {
			return err
		}
	}
	return nil
}

// runCase sends one expanded case and validates its response.
func (r *Runner) runCase(ctx context.Context, ec expand.ExpandedCase) error {
	log := r.opts.Logger.With("use_case", ec.UseCaseID, "test_case", ec.CaseID, "clordid", ec.OrdID)

	msg, err := resolvePlaceholders(ec.Msg, r.sent)
	if err != nil {
		r.record(ec, report.StatusSpecError, []string{"placeholder resolution failed: " + err.Error()}, "", nil)
		return nil
	}

	expect, err := resolveExpectations(ec.Expect, msg, r.sent)
	if err != nil {
		r.record(ec, report.StatusSpecError, []string{"placeholder resolution failed: " + err.Error()}, msg.Encode(fixmsg.Human), nil)
		return nil
	}

	if !msg.Has(expand.TagMsgType) {
		r.record(ec, report.StatusSpecError, []string{"mandatory tag 35 missing"}, msg.Encode(fixmsg.Human), nil)
		return nil
	}

	sentHuman := msg.Encode(fixmsg.Human)
	if err := r.adapter.Send(ctx, msg.Encode(fixmsg.SOH)); err != nil {
		if transport.IsDown(err) {
			r.record(ec, report.StatusTransportError, []string{err.Error()}, sentHuman, nil)
			return fmt.Errorf("counterparty unusable: %w", err)
		}
		log.Warn("send failed", "error", err)
		r.record(ec, report.StatusTransportError, []string{err.Error()}, sentHuman, nil)
		return nil
	}
	r.sent[ec.CaseID] = msg

	raw, err := r.adapter.Receive(ctx, transport.Match{OrdID: ec.OrdID, MsgType: ec.MsgType}, r.opts.ReceiveTimeout)
	if err != nil {
		switch {
		case transport.IsTimeout(err):
			log.Warn("no response", "timeout", r.opts.ReceiveTimeout)
			r.record(ec, report.StatusNoResponse, []string{err.Error()}, sentHuman, nil)
			return nil
		case transport.IsDown(err):
			r.record(ec, report.StatusTransportError, []string{err.Error()}, sentHuman, nil)
			return fmt.Errorf("counterparty unusable: %w", err)
		default:
			log.Warn("receive failed", "error", err)
			r.record(ec, report.StatusTransportError, []string{err.Error()}, sentHuman, nil)
			return nil
		}
	}

	resp, err := fixmsg.Decode(raw, fixmsg.SOH)
	if err != nil {
		log.Warn("response undecodable", "error", err)
		r.record(ec, report.StatusDecodeError, []string{err.Error()}, sentHuman, nil)
		return nil
	}

	verdict := validate.Check(resp, expect)
	status := report.StatusPass
	if !verdict.Pass {
		status = report.StatusFail
	}
	log.Info("case finished", "status", string(status))
	r.record(ec, status, verdict.Details(), sentHuman, resp)
	return nil
}

func (r *Runner) record(ec expand.ExpandedCase, status report.Status, details []string, sent string, resp *fixmsg.Message) {
	rec := report.Record{
		UseCaseID:   ec.UseCaseID,
		TestCaseID:  ec.CaseID,
		ExecutionID: ec.OrdID,
		MsgType:     ec.MsgType,
		Status:      status,
		Details:     details,
		Sent:        sent,
	}
	if resp != nil {
		rec.Received = resp.Encode(fixmsg.Human)
	}
	r.agg.Record(rec)
}

func (r *Runner) recordError(useCaseID, testCaseID string, status report.Status, err error) {
	r.opts.Logger.Error("spec error", "use_case", useCaseID, "test_case", testCaseID, "error", err)
	r.agg.Record(report.Record{
		UseCaseID:  useCaseID,
		TestCaseID: testCaseID,
		Status:     status,
		Details:    []string{err.Error()},
	})
}
