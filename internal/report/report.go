// Package report accumulates per-case verdicts into per-use-case and
// per-run summaries and persists them: CSV result/summary files, an
// optional SQLite run log, and a styled terminal rendering.
package report

import (
	"fmt"
	"sync"
	"time"
)

// Status is the final classification of one executed case.
type Status string

const (
	StatusPass           Status = "PASS"
	StatusFail           Status = "FAIL"
	StatusNoResponse     Status = "NO_RESPONSE"
	StatusDecodeError    Status = "DECODE_ERROR"
	StatusTransportError Status = "TRANSPORT_ERROR"
	StatusSpecError      Status = "SPEC_ERROR"
)

// Passed reports whether the status counts as a pass.
func (s Status) Passed() bool { return s == StatusPass }

// Record is one executed case's outcome, as handed to the aggregator.
type Record struct {
	UseCaseID   string
	TestCaseID  string
	ExecutionID string // tag 11 of the sent message, "" when never built
	MsgType     string
	Status      Status
	Details     []string // per-tag verdict lines or the error description
	Sent        string   // human-delimited sent message
	Received    string   // human-delimited response, "" when none
}

// UseCaseSummary is the per-use-case rollup.
type UseCaseSummary struct {
	UseCaseID string
	Total     int
	Passed    int
	Failed    int
}

// GroupSummary is the finer rollup keyed by use case, test case and message
// type, matching the summary CSV layout.
type GroupSummary struct {
	UseCaseID  string
	TestCaseID string
	MsgType    string
	Total      int
	Passed     int
	Failed     int
}

// Summary is the whole run's aggregation.
type Summary struct {
	RunID    string
	Suite    string
	Total    int
	Passed   int
	Failed   int
	UseCases []UseCaseSummary
	Groups   []GroupSummary
}

// NewRunID derives the run identifier from the run's start instant.
func NewRunID(start time.Time) string {
	return start.Format("060102_150405")
}

// Sink persists a finished run.
type Sink interface {
	Flush(records []Record, sum Summary) error
}

// Aggregator accumulates records for one run. The engine calls Record once
// per expanded case (derived secondary cases included) and Finalize once
// per run.
//
// Thread-safety: Record may be called concurrently should use cases ever
// run in parallel.
type Aggregator struct {
	runID string
	suite string

	mu      sync.Mutex
	records []Record
	sinks   []Sink
}

// NewAggregator creates an aggregator flushing to the given sinks.
func NewAggregator(runID, suiteName string, sinks ...Sink) *Aggregator {
	return &Aggregator{runID: runID, suite: suiteName, sinks: sinks}
}

// RunID returns the run identifier.
func (a *Aggregator) RunID() string { return a.runID }

// Record appends one case outcome.
func (a *Aggregator) Record(r Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, r)
}

// Records returns a copy of all recorded outcomes, in execution order.
func (a *Aggregator) Records() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}

// Finalize computes the summary and flushes every sink. The summary is
// returned even when a sink fails, so callers can still render it.
func (a *Aggregator) Finalize() (Summary, error) {
	records := a.Records()
	sum := Summarize(a.runID, a.suite, records)

	var firstErr error
	for _, s := range a.sinks {
		if err := s.Flush(records, sum); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flush report sink: %w", err)
		}
	}
	return sum, firstErr
}

// Summarize rolls records up into a Summary. Use cases and groups appear in
// first-execution order.
func Summarize(runID, suiteName string, records []Record) Summary {
	sum := Summary{RunID: runID, Suite: suiteName}

	ucIndex := make(map[string]int)
	type groupKey struct{ uc, tc, mt string }
	grIndex := make(map[groupKey]int)

	for _, r := range records {
		sum.Total++
		passed := r.Status.Passed()
		if passed {
			sum.Passed++
		} else {
			sum.Failed++
		}

		i, ok := ucIndex[r.UseCaseID]
		if !ok {
			i = len(sum.UseCases)
			ucIndex[r.UseCaseID] = i
			sum.UseCases = append(sum.UseCases, UseCaseSummary{UseCaseID: r.UseCaseID})
		}
		sum.UseCases[i].Total++
		if passed {
			sum.UseCases[i].Passed++
		} else {
			sum.UseCases[i].Failed++
		}

		gk := groupKey{r.UseCaseID, r.TestCaseID, r.MsgType}
		j, ok := grIndex[gk]
		if !ok {
			j = len(sum.Groups)
			grIndex[gk] = j
			sum.Groups = append(sum.Groups, GroupSummary{
				UseCaseID:  r.UseCaseID,
				TestCaseID: r.TestCaseID,
				MsgType:    r.MsgType,
			})
		}
		sum.Groups[j].Total++
		if passed {
			sum.Groups[j].Passed++
		} else {
			sum.Groups[j].Failed++
		}
	}
	return sum
}
