package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CSVSink writes the run's result and summary files:
//
//	<dir>/test_result_<runID>.csv
//	<dir>/test_summary_<runID>.csv
//
// The directory is created on demand.
type CSVSink struct {
	Dir string

	// Set by Flush, for log messages pointing operators at the files.
	ResultPath  string
	SummaryPath string
}

// Flush writes both files.
func (s *CSVSink) Flush(records []Record, sum Summary) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	s.ResultPath = filepath.Join(s.Dir, "test_result_"+sum.RunID+".csv")
	if err := s.writeResults(s.ResultPath, records); err != nil {
		return err
	}

	s.SummaryPath = filepath.Join(s.Dir, "test_summary_"+sum.RunID+".csv")
	return s.writeSummary(s.SummaryPath, sum)
}

func (s *CSVSink) writeResults(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"UseCaseID", "TestCaseID", "ExecutionID",
		"ValidationResult", "ValidationDetails", "MessageType",
		"SentFixMessage", "ReceivedFixMessage",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.UseCaseID, r.TestCaseID, r.ExecutionID,
			string(r.Status), strings.Join(r.Details, " | "), r.MsgType,
			r.Sent, r.Received,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *CSVSink) writeSummary(path string, sum Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"UseCaseID", "TestCaseID", "MessageType", "Total", "Passed", "Failed"}); err != nil {
		return err
	}
	for _, g := range sum.Groups {
		row := []string{
			g.UseCaseID, g.TestCaseID, g.MsgType,
			strconv.Itoa(g.Total), strconv.Itoa(g.Passed), strconv.Itoa(g.Failed),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
