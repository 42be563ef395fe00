package suite

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CSV column headers, as written by spec authors.
const (
	colUseCase = "UseCaseID"
	colCase    = "TestCaseID"
	colBase    = "BaseMessage"
	colUpdates = "TagsToUpdate"
	colExpect  = "TagsToValidate"
)

// LoadCSV reads the original tabular spec layout: a header row naming the
// five columns, one test case per data row. The suite name is the file name
// without extension.
func LoadCSV(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read suite file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows may omit trailing empty columns

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse suite CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("suite CSV %s is empty", path)
	}

	cols, err := headerIndex(records[0])
	if err != nil {
		return nil, fmt.Errorf("suite CSV %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s := &Suite{Name: name}
	for i, rec := range records[1:] {
		field := func(col string) string {
			idx, ok := cols[col]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}
		row := Row{
			UseCaseID:  field(colUseCase),
			TestCaseID: field(colCase),
			Base:       field(colBase),
			Updates:    field(colUpdates),
			Expect:     field(colExpect),
		}
		if row.UseCaseID == "" && row.TestCaseID == "" && row.Base == "" {
			continue // blank line
		}
		if row.UseCaseID == "" || row.TestCaseID == "" || row.Base == "" {
			return nil, fmt.Errorf("suite CSV %s row %d: %s, %s and %s are required",
				path, i+2, colUseCase, colCase, colBase)
		}
		s.Cases = append(s.Cases, row)
	}

	if len(s.Cases) == 0 {
		return nil, fmt.Errorf("suite CSV %s has no test cases", path)
	}
	return s, nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colUseCase, colCase, colBase} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	return cols, nil
}
