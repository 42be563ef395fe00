// Package suite loads test specifications. A suite is an ordered list of
// rows; each row names a use case, a test case, a base message in the
// human-typable delimiter form, and the update and expected-tag expressions.
//
// Two on-disk forms are supported: the original CSV layout and YAML suite
// files. YAML suites are strictly decoded and checked against an embedded
// CUE schema before use, so authoring mistakes fail before anything is sent.
package suite

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tapewire/fixconf/internal/expand"
	"github.com/tapewire/fixconf/internal/expr"
	"github.com/tapewire/fixconf/internal/fixmsg"
)

// Row is one test-spec record.
type Row struct {
	UseCaseID  string `yaml:"use_case"`
	TestCaseID string `yaml:"test_case"`
	Base       string `yaml:"base"`
	Updates    string `yaml:"updates,omitempty"`
	Expect     string `yaml:"expect,omitempty"`
}

// Suite is an ordered collection of rows.
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Cases       []Row  `yaml:"cases"`
}

// Load reads a suite file, picking the format from the extension:
// .yaml/.yml for YAML suites, anything else is treated as CSV.
func Load(path string) (*Suite, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return LoadCSV(path)
	}
}

// LoadYAML reads and parses a YAML suite file. Unknown fields are rejected
// to catch typos, and the document must satisfy the embedded schema.
func LoadYAML(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite file: %w", err)
	}

	if err := checkSchema(path, data); err != nil {
		return nil, err
	}

	var s Suite
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse suite YAML: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid suite %s: %w", path, err)
	}
	return &s, nil
}

func (s *Suite) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("at least one case is required")
	}
	for i, r := range s.Cases {
		if r.UseCaseID == "" || r.TestCaseID == "" {
			return fmt.Errorf("case %d: use_case and test_case are required", i+1)
		}
		if r.Base == "" {
			return fmt.Errorf("case %d (%s): base message is required", i+1, r.TestCaseID)
		}
	}
	return nil
}

// Compile parses a row's base message and expressions into expander input.
// Parser failures carry the row's identifiers so the offending spec line is
// easy to locate.
func (r Row) Compile(syn expr.Syntax) (expand.Case, error) {
	base, err := fixmsg.Decode(r.Base, fixmsg.Human)
	if err != nil {
		return expand.Case{}, fmt.Errorf("case %s/%s: base message: %w", r.UseCaseID, r.TestCaseID, err)
	}
	updates, err := expr.ParseUpdate(r.Updates, syn)
	if err != nil {
		return expand.Case{}, fmt.Errorf("case %s/%s: updates: %w", r.UseCaseID, r.TestCaseID, err)
	}
	expect, err := expr.ParseExpect(r.Expect, syn)
	if err != nil {
		return expand.Case{}, fmt.Errorf("case %s/%s: expected tags: %w", r.UseCaseID, r.TestCaseID, err)
	}
	return expand.Case{
		UseCaseID:  r.UseCaseID,
		TestCaseID: r.TestCaseID,
		Base:       base,
		Updates:    updates,
		Expect:     expect,
	}, nil
}
