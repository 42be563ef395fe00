package report

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is the persistent SQLite run log. It keeps every run's per-case
// outcomes queryable after the CSV files have been archived or deleted.
type Store struct {
	db *sql.DB
}

// OpenStore creates or opens the run log at path.
//
// WAL mode allows readers while a run is being written; the single-writer
// connection limit avoids SQLITE_BUSY during inserts.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to run log: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply run log schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the run log.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Flush implements Sink: the whole run is written in one transaction.
func (s *Store) Flush(records []Record, sum Summary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin run log tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, suite, started_at, total, passed, failed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Suite, time.Now().UTC().Format(time.RFC3339),
		sum.Total, sum.Passed, sum.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO cases (run_id, use_case, test_case, execution_id, msg_type, status, details, sent, received)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare case insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(
			sum.RunID, r.UseCaseID, r.TestCaseID, r.ExecutionID, r.MsgType,
			string(r.Status), strings.Join(r.Details, " | "), r.Sent, r.Received,
		)
		if err != nil {
			return fmt.Errorf("insert case %s/%s: %w", r.UseCaseID, r.TestCaseID, err)
		}
	}
	return tx.Commit()
}

// RunCases reads back one run's case statuses, in insertion order.
// Used by operators inspecting historical runs.
func (s *Store) RunCases(runID string) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT use_case, test_case, execution_id, msg_type, status, details, sent, received
		 FROM cases WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var status, details string
		if err := rows.Scan(&r.UseCaseID, &r.TestCaseID, &r.ExecutionID, &r.MsgType,
			&status, &details, &r.Sent, &r.Received); err != nil {
			return nil, err
		}
		r.Status = Status(status)
		if details != "" {
			r.Details = strings.Split(details, " | ")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
