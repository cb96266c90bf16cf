/*
Package ledger is opt-in provenance logging for committed mutations: each
Evaluator.ApplyMutation/ApplyMutations call can be recorded against a
SQLite-backed run history, the same "versions in a table, write-once,
query by recency" shape kibbyd-adaptive-state's state store uses for its
state_versions table.
*/
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	started_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS commits (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	model_name  TEXT NOT NULL,
	mutations   INTEGER NOT NULL,
	log_likelihood DOUBLE NOT NULL,
	committed_at TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// Ledger records mutation commits against a SQLite database. The zero
// value is not usable; construct one with Open.
type Ledger struct {
	db    *sql.DB
	runID string
}

// Open opens (creating if necessary) the SQLite database at path and
// starts a new run under a fresh UUID.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}

	runID := uuid.New().String()
	if _, err := db.Exec(
		`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: start run: %w", err)
	}

	return &Ledger{db: db, runID: runID}, nil
}

// RunID returns the UUID of the run this Ledger is recording commits
// under.
func (l *Ledger) RunID() string {
	return l.runID
}

// RecordCommit logs one ApplyMutation/ApplyMutations call: the chemistry
// used, how many mutations were committed in the batch, and the
// resulting log-likelihood.
func (l *Ledger) RecordCommit(modelName string, nMutations int, logLikelihood float64) error {
	_, err := l.db.Exec(
		`INSERT INTO commits (run_id, model_name, mutations, log_likelihood, committed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		l.runID, modelName, nMutations, logLikelihood, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("ledger: record commit: %w", err)
	}
	return nil
}

// CommitRecord is one row recorded by RecordCommit.
type CommitRecord struct {
	RunID         string
	ModelName     string
	Mutations     int
	LogLikelihood float64
	CommittedAt   time.Time
}

// RecentCommits returns the most recent commits across all runs, most
// recent first.
func (l *Ledger) RecentCommits(limit int) ([]CommitRecord, error) {
	rows, err := l.db.Query(
		`SELECT run_id, model_name, mutations, log_likelihood, committed_at
		 FROM commits ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: recent commits: %w", err)
	}
	defer rows.Close()

	var out []CommitRecord
	for rows.Next() {
		var rec CommitRecord
		var committedAt string
		if err := rows.Scan(&rec.RunID, &rec.ModelName, &rec.Mutations, &rec.LogLikelihood, &committedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan commit row: %w", err)
		}
		rec.CommittedAt, _ = time.Parse(time.RFC3339Nano, committedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}
