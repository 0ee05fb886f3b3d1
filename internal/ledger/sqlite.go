package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"genassist/internal/domain"
	"genassist/internal/infra"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id             TEXT PRIMARY KEY,
	kind           TEXT NOT NULL,
	prompt         TEXT NOT NULL,
	size           TEXT NOT NULL DEFAULT '',
	quality        TEXT NOT NULL DEFAULT '',
	duration_secs  INTEGER NOT NULL DEFAULT 0,
	state          TEXT NOT NULL,
	submitted_at   INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL,
	retry_count    INTEGER NOT NULL DEFAULT 0,
	result_ref     TEXT NOT NULL DEFAULT '',
	resolved_url   TEXT NOT NULL DEFAULT '',
	failure_reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_jobs_submitted_at ON jobs (submitted_at DESC);
`

// SQLiteLedger persists job records so terminal jobs survive a restart for
// display and download. Polling is never resumed from it: a job interrupted
// by a restart simply stays at its last recorded state.
type SQLiteLedger struct {
	db     *sql.DB
	logger infra.Logger
}

// OpenSQLite opens (creating if needed) the ledger database at path.
func OpenSQLite(path string, logger infra.Logger) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create db dir: %w", err)
	}
	dsn := path + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite: %w", err)
	}
	// SQLite single-writer: cap pool
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}
	return &SQLiteLedger{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// Put upserts the record.
func (l *SQLiteLedger) Put(job domain.Job) error {
	_, err := l.db.Exec(`
INSERT INTO jobs (id, kind, prompt, size, quality, duration_secs, state, submitted_at, updated_at, retry_count, result_ref, resolved_url, failure_reason)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	state = excluded.state,
	updated_at = excluded.updated_at,
	retry_count = excluded.retry_count,
	result_ref = excluded.result_ref,
	resolved_url = excluded.resolved_url,
	failure_reason = excluded.failure_reason`,
		job.ID, string(job.Kind), job.Prompt,
		job.Params.Size, job.Params.Quality, job.Params.DurationSeconds,
		string(job.State), job.SubmittedAt.UnixMilli(), job.UpdatedAt.UnixMilli(),
		job.RetryCount, job.ResultRef, job.ResolvedURL, job.FailureReason)
	if err != nil {
		return fmt.Errorf("ledger: upsert job %s: %w", job.ID, err)
	}
	return nil
}

// Get loads the record for id.
func (l *SQLiteLedger) Get(id string) (domain.Job, bool) {
	row := l.db.QueryRow(`SELECT id, kind, prompt, size, quality, duration_secs, state, submitted_at, updated_at, retry_count, result_ref, resolved_url, failure_reason FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			l.logger.Error().Err(err).Str("job_id", id).Msg("ledger: job row scan failed")
		}
		return domain.Job{}, false
	}
	return job, true
}

// List returns all records, newest submission first.
func (l *SQLiteLedger) List() []domain.Job {
	rows, err := l.db.Query(`SELECT id, kind, prompt, size, quality, duration_secs, state, submitted_at, updated_at, retry_count, result_ref, resolved_url, failure_reason FROM jobs ORDER BY submitted_at DESC, id DESC`)
	if err != nil {
		l.logger.Error().Err(err).Msg("ledger: list query failed")
		return nil
	}
	defer rows.Close()
	var out []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			l.logger.Error().Err(err).Msg("ledger: job row scan failed, skipping")
			continue
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		l.logger.Error().Err(err).Msg("ledger: list iteration failed")
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.Job, error) {
	var (
		job                    domain.Job
		kind, state            string
		submittedMS, updatedMS int64
	)
	if err := row.Scan(&job.ID, &kind, &job.Prompt,
		&job.Params.Size, &job.Params.Quality, &job.Params.DurationSeconds,
		&state, &submittedMS, &updatedMS, &job.RetryCount,
		&job.ResultRef, &job.ResolvedURL, &job.FailureReason); err != nil {
		return domain.Job{}, err
	}
	job.Kind = domain.Kind(kind)
	job.State = domain.State(state)
	job.SubmittedAt = time.UnixMilli(submittedMS).UTC()
	job.UpdatedAt = time.UnixMilli(updatedMS).UTC()
	return job, nil
}

var _ Ledger = (*SQLiteLedger)(nil)
