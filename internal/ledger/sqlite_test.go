package ledger

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"genassist/internal/domain"
	"genassist/internal/infra"
)

func openTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	return openTestLedgerWithLogger(t, infra.Logger(zerolog.New(io.Discard)))
}

func openTestLedgerWithLogger(t *testing.T, logger infra.Logger) *SQLiteLedger {
	t.Helper()
	l, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"), logger)
	if err != nil {
		t.Fatalf("open sqlite ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestSQLiteLedgerRoundTrip(t *testing.T) {
	l := openTestLedger(t)
	now := time.Now().UTC().Truncate(time.Millisecond)
	job := domain.Job{
		ID:          "job1",
		Kind:        domain.KindVideo,
		Prompt:      "a red balloon rising",
		Params:      domain.Params{Size: "1280x720", DurationSeconds: 8},
		State:       domain.StateRunning,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := l.Put(job); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok := l.Get("job1")
	if !ok {
		t.Fatalf("job not found after put")
	}
	if got.Kind != domain.KindVideo || got.State != domain.StateRunning {
		t.Fatalf("got %+v", got)
	}
	if !got.SubmittedAt.Equal(now) {
		t.Fatalf("submitted_at = %v, want %v", got.SubmittedAt, now)
	}
	if got.Params.DurationSeconds != 8 {
		t.Fatalf("duration = %d", got.Params.DurationSeconds)
	}
}

func TestSQLiteLedgerUpsertKeepsSubmissionTime(t *testing.T) {
	l := openTestLedger(t)
	submitted := time.Now().UTC().Add(-time.Minute).Truncate(time.Millisecond)
	job := domain.Job{ID: "job1", Kind: domain.KindImage, Prompt: "p", State: domain.StateSubmitted, SubmittedAt: submitted, UpdatedAt: submitted}
	if err := l.Put(job); err != nil {
		t.Fatalf("put: %v", err)
	}

	job.State = domain.StateSucceeded
	job.ResolvedURL = "https://x/img.png"
	job.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if err := l.Put(job); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, _ := l.Get("job1")
	if got.State != domain.StateSucceeded || got.ResolvedURL != "https://x/img.png" {
		t.Fatalf("got %+v", got)
	}
	if !got.SubmittedAt.Equal(submitted) {
		t.Fatalf("submitted_at changed on upsert: %v", got.SubmittedAt)
	}
}

func TestSQLiteLedgerListNewestFirst(t *testing.T) {
	l := openTestLedger(t)
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, id := range []string{"a", "b", "c"} {
		job := domain.Job{ID: id, Kind: domain.KindImage, Prompt: "p", State: domain.StateSubmitted,
			SubmittedAt: base.Add(time.Duration(i) * time.Second), UpdatedAt: base}
		if err := l.Put(job); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	jobs := l.List()
	if len(jobs) != 3 {
		t.Fatalf("len = %d", len(jobs))
	}
	if jobs[0].ID != "c" || jobs[2].ID != "a" {
		t.Fatalf("order = %s,%s,%s", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}
}

func TestSQLiteLedgerLogsCorruptedRows(t *testing.T) {
	var buf bytes.Buffer
	l := openTestLedgerWithLogger(t, infra.Logger(zerolog.New(&buf)))
	now := time.Now().UTC().Truncate(time.Millisecond)
	good := domain.Job{ID: "good", Kind: domain.KindImage, Prompt: "p", State: domain.StateSucceeded, SubmittedAt: now, UpdatedAt: now}
	if err := l.Put(good); err != nil {
		t.Fatalf("put: %v", err)
	}
	// A duration that cannot scan into an int makes the row unreadable.
	if _, err := l.db.Exec(`INSERT INTO jobs (id, kind, prompt, duration_secs, state, submitted_at, updated_at)
VALUES ('bad', 'video', 'p', 'not-a-number', 'running', ?, ?)`, now.UnixMilli(), now.UnixMilli()); err != nil {
		t.Fatalf("insert corrupted row: %v", err)
	}

	if _, ok := l.Get("bad"); ok {
		t.Fatalf("corrupted row must not be returned")
	}
	jobs := l.List()
	if len(jobs) != 1 || jobs[0].ID != "good" {
		t.Fatalf("list = %+v, want only the readable row", jobs)
	}
	if !strings.Contains(buf.String(), "ledger: job row scan failed") {
		t.Fatalf("scan failures must be logged, got %q", buf.String())
	}
}

func TestMemoryLedgerListNewestFirst(t *testing.T) {
	l := NewMemoryLedger()
	base := time.Now().UTC()
	for i, id := range []string{"a", "b"} {
		l.Put(domain.Job{ID: id, SubmittedAt: base.Add(time.Duration(i) * time.Second)})
	}
	jobs := l.List()
	if len(jobs) != 2 || jobs[0].ID != "b" {
		t.Fatalf("order wrong: %+v", jobs)
	}
}
