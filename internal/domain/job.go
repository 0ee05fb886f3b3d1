package domain

import "time"

// Kind enumerates supported generation media categories.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Valid reports whether the kind is one the orchestrator knows how to drive.
func (k Kind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// State enumerates job lifecycle states.
type State string

const (
	StateSubmitted     State = "submitted"
	StateQueued        State = "queued"
	StatePreprocessing State = "preprocessing"
	StateRunning       State = "running"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
	StateCancelled     State = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// InProgress reports whether the job still warrants polling.
func (s State) InProgress() bool {
	return !s.Terminal()
}

// Params captures generation parameters at submission time. They are
// immutable for the lifetime of the job.
type Params struct {
	Size            string `json:"size,omitempty"`
	Quality         string `json:"quality,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

// Job encapsulates the lifecycle of one remote generation request.
type Job struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	Prompt        string    `json:"prompt"`
	Params        Params    `json:"params"`
	State         State     `json:"state"`
	SubmittedAt   time.Time `json:"submitted_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	RetryCount    int       `json:"retry_count"`
	ResultRef     string    `json:"result_ref,omitempty"`
	ResolvedURL   string    `json:"resolved_url,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// Elapsed returns wall-clock time since submission, surfaced for cadence
// tiering and UX.
func (j Job) Elapsed(now time.Time) time.Duration {
	if j.SubmittedAt.IsZero() {
		return 0
	}
	return now.Sub(j.SubmittedAt)
}
