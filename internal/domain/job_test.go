package domain

import (
	"testing"
	"time"
)

func TestStateTerminality(t *testing.T) {
	terminal := []State{StateSucceeded, StateFailed, StateCancelled}
	for _, s := range terminal {
		if !s.Terminal() || s.InProgress() {
			t.Fatalf("%s must be terminal", s)
		}
	}
	inProgress := []State{StateSubmitted, StateQueued, StatePreprocessing, StateRunning}
	for _, s := range inProgress {
		if s.Terminal() || !s.InProgress() {
			t.Fatalf("%s must be in-progress", s)
		}
	}
}

func TestKindValid(t *testing.T) {
	if !KindImage.Valid() || !KindVideo.Valid() {
		t.Fatalf("image and video must be valid kinds")
	}
	if Kind("audio").Valid() {
		t.Fatalf("audio is not a supported kind")
	}
}

func TestJobElapsed(t *testing.T) {
	now := time.Now()
	j := Job{SubmittedAt: now.Add(-90 * time.Second)}
	if got := j.Elapsed(now); got != 90*time.Second {
		t.Fatalf("elapsed = %v", got)
	}
	if got := (Job{}).Elapsed(now); got != 0 {
		t.Fatalf("zero submission time should yield zero elapsed, got %v", got)
	}
}

func TestTerminalFailureMessage(t *testing.T) {
	err := &TerminalFailure{Reason: "content policy violation"}
	if err.Error() != "generation failed: content policy violation" {
		t.Fatalf("message = %q", err.Error())
	}
	if (&TerminalFailure{}).Error() != "generation failed" {
		t.Fatalf("empty reason message = %q", (&TerminalFailure{}).Error())
	}
}
