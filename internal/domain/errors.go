package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrServiceError        = errors.New("service error")
	ErrClientError         = errors.New("client error")
	ErrNetwork             = errors.New("network error")
	ErrMissingArtifact     = errors.New("missing artifact")
	ErrPlaybackUnavailable = errors.New("playback unavailable")
	ErrJobNotFound         = errors.New("job not found")
	ErrJobTerminal         = errors.New("job already terminal")
)

// TerminalFailure indicates the remote job itself failed or was cancelled
// server-side. Reason is surfaced verbatim when the service provided one.
type TerminalFailure struct {
	Reason string
}

func (e *TerminalFailure) Error() string {
	if e.Reason == "" {
		return "generation failed"
	}
	return fmt.Sprintf("generation failed: %s", e.Reason)
}
