package orchestrator

import (
	"strings"

	"genassist/internal/domain"
)

// mapStatus converts the service's raw status vocabulary into a lifecycle
// state. Only terminal labels are distinguished; every other label, including
// intermediate ones the service may introduce later, keeps the job
// in-progress. The raw label is logged by the caller for observability.
func mapStatus(raw string) domain.State {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "succeeded", "success", "completed", "complete":
		return domain.StateSucceeded
	case "failed", "failure", "error":
		return domain.StateFailed
	case "cancelled", "canceled":
		return domain.StateCancelled
	case "queued", "pending":
		return domain.StateQueued
	case "preprocessing":
		return domain.StatePreprocessing
	default:
		return domain.StateRunning
	}
}
