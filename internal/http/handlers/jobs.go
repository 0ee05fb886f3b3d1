package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"genassist/internal/domain"
)

type submitJobRequest struct {
	Kind   string        `json:"kind"`
	Prompt string        `json:"prompt"`
	Params domain.Params `json:"params"`
}

type modifyJobRequest struct {
	Instruction string `json:"instruction"`
}

type fallbackResponse struct {
	ResolvedURL string `json:"resolved_url"`
}

// JobsSubmit enqueues one generation request.
func (a *App) JobsSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	kind := domain.Kind(req.Kind)
	if !kind.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "kind must be image or video")
		return
	}
	job, err := a.Orchestrator.Submit(r.Context(), kind, req.Prompt, req.Params)
	if err != nil {
		a.submissionError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, job)
}

// JobsList returns the ledger, newest first.
func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	jobs := a.Orchestrator.Jobs()
	if jobs == nil {
		jobs = []domain.Job{}
	}
	a.json(w, http.StatusOK, jobs)
}

// JobsGet returns one job record.
func (a *App) JobsGet(w http.ResponseWriter, r *http.Request) {
	job, err := a.Orchestrator.Job(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, job)
}

// JobsCancel stops observing a job. Idempotent.
func (a *App) JobsCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Orchestrator.Cancel(id); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to cancel job")
		return
	}
	job, err := a.Orchestrator.Job(id)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, job)
}

// JobsRegenerate re-submits a prior job with the same prompt and params.
func (a *App) JobsRegenerate(w http.ResponseWriter, r *http.Request) {
	job, err := a.Orchestrator.Regenerate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.submissionError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, job)
}

// JobsModify re-submits with a derived prompt referencing the prior result.
func (a *App) JobsModify(w http.ResponseWriter, r *http.Request) {
	var req modifyJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	job, err := a.Orchestrator.Modify(r.Context(), chi.URLParam(r, "id"), req.Instruction)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.submissionError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, job)
}

// JobsPlaybackFailure asks for the next URL variant after the consumer's
// runtime rejected the current one.
func (a *App) JobsPlaybackFailure(w http.ResponseWriter, r *http.Request) {
	url, err := a.Orchestrator.ReportPlaybackFailure(chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			a.error(w, http.StatusNotFound, "not_found", "job not found")
		case errors.Is(err, domain.ErrPlaybackUnavailable):
			a.error(w, http.StatusConflict, "playback_unavailable",
				"the generation succeeded but no playable variant remains")
		default:
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		}
		return
	}
	a.json(w, http.StatusOK, fallbackResponse{ResolvedURL: url})
}

// submissionError maps the client error taxonomy onto HTTP codes for the
// presentation layer.
func (a *App) submissionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		a.error(w, http.StatusTooManyRequests, "rate_limited", "the generation service is overloaded")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusBadGateway, "auth", "credential rejected by the generation service")
	case errors.Is(err, domain.ErrServiceError), errors.Is(err, domain.ErrNetwork):
		a.error(w, http.StatusBadGateway, "upstream", "the generation service is unavailable")
	default:
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	}
}
