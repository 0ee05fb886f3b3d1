package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"genassist/internal/http/handlers"
	"genassist/internal/infra"
	"genassist/internal/middleware"
)

// NewRouter wires the orchestrator's HTTP surface.
func NewRouter(app *handlers.App, logger infra.Logger, corsOrigins []string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(corsOrigins))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.JobsSubmit)
		r.Get("/", app.JobsList)
		r.Get("/{id}", app.JobsGet)
		r.Post("/{id}/cancel", app.JobsCancel)
		r.Post("/{id}/regenerate", app.JobsRegenerate)
		r.Post("/{id}/modify", app.JobsModify)
		r.Post("/{id}/playback-failure", app.JobsPlaybackFailure)
	})

	return r
}
