package handlers

import (
	"encoding/json"
	"net/http"

	"genassist/internal/infra"
	"genassist/internal/orchestrator"
)

// App bundles the handler dependencies.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Logger       infra.Logger
}

func NewApp(orch *orchestrator.Orchestrator, logger infra.Logger) *App {
	return &App{Orchestrator: orch, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, tag, message string) {
	a.json(w, code, map[string]string{"error": tag, "message": message})
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
