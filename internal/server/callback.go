package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/modlingo/modlingo/internal/services"
	"github.com/modlingo/modlingo/internal/shared"
	"github.com/modlingo/modlingo/internal/tasks"
)

// CallbackHandler receives progress reports pushed by the translation worker.
type CallbackHandler struct {
	orch   *tasks.Orchestrator
	logger *log.Logger
}

func NewCallbackHandler(orch *tasks.Orchestrator, logger *log.Logger) *CallbackHandler {
	return &CallbackHandler{orch: orch, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/api/callback"}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Kind: "method_not_allowed", Error: "method not allowed"})
		return
	}

	var report services.WorkerReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if report.TaskID == "" {
		writeError(w, fmt.Errorf("%w: taskId is required", shared.ErrInvalidInput))
		return
	}

	if err := h.orch.HandleCallback(r.Context(), &report); err != nil {
		h.logger.Warn("callback rejected", "task", report.TaskID, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
