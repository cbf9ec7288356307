package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/modlingo/modlingo/internal/shared"
	"github.com/modlingo/modlingo/internal/tasks"
)

// CacheHandler serves the translation cache endpoints used by workers and
// operators.
type CacheHandler struct {
	orch   *tasks.Orchestrator
	logger *log.Logger
}

func NewCacheHandler(orch *tasks.Orchestrator, logger *log.Logger) *CacheHandler {
	return &CacheHandler{orch: orch, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *CacheHandler) Routes() []string {
	return []string{
		"/api/cache/query",
		"/api/cache/save",
	}
}

func (h *CacheHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Kind: "method_not_allowed", Error: "method not allowed"})
		return
	}

	if strings.HasSuffix(r.URL.Path, "/query") {
		h.query(w, r)
		return
	}
	h.save(w, r)
}

func (h *CacheHandler) query(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []tasks.CacheQueryItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	results, err := h.orch.CacheQuery(body.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *CacheHandler) save(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TaskID     string                `json:"taskId"`
		TargetLang string                `json:"targetLang"`
		Items      []tasks.CacheSaveItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	saved, err := h.orch.CacheSave(body.TaskID, body.TargetLang, body.Items)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Debug("cache save", "task", body.TaskID, "saved", saved)
	writeJSON(w, http.StatusOK, map[string]int{"saved": saved})
}
