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

// ReviewHandler serves the confirmation workflow endpoints.
type ReviewHandler struct {
	orch   *tasks.Orchestrator
	logger *log.Logger
}

func NewReviewHandler(orch *tasks.Orchestrator, logger *log.Logger) *ReviewHandler {
	return &ReviewHandler{orch: orch, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *ReviewHandler) Routes() []string {
	return []string{
		"/api/tasks/{id}/records",
		"/api/tasks/{id}/records/confirm",
		"/api/tasks/{id}/records/{recordId}",
		"/api/tasks/{id}/records/{recordId}/confirm",
		"/api/tasks/{id}/generate",
	}
}

func (h *ReviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")
	recordID := r.PathValue("recordId")

	switch {
	case strings.HasSuffix(r.URL.Path, "/generate") && r.Method == http.MethodPost:
		h.generate(w, r, taskID)
	case strings.HasSuffix(r.URL.Path, "/confirm") && r.Method == http.MethodPost:
		if recordID != "" {
			h.confirmOne(w, r, taskID, recordID)
		} else {
			h.confirmMany(w, r, taskID)
		}
	case recordID != "" && r.Method == http.MethodPut:
		h.edit(w, r, taskID, recordID)
	case recordID == "" && r.Method == http.MethodGet:
		h.list(w, r, taskID)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Kind: "method_not_allowed", Error: "method not allowed"})
	}
}

func (h *ReviewHandler) list(w http.ResponseWriter, r *http.Request, taskID string) {
	opts := tasks.ListRecordsOpts{
		Status:  r.URL.Query().Get("status"),
		Search:  r.URL.Query().Get("search"),
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "perPage", 50),
	}

	records, total, err := h.orch.ListRecords(taskID, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, newRecordView(rec))
	}
	writeJSON(w, http.StatusOK, pageView{Items: views, Total: total, Page: opts.Page})
}

func (h *ReviewHandler) edit(w http.ResponseWriter, r *http.Request, taskID, recordID string) {
	var body struct {
		TargetText string `json:"targetText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	record, err := h.orch.EditRecord(taskID, recordID, body.TargetText)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecordView(record))
}

func (h *ReviewHandler) confirmOne(w http.ResponseWriter, r *http.Request, taskID, recordID string) {
	record, err := h.orch.ConfirmRecord(taskID, recordID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecordView(record))
}

// confirmMany confirms an explicit id set, or every pending record when the
// body asks for all.
func (h *ReviewHandler) confirmMany(w http.ResponseWriter, r *http.Request, taskID string) {
	var body struct {
		IDs []string `json:"ids"`
		All bool     `json:"all"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	if body.All {
		confirmed, err := h.orch.ConfirmAll(taskID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"confirmed": confirmed})
		return
	}

	if len(body.IDs) == 0 {
		writeError(w, fmt.Errorf("%w: ids or all is required", shared.ErrInvalidInput))
		return
	}
	confirmed, err := h.orch.ConfirmRecords(taskID, body.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"confirmed": confirmed})
}

func (h *ReviewHandler) generate(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := h.orch.GenerateFile(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("assembly submitted", "task", task.ID())
	writeJSON(w, http.StatusOK, newTaskView(task))
}
