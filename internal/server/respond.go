package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/shared"
)

type errorBody struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates service errors into the JSON error body and the
// matching HTTP status code.
func writeError(w http.ResponseWriter, err error) {
	kind := "internal"
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, shared.ErrTaskNotFound):
		kind, status = "task_not_found", http.StatusNotFound
	case errors.Is(err, shared.ErrRecordNotFound):
		kind, status = "record_not_found", http.StatusNotFound
	case errors.Is(err, shared.ErrContentNotFound):
		kind, status = "content_not_found", http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidState):
		kind, status = "invalid_state", http.StatusConflict
	case errors.Is(err, shared.ErrPendingRecords):
		kind, status = "pending_records", http.StatusConflict
	case errors.Is(err, shared.ErrTaskLinked):
		kind, status = "task_linked", http.StatusConflict
	case errors.Is(err, shared.ErrWorkerUnavailable):
		kind, status = "worker_unavailable", http.StatusBadGateway
	case errors.Is(err, shared.ErrStorageFailure):
		kind, status = "storage_failure", http.StatusBadGateway
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument):
		kind, status = "invalid_input", http.StatusBadRequest
	}

	writeJSON(w, status, errorBody{Kind: kind, Error: err.Error()})
}

type taskView struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	Status       string `json:"status"`
	Translated   int    `json:"translated"`
	Total        int    `json:"total"`
	TargetLang   string `json:"targetLang"`
	ReviewMode   string `json:"reviewMode"`
	DownloadURL  string `json:"downloadUrl,omitempty"`
	SyncFailures int    `json:"syncFailures"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func newTaskView(t *models.Task) taskView {
	return taskView{
		ID:           t.ID(),
		Filename:     t.Filename(),
		Status:       string(t.Status()),
		Translated:   t.Progress().Translated,
		Total:        t.Progress().Total,
		TargetLang:   t.TargetLang(),
		ReviewMode:   string(t.ReviewMode()),
		DownloadURL:  t.DownloadURL(),
		SyncFailures: t.SyncFailures(),
		ErrorMessage: t.ErrorMessage(),
		CreatedAt:    t.CreatedAt().Format(time.RFC3339),
		UpdatedAt:    t.UpdatedAt().Format(time.RFC3339),
	}
}

type recordView struct {
	ID         string `json:"id"`
	TaskID     string `json:"taskId"`
	RecordID   string `json:"recordId"`
	RecordType string `json:"recordType"`
	SourceText string `json:"sourceText"`
	TargetText string `json:"targetText"`
	Status     string `json:"status"`
	UpdatedAt  string `json:"updatedAt"`
}

func newRecordView(r *models.ConfirmationRecord) recordView {
	return recordView{
		ID:         r.ID(),
		TaskID:     r.TaskID(),
		RecordID:   r.RecordID(),
		RecordType: r.RecordType(),
		SourceText: r.SourceText(),
		TargetText: r.TargetText(),
		Status:     string(r.Status()),
		UpdatedAt:  r.UpdatedAt().Format(time.RFC3339),
	}
}

type pageView struct {
	Items any `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
}
