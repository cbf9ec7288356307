package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/shared"
	"github.com/modlingo/modlingo/internal/tasks"
)

// uploadMemoryLimit bounds how much of a multipart upload is buffered in
// memory before spilling to disk.
const uploadMemoryLimit = 32 << 20

// TaskHandler serves the task lifecycle endpoints.
// Implements the Handler interface for registration with a Router.
type TaskHandler struct {
	orch   *tasks.Orchestrator
	logger *log.Logger
}

func NewTaskHandler(orch *tasks.Orchestrator, logger *log.Logger) *TaskHandler {
	return &TaskHandler{orch: orch, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *TaskHandler) Routes() []string {
	return []string{
		"/api/tasks",
		"/api/tasks/{id}",
		"/api/tasks/{id}/expire",
		"/api/tasks/expire",
	}
}

func (h *TaskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/tasks" && r.Method == http.MethodGet:
		h.list(w, r)
	case r.URL.Path == "/api/tasks" && r.Method == http.MethodPost:
		h.create(w, r)
	case r.URL.Path == "/api/tasks/expire" && r.Method == http.MethodPost:
		h.expireBatch(w, r)
	case strings.HasSuffix(r.URL.Path, "/expire") && r.Method == http.MethodPost:
		h.expire(w, r)
	case r.PathValue("id") != "" && r.Method == http.MethodGet:
		h.get(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Kind: "method_not_allowed", Error: "method not allowed"})
	}
}

func (h *TaskHandler) get(w http.ResponseWriter, r *http.Request) {
	task, err := h.orch.GetTask(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskView(task))
}

func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	opts := tasks.ListTasksOpts{
		Status:  r.URL.Query().Get("status"),
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "perPage", 20),
	}

	list, total, err := h.orch.ListTasks(opts)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]taskView, 0, len(list))
	for _, t := range list {
		views = append(views, newTaskView(t))
	}
	writeJSON(w, http.StatusOK, pageView{Items: views, Total: total, Page: opts.Page})
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: file part is required", shared.ErrInvalidInput))
		return
	}
	defer file.Close()

	mode := models.ReviewDirect
	if r.FormValue("reviewMode") != "" {
		mode = models.ReviewMode(r.FormValue("reviewMode"))
	}

	task, err := h.orch.CreateTask(r.Context(), tasks.CreateTaskOpts{
		Filename:       header.Filename,
		TargetLang:     r.FormValue("targetLang"),
		ReviewMode:     mode,
		PromptTemplate: r.FormValue("promptTemplate"),
		SkipCache:      r.FormValue("skipCache") == "true",
		Source:         file,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("task created", "task", task.ID(), "filename", task.Filename())
	writeJSON(w, http.StatusCreated, newTaskView(task))
}

func (h *TaskHandler) expire(w http.ResponseWriter, r *http.Request) {
	task, err := h.orch.Expire(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskView(task))
}

func (h *TaskHandler) expireBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if len(body.IDs) == 0 {
		writeError(w, fmt.Errorf("%w: ids are required", shared.ErrInvalidInput))
		return
	}

	results := h.orch.ExpireBatch(r.Context(), body.IDs)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// queryInt reads an integer query parameter, falling back to def on absence
// or garbage.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
