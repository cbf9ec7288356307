package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/repositories"
	"github.com/modlingo/modlingo/internal/services"
	"github.com/modlingo/modlingo/internal/shared"
	"golang.org/x/time/rate"
)

// dictionaryLimit caps how many cache entries are attached to a translate
// submission as dictionary hints.
const dictionaryLimit = 500

// Orchestrator drives translation tasks end to end: creation, worker
// submission, status reconciliation, confirmation review, artifact packaging
// and expiry. All counters live on the persisted task row so a restart loses
// nothing.
type Orchestrator struct {
	taskRepo    *repositories.TaskRepository
	recordRepo  *repositories.ConfirmationRepository
	cacheRepo   *repositories.CacheRepository
	contentRepo *repositories.ContentRepository
	worker      services.TranslationWorker
	storage     services.ArtifactStorage
	logger      *log.Logger
	limiter     *rate.Limiter

	workDir          string
	callbackURL      string
	failureThreshold int
	sweepInterval    time.Duration
	retention        time.Duration
}

// OrchestratorOpts contains the dependencies and tuning for an Orchestrator.
type OrchestratorOpts struct {
	TaskRepo    *repositories.TaskRepository
	RecordRepo  *repositories.ConfirmationRepository
	CacheRepo   *repositories.CacheRepository
	ContentRepo *repositories.ContentRepository
	Worker      services.TranslationWorker
	Storage     services.ArtifactStorage
	Logger      *log.Logger

	WorkDir          string        // root directory for task working files
	CallbackURL      string        // absolute URL the worker posts reports to
	FailureThreshold int           // consecutive poll failures before a task is failed
	SweepInterval    time.Duration // delay between sweep passes
	PollRate         float64       // worker status polls per second during a sweep
	Retention        time.Duration // age after which orphaned archives are removed
}

// NewOrchestrator creates an Orchestrator with the provided dependencies.
func NewOrchestrator(opts OrchestratorOpts) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "workspace"
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 10
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 30 * time.Second
	}
	if opts.PollRate <= 0 {
		opts.PollRate = 5.0
	}

	return &Orchestrator{
		taskRepo:         opts.TaskRepo,
		recordRepo:       opts.RecordRepo,
		cacheRepo:        opts.CacheRepo,
		contentRepo:      opts.ContentRepo,
		worker:           opts.Worker,
		storage:          opts.Storage,
		logger:           opts.Logger,
		limiter:          rate.NewLimiter(rate.Limit(opts.PollRate), 1),
		workDir:          opts.WorkDir,
		callbackURL:      opts.CallbackURL,
		failureThreshold: opts.FailureThreshold,
		sweepInterval:    opts.SweepInterval,
		retention:        opts.Retention,
	}
}

// CreateTaskOpts describes an uploaded mod file to translate.
type CreateTaskOpts struct {
	Filename       string
	TargetLang     string
	ReviewMode     models.ReviewMode
	PromptTemplate string
	SkipCache      bool
	Source         io.Reader
}

// CreateTask persists the uploaded file, creates the task row and submits it
// to the worker. A failed submission leaves the task in waiting; the sweep
// keeps polling and eventually escalates if the worker never learns of it.
func (o *Orchestrator) CreateTask(ctx context.Context, opts CreateTaskOpts) (*models.Task, error) {
	if opts.Filename == "" || opts.TargetLang == "" {
		return nil, fmt.Errorf("%w: filename and target language are required", shared.ErrInvalidInput)
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: no file content", shared.ErrInvalidInput)
	}

	task := models.NewTask(0, filepath.Base(opts.Filename), opts.TargetLang, opts.ReviewMode)
	task.SetPromptTemplate(opts.PromptTemplate)

	if err := o.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	sourcePath, err := o.storeUpload(task, opts.Source)
	if err != nil {
		return nil, err
	}

	task.SetSourcePath(sourcePath)
	if err := o.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to record source path: %w", err)
	}

	dictionary, err := o.dictionaryEntries(task.TargetLang())
	if err != nil {
		o.logger.Warn("failed to load dictionary entries", "task", task.ID(), "err", err)
	}

	sub := services.TranslateSubmission{
		TaskID:            task.ID(),
		FilePath:          sourcePath,
		TargetLang:        task.TargetLang(),
		CustomPrompt:      task.PromptTemplate(),
		DictionaryEntries: dictionary,
		CallbackURL:       o.callbackURL,
		SkipCache:         opts.SkipCache,
	}

	if err := o.worker.SubmitTranslate(ctx, sub); err != nil {
		// The sweep keeps polling; a permanently lost submission is
		// escalated once the failure threshold is reached.
		o.logger.Error("translate submission failed", "task", task.ID(), "err", err)
	}

	return task, nil
}

// GetTask retrieves a task by id.
func (o *Orchestrator) GetTask(id string) (*models.Task, error) {
	return o.taskRepo.Get(id)
}

// ListTasksOpts tunes task listing.
type ListTasksOpts struct {
	Status  string
	Page    int
	PerPage int
}

// ListTasks returns a page of tasks, newest first, plus the total count for
// the filter.
func (o *Orchestrator) ListTasks(opts ListTasksOpts) ([]*models.Task, int, error) {
	if opts.PerPage <= 0 {
		opts.PerPage = 20
	}
	if opts.Page < 1 {
		opts.Page = 1
	}

	criteria := map[string]any{
		"status": opts.Status,
		"limit":  opts.PerPage,
		"offset": (opts.Page - 1) * opts.PerPage,
	}

	list, err := o.taskRepo.List(criteria)
	if err != nil {
		return nil, 0, err
	}

	total, err := o.taskRepo.Count(map[string]any{"status": opts.Status})
	if err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

// storeUpload writes the uploaded content into the task's working directory.
func (o *Orchestrator) storeUpload(task *models.Task, src io.Reader) (string, error) {
	dir := filepath.Join(o.workDir, "tasks", task.ID())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create task directory: %w", err)
	}

	path := filepath.Join(dir, task.Filename())
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create source file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write source file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// dictionaryEntries pulls known translations for a language from the cache
// so the worker can reuse them.
func (o *Orchestrator) dictionaryEntries(targetLang string) ([]services.DictionaryEntry, error) {
	cached, err := o.cacheRepo.ListByLang(targetLang, dictionaryLimit)
	if err != nil {
		return nil, err
	}

	entries := make([]services.DictionaryEntry, 0, len(cached))
	for _, entry := range cached {
		entries = append(entries, services.DictionaryEntry{
			SourceText: entry.SourceText(),
			TargetText: entry.TargetText(),
		})
	}
	return entries, nil
}
