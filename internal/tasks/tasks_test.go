package tasks

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/repositories"
	"github.com/modlingo/modlingo/internal/services"
	"github.com/modlingo/modlingo/internal/shared"
	tu "github.com/modlingo/modlingo/internal/testing"
)

// testFailureThreshold keeps sweep escalation tests short.
const testFailureThreshold = 3

type testHarness struct {
	orch    *Orchestrator
	worker  *tu.MockWorker
	storage *tu.MockStorage
	db      *sql.DB
}

func setupOrchestrator(t *testing.T) *testHarness {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	worker := tu.NewMockWorker()
	storage := tu.NewMockStorage()
	logger := shared.NewLogger(nil)
	logger.SetLevel(100) // silence test output

	orch := NewOrchestrator(OrchestratorOpts{
		TaskRepo:         repositories.NewTaskRepository(db),
		RecordRepo:       repositories.NewConfirmationRepository(db),
		CacheRepo:        repositories.NewCacheRepository(db),
		ContentRepo:      repositories.NewContentRepository(db),
		Worker:           worker,
		Storage:          storage,
		Logger:           logger,
		WorkDir:          t.TempDir(),
		CallbackURL:      "http://localhost:8080/api/callback",
		FailureThreshold: testFailureThreshold,
		PollRate:         1000,
	})

	return &testHarness{orch: orch, worker: worker, storage: storage, db: db}
}

func (h *testHarness) createTask(t *testing.T, mode models.ReviewMode) *models.Task {
	t.Helper()

	task, err := h.orch.CreateTask(context.Background(), CreateTaskOpts{
		Filename:   "weapons.mod",
		TargetLang: "zh",
		ReviewMode: mode,
		Source:     strings.NewReader("item.sword.name=Fire Sword\n"),
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return task
}

// setStatus moves a task to the given status directly through the repository.
func (h *testHarness) setStatus(t *testing.T, task *models.Task, status models.TaskStatus) {
	t.Helper()

	task.SetStatus(status)
	if err := h.orch.taskRepo.Update(task); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}
}

// writeOutput drops a fake worker output file next to the task's source.
func (h *testHarness) writeOutput(t *testing.T, task *models.Task, name string) string {
	t.Helper()

	path := filepath.Join(filepath.Dir(task.SourcePath()), name)
	tu.MustWriteFile(t, path, "item.sword.name=火焰剑\n")
	return path
}

func TestCreateTask(t *testing.T) {
	t.Run("StoresUploadAndSubmits", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewDirect)

		if task.Status() != models.StatusWaiting {
			t.Errorf("expected waiting, got %s", task.Status())
		}
		if !filepath.IsAbs(task.SourcePath()) {
			t.Errorf("source path should be absolute: %s", task.SourcePath())
		}
		tu.AssertFileExists(t, task.SourcePath())
		if got := tu.MustReadFile(t, task.SourcePath()); !strings.Contains(got, "Fire Sword") {
			t.Error("uploaded content not persisted")
		}

		if len(h.worker.TranslateCalls) != 1 {
			t.Fatalf("expected 1 translate submission, got %d", len(h.worker.TranslateCalls))
		}
		sub := h.worker.TranslateCalls[0]
		if sub.TaskID != task.ID() {
			t.Errorf("submission names wrong task: %s", sub.TaskID)
		}
		if sub.FilePath != task.SourcePath() {
			t.Errorf("submission carries wrong path: %s", sub.FilePath)
		}
		if sub.CallbackURL != "http://localhost:8080/api/callback" {
			t.Errorf("unexpected callback url: %s", sub.CallbackURL)
		}
	})

	t.Run("SubmissionFailureLeavesWaiting", func(t *testing.T) {
		h := setupOrchestrator(t)
		h.worker.TranslateErr = shared.ErrWorkerUnavailable

		task := h.createTask(t, models.ReviewDirect)

		retrieved, err := h.orch.GetTask(task.ID())
		if err != nil {
			t.Fatalf("failed to get task: %v", err)
		}
		if retrieved.Status() != models.StatusWaiting {
			t.Errorf("expected waiting after failed submission, got %s", retrieved.Status())
		}
	})

	t.Run("SeedsDictionaryFromCache", func(t *testing.T) {
		h := setupOrchestrator(t)
		entry := models.NewCacheEntry("item", "name", "Fire Sword", "zh", "火焰剑", "")
		if err := h.orch.cacheRepo.Upsert(entry); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}

		h.createTask(t, models.ReviewDirect)

		sub := h.worker.TranslateCalls[0]
		if len(sub.DictionaryEntries) != 1 {
			t.Fatalf("expected 1 dictionary entry, got %d", len(sub.DictionaryEntries))
		}
		if sub.DictionaryEntries[0].TargetText != "火焰剑" {
			t.Errorf("unexpected dictionary pair: %+v", sub.DictionaryEntries[0])
		}
	})

	t.Run("RejectsMissingFields", func(t *testing.T) {
		h := setupOrchestrator(t)
		_, err := h.orch.CreateTask(context.Background(), CreateTaskOpts{Filename: "weapons.mod"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("AdoptsProgressAndResetsFailures", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewDirect)
		task.SetSyncFailures(2)
		if err := h.orch.taskRepo.Update(task); err != nil {
			t.Fatalf("failed to update task: %v", err)
		}

		report := &services.WorkerReport{
			TaskID:   task.ID(),
			Status:   "translating",
			Progress: services.WorkerProgress{Translated: 3, Total: 10},
		}
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("callback failed: %v", err)
		}

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusTranslating {
			t.Errorf("expected translating, got %s", retrieved.Status())
		}
		if p := retrieved.Progress(); p.Translated != 3 || p.Total != 10 {
			t.Errorf("unexpected progress: %+v", p)
		}
		if retrieved.SyncFailures() != 0 {
			t.Errorf("sync failures should reset on success, got %d", retrieved.SyncFailures())
		}
	})

	t.Run("TerminalStatesIgnoreReports", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewDirect)
		h.setStatus(t, task, models.StatusFailed)

		report := &services.WorkerReport{TaskID: task.ID(), Status: "translating"}
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("callback failed: %v", err)
		}

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusFailed {
			t.Errorf("terminal status must not regress, got %s", retrieved.Status())
		}
	})

	t.Run("PendingConfirmationIsFrozen", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewConfirmation)
		h.setStatus(t, task, models.StatusPendingConfirmation)

		report := &services.WorkerReport{TaskID: task.ID(), Status: "completed"}
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("callback failed: %v", err)
		}

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusPendingConfirmation {
			t.Errorf("review must not be bypassed by reports, got %s", retrieved.Status())
		}
	})

	t.Run("RejectsUnknownStatus", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewDirect)

		report := &services.WorkerReport{TaskID: task.ID(), Status: "exploded"}
		if err := h.orch.HandleCallback(ctx, report); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("UnknownTask", func(t *testing.T) {
		h := setupOrchestrator(t)
		report := &services.WorkerReport{TaskID: "nope", Status: "translating"}
		if err := h.orch.HandleCallback(ctx, report); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("ConfirmationModeInterceptsCompletion", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewConfirmation)
		h.setStatus(t, task, models.StatusTranslating)

		report := &services.WorkerReport{
			TaskID:   task.ID(),
			Status:   "completed",
			Progress: services.WorkerProgress{Translated: 10, Total: 10},
			Items: []services.WorkerItem{
				{RecordID: "rec-1", RecordType: "item", SourceText: "Fire Sword", TargetText: "火焰剑"},
				{RecordID: "rec-2", RecordType: "item", SourceText: "Iron Shield", TargetText: "铁盾"},
			},
		}
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("callback failed: %v", err)
		}

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusPendingConfirmation {
			t.Errorf("expected pending_confirmation, got %s", retrieved.Status())
		}
		if retrieved.DownloadURL() != "" {
			t.Error("no artifact may exist before review finishes")
		}
		if len(h.storage.Uploads) != 0 {
			t.Errorf("nothing should be uploaded, got %d uploads", len(h.storage.Uploads))
		}

		records, total, err := h.orch.ListRecords(task.ID(), ListRecordsOpts{})
		if err != nil {
			t.Fatalf("failed to list records: %v", err)
		}
		if total != 2 || len(records) != 2 {
			t.Errorf("expected 2 confirmation records, got %d", total)
		}
	})

	t.Run("DuplicateItemDeliveryIsDeduplicated", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewConfirmation)
		h.setStatus(t, task, models.StatusTranslating)

		report := &services.WorkerReport{
			TaskID:   task.ID(),
			Status:   "translating",
			Progress: services.WorkerProgress{Translated: 1, Total: 2},
			Items: []services.WorkerItem{
				{RecordID: "rec-1", RecordType: "item", SourceText: "Fire Sword", TargetText: "火焰剑"},
			},
		}
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("first delivery failed: %v", err)
		}
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("second delivery failed: %v", err)
		}

		_, total, err := h.orch.ListRecords(task.ID(), ListRecordsOpts{})
		if err != nil {
			t.Fatalf("failed to list records: %v", err)
		}
		if total != 1 {
			t.Errorf("expected 1 record after duplicate delivery, got %d", total)
		}
	})

	t.Run("CompletionWithMissingOutputFails", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewDirect)
		h.setStatus(t, task, models.StatusTranslating)

		report := &services.WorkerReport{
			TaskID:         task.ID(),
			Status:         "completed",
			Progress:       services.WorkerProgress{Translated: 10, Total: 10},
			OutputFilePath: filepath.Join(t.TempDir(), "does-not-exist.mod"),
		}
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("callback failed: %v", err)
		}

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusFailed {
			t.Errorf("expected failed, got %s", retrieved.Status())
		}
		if retrieved.ErrorMessage() != msgOutputMissing {
			t.Errorf("expected fixed missing-output message, got %q", retrieved.ErrorMessage())
		}
		if len(h.storage.Uploads) != 0 {
			t.Error("nothing should be uploaded for a rejected completion")
		}
	})

	t.Run("CompletionPackagesUploadsAndCleansUp", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewDirect)
		h.setStatus(t, task, models.StatusTranslating)

		outputPath := h.writeOutput(t, task, "weapons.translated.mod")
		backupPath := h.writeOutput(t, task, "weapons.original.mod")

		report := &services.WorkerReport{
			TaskID:             task.ID(),
			Status:             "completed",
			Progress:           services.WorkerProgress{Translated: 10, Total: 10},
			OutputFilePath:     outputPath,
			OriginalBackupPath: backupPath,
		}
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("callback failed: %v", err)
		}

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusCompleted {
			t.Fatalf("expected completed, got %s", retrieved.Status())
		}

		wantKey := "tasks/" + task.ID() + "/weapons.zip"
		if retrieved.DownloadURL() != "mock://"+wantKey {
			t.Errorf("unexpected download url: %s", retrieved.DownloadURL())
		}
		if len(h.storage.Uploads) != 1 || h.storage.Uploads[0] != wantKey {
			t.Errorf("unexpected uploads: %v", h.storage.Uploads)
		}

		tu.AssertFileGone(t, task.SourcePath())
		tu.AssertFileGone(t, outputPath)
		tu.AssertFileGone(t, backupPath)
	})

	t.Run("UploadFailureHoldsStatusForRetry", func(t *testing.T) {
		h := setupOrchestrator(t)
		h.storage.UploadErr = errors.New("bucket offline")

		task := h.createTask(t, models.ReviewDirect)
		h.setStatus(t, task, models.StatusTranslating)
		outputPath := h.writeOutput(t, task, "weapons.translated.mod")

		report := &services.WorkerReport{
			TaskID:         task.ID(),
			Status:         "completed",
			Progress:       services.WorkerProgress{Translated: 10, Total: 10},
			OutputFilePath: outputPath,
		}
		if err := h.orch.HandleCallback(ctx, report); err == nil {
			t.Fatal("expected an error from the failed upload")
		}

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusTranslating {
			t.Errorf("status must be held for retry, got %s", retrieved.Status())
		}
		if retrieved.DownloadURL() != "" {
			t.Error("no download url may be recorded on failure")
		}
		tu.AssertFileExists(t, outputPath)

		// Retry after the storage recovers, as the sweep would.
		h.storage.UploadErr = nil
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		retrieved, _ = h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusCompleted {
			t.Errorf("expected completed after retry, got %s", retrieved.Status())
		}
	})

	t.Run("FailureReportCleansLocalFiles", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewDirect)
		h.setStatus(t, task, models.StatusTranslating)

		report := &services.WorkerReport{
			TaskID: task.ID(),
			Status: "failed",
			Error:  "model refused the file",
		}
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("callback failed: %v", err)
		}

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusFailed {
			t.Errorf("expected failed, got %s", retrieved.Status())
		}
		if retrieved.ErrorMessage() != "model refused the file" {
			t.Errorf("worker error should be recorded, got %q", retrieved.ErrorMessage())
		}
		tu.AssertFileGone(t, task.SourcePath())
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("EscalatesAtFailureThreshold", func(t *testing.T) {
		h := setupOrchestrator(t)
		h.worker.StatusErr = shared.ErrWorkerUnavailable

		task := h.createTask(t, models.ReviewDirect)
		h.setStatus(t, task, models.StatusTranslating)

		for i := 0; i < testFailureThreshold-1; i++ {
			h.orch.SweepOnce(ctx)
		}

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusTranslating {
			t.Fatalf("task must survive below the threshold, got %s", retrieved.Status())
		}
		if retrieved.SyncFailures() != testFailureThreshold-1 {
			t.Errorf("expected %d recorded failures, got %d", testFailureThreshold-1, retrieved.SyncFailures())
		}

		h.orch.SweepOnce(ctx)

		retrieved, _ = h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusFailed {
			t.Fatalf("expected failed at threshold, got %s", retrieved.Status())
		}
		if !strings.Contains(retrieved.ErrorMessage(), "3 consecutive") {
			t.Errorf("failure message must name the threshold, got %q", retrieved.ErrorMessage())
		}
		tu.AssertFileGone(t, task.SourcePath())
	})

	t.Run("SuccessfulPollResetsCounter", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewDirect)
		h.setStatus(t, task, models.StatusTranslating)
		task.SetSyncFailures(testFailureThreshold - 1)
		if err := h.orch.taskRepo.Update(task); err != nil {
			t.Fatalf("failed to update task: %v", err)
		}

		h.worker.SetReport(task.ID(), &services.WorkerReport{
			TaskID:   task.ID(),
			Status:   "translating",
			Progress: services.WorkerProgress{Translated: 5, Total: 10},
		})

		h.orch.SweepOnce(ctx)

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.SyncFailures() != 0 {
			t.Errorf("counter must reset on a successful poll, got %d", retrieved.SyncFailures())
		}
		if retrieved.Progress().Translated != 5 {
			t.Errorf("poll result should reconcile progress, got %+v", retrieved.Progress())
		}
	})

	t.Run("SkipsParkedAndTerminalTasks", func(t *testing.T) {
		h := setupOrchestrator(t)
		h.worker.StatusErr = shared.ErrWorkerUnavailable

		parked := h.createTask(t, models.ReviewConfirmation)
		h.setStatus(t, parked, models.StatusPendingConfirmation)

		done := h.createTask(t, models.ReviewDirect)
		h.setStatus(t, done, models.StatusCompleted)

		h.orch.SweepOnce(ctx)

		if len(h.worker.StatusCalls) != 0 {
			t.Errorf("no polls expected for parked or terminal tasks, got %d", len(h.worker.StatusCalls))
		}
	})
}

func TestConfirmationWorkflow(t *testing.T) {
	ctx := context.Background()

	// park puts a confirmation-mode task at pending_confirmation with two
	// reviewable records, mirroring a finished translation phase.
	park := func(t *testing.T, h *testHarness) *models.Task {
		t.Helper()

		task := h.createTask(t, models.ReviewConfirmation)
		h.setStatus(t, task, models.StatusTranslating)

		report := &services.WorkerReport{
			TaskID:   task.ID(),
			Status:   "completed",
			Progress: services.WorkerProgress{Translated: 2, Total: 2},
			Items: []services.WorkerItem{
				{RecordID: "rec-1", RecordType: "item", SourceText: "Fire Sword", TargetText: "火焰剑"},
				{RecordID: "rec-2", RecordType: "item", SourceText: "Iron Shield", TargetText: "铁盾"},
			},
		}
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("failed to park task: %v", err)
		}
		return task
	}

	t.Run("EditKeepsRecordPending", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := park(t, h)

		records, _, _ := h.orch.ListRecords(task.ID(), ListRecordsOpts{})
		edited, err := h.orch.EditRecord(task.ID(), records[0].ID(), "烈焰之剑")
		if err != nil {
			t.Fatalf("failed to edit record: %v", err)
		}
		if edited.TargetText() != "烈焰之剑" {
			t.Errorf("unexpected target text: %s", edited.TargetText())
		}
		if edited.Status() != models.RecordPending {
			t.Error("editing must not confirm the record")
		}
	})

	t.Run("ConfirmRecordIsIdempotent", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := park(t, h)

		records, _, _ := h.orch.ListRecords(task.ID(), ListRecordsOpts{})
		id := records[0].ID()

		first, err := h.orch.ConfirmRecord(task.ID(), id)
		if err != nil {
			t.Fatalf("failed to confirm record: %v", err)
		}
		second, err := h.orch.ConfirmRecord(task.ID(), id)
		if err != nil {
			t.Fatalf("repeat confirm must not fail: %v", err)
		}
		if first.Status() != models.RecordConfirmed || second.Status() != models.RecordConfirmed {
			t.Error("record should stay confirmed")
		}
	})

	t.Run("ConfirmRejectsForeignRecord", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := park(t, h)
		other := h.createTask(t, models.ReviewConfirmation)

		records, _, _ := h.orch.ListRecords(task.ID(), ListRecordsOpts{})
		if _, err := h.orch.ConfirmRecord(other.ID(), records[0].ID()); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("GenerateRefusedWhilePending", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := park(t, h)

		_, err := h.orch.GenerateFile(ctx, task.ID())
		if !errors.Is(err, shared.ErrPendingRecords) {
			t.Fatalf("expected ErrPendingRecords, got %v", err)
		}

		if len(h.worker.AssemblyCalls) != 0 {
			t.Error("no assembly may be submitted while records are pending")
		}
		if _, err := h.orch.cacheRepo.Lookup("item", "item", "Fire Sword", "zh"); !errors.Is(err, shared.ErrCacheMiss) {
			t.Error("no cache writes may happen while records are pending")
		}
		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusPendingConfirmation {
			t.Errorf("status must be unchanged, got %s", retrieved.Status())
		}
	})

	t.Run("GenerateRefusedOutsideReview", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewConfirmation)

		if _, err := h.orch.GenerateFile(ctx, task.ID()); !errors.Is(err, shared.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("GenerateCachesAndSubmitsAssembly", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := park(t, h)

		if _, err := h.orch.ConfirmAll(task.ID()); err != nil {
			t.Fatalf("failed to confirm all: %v", err)
		}

		updated, err := h.orch.GenerateFile(ctx, task.ID())
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if updated.Status() != models.StatusAssembling {
			t.Errorf("expected assembling, got %s", updated.Status())
		}

		if len(h.worker.AssemblyCalls) != 1 {
			t.Fatalf("expected 1 assembly submission, got %d", len(h.worker.AssemblyCalls))
		}
		sub := h.worker.AssemblyCalls[0]
		if sub.TaskID != task.ID() || len(sub.Items) != 2 {
			t.Errorf("unexpected submission: %+v", sub)
		}
		if sub.FilePath != task.SourcePath() {
			t.Errorf("assembly must name the source path, got %s", sub.FilePath)
		}

		entry, err := h.orch.cacheRepo.Lookup("item", "item", "Fire Sword", "zh")
		if err != nil {
			t.Fatalf("confirmed pair should be cached: %v", err)
		}
		if entry.TargetText() != "火焰剑" {
			t.Errorf("unexpected cached text: %s", entry.TargetText())
		}
	})

	t.Run("AssemblyCompletionProducesArtifact", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := park(t, h)

		if _, err := h.orch.ConfirmAll(task.ID()); err != nil {
			t.Fatalf("failed to confirm all: %v", err)
		}
		if _, err := h.orch.GenerateFile(ctx, task.ID()); err != nil {
			t.Fatalf("generate failed: %v", err)
		}

		outputPath := h.writeOutput(t, task, "weapons.translated.mod")
		report := &services.WorkerReport{
			TaskID:         task.ID(),
			Status:         "completed",
			Progress:       services.WorkerProgress{Translated: 2, Total: 2},
			OutputFilePath: outputPath,
		}
		if err := h.orch.HandleCallback(ctx, report); err != nil {
			t.Fatalf("assembly callback failed: %v", err)
		}

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusCompleted {
			t.Errorf("expected completed after assembly, got %s", retrieved.Status())
		}
		if len(h.storage.Uploads) != 1 {
			t.Errorf("expected the artifact upload, got %d", len(h.storage.Uploads))
		}
	})
}

func TestExpire(t *testing.T) {
	ctx := context.Background()

	t.Run("LinkedContentRefuses", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewDirect)
		h.setStatus(t, task, models.StatusCompleted)

		content := models.NewContent(task.ID(), "workshop upload")
		if err := h.orch.contentRepo.Create(content); err != nil {
			t.Fatalf("failed to create content: %v", err)
		}

		if _, err := h.orch.Expire(ctx, task.ID()); !errors.Is(err, shared.ErrTaskLinked) {
			t.Fatalf("expected ErrTaskLinked, got %v", err)
		}

		retrieved, _ := h.orch.GetTask(task.ID())
		if retrieved.Status() != models.StatusCompleted {
			t.Errorf("status must be unchanged on refusal, got %s", retrieved.Status())
		}
	})

	t.Run("ExpiresAndDeletesArtifact", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewDirect)
		task.SetStatus(models.StatusCompleted)
		task.SetDownloadURL("mock://tasks/" + task.ID() + "/weapons.zip")
		if err := h.orch.taskRepo.Update(task); err != nil {
			t.Fatalf("failed to update task: %v", err)
		}

		expired, err := h.orch.Expire(ctx, task.ID())
		if err != nil {
			t.Fatalf("expire failed: %v", err)
		}

		if expired.Status() != models.StatusExpired {
			t.Errorf("expected expired, got %s", expired.Status())
		}
		if expired.DownloadURL() != "" {
			t.Error("download url must be cleared")
		}
		wantKey := "tasks/" + task.ID() + "/weapons.zip"
		if len(h.storage.Deletes) != 1 || h.storage.Deletes[0] != wantKey {
			t.Errorf("unexpected storage deletes: %v", h.storage.Deletes)
		}
		tu.AssertFileGone(t, task.SourcePath())
	})

	t.Run("Idempotent", func(t *testing.T) {
		h := setupOrchestrator(t)
		task := h.createTask(t, models.ReviewDirect)
		h.setStatus(t, task, models.StatusFailed)

		if _, err := h.orch.Expire(ctx, task.ID()); err != nil {
			t.Fatalf("first expire failed: %v", err)
		}
		if _, err := h.orch.Expire(ctx, task.ID()); err != nil {
			t.Fatalf("repeat expire must not fail: %v", err)
		}
	})

	t.Run("ExpireOlderThanSkipsActive", func(t *testing.T) {
		h := setupOrchestrator(t)
		active := h.createTask(t, models.ReviewDirect)
		done := h.createTask(t, models.ReviewDirect)
		h.setStatus(t, done, models.StatusCompleted)

		expired, err := h.orch.ExpireOlderThan(ctx, 0)
		if err != nil {
			t.Fatalf("age-based expiry failed: %v", err)
		}
		if expired != 1 {
			t.Errorf("expected 1 task expired, got %d", expired)
		}

		retrieved, _ := h.orch.GetTask(active.ID())
		if retrieved.Status() != models.StatusWaiting {
			t.Errorf("active task must not be expired, got %s", retrieved.Status())
		}
	})
}

func TestCacheEndpointsLogic(t *testing.T) {
	t.Run("SaveThenQuery", func(t *testing.T) {
		h := setupOrchestrator(t)

		saved, err := h.orch.CacheSave("task-1", "zh", []CacheSaveItem{
			{RecordType: "item", SubrecordType: "name", SourceText: "Fire Sword", TargetText: "火焰剑"},
			{RecordType: "item", SubrecordType: "name", SourceText: "Iron Shield", TargetText: "铁盾"},
		})
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if saved != 2 {
			t.Errorf("expected 2 saved, got %d", saved)
		}

		results, err := h.orch.CacheQuery([]CacheQueryItem{
			{RecordType: "item", SubrecordType: "name", SourceText: "Fire Sword", TargetLang: "zh"},
			{RecordType: "item", SubrecordType: "name", SourceText: "Unknown", TargetLang: "zh"},
		})
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if !results[0].Hit || results[0].TargetText != "火焰剑" {
			t.Errorf("expected a hit for the saved pair: %+v", results[0])
		}
		if results[1].Hit {
			t.Error("expected a miss for the unknown pair")
		}
	})

	t.Run("SaveOverwritesSameKey", func(t *testing.T) {
		h := setupOrchestrator(t)

		for _, text := range []string{"火剑", "火焰剑"} {
			if _, err := h.orch.CacheSave("task-1", "zh", []CacheSaveItem{
				{RecordType: "item", SubrecordType: "name", SourceText: "Fire Sword", TargetText: text},
			}); err != nil {
				t.Fatalf("save failed: %v", err)
			}
		}

		results, err := h.orch.CacheQuery([]CacheQueryItem{
			{SubrecordType: "name", SourceText: "Fire Sword", TargetLang: "zh"},
		})
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if results[0].TargetText != "火焰剑" {
			t.Errorf("expected the newest text to win, got %s", results[0].TargetText)
		}
	})

	t.Run("SaveRequiresLanguage", func(t *testing.T) {
		h := setupOrchestrator(t)
		if _, err := h.orch.CacheSave("task-1", "", nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestCleanOrphanedArchives(t *testing.T) {
	h := setupOrchestrator(t)
	h.orch.retention = time.Hour

	dir := filepath.Join(h.orch.workDir, "tasks", "stale-task")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	archive := filepath.Join(dir, "weapons.zip")
	tu.MustWriteFile(t, archive, "zipdata")

	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(archive, stale, stale); err != nil {
		t.Fatalf("failed to age archive: %v", err)
	}

	removed := h.orch.CleanOrphanedArchives()
	if removed != 1 {
		t.Errorf("expected 1 archive removed, got %d", removed)
	}
	tu.AssertFileGone(t, archive)
}
