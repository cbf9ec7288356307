package tasks

import (
	"context"
	"fmt"
	"os"

	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/services"
	"github.com/modlingo/modlingo/internal/shared"
)

// msgOutputMissing is the fixed failure message recorded when the worker
// reports success but the output file cannot be found locally.
const msgOutputMissing = "worker reported completion but the output file is missing"

// HandleCallback looks up the task named in a worker callback and reconciles it.
func (o *Orchestrator) HandleCallback(ctx context.Context, report *services.WorkerReport) error {
	if report == nil || report.TaskID == "" {
		return fmt.Errorf("%w: callback without task id", shared.ErrInvalidInput)
	}

	task, err := o.taskRepo.Get(report.TaskID)
	if err != nil {
		return err
	}

	return o.Reconcile(ctx, task, report)
}

// Reconcile applies a worker status report to a task. Callbacks and sweep
// polls both go through here, so the two channels cannot diverge.
//
// Terminal tasks ignore reports outright, and pending_confirmation is frozen
// until review finishes. In confirmation mode a reported "completed" during
// the translation phase is not adopted: the carried items are flushed into
// the confirmation ledger and the task parks at pending_confirmation without
// producing an artifact. Every other report is adopted verbatim.
func (o *Orchestrator) Reconcile(ctx context.Context, task *models.Task, report *services.WorkerReport) error {
	current := task.Status()
	if current.Terminal() || current == models.StatusPendingConfirmation {
		return nil
	}

	reported := models.TaskStatus(report.Status)
	if !reported.Valid() {
		return fmt.Errorf("%w: unknown worker status %q", shared.ErrInvalidInput, report.Status)
	}

	// Confirmation records accumulate while translation is still running so
	// review can start before the worker finishes.
	if task.ReviewMode() == models.ReviewConfirmation && len(report.Items) > 0 {
		if err := o.flushItems(task.ID(), report.Items); err != nil {
			o.logger.Error("failed to store confirmation records", "task", task.ID(), "err", err)
		}
	}

	adoptProgress(task, report)
	task.SetSyncFailures(0)

	if report.OutputFilePath != "" {
		task.SetOutputPath(report.OutputFilePath)
	}
	if report.OriginalBackupPath != "" {
		task.SetBackupPath(report.OriginalBackupPath)
	}
	if report.Error != "" {
		task.SetErrorMessage(report.Error)
	}

	// The worker finishing the translation phase in confirmation mode is
	// rerouted into review instead of being adopted as completed. Only the
	// post-review assembly phase (current == assembling) may complete.
	if task.ReviewMode() == models.ReviewConfirmation &&
		reported == models.StatusCompleted &&
		current != models.StatusAssembling {
		task.SetStatus(models.StatusPendingConfirmation)
		if err := o.taskRepo.Update(task); err != nil {
			return fmt.Errorf("failed to park task for review: %w", err)
		}
		o.logger.Info("task awaiting confirmation", "task", task.ID(), "translated", task.Progress().Translated)
		return nil
	}

	switch {
	case reported == models.StatusCompleted && task.DownloadURL() == "":
		return o.adoptCompleted(ctx, task)

	case reported == models.StatusFailed:
		task.SetStatus(models.StatusFailed)
		if task.ErrorMessage() == "" {
			task.SetErrorMessage("worker reported failure")
		}
		if err := o.taskRepo.Update(task); err != nil {
			return fmt.Errorf("failed to record failure: %w", err)
		}
		o.removeLocalFiles(task)
		o.logger.Warn("task failed", "task", task.ID(), "err", task.ErrorMessage())
		return nil

	default:
		task.SetStatus(reported)
		if err := o.taskRepo.Update(task); err != nil {
			return fmt.Errorf("failed to adopt worker status: %w", err)
		}
		return nil
	}
}

// adoptCompleted runs the completion pipeline: verify the output exists,
// package it, upload the archive and only then persist completed. A
// packaging or upload error leaves the status untouched so the next sweep
// pass retries; the local files are retained for that reason.
func (o *Orchestrator) adoptCompleted(ctx context.Context, task *models.Task) error {
	if task.OutputPath() == "" || !fileExists(task.OutputPath()) {
		task.SetStatus(models.StatusFailed)
		task.SetErrorMessage(msgOutputMissing)
		if err := o.taskRepo.Update(task); err != nil {
			return fmt.Errorf("failed to record missing output: %w", err)
		}
		o.removeLocalFiles(task)
		o.logger.Warn("completion report rejected", "task", task.ID(), "output", task.OutputPath())
		return nil
	}

	archivePath, err := o.packageArtifact(task)
	if err != nil {
		o.holdForRetry(task)
		return fmt.Errorf("%w: packaging: %v", shared.ErrStorageFailure, err)
	}

	reference, err := o.storage.Upload(ctx, artifactKey(task), archivePath)
	if err != nil {
		os.Remove(archivePath)
		o.holdForRetry(task)
		return fmt.Errorf("upload failed: %w", err)
	}

	task.SetDownloadURL(reference)
	task.SetStatus(models.StatusCompleted)
	task.SetErrorMessage("")
	if err := o.taskRepo.Update(task); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}

	o.removeLocalFiles(task)
	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		o.logger.Warn("failed to remove local archive", "path", archivePath, "err", err)
	}

	o.logger.Info("task completed", "task", task.ID(), "download", reference)
	return nil
}

// holdForRetry persists progress without a status change so the task stays
// non-terminal and the sweep gets another chance at the artifact pipeline.
func (o *Orchestrator) holdForRetry(task *models.Task) {
	if err := o.taskRepo.Update(task); err != nil {
		o.logger.Error("failed to persist task during artifact retry hold", "task", task.ID(), "err", err)
	}
}

// flushItems appends worker-carried translation items to the confirmation
// ledger. Duplicate deliveries are skipped by the repository.
func (o *Orchestrator) flushItems(taskID string, items []services.WorkerItem) error {
	records := make([]*models.ConfirmationRecord, 0, len(items))
	for _, item := range items {
		if item.RecordID == "" {
			continue
		}
		records = append(records, models.NewConfirmationRecord(
			taskID, item.RecordID, item.RecordType, item.SourceText, item.TargetText,
		))
	}

	created, err := o.recordRepo.CreateBatch(records)
	if err != nil {
		return err
	}
	if created > 0 {
		o.logger.Debug("confirmation records stored", "task", taskID, "count", created)
	}
	return nil
}

// adoptProgress copies the reported counters onto the task, clamping
// translated to total to preserve the data model invariant against
// misbehaving reports.
func adoptProgress(task *models.Task, report *services.WorkerReport) {
	progress := models.Progress{
		Translated: report.Progress.Translated,
		Total:      report.Progress.Total,
	}
	if progress.Total > 0 && progress.Translated > progress.Total {
		progress.Translated = progress.Total
	}
	if progress.Total == 0 && progress.Translated == 0 {
		return
	}
	task.SetProgress(progress)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
