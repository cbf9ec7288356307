package tasks

import (
	"context"
	"fmt"

	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/services"
	"github.com/modlingo/modlingo/internal/shared"
)

// ListRecordsOpts tunes confirmation record listing.
type ListRecordsOpts struct {
	Status  string // filter by record status, empty for all
	Search  string // free text over source and target text
	Page    int
	PerPage int
}

// ListRecords returns a page of a task's confirmation records plus the total
// count for the filter.
func (o *Orchestrator) ListRecords(taskID string, opts ListRecordsOpts) ([]*models.ConfirmationRecord, int, error) {
	if _, err := o.taskRepo.Get(taskID); err != nil {
		return nil, 0, err
	}

	if opts.PerPage <= 0 {
		opts.PerPage = 50
	}
	if opts.Page < 1 {
		opts.Page = 1
	}

	criteria := map[string]any{
		"task_id": taskID,
		"status":  opts.Status,
		"search":  opts.Search,
	}

	total, err := o.recordRepo.Count(criteria)
	if err != nil {
		return nil, 0, err
	}

	criteria["limit"] = opts.PerPage
	criteria["offset"] = (opts.Page - 1) * opts.PerPage

	records, err := o.recordRepo.List(criteria)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// EditRecord replaces one record's target text. The record's review status
// is left untouched; editing is not an implicit confirmation.
func (o *Orchestrator) EditRecord(taskID, recordID, targetText string) (*models.ConfirmationRecord, error) {
	record, err := o.recordRepo.Get(recordID)
	if err != nil {
		return nil, err
	}
	if record.TaskID() != taskID {
		return nil, fmt.Errorf("%w: record %s does not belong to task %s", shared.ErrRecordNotFound, recordID, taskID)
	}

	record.SetTargetText(targetText)
	if err := o.recordRepo.Update(record); err != nil {
		return nil, err
	}
	return record, nil
}

// ConfirmRecord marks one record as confirmed. Confirming a record that is
// already confirmed is a no-op, not an error.
func (o *Orchestrator) ConfirmRecord(taskID, recordID string) (*models.ConfirmationRecord, error) {
	record, err := o.recordRepo.Get(recordID)
	if err != nil {
		return nil, err
	}
	if record.TaskID() != taskID {
		return nil, fmt.Errorf("%w: record %s does not belong to task %s", shared.ErrRecordNotFound, recordID, taskID)
	}

	if record.Status() == models.RecordConfirmed {
		return record, nil
	}

	record.SetStatus(models.RecordConfirmed)
	if err := o.recordRepo.Update(record); err != nil {
		return nil, err
	}
	return record, nil
}

// ConfirmRecords marks an explicit set of record ids as confirmed and
// returns how many records actually changed; unknown or already-confirmed
// ids are skipped silently.
func (o *Orchestrator) ConfirmRecords(taskID string, ids []string) (int, error) {
	if _, err := o.taskRepo.Get(taskID); err != nil {
		return 0, err
	}
	return o.recordRepo.ConfirmByIDs(taskID, ids)
}

// ConfirmAll marks every pending record for a task as confirmed and returns
// how many records changed.
func (o *Orchestrator) ConfirmAll(taskID string) (int, error) {
	if _, err := o.taskRepo.Get(taskID); err != nil {
		return 0, err
	}
	return o.recordRepo.ConfirmAll(taskID)
}

// GenerateFile exits the review phase: it upserts every confirmed
// translation into the cache, resubmits the confirmed records to the worker
// for final assembly and moves the task to assembling. The ensuing assembly
// callback goes through the ordinary reconciliation rule and is allowed to
// reach completed.
//
// The task must be pending_confirmation with zero pending records; remaining
// pending records fail with a distinct error so the UI can tell "finish your
// review" apart from other failures.
func (o *Orchestrator) GenerateFile(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := o.taskRepo.Get(taskID)
	if err != nil {
		return nil, err
	}

	if task.Status() != models.StatusPendingConfirmation {
		return nil, fmt.Errorf("%w: task is %s, expected %s",
			shared.ErrInvalidState, task.Status(), models.StatusPendingConfirmation)
	}

	pending, err := o.recordRepo.CountPending(taskID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, fmt.Errorf("%w: %d records still pending", shared.ErrPendingRecords, pending)
	}

	confirmed, err := o.recordRepo.List(map[string]any{
		"task_id": taskID,
		"status":  string(models.RecordConfirmed),
	})
	if err != nil {
		return nil, err
	}

	for _, record := range confirmed {
		entry := models.NewCacheEntry(
			record.RecordType(),
			record.RecordType(),
			record.SourceText(),
			task.TargetLang(),
			record.TargetText(),
			taskID,
		)
		if err := o.cacheRepo.Upsert(entry); err != nil {
			return nil, fmt.Errorf("failed to cache confirmed translation: %w", err)
		}
	}

	items := make([]services.WorkerItem, 0, len(confirmed))
	for _, record := range confirmed {
		items = append(items, services.WorkerItem{
			RecordID:   record.RecordID(),
			RecordType: record.RecordType(),
			SourceText: record.SourceText(),
			TargetText: record.TargetText(),
		})
	}

	sub := services.AssemblySubmission{
		TaskID:      taskID,
		FilePath:    task.SourcePath(),
		Items:       items,
		CallbackURL: o.callbackURL,
	}

	if err := o.worker.SubmitAssembly(ctx, sub); err != nil {
		return nil, fmt.Errorf("assembly submission failed: %w", err)
	}

	task.SetStatus(models.StatusAssembling)
	if err := o.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to move task to assembling: %w", err)
	}

	o.logger.Info("assembly submitted", "task", taskID, "records", len(items))
	return task, nil
}
