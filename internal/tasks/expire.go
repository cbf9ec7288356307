package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/shared"
)

// Expire discards a task's artifact and working files and moves the row to
// expired. The row itself is preserved, only its payload is released.
//
// A task still referenced by a content record refuses to expire: the linked
// content must be removed first. Every deletion sub-step is independently
// best effort; a stubborn file never blocks the transition.
func (o *Orchestrator) Expire(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := o.taskRepo.Get(taskID)
	if err != nil {
		return nil, err
	}

	if task.Status() == models.StatusExpired {
		return task, nil
	}

	linked, err := o.contentRepo.ExistsForTask(taskID)
	if err != nil {
		return nil, err
	}
	if linked {
		return nil, fmt.Errorf("%w: remove the linked content before expiring task %s", shared.ErrTaskLinked, taskID)
	}

	if task.DownloadURL() != "" {
		if err := o.storage.Delete(ctx, artifactKey(task)); err != nil {
			o.logger.Warn("failed to delete uploaded artifact", "task", taskID, "err", err)
		}
	}

	o.removeLocalFiles(task)

	if removed, err := o.recordRepo.DeleteByTask(taskID); err != nil {
		o.logger.Warn("failed to delete confirmation records", "task", taskID, "err", err)
	} else if removed > 0 {
		o.logger.Debug("confirmation records deleted", "task", taskID, "count", removed)
	}

	task.SetDownloadURL("")
	task.SetStatus(models.StatusExpired)
	if err := o.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to expire task: %w", err)
	}

	o.logger.Info("task expired", "task", taskID)
	return task, nil
}

// ExpireResult reports the outcome of one task in a batch expiry.
type ExpireResult struct {
	TaskID string `json:"taskId"`
	Error  string `json:"error,omitempty"`
}

// ExpireBatch expires a set of tasks, continuing past individual failures.
func (o *Orchestrator) ExpireBatch(ctx context.Context, taskIDs []string) []ExpireResult {
	results := make([]ExpireResult, 0, len(taskIDs))
	for _, id := range taskIDs {
		result := ExpireResult{TaskID: id}
		if _, err := o.Expire(ctx, id); err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// ExpireOlderThan expires every terminal task whose last update is older
// than the given age. Tasks refusing to expire (still linked) are skipped
// with a warning; they surface again on the next run.
func (o *Orchestrator) ExpireOlderThan(ctx context.Context, age time.Duration) (int, error) {
	candidates, err := o.taskRepo.List(map[string]any{})
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-age)
	expired := 0

	for _, task := range candidates {
		if task.Status() == models.StatusExpired || task.UpdatedAt().After(cutoff) {
			continue
		}
		if !task.Status().Terminal() {
			continue
		}

		if _, err := o.Expire(ctx, task.ID()); err != nil {
			o.logger.Warn("age-based expiry skipped task", "task", task.ID(), "err", err)
			continue
		}
		expired++
	}

	return expired, nil
}
