package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/modlingo/modlingo/internal/models"
)

// RunSweep blocks, reconciling all non-terminal tasks once per interval
// until the context is cancelled. It is the pull safety net for callbacks
// that never arrive.
func (o *Orchestrator) RunSweep(ctx context.Context) {
	ticker := time.NewTicker(o.sweepInterval)
	defer ticker.Stop()

	o.logger.Info("sweep started", "interval", o.sweepInterval, "threshold", o.failureThreshold)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("sweep stopped")
			return
		case <-ticker.C:
			o.SweepOnce(ctx)
			o.CleanOrphanedArchives()
		}
	}
}

// SweepOnce polls the worker for every non-terminal task, sequentially and
// rate-limited, feeding each report to the same reconciliation rule the
// callback path uses. Poll failures accumulate on the task row; reaching the
// configured threshold escalates the task to failed so it cannot hang on a
// permanently lost worker-side record.
func (o *Orchestrator) SweepOnce(ctx context.Context) {
	tasks, err := o.taskRepo.ListNonTerminal()
	if err != nil {
		o.logger.Error("sweep failed to list tasks", "err", err)
		return
	}

	for _, task := range tasks {
		if err := o.limiter.Wait(ctx); err != nil {
			return
		}

		report, err := o.worker.FetchStatus(ctx, task.ID())
		if err != nil {
			o.recordSyncFailure(task, err)
			continue
		}

		if err := o.Reconcile(ctx, task, report); err != nil {
			o.logger.Error("sweep reconciliation failed", "task", task.ID(), "err", err)
		}
	}
}

// recordSyncFailure bumps the task's consecutive failure counter and, once
// the threshold is reached, force-fails the task with a message naming it.
func (o *Orchestrator) recordSyncFailure(task *models.Task, cause error) {
	failures := task.SyncFailures() + 1
	task.SetSyncFailures(failures)

	if failures >= o.failureThreshold {
		task.SetStatus(models.StatusFailed)
		task.SetErrorMessage(fmt.Sprintf(
			"task lost after %d consecutive failed worker status checks", o.failureThreshold))
		if err := o.taskRepo.Update(task); err != nil {
			o.logger.Error("failed to escalate task", "task", task.ID(), "err", err)
			return
		}
		o.removeLocalFiles(task)
		o.logger.Warn("task escalated to failed", "task", task.ID(), "failures", failures, "cause", cause)
		return
	}

	if err := o.taskRepo.Update(task); err != nil {
		o.logger.Error("failed to record sync failure", "task", task.ID(), "err", err)
		return
	}
	o.logger.Debug("worker poll failed", "task", task.ID(), "failures", failures, "cause", cause)
}
