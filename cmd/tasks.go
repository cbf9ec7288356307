package main

import (
	"context"
	"fmt"
	"time"

	"github.com/modlingo/modlingo/internal/shared"
	"github.com/modlingo/modlingo/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TasksList prints a page of tasks, newest first.
func (r *Runner) TasksList(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	orch, db, err := r.openOrchestrator(config)
	if err != nil {
		return err
	}
	defer db.Close()

	list, total, err := orch.ListTasks(tasks.ListTasksOpts{
		Status:  cmd.String("status"),
		Page:    1,
		PerPage: cmd.Int("limit"),
	})
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	r.writePlain("%d tasks (%d total)\n", len(list), total)
	for _, t := range list {
		p := t.Progress()
		r.writePlain("%s  %-20s  %-12s  %d/%d  %s\n",
			t.ID(), t.Filename(), t.Status(), p.Translated, p.Total, t.TargetLang())
	}

	return nil
}

// TasksShow prints a single task as JSON.
func (r *Runner) TasksShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	config := r.loadConfig(cmd)

	orch, db, err := r.openOrchestrator(config)
	if err != nil {
		return err
	}
	defer db.Close()

	task, err := orch.GetTask(id)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}

	p := task.Progress()
	return r.writeJSON(map[string]any{
		"id":           task.ID(),
		"filename":     task.Filename(),
		"status":       string(task.Status()),
		"translated":   p.Translated,
		"total":        p.Total,
		"targetLang":   task.TargetLang(),
		"reviewMode":   string(task.ReviewMode()),
		"downloadUrl":  task.DownloadURL(),
		"syncFailures": task.SyncFailures(),
		"errorMessage": task.ErrorMessage(),
		"createdAt":    task.CreatedAt(),
		"updatedAt":    task.UpdatedAt(),
	}, cmd.Bool("pretty"))
}

// TasksExpire expires the named tasks, or all terminal tasks older than the
// --older-than window.
func (r *Runner) TasksExpire(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	orch, db, err := r.openOrchestrator(config)
	if err != nil {
		return err
	}
	defer db.Close()

	if hours := cmd.Int("older-than"); hours > 0 {
		expired, err := orch.ExpireOlderThan(ctx, time.Duration(hours)*time.Hour)
		if err != nil {
			return fmt.Errorf("failed to expire tasks: %w", err)
		}
		r.writePlain("expired %d tasks\n", expired)
		return nil
	}

	ids := cmd.StringArgs("ids")
	if len(ids) == 0 {
		return fmt.Errorf("%w: task ids or --older-than", shared.ErrMissingArgument)
	}

	for _, result := range orch.ExpireBatch(ctx, ids) {
		if result.Error != "" {
			r.writePlain("%s  failed: %s\n", result.TaskID, result.Error)
		} else {
			r.writePlain("%s  expired\n", result.TaskID)
		}
	}

	return nil
}

// CacheLookup prints the cached translation for a source text, if any.
func (r *Runner) CacheLookup(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	orch, db, err := r.openOrchestrator(config)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := orch.CacheQuery([]tasks.CacheQueryItem{{
		RecordType:    cmd.String("type"),
		SubrecordType: cmd.String("subtype"),
		SourceText:    cmd.String("text"),
		TargetLang:    cmd.String("lang"),
	}})
	if err != nil {
		return fmt.Errorf("cache lookup failed: %w", err)
	}

	result := results[0]
	if !result.Hit {
		r.writePlain("no cached translation\n")
		return nil
	}
	r.writePlain("%s\n", result.TargetText)
	return nil
}
