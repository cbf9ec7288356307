package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/shared"
)

// TaskRepository implements models.Repository[*models.Task].
//
// Task rows are never deleted; terminal lifecycle transitions (completed,
// failed, expired) keep the row so the sweep and the operator UI can still
// see the history.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, sequence, filename, status, translated, total, target_lang, review_mode,
	source_path, backup_path, output_path, download_url, sync_failures, error_message,
	prompt_template, content_id, created_at, updated_at`

// Create inserts a new [models.Task] into the database with generated ID and sequence
func (r *TaskRepository) Create(task *models.Task) error {
	sequence, err := NextSequence(r.db, "tasks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	task.SetID(id)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		task.Filename(),
		string(task.Status()),
		task.Progress().Translated,
		task.Progress().Total,
		task.TargetLang(),
		string(task.ReviewMode()),
		task.SourcePath(),
		task.BackupPath(),
		task.OutputPath(),
		nullable(task.DownloadURL()),
		task.SyncFailures(),
		task.ErrorMessage(),
		task.PromptTemplate(),
		nullable(task.ContentID()),
		task.CreatedAt(),
		task.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// Get retrieves a task by ID
func (r *TaskRepository) Get(id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id))
}

// Update persists all mutable task fields
func (r *TaskRepository) Update(task *models.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	task.SetUpdatedAt(now)

	query := `
		UPDATE tasks
		SET status = ?, translated = ?, total = ?, source_path = ?, backup_path = ?,
			output_path = ?, download_url = ?, sync_failures = ?, error_message = ?,
			prompt_template = ?, content_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		string(task.Status()),
		task.Progress().Translated,
		task.Progress().Total,
		task.SourcePath(),
		task.BackupPath(),
		task.OutputPath(),
		nullable(task.DownloadURL()),
		task.SyncFailures(),
		task.ErrorMessage(),
		task.PromptTemplate(),
		nullable(task.ContentID()),
		now,
		task.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, task.ID())
	}

	return nil
}

// Delete is not supported for tasks; rows only move to a terminal status.
func (r *TaskRepository) Delete(id string) error {
	return fmt.Errorf("%w: tasks are never deleted, expire them instead", shared.ErrInvalidState)
}

// List retrieves tasks matching the given criteria, newest first.
//
// Supported criteria: "status" (string), "limit" (int), "offset" (int).
func (r *TaskRepository) List(criteria map[string]any) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1 = 1`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset, ok := criteria["offset"].(int); ok && offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

// ListNonTerminal returns every task the sweep still needs to reconcile,
// oldest first so long-stuck tasks are polled before fresh ones.
func (r *TaskRepository) ListNonTerminal() ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + ` FROM tasks
		WHERE status NOT IN (?, ?, ?, ?)
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query,
		string(models.StatusCompleted),
		string(models.StatusFailed),
		string(models.StatusExpired),
		string(models.StatusPendingConfirmation),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query non-terminal tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

// Count returns the number of tasks matching the given criteria.
func (r *TaskRepository) Count(criteria map[string]any) (int, error) {
	query := `SELECT COUNT(*) FROM tasks WHERE 1 = 1`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

type taskScanner interface {
	Scan(dest ...any) error
}

func (r *TaskRepository) scan(row taskScanner) (*models.Task, error) {
	var (
		id             string
		sequence       int
		filename       string
		status         string
		translated     int
		total          int
		targetLang     string
		reviewMode     string
		sourcePath     string
		backupPath     string
		outputPath     string
		downloadURL    sql.NullString
		syncFailures   int
		errorMessage   string
		promptTemplate string
		contentID      sql.NullString
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := row.Scan(&id, &sequence, &filename, &status, &translated, &total, &targetLang,
		&reviewMode, &sourcePath, &backupPath, &outputPath, &downloadURL, &syncFailures,
		&errorMessage, &promptTemplate, &contentID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	task := models.NewTask(sequence, filename, targetLang, models.ReviewMode(reviewMode))
	task.SetID(id)
	task.SetStatus(models.TaskStatus(status))
	task.SetProgress(models.Progress{Translated: translated, Total: total})
	task.SetSourcePath(sourcePath)
	task.SetBackupPath(backupPath)
	task.SetOutputPath(outputPath)
	if downloadURL.Valid {
		task.SetDownloadURL(downloadURL.String)
	}
	task.SetSyncFailures(syncFailures)
	task.SetErrorMessage(errorMessage)
	task.SetPromptTemplate(promptTemplate)
	if contentID.Valid {
		task.SetContentID(contentID.String)
	}
	task.SetCreatedAt(createdAt)
	task.SetUpdatedAt(updatedAt)

	return task, nil
}

// scanOne scans a single [sql.Row] into a [models.Task]
func (r *TaskRepository) scanOne(row *sql.Row) (*models.Task, error) {
	task, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return task, nil
}

// scanRow scans a row from [sql.Rows] into a [models.Task]
func (r *TaskRepository) scanRow(rows *sql.Rows) (*models.Task, error) {
	task, err := r.scan(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return task, nil
}

// nullable converts an empty string to a SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
