package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/shared"
)

// ContentRepository persists the external creation/version records tasks can
// be linked to. Expiry consults ExistsForTask before discarding artifacts.
type ContentRepository struct {
	db *sql.DB
}

// NewContentRepository creates a new ContentRepository with the given database connection
func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create inserts a new [models.Content] with a generated ID
func (r *ContentRepository) Create(content *models.Content) error {
	id := shared.GenerateID()
	content.SetID(id)

	if err := content.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO contents (id, task_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, id, content.TaskID(), content.Name(), content.CreatedAt(), content.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert content: %w", err)
	}

	return nil
}

// Get retrieves a content record by ID
func (r *ContentRepository) Get(id string) (*models.Content, error) {
	var (
		contentID string
		taskID    string
		name      string
		createdAt time.Time
		updatedAt time.Time
	)

	err := r.db.QueryRow(
		`SELECT id, task_id, name, created_at, updated_at FROM contents WHERE id = ?`, id,
	).Scan(&contentID, &taskID, &name, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan content: %w", err)
	}

	content := models.NewContent(taskID, name)
	content.SetID(contentID)
	content.SetUpdatedAt(updatedAt)
	return content, nil
}

// ExistsForTask reports whether any content row still references the task.
func (r *ContentRepository) ExistsForTask(taskID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM contents WHERE task_id = ?)`, taskID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check content link: %w", err)
	}
	return exists, nil
}

// Delete removes a content record by ID
func (r *ContentRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM contents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrContentNotFound, id)
	}

	return nil
}
