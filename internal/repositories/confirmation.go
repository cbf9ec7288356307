package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/shared"
)

// ConfirmationRepository implements models.Repository[*models.ConfirmationRecord]
// plus the bulk review operations the confirmation workflow needs.
//
// Records arrive incrementally while the worker is still translating, so
// CreateBatch tolerates duplicate deliveries via the (task_id, record_id)
// UNIQUE constraint.
type ConfirmationRepository struct {
	db *sql.DB
}

// NewConfirmationRepository creates a new ConfirmationRepository with the given database connection
func NewConfirmationRepository(db *sql.DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

const confirmationColumns = `id, task_id, record_id, record_type, source_text, target_text, status, created_at, updated_at`

// Create inserts a new [models.ConfirmationRecord] with a generated ID
func (r *ConfirmationRepository) Create(record *models.ConfirmationRecord) error {
	id := shared.GenerateID()
	record.SetID(id)

	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO confirmation_records (` + confirmationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		id,
		record.TaskID(),
		record.RecordID(),
		record.RecordType(),
		record.SourceText(),
		record.TargetText(),
		string(record.Status()),
		record.CreatedAt(),
		record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert confirmation record: %w", err)
	}

	return nil
}

// CreateBatch inserts records, silently skipping those already present for
// the task. Duplicate worker deliveries are expected and harmless.
func (r *ConfirmationRepository) CreateBatch(records []*models.ConfirmationRecord) (int, error) {
	created := 0
	for _, record := range records {
		err := r.Create(record)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint") {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

// Get retrieves a confirmation record by ID
func (r *ConfirmationRepository) Get(id string) (*models.ConfirmationRecord, error) {
	query := `SELECT ` + confirmationColumns + ` FROM confirmation_records WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id))
}

// Update persists the record's target text and status
func (r *ConfirmationRepository) Update(record *models.ConfirmationRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE confirmation_records
		SET target_text = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, record.TargetText(), string(record.Status()), now, record.ID())
	if err != nil {
		return fmt.Errorf("failed to update confirmation record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRecordNotFound, record.ID())
	}

	return nil
}

// Delete removes a confirmation record by ID
func (r *ConfirmationRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM confirmation_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete confirmation record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRecordNotFound, id)
	}

	return nil
}

// List retrieves records matching the given criteria, in arrival order.
//
// Supported criteria: "task_id", "status", "search" (free text over
// source/target), "limit" (int), "offset" (int).
func (r *ConfirmationRepository) List(criteria map[string]any) ([]*models.ConfirmationRecord, error) {
	query := `SELECT ` + confirmationColumns + ` FROM confirmation_records WHERE 1 = 1`
	args := []any{}

	if taskID, ok := criteria["task_id"].(string); ok && taskID != "" {
		query += " AND task_id = ?"
		args = append(args, taskID)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if search, ok := criteria["search"].(string); ok && search != "" {
		query += " AND (source_text LIKE ? OR target_text LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	query += " ORDER BY created_at ASC, record_id ASC"

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
		return nil, fmt.Errorf("failed to query confirmation records: %w", err)
	}
	defer rows.Close()

	var records []*models.ConfirmationRecord
	for rows.Next() {
		record, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Count returns the number of records matching the given criteria.
// Supports the same filters as List, minus paging.
func (r *ConfirmationRepository) Count(criteria map[string]any) (int, error) {
	query := `SELECT COUNT(*) FROM confirmation_records WHERE 1 = 1`
	args := []any{}

	if taskID, ok := criteria["task_id"].(string); ok && taskID != "" {
		query += " AND task_id = ?"
		args = append(args, taskID)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if search, ok := criteria["search"].(string); ok && search != "" {
		query += " AND (source_text LIKE ? OR target_text LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count confirmation records: %w", err)
	}
	return count, nil
}

// CountPending returns the number of records still awaiting confirmation for a task.
func (r *ConfirmationRepository) CountPending(taskID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM confirmation_records WHERE task_id = ? AND status = ?`,
		taskID, string(models.RecordPending),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending records: %w", err)
	}
	return count, nil
}

// ConfirmByIDs marks the given record ids as confirmed and returns how many
// records changed. Already-confirmed or unknown ids are left untouched and
// not counted, which makes confirmation idempotent.
func (r *ConfirmationRepository) ConfirmByIDs(taskID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := fmt.Sprintf(`
		UPDATE confirmation_records
		SET status = ?, updated_at = ?
		WHERE task_id = ? AND status = ? AND id IN (%s)
	`, placeholders)

	args := []any{string(models.RecordConfirmed), time.Now(), taskID, string(models.RecordPending)}
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to confirm records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

// ConfirmAll marks every pending record for a task as confirmed.
func (r *ConfirmationRepository) ConfirmAll(taskID string) (int, error) {
	result, err := r.db.Exec(`
		UPDATE confirmation_records
		SET status = ?, updated_at = ?
		WHERE task_id = ? AND status = ?
	`, string(models.RecordConfirmed), time.Now(), taskID, string(models.RecordPending))
	if err != nil {
		return 0, fmt.Errorf("failed to confirm records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

// DeleteByTask removes every confirmation record belonging to a task.
// Used by expiry.
func (r *ConfirmationRepository) DeleteByTask(taskID string) (int, error) {
	result, err := r.db.Exec(`DELETE FROM confirmation_records WHERE task_id = ?`, taskID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete confirmation records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

type confirmationScanner interface {
	Scan(dest ...any) error
}

func (r *ConfirmationRepository) scan(row confirmationScanner) (*models.ConfirmationRecord, error) {
	var (
		id         string
		taskID     string
		recordID   string
		recordType string
		sourceText string
		targetText string
		status     string
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := row.Scan(&id, &taskID, &recordID, &recordType, &sourceText, &targetText, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	record := models.NewConfirmationRecord(taskID, recordID, recordType, sourceText, targetText)
	record.SetID(id)
	record.SetStatus(models.RecordStatus(status))
	record.SetUpdatedAt(updatedAt)

	return record, nil
}

// scanOne scans a single [sql.Row] into a [models.ConfirmationRecord]
func (r *ConfirmationRepository) scanOne(row *sql.Row) (*models.ConfirmationRecord, error) {
	record, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan confirmation record: %w", err)
	}
	return record, nil
}

// scanRow scans a row from [sql.Rows] into a [models.ConfirmationRecord]
func (r *ConfirmationRepository) scanRow(rows *sql.Rows) (*models.ConfirmationRecord, error) {
	record, err := r.scan(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan confirmation record: %w", err)
	}
	return record, nil
}
