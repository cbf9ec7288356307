package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/shared"
)

// CacheRepository persists deduplicated translations in the translation_cache table.
//
// The cache is append-only in spirit: Upsert overwrites the target text of an
// existing key but entries are never removed except through explicit
// administrative deletion.
type CacheRepository struct {
	db *sql.DB
}

// NewCacheRepository creates a new CacheRepository with the given database connection
func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

const cacheColumns = `id, record_type, subrecord_type, source_text, target_lang, target_text, task_id, created_at, updated_at`

// Upsert inserts the entry or, when the (record_type, subrecord_type,
// source_text, target_lang) key already exists, overwrites its target text
// and last-writing task id.
func (r *CacheRepository) Upsert(entry *models.CacheEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if entry.ID() == "" {
		entry.SetID(shared.GenerateID())
	}
	entry.SetUpdatedAt(time.Now())

	query := `
		INSERT INTO translation_cache (` + cacheColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (record_type, subrecord_type, source_text, target_lang)
		DO UPDATE SET target_text = excluded.target_text,
			task_id = excluded.task_id,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		entry.ID(),
		entry.RecordType(),
		entry.SubrecordType(),
		entry.SourceText(),
		entry.TargetLang(),
		entry.TargetText(),
		entry.TaskID(),
		entry.CreatedAt(),
		entry.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}

	return nil
}

// Lookup finds the cached translation for a key. An empty recordType matches
// any record type, preferring the most recently written entry.
func (r *CacheRepository) Lookup(recordType, subrecordType, sourceText, targetLang string) (*models.CacheEntry, error) {
	query := `
		SELECT ` + cacheColumns + ` FROM translation_cache
		WHERE subrecord_type = ? AND source_text = ? AND target_lang = ?
	`
	args := []any{subrecordType, sourceText, targetLang}

	if recordType != "" {
		query += " AND record_type = ?"
		args = append(args, recordType)
	}

	query += " ORDER BY updated_at DESC LIMIT 1"

	entry, err := r.scan(r.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, shared.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache entry: %w", err)
	}
	return entry, nil
}

// ListByLang returns up to limit entries for a target language, newest first.
// Used to seed worker submissions with dictionary entries.
func (r *CacheRepository) ListByLang(targetLang string, limit int) ([]*models.CacheEntry, error) {
	query := `
		SELECT ` + cacheColumns + ` FROM translation_cache
		WHERE target_lang = ?
		ORDER BY updated_at DESC
	`
	args := []any{targetLang}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.CacheEntry
	for rows.Next() {
		entry, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// DeleteByKey removes a single cache entry. Administrative use only.
func (r *CacheRepository) DeleteByKey(recordType, subrecordType, sourceText, targetLang string) error {
	result, err := r.db.Exec(`
		DELETE FROM translation_cache
		WHERE record_type = ? AND subrecord_type = ? AND source_text = ? AND target_lang = ?
	`, recordType, subrecordType, sourceText, targetLang)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return shared.ErrCacheMiss
	}

	return nil
}

type cacheScanner interface {
	Scan(dest ...any) error
}

func (r *CacheRepository) scan(row cacheScanner) (*models.CacheEntry, error) {
	var (
		id            string
		recordType    string
		subrecordType string
		sourceText    string
		targetLang    string
		targetText    string
		taskID        string
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(&id, &recordType, &subrecordType, &sourceText, &targetLang, &targetText, &taskID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	entry := models.NewCacheEntry(recordType, subrecordType, sourceText, targetLang, targetText, taskID)
	entry.SetID(id)
	entry.SetUpdatedAt(updatedAt)

	return entry, nil
}
