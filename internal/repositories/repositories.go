// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements models.Repository[T] for a specific entity type,
// handling CRUD operations and sequence generation. Raw SQL only; the schema
// is owned by the embedded migrations in the shared package.
package repositories

import (
	"database/sql"
	"fmt"
)

// NextSequence atomically increments and returns the next sequence number
// for the given table, backed by a single-row <table>_sequence counter.
//
// Sequence numbers give tasks a human-readable ordering (task #42). They
// never appear in API output; they only serve sorting and debugging.
func NextSequence(db *sql.DB, table string) (int, error) {
	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	return sequence, nil
}
