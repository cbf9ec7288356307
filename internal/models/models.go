package models

import (
	"time"
)

// Model is the base contract every persistent entity satisfies: Task,
// ConfirmationRecord, CacheEntry and Content all carry a uuid, timestamps
// and local validation.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository describes the criteria-driven data access surface the task and
// confirmation repositories implement. Criteria keys map to columns; the
// cache repository has a key-shaped API of its own instead.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
	Count(criteria map[string]any) (int, error)
}
