package models

import (
	"fmt"
	"time"
)

// Content is the external creation/version record a task may be linked to.
// A task cannot be expired while a content row still references it; the
// content must be removed first.
type Content struct {
	id        string
	taskID    string
	name      string
	createdAt time.Time
	updatedAt time.Time
}

// NewContent creates a content record linked to the given task.
func NewContent(taskID, name string) *Content {
	now := time.Now()
	return &Content{
		taskID:    taskID,
		name:      name,
		createdAt: now,
		updatedAt: now,
	}
}

func (c *Content) ID() string           { return c.id }
func (c *Content) TaskID() string       { return c.taskID }
func (c *Content) Name() string         { return c.name }
func (c *Content) CreatedAt() time.Time { return c.createdAt }
func (c *Content) UpdatedAt() time.Time { return c.updatedAt }

func (c *Content) SetID(id string)           { c.id = id }
func (c *Content) SetUpdatedAt(ts time.Time) { c.updatedAt = ts }

// Validate checks the content's local invariants.
func (c *Content) Validate() error {
	if c.taskID == "" {
		return fmt.Errorf("content task id is required")
	}
	return nil
}
