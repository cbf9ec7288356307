package models

import (
	"fmt"
	"time"
)

// RecordStatus is the review status of a single confirmation record.
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"
	RecordConfirmed RecordStatus = "confirmed"
)

// ConfirmationRecord is one reviewable (source, target) pair awaiting human
// approval. RecordID and RecordType are assigned by the worker and passed
// back verbatim when the task is resubmitted for assembly.
type ConfirmationRecord struct {
	id         string
	taskID     string
	recordID   string
	recordType string
	sourceText string
	targetText string
	status     RecordStatus
	createdAt  time.Time
	updatedAt  time.Time
}

// NewConfirmationRecord creates a pending record for the given task.
func NewConfirmationRecord(taskID, recordID, recordType, sourceText, targetText string) *ConfirmationRecord {
	now := time.Now()
	return &ConfirmationRecord{
		taskID:     taskID,
		recordID:   recordID,
		recordType: recordType,
		sourceText: sourceText,
		targetText: targetText,
		status:     RecordPending,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (c *ConfirmationRecord) ID() string           { return c.id }
func (c *ConfirmationRecord) TaskID() string       { return c.taskID }
func (c *ConfirmationRecord) RecordID() string     { return c.recordID }
func (c *ConfirmationRecord) RecordType() string   { return c.recordType }
func (c *ConfirmationRecord) SourceText() string   { return c.sourceText }
func (c *ConfirmationRecord) TargetText() string   { return c.targetText }
func (c *ConfirmationRecord) Status() RecordStatus { return c.status }
func (c *ConfirmationRecord) CreatedAt() time.Time { return c.createdAt }
func (c *ConfirmationRecord) UpdatedAt() time.Time { return c.updatedAt }

func (c *ConfirmationRecord) SetID(id string)           { c.id = id }
func (c *ConfirmationRecord) SetTargetText(text string) { c.targetText = text }
func (c *ConfirmationRecord) SetStatus(s RecordStatus)  { c.status = s }
func (c *ConfirmationRecord) SetUpdatedAt(ts time.Time) { c.updatedAt = ts }

// Validate checks the record's local invariants.
func (c *ConfirmationRecord) Validate() error {
	if c.taskID == "" {
		return fmt.Errorf("confirmation record task id is required")
	}
	if c.recordID == "" {
		return fmt.Errorf("confirmation record worker record id is required")
	}
	if c.status != RecordPending && c.status != RecordConfirmed {
		return fmt.Errorf("invalid record status: %s", c.status)
	}
	return nil
}
