package models

import (
	"fmt"
	"time"
)

// CacheEntry is a deduplicated, reusable translation keyed by
// (record type, subrecord type, source text, target language).
//
// Entries outlive the task that wrote them; TaskID records the last writer.
type CacheEntry struct {
	id            string
	recordType    string
	subrecordType string
	sourceText    string
	targetLang    string
	targetText    string
	taskID        string
	createdAt     time.Time
	updatedAt     time.Time
}

// NewCacheEntry creates a cache entry for the given translation pair.
func NewCacheEntry(recordType, subrecordType, sourceText, targetLang, targetText, taskID string) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		recordType:    recordType,
		subrecordType: subrecordType,
		sourceText:    sourceText,
		targetLang:    targetLang,
		targetText:    targetText,
		taskID:        taskID,
		createdAt:     now,
		updatedAt:     now,
	}
}

func (e *CacheEntry) ID() string            { return e.id }
func (e *CacheEntry) RecordType() string    { return e.recordType }
func (e *CacheEntry) SubrecordType() string { return e.subrecordType }
func (e *CacheEntry) SourceText() string    { return e.sourceText }
func (e *CacheEntry) TargetLang() string    { return e.targetLang }
func (e *CacheEntry) TargetText() string    { return e.targetText }
func (e *CacheEntry) TaskID() string        { return e.taskID }
func (e *CacheEntry) CreatedAt() time.Time  { return e.createdAt }
func (e *CacheEntry) UpdatedAt() time.Time  { return e.updatedAt }

func (e *CacheEntry) SetID(id string)           { e.id = id }
func (e *CacheEntry) SetTargetText(text string) { e.targetText = text }
func (e *CacheEntry) SetTaskID(id string)       { e.taskID = id }
func (e *CacheEntry) SetUpdatedAt(ts time.Time) { e.updatedAt = ts }

// Validate checks the entry's local invariants.
func (e *CacheEntry) Validate() error {
	if e.sourceText == "" {
		return fmt.Errorf("cache entry source text is required")
	}
	if e.targetLang == "" {
		return fmt.Errorf("cache entry target language is required")
	}
	return nil
}
