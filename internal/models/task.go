package models

import (
	"fmt"
	"time"
)

// TaskStatus is the persisted lifecycle status of a translation task.
type TaskStatus string

const (
	StatusWaiting             TaskStatus = "waiting"
	StatusParsing             TaskStatus = "parsing"
	StatusTranslating         TaskStatus = "translating"
	StatusAssembling          TaskStatus = "assembling"
	StatusPendingConfirmation TaskStatus = "pending_confirmation"
	StatusCompleted           TaskStatus = "completed"
	StatusFailed              TaskStatus = "failed"
	StatusExpired             TaskStatus = "expired"
)

// Valid reports whether s is one of the persisted status values.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusParsing, StatusTranslating, StatusAssembling,
		StatusPendingConfirmation, StatusCompleted, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether s is a final status. Worker reports against a
// terminal task are discarded; pending_confirmation is not terminal but is
// likewise frozen against worker reports until review finishes.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// ReviewMode selects whether a task requires human confirmation before assembly.
type ReviewMode string

const (
	ReviewDirect       ReviewMode = "direct"
	ReviewConfirmation ReviewMode = "confirmation"
)

// Progress holds the translated/total counters reported by the worker.
type Progress struct {
	Translated int `json:"translated"`
	Total      int `json:"total"`
}

// Task represents one end-to-end translation job for one uploaded mod file.
type Task struct {
	id             string
	sequence       int
	filename       string
	status         TaskStatus
	progress       Progress
	targetLang     string
	reviewMode     ReviewMode
	sourcePath     string
	backupPath     string
	outputPath     string
	downloadURL    string
	syncFailures   int
	errorMessage   string
	promptTemplate string
	contentID      string
	createdAt      time.Time
	updatedAt      time.Time
}

// NewTask creates a waiting Task for the given display filename.
func NewTask(sequence int, filename, targetLang string, mode ReviewMode) *Task {
	now := time.Now()
	if mode == "" {
		mode = ReviewDirect
	}
	return &Task{
		sequence:   sequence,
		filename:   filename,
		status:     StatusWaiting,
		targetLang: targetLang,
		reviewMode: mode,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (t *Task) ID() string             { return t.id }
func (t *Task) Sequence() int          { return t.sequence }
func (t *Task) Filename() string       { return t.filename }
func (t *Task) Status() TaskStatus     { return t.status }
func (t *Task) Progress() Progress     { return t.progress }
func (t *Task) TargetLang() string     { return t.targetLang }
func (t *Task) ReviewMode() ReviewMode { return t.reviewMode }
func (t *Task) SourcePath() string     { return t.sourcePath }
func (t *Task) BackupPath() string     { return t.backupPath }
func (t *Task) OutputPath() string     { return t.outputPath }
func (t *Task) DownloadURL() string    { return t.downloadURL }
func (t *Task) SyncFailures() int      { return t.syncFailures }
func (t *Task) ErrorMessage() string   { return t.errorMessage }
func (t *Task) PromptTemplate() string { return t.promptTemplate }
func (t *Task) ContentID() string      { return t.contentID }
func (t *Task) CreatedAt() time.Time   { return t.createdAt }
func (t *Task) UpdatedAt() time.Time   { return t.updatedAt }

func (t *Task) SetID(id string)            { t.id = id }
func (t *Task) SetStatus(s TaskStatus)     { t.status = s }
func (t *Task) SetProgress(p Progress)     { t.progress = p }
func (t *Task) SetSourcePath(p string)     { t.sourcePath = p }
func (t *Task) SetBackupPath(p string)     { t.backupPath = p }
func (t *Task) SetOutputPath(p string)     { t.outputPath = p }
func (t *Task) SetDownloadURL(u string)    { t.downloadURL = u }
func (t *Task) SetSyncFailures(n int)      { t.syncFailures = n }
func (t *Task) SetErrorMessage(m string)   { t.errorMessage = m }
func (t *Task) SetPromptTemplate(p string) { t.promptTemplate = p }
func (t *Task) SetContentID(id string)     { t.contentID = id }
func (t *Task) SetCreatedAt(ts time.Time)  { t.createdAt = ts }
func (t *Task) SetUpdatedAt(ts time.Time)  { t.updatedAt = ts }

// Validate checks the task's local invariants.
func (t *Task) Validate() error {
	if t.filename == "" {
		return fmt.Errorf("task filename is required")
	}
	if t.targetLang == "" {
		return fmt.Errorf("task target language is required")
	}
	if !t.status.Valid() {
		return fmt.Errorf("invalid task status: %s", t.status)
	}
	if t.reviewMode != ReviewDirect && t.reviewMode != ReviewConfirmation {
		return fmt.Errorf("invalid review mode: %s", t.reviewMode)
	}
	if t.progress.Total > 0 && t.progress.Translated > t.progress.Total {
		return fmt.Errorf("translated count %d exceeds total %d", t.progress.Translated, t.progress.Total)
	}
	return nil
}
