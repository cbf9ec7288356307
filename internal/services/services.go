// package services defines clients for the external collaborators of the
// orchestrator: the translation worker and the artifact object storage.
package services

import (
	"context"
)

// TranslationWorker is the external translation/assembly engine the
// orchestrator delegates to. It reports status either by posting to the
// callback URL included in submissions or in response to FetchStatus polls.
type TranslationWorker interface {
	// SubmitTranslate hands a parsed mod file to the worker for translation.
	SubmitTranslate(ctx context.Context, sub TranslateSubmission) error

	// SubmitAssembly resubmits human-confirmed translations so the worker
	// can assemble the final output file.
	SubmitAssembly(ctx context.Context, sub AssemblySubmission) error

	// FetchStatus polls the worker for the current state of a task.
	FetchStatus(ctx context.Context, taskID string) (*WorkerReport, error)
}

// ArtifactStorage uploads and deletes packaged task artifacts.
// Implementations return a durable public reference on upload.
type ArtifactStorage interface {
	// Upload stores the file at path under the given object key and returns
	// its public download reference.
	Upload(ctx context.Context, key, path string) (string, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}

// DictionaryEntry is a known-good translation pair sent along with a
// translate submission so the worker can reuse it.
type DictionaryEntry struct {
	SourceText string `json:"sourceText"`
	TargetText string `json:"targetText"`
}

// TranslateSubmission is the payload for the worker's translate endpoint.
type TranslateSubmission struct {
	TaskID            string            `json:"taskId"`
	FilePath          string            `json:"absoluteFilePath"`
	TargetLang        string            `json:"targetLang"`
	CustomPrompt      string            `json:"customPrompt,omitempty"`
	DictionaryEntries []DictionaryEntry `json:"dictionaryEntries"`
	CallbackURL       string            `json:"callbackUrl"`
	SkipCache         bool              `json:"skipCache"`
}

// WorkerItem is one translated record in a worker report or an assembly
// submission. RecordID and RecordType are opaque to the orchestrator.
type WorkerItem struct {
	RecordID   string `json:"recordId"`
	RecordType string `json:"recordType"`
	SourceText string `json:"sourceText"`
	TargetText string `json:"targetText"`
}

// AssemblySubmission is the payload for the worker's post-review assembly endpoint.
type AssemblySubmission struct {
	TaskID      string       `json:"taskId"`
	FilePath    string       `json:"absoluteFilePath"`
	Items       []WorkerItem `json:"items"`
	CallbackURL string       `json:"callbackUrl"`
}

// WorkerProgress mirrors the worker's translated/total counters.
type WorkerProgress struct {
	Translated int `json:"translated"`
	Total      int `json:"total"`
}

// WorkerReport is the worker's view of a task, delivered by callback or
// returned from a status poll. Items is populated only in confirmation mode
// while translation is still in flight.
type WorkerReport struct {
	TaskID             string         `json:"taskId"`
	Status             string         `json:"status"`
	Progress           WorkerProgress `json:"progress"`
	OutputFilePath     string         `json:"outputFilePath,omitempty"`
	OriginalBackupPath string         `json:"originalBackupPath,omitempty"`
	Error              string         `json:"error,omitempty"`
	Items              []WorkerItem   `json:"items,omitempty"`
}
