// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/modlingo/modlingo/internal/services"
)

// MockWorker is a test double for [services.TranslationWorker]. Submissions
// are recorded and status replies served from a per-task map.
type MockWorker struct {
	mu sync.Mutex

	TranslateCalls []services.TranslateSubmission
	AssemblyCalls  []services.AssemblySubmission
	StatusCalls    []string

	Reports map[string]*services.WorkerReport

	TranslateErr error
	AssemblyErr  error
	StatusErr    error
}

func NewMockWorker() *MockWorker {
	return &MockWorker{Reports: map[string]*services.WorkerReport{}}
}

func (m *MockWorker) SubmitTranslate(ctx context.Context, sub services.TranslateSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranslateCalls = append(m.TranslateCalls, sub)
	return m.TranslateErr
}

func (m *MockWorker) SubmitAssembly(ctx context.Context, sub services.AssemblySubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AssemblyCalls = append(m.AssemblyCalls, sub)
	return m.AssemblyErr
}

func (m *MockWorker) FetchStatus(ctx context.Context, taskID string) (*services.WorkerReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCalls = append(m.StatusCalls, taskID)
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	report, ok := m.Reports[taskID]
	if !ok {
		return nil, errors.New("no report configured")
	}
	return report, nil
}

// SetReport replaces the status reply for a task.
func (m *MockWorker) SetReport(taskID string, report *services.WorkerReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reports[taskID] = report
}

// MockStorage is a test double for [services.ArtifactStorage]. Uploaded keys
// are recorded; the returned URL is "mock://" plus the key.
type MockStorage struct {
	mu sync.Mutex

	Uploads []string
	Deletes []string

	UploadErr error
	DeleteErr error
}

func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

func (m *MockStorage) Upload(ctx context.Context, key, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	m.Uploads = append(m.Uploads, key)
	return "mock://" + key, nil
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deletes = append(m.Deletes, key)
	return nil
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileGone(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File still exists: %s", path)
	}
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
