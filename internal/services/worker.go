// HTTP client for the external translation worker process
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/modlingo/modlingo/internal/shared"
)

// WorkerClient implements [TranslationWorker] over the worker's HTTP API.
type WorkerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewWorkerClient creates a worker client for the given base URL.
func NewWorkerClient(baseURL string, client *http.Client) *WorkerClient {
	if baseURL == "" {
		baseURL = "http://localhost:9000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &WorkerClient{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// SubmitTranslate posts a translate submission to the worker.
func (w *WorkerClient) SubmitTranslate(ctx context.Context, sub TranslateSubmission) error {
	return w.post(ctx, "/api/translate", sub)
}

// SubmitAssembly posts a post-review assembly submission to the worker.
func (w *WorkerClient) SubmitAssembly(ctx context.Context, sub AssemblySubmission) error {
	return w.post(ctx, "/api/assembly", sub)
}

// FetchStatus polls the worker for the current state of a task.
//
// Any transport error and any non-2xx response, including the worker having
// no record of the task, count as a sync failure for the caller.
func (w *WorkerClient) FetchStatus(ctx context.Context, taskID string) (*WorkerReport, error) {
	fullURL := w.baseURL + "/api/status/" + url.PathEscape(taskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrWorkerUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrWorkerUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d for task %s", shared.ErrWorkerUnavailable, resp.StatusCode, taskID)
	}

	var report WorkerReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("%w: invalid status payload: %v", shared.ErrWorkerUnavailable, err)
	}

	return &report, nil
}

// post marshals data and performs a POST request to the worker.
func (w *WorkerClient) post(ctx context.Context, path string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrWorkerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", shared.ErrWorkerUnavailable, resp.StatusCode, string(body))
	}

	return nil
}
