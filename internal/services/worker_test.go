package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/modlingo/modlingo/internal/services"
	"github.com/modlingo/modlingo/internal/shared"
	tu "github.com/modlingo/modlingo/internal/testing"
)

func TestWorkerClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Empty BaseURL", func(t *testing.T) {
			client := NewWorkerClient("", nil)
			if client.BaseURL() != "http://localhost:9000" {
				t.Errorf("expected default baseURL, got %s", client.BaseURL())
			}
			if client.HTTPClient() != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("SubmitTranslate", func(t *testing.T) {
		t.Run("Posts Payload", func(t *testing.T) {
			var received TranslateSubmission
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST method, got %s", r.Method)
				}
				if r.URL.Path != "/api/translate" {
					t.Errorf("expected path '/api/translate', got %s", r.URL.Path)
				}
				if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
					t.Errorf("failed to decode payload: %v", err)
				}
				w.WriteHeader(http.StatusAccepted)
			}))
			defer server.Close()

			client := NewWorkerClient(server.URL, nil)
			sub := TranslateSubmission{
				TaskID:      "task-1",
				FilePath:    "/tmp/weapons.mod",
				TargetLang:  "zh",
				CallbackURL: "http://localhost:8080/api/callback",
				SkipCache:   true,
			}
			if err := client.SubmitTranslate(context.Background(), sub); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if received.TaskID != "task-1" || received.FilePath != "/tmp/weapons.mod" {
				t.Errorf("unexpected payload: %+v", received)
			}
			if !received.SkipCache {
				t.Error("skipCache flag lost in transit")
			}
		})

		t.Run("Non-2xx Is Worker Unavailable", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			}))
			defer server.Close()

			client := NewWorkerClient(server.URL, nil)
			err := client.SubmitTranslate(context.Background(), TranslateSubmission{TaskID: "task-1"})
			if !errors.Is(err, shared.ErrWorkerUnavailable) {
				t.Errorf("expected ErrWorkerUnavailable, got %v", err)
			}
		})

		t.Run("Transport Error Is Worker Unavailable", func(t *testing.T) {
			httpClient := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			client := NewWorkerClient("http://localhost:9000", httpClient)

			err := client.SubmitTranslate(context.Background(), TranslateSubmission{TaskID: "task-1"})
			if !errors.Is(err, shared.ErrWorkerUnavailable) {
				t.Errorf("expected ErrWorkerUnavailable, got %v", err)
			}
		})
	})

	t.Run("SubmitAssembly", func(t *testing.T) {
		t.Run("Posts To Assembly Endpoint", func(t *testing.T) {
			var path string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := NewWorkerClient(server.URL, nil)
			sub := AssemblySubmission{
				TaskID: "task-1",
				Items:  []WorkerItem{{RecordID: "rec-1", SourceText: "Fire Sword", TargetText: "火焰剑"}},
			}
			if err := client.SubmitAssembly(context.Background(), sub); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if path != "/api/assembly" {
				t.Errorf("expected path '/api/assembly', got %s", path)
			}
		})
	})

	t.Run("FetchStatus", func(t *testing.T) {
		t.Run("Decodes Report", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/status/task-1" {
					t.Errorf("expected path '/api/status/task-1', got %s", r.URL.Path)
				}
				json.NewEncoder(w).Encode(WorkerReport{
					TaskID:   "task-1",
					Status:   "translating",
					Progress: WorkerProgress{Translated: 3, Total: 10},
				})
			}))
			defer server.Close()

			client := NewWorkerClient(server.URL, nil)
			report, err := client.FetchStatus(context.Background(), "task-1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if report.Status != "translating" {
				t.Errorf("expected translating, got %s", report.Status)
			}
			if report.Progress.Translated != 3 || report.Progress.Total != 10 {
				t.Errorf("unexpected progress: %+v", report.Progress)
			}
		})

		t.Run("Unknown Task Is Worker Unavailable", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			}))
			defer server.Close()

			client := NewWorkerClient(server.URL, nil)
			if _, err := client.FetchStatus(context.Background(), "task-1"); !errors.Is(err, shared.ErrWorkerUnavailable) {
				t.Errorf("expected ErrWorkerUnavailable, got %v", err)
			}
		})

		t.Run("Invalid Payload Is Worker Unavailable", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			}))
			defer server.Close()

			client := NewWorkerClient(server.URL, nil)
			if _, err := client.FetchStatus(context.Background(), "task-1"); !errors.Is(err, shared.ErrWorkerUnavailable) {
				t.Errorf("expected ErrWorkerUnavailable, got %v", err)
			}
		})
	})
}
