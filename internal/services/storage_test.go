package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/modlingo/modlingo/internal/shared"
)

func writeTempArchive(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "weapons.zip")
	if err := os.WriteFile(path, []byte("zipdata"), 0o644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
	return path
}

func TestStorageClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Empty Config", func(t *testing.T) {
			client := NewStorageClient(shared.StorageConfig{}, nil)
			if client.baseURL != "http://localhost:9100" {
				t.Errorf("expected default baseURL, got %s", client.baseURL)
			}
			if client.bucket != "mod-artifacts" {
				t.Errorf("expected default bucket, got %s", client.bucket)
			}
			if client.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient without credentials")
			}
		})

		t.Run("With Client Credentials", func(t *testing.T) {
			client := NewStorageClient(shared.StorageConfig{
				ClientID:     "svc",
				ClientSecret: "secret",
				TokenURL:     "http://localhost:9200/token",
			}, nil)
			if client.httpClient == http.DefaultClient {
				t.Error("expected an oauth2 client when credentials are configured")
			}
		})
	})

	t.Run("Upload", func(t *testing.T) {
		t.Run("Streams File And Returns URL", func(t *testing.T) {
			var body []byte
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut {
					t.Errorf("expected PUT method, got %s", r.Method)
				}
				body, _ = io.ReadAll(r.Body)
				json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/weapons.zip"})
			}))
			defer server.Close()

			client := NewStorageClient(shared.StorageConfig{BaseURL: server.URL, Bucket: "artifacts"}, nil)
			url, err := client.Upload(context.Background(), "tasks/task-1/weapons.zip", writeTempArchive(t))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if url != "https://cdn.example.com/weapons.zip" {
				t.Errorf("unexpected url: %s", url)
			}
			if string(body) != "zipdata" {
				t.Errorf("file content not streamed, got %q", string(body))
			}
		})

		t.Run("Falls Back To Object URL Without JSON Reply", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
			}))
			defer server.Close()

			client := NewStorageClient(shared.StorageConfig{BaseURL: server.URL, Bucket: "artifacts"}, nil)
			url, err := client.Upload(context.Background(), "tasks/task-1/weapons.zip", writeTempArchive(t))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if url != client.objectURL("tasks/task-1/weapons.zip") {
				t.Errorf("expected object url fallback, got %s", url)
			}
		})

		t.Run("Missing File Is Storage Failure", func(t *testing.T) {
			client := NewStorageClient(shared.StorageConfig{}, nil)
			_, err := client.Upload(context.Background(), "key", "/does/not/exist.zip")
			if !errors.Is(err, shared.ErrStorageFailure) {
				t.Errorf("expected ErrStorageFailure, got %v", err)
			}
		})

		t.Run("Non-2xx Is Storage Failure", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusForbidden)
			}))
			defer server.Close()

			client := NewStorageClient(shared.StorageConfig{BaseURL: server.URL}, nil)
			_, err := client.Upload(context.Background(), "key", writeTempArchive(t))
			if !errors.Is(err, shared.ErrStorageFailure) {
				t.Errorf("expected ErrStorageFailure, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("Removes Object", func(t *testing.T) {
			var method string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method = r.Method
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			client := NewStorageClient(shared.StorageConfig{BaseURL: server.URL}, nil)
			if err := client.Delete(context.Background(), "tasks/task-1/weapons.zip"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if method != http.MethodDelete {
				t.Errorf("expected DELETE method, got %s", method)
			}
		})

		t.Run("Missing Object Is Not An Error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			}))
			defer server.Close()

			client := NewStorageClient(shared.StorageConfig{BaseURL: server.URL}, nil)
			if err := client.Delete(context.Background(), "gone"); err != nil {
				t.Errorf("expected no error for missing object, got %v", err)
			}
		})
	})
}
