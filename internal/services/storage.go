// HTTP client for the artifact object storage service
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/modlingo/modlingo/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
)

// StorageClient implements [ArtifactStorage] over the storage service's HTTP
// API, authenticating with the OAuth2 client-credentials flow.
type StorageClient struct {
	baseURL    string
	bucket     string
	httpClient *http.Client
}

// NewStorageClient creates a storage client from config. When clientID is
// empty, requests go out unauthenticated (local development storage).
func NewStorageClient(cfg shared.StorageConfig, client *http.Client) *StorageClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:9100"
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "mod-artifacts"
	}

	if client == nil {
		if cfg.ClientID != "" {
			creds := clientcredentials.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenURL:     cfg.TokenURL,
			}
			client = creds.Client(context.Background())
		} else {
			client = http.DefaultClient
		}
	}

	return &StorageClient{
		baseURL:    baseURL,
		bucket:     bucket,
		httpClient: client,
	}
}

// uploadResponse is the storage service's reply to a successful upload.
type uploadResponse struct {
	URL string `json:"url"`
}

// Upload streams the file at path to the storage service under key and
// returns the public download reference.
func (s *StorageClient) Upload(ctx context.Context, key, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open %s: %v", shared.ErrStorageFailure, path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: failed to stat %s: %v", shared.ErrStorageFailure, path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.objectURL(key), file)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/zip")
	req.ContentLength = info.Size()

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", shared.ErrStorageFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", shared.ErrStorageFailure, resp.StatusCode, string(body))
	}

	var upload uploadResponse
	if err := json.Unmarshal(body, &upload); err != nil || upload.URL == "" {
		// Storage backends without a JSON reply serve objects at their key path.
		return s.objectURL(key), nil
	}

	return upload.URL, nil
}

// Delete removes the object stored under key. Missing objects are not an error.
func (s *StorageClient) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(key), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrStorageFailure, resp.StatusCode)
	}

	return nil
}

func (s *StorageClient) objectURL(key string) string {
	return fmt.Sprintf("%s/buckets/%s/objects/%s", s.baseURL, url.PathEscape(s.bucket), url.PathEscape(key))
}
