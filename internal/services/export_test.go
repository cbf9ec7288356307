package services

import "net/http"

// Accessors for external test packages.

func (w *WorkerClient) BaseURL() string { return w.baseURL }

func (w *WorkerClient) HTTPClient() *http.Client { return w.httpClient }
