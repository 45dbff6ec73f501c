// Package httpjson holds the small JSON-over-HTTP helpers shared by the
// hand-written backend clients (Ollama, Gemini, Qdrant).
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ragqa/internal/domain"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 64 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Unwrap exposes domain.ErrBackendTransient for 429 and 5xx responses.
func (e *StatusError) Unwrap() error {
	if isTransientStatus(e.Code) {
		return domain.ErrBackendTransient
	}
	return nil
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Classify marks err as transient when it comes from the transport (status 0)
// or from a 429/5xx response. Errors caused by ctx are returned unchanged.
func Classify(ctx context.Context, status int, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if status == 0 || isTransientStatus(status) {
		return fmt.Errorf("%w: %v", domain.ErrBackendTransient, err)
	}
	return err
}

// Post sends body as JSON and decodes the JSON response into out.
func Post(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	return Do(ctx, client, http.MethodPost, url, headers, body, out)
}

// Do performs a JSON request. body and out may be nil.
func Do(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Classify(ctx, 0, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Classify(ctx, 0, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: truncate(string(payload), 512)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
