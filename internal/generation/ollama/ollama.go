package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ragqa/internal/generation"
	"ragqa/internal/httpjson"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Backend calls Ollama's non-streaming /api/generate endpoint.
type Backend struct {
	baseURL string
	model   string
	client  *http.Client
}

var _ generation.Backend = (*Backend)(nil)

func New(cfg Config) *Backend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Backend{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (b *Backend) Name() string  { return "ollama" }
func (b *Backend) Model() string { return b.model }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (b *Backend) Complete(ctx context.Context, prompt string) (string, error) {
	var out generateResponse
	req := generateRequest{Model: b.model, Prompt: prompt}
	if err := httpjson.Post(ctx, b.client, b.baseURL+"/api/generate", nil, req, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Response), nil
}
