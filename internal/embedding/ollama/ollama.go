package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ragqa/internal/embedding"
	"ragqa/internal/httpjson"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 60 * time.Second
)

// Config configures the Ollama embeddings backend.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Backend calls Ollama's /api/embed endpoint, which accepts a batch of inputs.
type Backend struct {
	baseURL string
	model   string
	client  *http.Client
}

var _ embedding.Backend = (*Backend)(nil)

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

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (b *Backend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out embedResponse
	if err := httpjson.Post(ctx, b.client, b.baseURL+"/api/embed", nil, embedRequest{Model: b.model, Input: texts}, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}
