package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ragqa/internal/embedding"
	"ragqa/internal/httpjson"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-embedding-001"
	DefaultTimeout = 30 * time.Second
)

// Config configures the Gemini embeddings backend.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Backend calls the batchEmbedContents method of the Generative Language API.
type Backend struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ embedding.Backend = (*Backend)(nil)

func New(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
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
		apiKey:  cfg.APIKey,
		model:   strings.TrimPrefix(cfg.Model, "models/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (b *Backend) Name() string  { return "gemini" }
func (b *Backend) Model() string { return b.model }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type embedContentRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type batchRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type batchResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

func (b *Backend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := batchRequest{Requests: make([]embedContentRequest, len(texts))}
	for i, t := range texts {
		req.Requests[i] = embedContentRequest{
			Model:   "models/" + b.model,
			Content: content{Parts: []part{{Text: t}}},
		}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:batchEmbedContents", b.baseURL, b.model)
	headers := map[string]string{"x-goog-api-key": b.apiKey}

	var out batchResponse
	if err := httpjson.Post(ctx, b.client, url, headers, req, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(out.Embeddings), len(texts))
	}
	vecs := make([][]float32, len(out.Embeddings))
	for i, e := range out.Embeddings {
		vecs[i] = e.Values
	}
	return vecs, nil
}
