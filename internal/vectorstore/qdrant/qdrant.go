package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"ragqa/internal/domain"
	"ragqa/internal/httpjson"
	"ragqa/internal/vectorstore"
)

const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "ragqa"
	DefaultTimeout    = 15 * time.Second
)

// Storage is a minimal REST client to Qdrant. Point IDs are the ordinal
// positions of the vectors, and the collection uses dot-product distance
// since incoming vectors are already normalized.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu   sync.Mutex
	next int
}

// Config contains connection details for a Qdrant vector store.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

var _ vectorstore.Storage = (*Storage)(nil)

func NewStorage(cfg Config) *Storage {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) Name() string { return "qdrant" }

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Dot",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	s.mu.Lock()
	s.next = 0
	s.mu.Unlock()
	return nil
}

type point struct {
	ID      int            `json:"id"`
	Vector  domain.Vector  `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (s *Storage) Upsert(ctx context.Context, vectors []domain.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	points := make([]point, len(vectors))
	for i, v := range vectors {
		pos := s.next + i
		points[i] = point{ID: pos, Vector: v, Payload: map[string]any{"position": pos}}
	}
	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	s.next += len(vectors)
	return nil
}

func (s *Storage) Search(ctx context.Context, vector domain.Vector, topK int) ([]domain.Hit, error) {
	if topK < 1 {
		return nil, domain.ErrInvalidTopK
	}
	req := map[string]any{
		"vector": vector,
		"limit":  topK,
	}
	var resp struct {
		Result []struct {
			ID    int     `json:"id"`
			Score float32 `json:"score"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	hits := make([]domain.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, domain.Hit{Score: r.Score, Position: r.ID})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})
	return hits, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/count"), map[string]any{"exact": true}, &resp); err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: qdrant collection %s", domain.ErrIndexNotFound, s.collection)
		}
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return resp.Result.Count, nil
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("qdrant drop collection: %w", err)
	}
	s.mu.Lock()
	s.next = 0
	s.mu.Unlock()
	return nil
}

// Persist is a no-op: Qdrant stores points durably on upsert.
func (s *Storage) Persist(context.Context) error { return nil }

// Load checks that the collection exists and resumes numbering after its points.
func (s *Storage) Load(ctx context.Context) error {
	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.next = n
	s.mu.Unlock()
	return nil
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var headers map[string]string
	if s.apiKey != "" {
		headers = map[string]string{"api-key": s.apiKey}
	}
	return httpjson.Do(ctx, s.client, method, url, headers, body, out)
}

func isNotFound(err error) bool {
	var statusErr *httpjson.StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}
