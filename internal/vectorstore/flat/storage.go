package flat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ragqa/internal/domain"
	"ragqa/internal/vectorstore"
)

// Storage keeps an Index in memory and persists it to a single file.
type Storage struct {
	path string

	mu    sync.RWMutex
	index *Index
}

var _ vectorstore.Storage = (*Storage)(nil)

func NewStorage(path string) *Storage {
	return &Storage{path: path, index: New(0)}
}

func (s *Storage) Name() string { return "flat" }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = New(dimension)
	return nil
}

func (s *Storage) Upsert(_ context.Context, vectors []domain.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Add(vectors...)
}

func (s *Storage) Search(_ context.Context, vector domain.Vector, topK int) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Search(vector, topK)
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len(), nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = New(s.index.Dimension())
	return nil
}

func (s *Storage) Persist(_ context.Context) error {
	s.mu.RLock()
	data, err := s.index.MarshalBinary()
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

func (s *Storage) Load(_ context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrIndexNotFound, s.path)
		}
		return fmt.Errorf("read index: %w", err)
	}
	index, err := Load(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.index = index
	s.mu.Unlock()
	return nil
}

func (s *Storage) Close() error { return nil }
