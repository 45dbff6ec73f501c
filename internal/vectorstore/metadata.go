package vectorstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ragqa/internal/domain"
)

const (
	IndexFile    = "index.bin"
	MetadataFile = "metadata.json"
)

// Manifest describes how an index was built.
type Manifest struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	Store          string    `json:"store"`
	Count          int       `json:"count"`
}

// Metadata is the chunk list aligned with the vector index: Chunks[i]
// describes the vector at position i.
type Metadata struct {
	Manifest Manifest       `json:"manifest"`
	Chunks   []domain.Chunk `json:"chunks"`
}

// SaveMetadata writes m to path atomically.
func SaveMetadata(path string, m Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace metadata: %w", err)
	}
	return nil
}

// LoadMetadata reads metadata written by SaveMetadata.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %v", domain.ErrIndexCorrupt, err)
	}
	for i, ch := range m.Chunks {
		if !ch.Valid() {
			return nil, fmt.Errorf("%w: chunk %d has index %d of %d", domain.ErrIndexCorrupt, i, ch.ChunkIndex, ch.TotalChunks)
		}
	}
	return &m, nil
}
