package domain

import (
	"context"
	"strings"
)

// SourceType tells how the text of a document was obtained.
type SourceType string

const (
	SourceText SourceType = "text"
	SourcePDF  SourceType = "pdf"
)

// Document represents a single file loaded into the system.
type Document struct {
	Path       string
	Text       string
	SourceType SourceType
}

// Chunk is a bounded part of a document used for indexing.
type Chunk struct {
	SourcePath  string     `json:"source_path"`
	Text        string     `json:"text"`
	SourceType  SourceType `json:"source_type"`
	ChunkIndex  int        `json:"chunk_index"`
	TotalChunks int        `json:"total_chunks"`
}

// Valid reports whether the chunk position fields are consistent.
func (c Chunk) Valid() bool {
	return c.TotalChunks >= 1 && c.ChunkIndex >= 0 && c.ChunkIndex < c.TotalChunks
}

// Vector is an L2-normalized embedding.
type Vector []float32

// Hit is a raw index match: a score and the ordinal position of the vector.
type Hit struct {
	Score    float32
	Position int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk    Chunk   `json:"chunk"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`
}

// Retrieved is the part of a search result handed to the generator.
type Retrieved struct {
	SourcePath string
	Text       string
}

// Query is a question together with the number of chunks to retrieve.
type Query struct {
	Text string
	K    int
}

// Validate checks that the query can be executed.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyQuery
	}
	if q.K < 1 {
		return ErrInvalidTopK
	}
	return nil
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts texts into normalized vectors, one per input in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]Vector, error)
	EmbedOne(ctx context.Context, text string) (Vector, error)
	ModelName() string
}

// Generator answers a question grounded on retrieved chunks.
type Generator interface {
	Generate(ctx context.Context, question string, retrieved []Retrieved) (string, error)
	ModelName() string
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// RAGService defines the operations exposed by the application core.
type RAGService interface {
	Ingest(ctx context.Context, paths []string) (IngestReport, error)
	Retrieve(ctx context.Context, q Query) ([]SearchResult, error)
	Ask(ctx context.Context, q Query) (Answer, error)
	Status(ctx context.Context) Status
}
