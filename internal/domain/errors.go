package domain

import (
	"errors"
	"fmt"
)

// Domain errors are returned as values so that every surface (CLI, TUI, web)
// can handle them the same way.
var (
	// ErrNoDocuments indicates that ingestion found nothing readable to embed.
	ErrNoDocuments = errors.New("no documents found")

	// ErrIndexNotFound indicates the persisted index or metadata is missing.
	ErrIndexNotFound = errors.New("index not found; run ingest first")

	// ErrIndexCorrupt indicates the index and its metadata are not positionally aligned.
	ErrIndexCorrupt = errors.New("index and metadata are out of sync")

	// ErrInvalidChunkConfig indicates a non-positive chunk size or an overlap
	// that is negative or not smaller than the chunk size.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrDimensionMismatch indicates vectors of different lengths were mixed.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyQuery indicates a blank question.
	ErrEmptyQuery = errors.New("empty query")

	// ErrInvalidTopK indicates k < 1.
	ErrInvalidTopK = errors.New("k must be at least 1")

	// ErrUnsupportedType indicates an unknown backend or document type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrBackendTransient marks backend failures worth retrying
	// (transport errors, HTTP 429 and 5xx).
	ErrBackendTransient = errors.New("transient backend failure")
)

// RetrievalBackendError is returned when the embedding backend fails, times
// out or returns a payload that does not match the expected shape.
type RetrievalBackendError struct {
	Backend string
	Err     error
}

func (e *RetrievalBackendError) Error() string {
	return fmt.Sprintf("embedding backend %s: %v", e.Backend, e.Err)
}

func (e *RetrievalBackendError) Unwrap() error { return e.Err }

// GenerationBackendError is returned when the generation backend fails.
type GenerationBackendError struct {
	Backend string
	Err     error
}

func (e *GenerationBackendError) Error() string {
	return fmt.Sprintf("generation backend %s: %v", e.Backend, e.Err)
}

func (e *GenerationBackendError) Unwrap() error { return e.Err }
