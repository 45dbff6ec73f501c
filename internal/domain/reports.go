package domain

import "time"

// IngestReport summarises one ingestion run.
type IngestReport struct {
	IndexID        string        `json:"index_id"`
	Documents      int           `json:"documents"`
	TextFiles      int           `json:"text_files"`
	PDFFiles       int           `json:"pdf_files"`
	Chunks         int           `json:"chunks"`
	Dimension      int           `json:"dimension"`
	EmbeddingModel string        `json:"embedding_model"`
	Store          string        `json:"store"`
	IndexDir       string        `json:"index_dir"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Source is a retrieved chunk as shown to the user next to an answer.
type Source struct {
	Path        string  `json:"path"`
	Score       float64 `json:"score"`
	ChunkIndex  int     `json:"chunk_index"`
	TotalChunks int     `json:"total_chunks"`
	Preview     string  `json:"preview"`
}

// Answer is the result of asking a question.
type Answer struct {
	Question string   `json:"question"`
	Text     string   `json:"answer"`
	Sources  []Source `json:"sources"`
}

// Status describes the state of the index and the configured models.
type Status struct {
	IndexLoaded     bool      `json:"index_loaded"`
	IndexID         string    `json:"index_id,omitempty"`
	Chunks          int       `json:"chunks"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	EmbeddingModel  string    `json:"embedding_model"`
	GenerationModel string    `json:"generation_model"`
	Store           string    `json:"store"`
	DocumentsDir    string    `json:"documents_dir"`
	TextFiles       int       `json:"text_files"`
	PDFFiles        int       `json:"pdf_files"`
}
