package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"ragqa/internal/domain"
	"ragqa/internal/embedding"
	"ragqa/internal/reader"
	"ragqa/internal/vectorstore"
)

const (
	DefaultTopK             = 3
	DefaultSnippetSentences = 2
	DefaultSnippetChars     = 240
)

// DocumentReader loads documents from disk.
type DocumentReader interface {
	ReadDir(ctx context.Context, dir string) ([]domain.Document, error)
	ReadPaths(ctx context.Context, paths []string) ([]domain.Document, error)
}

// Options configures the pipeline.
type Options struct {
	// DocumentsDir is ingested when Ingest is called without paths.
	DocumentsDir string

	// IndexDir holds metadata.json (and index.bin for the flat store).
	IndexDir string

	// ChunkSize and ChunkOverlap are recorded in the index manifest.
	ChunkSize    int
	ChunkOverlap int

	SnippetSentences int
	SnippetChars     int

	Logger *slog.Logger
}

// Deps are the components the pipeline is assembled from.
type Deps struct {
	Reader     DocumentReader
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	Store      vectorstore.Storage
	Generator  domain.Generator
	Summarizer domain.Summarizer
}

// RAGServiceImpl runs ingestion and question answering over one index.
// Queries may run concurrently; an ingest swaps the index in under a write lock.
type RAGServiceImpl struct {
	opts       Options
	reader     DocumentReader
	chunker    domain.Chunker
	embedder   domain.Embedder
	store      vectorstore.Storage
	generator  domain.Generator
	summarizer domain.Summarizer
	logger     *slog.Logger

	ingestMu sync.Mutex

	mu       sync.RWMutex
	loaded   bool
	chunks   []domain.Chunk
	manifest vectorstore.Manifest
}

var _ domain.RAGService = (*RAGServiceImpl)(nil)

func NewRAGService(opts Options, deps Deps) *RAGServiceImpl {
	if opts.SnippetSentences <= 0 {
		opts.SnippetSentences = DefaultSnippetSentences
	}
	if opts.SnippetChars <= 0 {
		opts.SnippetChars = DefaultSnippetChars
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RAGServiceImpl{
		opts:       opts,
		reader:     deps.Reader,
		chunker:    deps.Chunker,
		embedder:   deps.Embedder,
		store:      deps.Store,
		generator:  deps.Generator,
		summarizer: deps.Summarizer,
		logger:     logger,
	}
}

func (s *RAGServiceImpl) metadataPath() string {
	return filepath.Join(s.opts.IndexDir, vectorstore.MetadataFile)
}

// Ingest reads, chunks and embeds the given paths (or the documents
// directory when paths is empty) and replaces the index with the result.
func (s *RAGServiceImpl) Ingest(ctx context.Context, paths []string) (domain.IngestReport, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	start := time.Now()
	var (
		docs []domain.Document
		err  error
	)
	if len(paths) == 0 {
		docs, err = s.reader.ReadDir(ctx, s.opts.DocumentsDir)
	} else {
		docs, err = s.reader.ReadPaths(ctx, paths)
	}
	if err != nil {
		return domain.IngestReport{}, err
	}
	if len(docs) == 0 {
		return domain.IngestReport{}, domain.ErrNoDocuments
	}

	report := domain.IngestReport{Documents: len(docs), IndexDir: s.opts.IndexDir, Store: s.store.Name()}
	var chunks []domain.Chunk
	for _, d := range docs {
		if d.SourceType == domain.SourcePDF {
			report.PDFFiles++
		} else {
			report.TextFiles++
		}
		cs, err := s.chunker.Chunk(d)
		if err != nil {
			return domain.IngestReport{}, fmt.Errorf("chunk %s: %w", d.Path, err)
		}
		chunks = append(chunks, cs...)
	}
	if len(chunks) == 0 {
		return domain.IngestReport{}, fmt.Errorf("%w: documents contain no text", domain.ErrNoDocuments)
	}
	s.logger.Info("documents chunked", "documents", len(docs), "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return domain.IngestReport{}, err
	}
	dim := len(vectors[0])

	manifest := vectorstore.Manifest{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		EmbeddingModel: s.embedder.ModelName(),
		Dimension:      dim,
		ChunkSize:      s.opts.ChunkSize,
		ChunkOverlap:   s.opts.ChunkOverlap,
		Store:          s.store.Name(),
		Count:          len(chunks),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// until the new index is fully written, force a reload on the next query
	s.loaded = false
	if err := s.store.Init(ctx, dim); err != nil {
		return domain.IngestReport{}, err
	}
	if err := s.store.Upsert(ctx, vectors); err != nil {
		return domain.IngestReport{}, err
	}
	if err := s.store.Persist(ctx); err != nil {
		return domain.IngestReport{}, err
	}
	if err := vectorstore.SaveMetadata(s.metadataPath(), vectorstore.Metadata{Manifest: manifest, Chunks: chunks}); err != nil {
		return domain.IngestReport{}, err
	}
	s.chunks = chunks
	s.manifest = manifest
	s.loaded = true

	report.IndexID = manifest.ID
	report.Chunks = len(chunks)
	report.Dimension = dim
	report.EmbeddingModel = manifest.EmbeddingModel
	report.Elapsed = time.Since(start)
	s.logger.Info("index built", "id", manifest.ID, "chunks", len(chunks), "dimension", dim, "elapsed", report.Elapsed)
	return report, nil
}

// Load reads the persisted index and metadata, replacing the in-memory state.
func (s *RAGServiceImpl) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *RAGServiceImpl) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	return s.loadLocked(ctx)
}

func (s *RAGServiceImpl) loadLocked(ctx context.Context) error {
	meta, err := vectorstore.LoadMetadata(s.metadataPath())
	if err != nil {
		return err
	}
	if err := s.store.Load(ctx); err != nil {
		return err
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		return err
	}
	if n != len(meta.Chunks) {
		return fmt.Errorf("%w: index has %d vectors, metadata has %d chunks", domain.ErrIndexCorrupt, n, len(meta.Chunks))
	}
	if meta.Manifest.EmbeddingModel != "" && meta.Manifest.EmbeddingModel != s.embedder.ModelName() {
		s.logger.Warn("index was built with a different embedding model",
			"index_model", meta.Manifest.EmbeddingModel, "current_model", s.embedder.ModelName())
	}
	s.chunks = meta.Chunks
	s.manifest = meta.Manifest
	s.loaded = true
	s.logger.Debug("index loaded", "id", meta.Manifest.ID, "chunks", n)
	return nil
}

// Retrieve returns up to q.K chunks ranked by similarity to q.Text.
func (s *RAGServiceImpl) Retrieve(ctx context.Context, q domain.Query) ([]domain.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	vec, err := s.embedder.EmbedOne(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		// a concurrent ingest failed part way
		return nil, domain.ErrIndexNotFound
	}

	if embedding.IsZero(vec) {
		return s.lexicalSearch(q.Text, q.K), nil
	}
	hits, err := s.store.Search(ctx, vec, q.K)
	if err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(s.chunks) {
			continue
		}
		results = append(results, domain.SearchResult{Chunk: s.chunks[h.Position], Score: float64(h.Score), Position: h.Position})
	}
	return results, nil
}

// Ask retrieves context for q and generates a grounded answer.
func (s *RAGServiceImpl) Ask(ctx context.Context, q domain.Query) (domain.Answer, error) {
	results, err := s.Retrieve(ctx, q)
	if err != nil {
		return domain.Answer{}, err
	}
	retrieved := make([]domain.Retrieved, len(results))
	sources := make([]domain.Source, len(results))
	for i, r := range results {
		retrieved[i] = domain.Retrieved{SourcePath: r.Chunk.SourcePath, Text: r.Chunk.Text}
		sources[i] = domain.Source{
			Path:        r.Chunk.SourcePath,
			Score:       r.Score,
			ChunkIndex:  r.Chunk.ChunkIndex,
			TotalChunks: r.Chunk.TotalChunks,
			Preview:     s.snippet(r.Chunk.Text),
		}
	}

	text, err := s.generator.Generate(ctx, q.Text, retrieved)
	if err != nil {
		return domain.Answer{}, err
	}
	return domain.Answer{Question: q.Text, Text: text, Sources: sources}, nil
}

// Status reports on the index without failing when it is missing.
func (s *RAGServiceImpl) Status(ctx context.Context) domain.Status {
	err := s.ensureLoaded(ctx)
	if err != nil && !errors.Is(err, domain.ErrIndexNotFound) {
		s.logger.Warn("index unavailable", "error", err)
	}

	counts := reader.CountDir(s.opts.DocumentsDir)
	st := domain.Status{
		EmbeddingModel:  s.embedder.ModelName(),
		GenerationModel: s.generator.ModelName(),
		Store:           s.store.Name(),
		DocumentsDir:    s.opts.DocumentsDir,
		TextFiles:       counts.Text,
		PDFFiles:        counts.PDF,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loaded {
		st.IndexLoaded = true
		st.IndexID = s.manifest.ID
		st.Chunks = len(s.chunks)
		st.CreatedAt = s.manifest.CreatedAt
	}
	return st
}

func (s *RAGServiceImpl) snippet(text string) string {
	summary := text
	if s.summarizer != nil {
		if sum, err := s.summarizer.Summarize(text, s.opts.SnippetSentences); err == nil && sum != "" {
			summary = sum
		}
	}
	summary = strings.Join(strings.Fields(summary), " ")
	if utf8.RuneCountInString(summary) <= s.opts.SnippetChars {
		return summary
	}
	runes := []rune(summary)
	return strings.TrimSpace(string(runes[:s.opts.SnippetChars])) + "…"
}
