package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ragqa/internal/chunker"
	"ragqa/internal/config"
	"ragqa/internal/embedding"
	embgemini "ragqa/internal/embedding/gemini"
	"ragqa/internal/embedding/local"
	embollama "ragqa/internal/embedding/ollama"
	embopenai "ragqa/internal/embedding/openai"
	"ragqa/internal/generation"
	"ragqa/internal/generation/echo"
	gengemini "ragqa/internal/generation/gemini"
	genollama "ragqa/internal/generation/ollama"
	genopenai "ragqa/internal/generation/openai"
	"ragqa/internal/reader"
	"ragqa/internal/service"
	"ragqa/internal/summarizer"
	"ragqa/internal/vectorstore"
	"ragqa/internal/vectorstore/flat"
	"ragqa/internal/vectorstore/pgvector"
	"ragqa/internal/vectorstore/qdrant"
)

// buildService assembles the pipeline described by cfg. The returned
// close function releases the vector store.
func buildService(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*service.RAGServiceImpl, func() error, error) {
	ch, err := chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		return nil, nil, err
	}
	emb, err := buildEmbedder(cfg.Embedder, log)
	if err != nil {
		return nil, nil, err
	}
	gen, err := buildGenerator(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	st, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := service.NewRAGService(service.Options{
		DocumentsDir: cfg.Documents.Dir,
		IndexDir:     cfg.Index.Dir,
		ChunkSize:    cfg.Chunker.ChunkSize,
		ChunkOverlap: cfg.Chunker.Overlap,
		Logger:       log,
	}, service.Deps{
		Reader:     reader.New(log),
		Chunker:    ch,
		Embedder:   emb,
		Store:      st,
		Generator:  gen,
		Summarizer: summarizer.NewFrequencySummarizer(),
	})
	return svc, st.Close, nil
}

func timeout(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}

func buildEmbedder(cfg config.EmbedderConfig, log *slog.Logger) (*embedding.Gateway, error) {
	var (
		backend embedding.Backend
		err     error
	)
	switch cfg.Type {
	case "local":
		dim := 0
		if cfg.Local != nil {
			dim = cfg.Local.Dimension
		}
		backend = local.New(dim)
	case "openai":
		b := cfg.OpenAI
		backend, err = embopenai.New(embopenai.Config{
			BaseURL: b.BaseURL,
			APIKey:  config.APIKey(b),
			Model:   b.Model,
			Timeout: timeout(b.TimeoutSecs),
		})
	case "ollama":
		b := cfg.Ollama
		backend = embollama.New(embollama.Config{BaseURL: b.BaseURL, Model: b.Model, Timeout: timeout(b.TimeoutSecs)})
	case "gemini":
		b := cfg.Gemini
		backend, err = embgemini.New(embgemini.Config{
			BaseURL: b.BaseURL,
			APIKey:  config.APIKey(b),
			Model:   b.Model,
			Timeout: timeout(b.TimeoutSecs),
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("embedder init failed: %w", err)
	}
	return embedding.NewGateway(backend, embedding.Options{
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		MaxRetries:  cfg.MaxRetries,
		Logger:      log,
	}), nil
}

func buildGenerator(cfg *config.AppConfig, log *slog.Logger) (*generation.Generator, error) {
	g := cfg.Generator
	var (
		backend generation.Backend
		err     error
	)
	switch g.Type {
	case "echo":
		backend = echo.New()
	case "openai":
		b := g.OpenAI
		backend, err = genopenai.New(genopenai.Config{
			BaseURL: b.BaseURL,
			APIKey:  config.APIKey(b),
			Model:   b.Model,
			Timeout: timeout(b.TimeoutSecs),
		})
	case "ollama":
		b := g.Ollama
		backend = genollama.New(genollama.Config{BaseURL: b.BaseURL, Model: b.Model, Timeout: timeout(b.TimeoutSecs)})
	case "gemini":
		b := g.Gemini
		backend, err = gengemini.New(gengemini.Config{
			BaseURL: b.BaseURL,
			APIKey:  config.APIKey(b),
			Model:   b.Model,
			Timeout: timeout(b.TimeoutSecs),
		})
	default:
		return nil, fmt.Errorf("unknown generator: %s", g.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("generator init failed: %w", err)
	}

	opts := generation.Options{
		PreviewChars: cfg.Retrieval.PreviewChars,
		MaxRetries:   g.MaxRetries,
		Logger:       log,
	}
	if g.CountTokens {
		counter, err := generation.TiktokenCounter(backend.Model())
		if err != nil {
			log.Warn("token counting disabled", "error", err)
		} else {
			opts.CountTokens = counter
		}
	}
	return generation.New(backend, opts), nil
}

func buildStore(ctx context.Context, cfg *config.AppConfig) (vectorstore.Storage, error) {
	switch cfg.VectorStore.Type {
	case "flat":
		return flat.NewStorage(filepath.Join(cfg.Index.Dir, vectorstore.IndexFile)), nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Timeout:    timeout(q.TimeoutSecs),
		}), nil
	case "pgvector":
		p := cfg.VectorStore.PGVector
		dsn := os.Getenv(p.DSNEnv)
		if dsn == "" {
			return nil, errors.New("pgvector: " + p.DSNEnv + " is not set")
		}
		return pgvector.NewStorage(ctx, pgvector.Config{DSN: dsn, Table: p.Table})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}
