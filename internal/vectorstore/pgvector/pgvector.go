package pgvector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"ragqa/internal/domain"
	"ragqa/internal/vectorstore"
)

const DefaultTable = "ragqa_vectors"

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// Config contains connection details for a PostgreSQL database with the
// pgvector extension.
type Config struct {
	DSN   string
	Table string
}

// Storage keeps vectors in a PostgreSQL table keyed by position and ranks
// them by inner product.
type Storage struct {
	pool  *pgxpool.Pool
	table string

	mu   sync.Mutex
	next int
}

var _ vectorstore.Storage = (*Storage)(nil)

func NewStorage(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgvector: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector ping: %w", err)
	}
	return &Storage{pool: pool, table: quoteTable(cfg.Table)}, nil
}

func quoteTable(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (s *Storage) Name() string { return "pgvector" }

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table),
		fmt.Sprintf(`CREATE TABLE %s (position INT PRIMARY KEY, embedding vector(%d) NOT NULL)`, s.table, dimension),
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("pgvector init: %w", err)
		}
	}
	s.mu.Lock()
	s.next = 0
	s.mu.Unlock()
	return nil
}

func (s *Storage) Upsert(ctx context.Context, vectors []domain.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`INSERT INTO %s (position, embedding) VALUES ($1, $2)
		ON CONFLICT (position) DO UPDATE SET embedding = EXCLUDED.embedding`, s.table)
	batch := &pgx.Batch{}
	for i, v := range vectors {
		batch.Queue(query, s.next+i, pgvector.NewVector(v))
	}
	br := s.pool.SendBatch(ctx, batch)
	for range vectors {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("pgvector upsert: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("pgvector upsert: %w", err)
	}
	s.next += len(vectors)
	return nil
}

func (s *Storage) Search(ctx context.Context, vector domain.Vector, topK int) ([]domain.Hit, error) {
	if topK < 1 {
		return nil, domain.ErrInvalidTopK
	}
	// <#> is the negative inner product
	query := fmt.Sprintf(`SELECT position, -(embedding <#> $1) AS score FROM %s
		ORDER BY embedding <#> $1, position LIMIT $2`, s.table)
	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	var hits []domain.Hit
	for rows.Next() {
		var (
			pos   int
			score float64
		)
		if err := rows.Scan(&pos, &score); err != nil {
			return nil, fmt.Errorf("pgvector scan: %w", err)
		}
		hits = append(hits, domain.Hit{Score: float32(score), Position: pos})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	return hits, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.table)).Scan(&n)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
			return 0, fmt.Errorf("%w: table %s", domain.ErrIndexNotFound, s.table)
		}
		return 0, fmt.Errorf("pgvector count: %w", err)
	}
	return n, nil
}

func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table)); err != nil {
		return fmt.Errorf("pgvector clear: %w", err)
	}
	s.mu.Lock()
	s.next = 0
	s.mu.Unlock()
	return nil
}

// Persist is a no-op: rows are committed on upsert.
func (s *Storage) Persist(context.Context) error { return nil }

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
	s.pool.Close()
	return nil
}
