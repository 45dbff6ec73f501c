package vectorstore

import (
	"context"

	"ragqa/internal/domain"
)

// Storage holds the vectors of one index and answers inner-product queries.
// Vectors are addressed by ordinal position: the i-th vector added since the
// last Init has position i.
type Storage interface {
	Name() string

	// Init drops any existing vectors and prepares an empty index of the given dimension.
	Init(ctx context.Context, dimension int) error

	// Upsert appends vectors at the next free positions.
	Upsert(ctx context.Context, vectors []domain.Vector) error

	// Search returns up to topK hits in non-increasing score order.
	// Ties keep insertion order. An empty index yields no hits.
	Search(ctx context.Context, vector domain.Vector, topK int) ([]domain.Hit, error)

	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error

	// Persist makes the current vectors durable; Load restores them.
	// Load returns domain.ErrIndexNotFound when nothing was persisted.
	Persist(ctx context.Context) error
	Load(ctx context.Context) error

	Close() error
}
