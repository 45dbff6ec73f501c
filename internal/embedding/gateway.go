package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"ragqa/internal/domain"
)

const (
	DefaultBatchSize   = 32
	DefaultConcurrency = 1
	DefaultRetryBase   = 500 * time.Millisecond
)

// Options tunes how the gateway talks to its backend.
type Options struct {
	// BatchSize is the maximum number of texts per backend call.
	BatchSize int

	// Concurrency is the number of batches in flight at once.
	Concurrency int

	// MaxRetries is how many times a transient failure is retried. Zero disables retries.
	MaxRetries int

	// RetryBase is the first backoff delay; later delays grow exponentially.
	RetryBase time.Duration

	Logger *slog.Logger
}

// Gateway turns texts into L2-normalized vectors through a Backend.
// All vectors produced by one gateway share the same dimension.
type Gateway struct {
	backend Backend
	opts    Options
	logger  *slog.Logger

	mu        sync.Mutex
	dimension int
}

var _ domain.Embedder = (*Gateway)(nil)

func NewGateway(backend Backend, opts Options) *Gateway {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultRetryBase
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{backend: backend, opts: opts, logger: logger}
}

func (g *Gateway) ModelName() string { return g.backend.Model() }

// Dimension returns the vector length seen so far, or 0 before the first call.
func (g *Gateway) Dimension() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dimension
}

// Embed returns one normalized vector per text, in input order.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([]domain.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([]domain.Vector, len(texts))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Concurrency)

	for lo := 0; lo < len(texts); lo += g.opts.BatchSize {
		hi := min(lo+g.opts.BatchSize, len(texts))
		eg.Go(func() error {
			vecs, err := g.embedBatch(ectx, texts[lo:hi])
			if err != nil {
				return err
			}
			copy(out[lo:hi], vecs)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) EmbedOne(ctx context.Context, text string) (domain.Vector, error) {
	vecs, err := g.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *Gateway) embedBatch(ctx context.Context, texts []string) ([]domain.Vector, error) {
	var raw [][]float32
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(g.opts.MaxRetries), retry.NewExponential(g.opts.RetryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		raw, err = g.backend.EmbedBatch(ctx, texts)
		if err != nil && errors.Is(err, domain.ErrBackendTransient) {
			g.logger.Warn("embedding batch failed", "backend", g.backend.Name(), "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, g.fail(err)
	}
	if len(raw) != len(texts) {
		return nil, g.fail(fmt.Errorf("got %d vectors for %d texts", len(raw), len(texts)))
	}

	vecs := make([]domain.Vector, len(raw))
	for i, v := range raw {
		if len(v) == 0 {
			return nil, g.fail(fmt.Errorf("empty vector at position %d", i))
		}
		if err := g.checkDimension(len(v)); err != nil {
			return nil, g.fail(err)
		}
		vecs[i] = Normalize(v)
	}
	return vecs, nil
}

func (g *Gateway) checkDimension(n int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dimension == 0 {
		g.dimension = n
		return nil
	}
	if g.dimension != n {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, n, g.dimension)
	}
	return nil
}

func (g *Gateway) fail(err error) error {
	return &domain.RetrievalBackendError{Backend: g.backend.Name(), Err: err}
}
