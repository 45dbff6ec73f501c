package generation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"ragqa/internal/domain"
)

const DefaultRetryBase = time.Second

// Backend completes a single prompt.
type Backend interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// TokenCounter returns the number of tokens in text.
type TokenCounter func(text string) (int, error)

// Options tunes prompt construction and retries.
type Options struct {
	// PreviewChars caps how much of each chunk goes into the prompt.
	PreviewChars int

	// MaxRetries is how many times a transient failure is retried. Zero disables retries.
	MaxRetries int
	RetryBase  time.Duration

	// CountTokens, when set, is used to log the prompt size.
	CountTokens TokenCounter

	Logger *slog.Logger
}

// Generator builds a grounded prompt and sends it to a Backend.
type Generator struct {
	backend Backend
	opts    Options
	logger  *slog.Logger
}

var _ domain.Generator = (*Generator)(nil)

func New(backend Backend, opts Options) *Generator {
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = DefaultPreviewChars
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
	return &Generator{backend: backend, opts: opts, logger: logger}
}

func (g *Generator) ModelName() string { return g.backend.Model() }

func (g *Generator) Generate(ctx context.Context, question string, retrieved []domain.Retrieved) (string, error) {
	prompt := BuildPrompt(question, retrieved, g.opts.PreviewChars)
	if g.opts.CountTokens != nil {
		if n, err := g.opts.CountTokens(prompt); err == nil {
			g.logger.Debug("prompt built", "tokens", n, "chunks", len(retrieved))
		}
	}

	var answer string
	backoff := retry.WithMaxRetries(uint64(g.opts.MaxRetries), retry.NewExponential(g.opts.RetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		answer, err = g.backend.Complete(ctx, prompt)
		if err != nil && errors.Is(err, domain.ErrBackendTransient) {
			g.logger.Warn("generation failed", "backend", g.backend.Name(), "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return "", &domain.GenerationBackendError{Backend: g.backend.Name(), Err: err}
	}
	return answer, nil
}
