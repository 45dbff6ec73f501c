// Package watch re-runs ingestion when documents change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"ragqa/internal/domain"
	"ragqa/internal/reader"
)

const DefaultDebounce = time.Second

type Ingester interface {
	Ingest(ctx context.Context, paths []string) (domain.IngestReport, error)
}

type Options struct {
	Debounce time.Duration
	// IngestOnStart builds the index once before waiting for changes.
	IngestOnStart bool
	// OnIngest, when set, is called after every ingestion attempt.
	OnIngest func(domain.IngestReport, error)
	Logger   *slog.Logger
}

// Watcher ingests the documents directory again after a quiet period
// following changes to .txt or .pdf files.
type Watcher struct {
	dir      string
	ingester Ingester
	opts     Options
	logger   *slog.Logger
}

func New(dir string, ingester Ingester, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{dir: dir, ingester: ingester, opts: opts, logger: logger}
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching documents", "dir", w.dir, "debounce", w.opts.Debounce)

	if w.opts.IngestOnStart {
		w.ingest(ctx)
	}

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("document changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(w.opts.Debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case <-timer.C:
			w.ingest(ctx)
		}
	}
}

func (w *Watcher) ingest(ctx context.Context) {
	report, err := w.ingester.Ingest(ctx, nil)
	switch {
	case err == nil:
		w.logger.Info("re-ingested documents", "documents", report.Documents, "chunks", report.Chunks, "elapsed", report.Elapsed)
	case errors.Is(err, domain.ErrNoDocuments):
		w.logger.Warn("no documents to ingest", "dir", w.dir)
	default:
		w.logger.Error("ingest failed", "error", err)
	}
	if w.opts.OnIngest != nil {
		w.opts.OnIngest(report, err)
	}
}

// relevant reports whether ev touches a supported, non-hidden document.
// Chmod-only events are ignored.
func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	return reader.Supported(ev.Name)
}
