package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
	"ragqa/internal/logger"
)

type countingIngester struct {
	mu    sync.Mutex
	calls int
}

func (c *countingIngester) Ingest(context.Context, []string) (domain.IngestReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return domain.IngestReport{Documents: c.calls}, nil
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"create txt", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Create}, true},
		{"write pdf", fsnotify.Event{Name: "/d/a.PDF", Op: fsnotify.Write}, true},
		{"remove txt", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Remove}, true},
		{"rename txt", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Rename}, true},
		{"chmod txt", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Chmod}, false},
		{"markdown", fsnotify.Event{Name: "/d/a.md", Op: fsnotify.Create}, false},
		{"hidden", fsnotify.Event{Name: "/d/.a.txt", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.ev))
		})
	}
}

func TestRun_IngestsAfterChange(t *testing.T) {
	dir := t.TempDir()
	ing := &countingIngester{}
	done := make(chan domain.IngestReport, 4)

	w := New(dir, ing, Options{
		Debounce:      50 * time.Millisecond,
		IngestOnStart: true,
		OnIngest:      func(r domain.IngestReport, _ error) { done <- r },
		Logger:        logger.Discard(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	select {
	case r := <-done:
		assert.Equal(t, 1, r.Documents)
	case <-time.After(5 * time.Second):
		t.Fatal("no ingest on start")
	}

	// several writes within the debounce window collapse into one ingest
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	}

	select {
	case r := <-done:
		assert.Equal(t, 2, r.Documents)
	case <-time.After(5 * time.Second):
		t.Fatal("no ingest after change")
	}

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRun_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), &countingIngester{}, Options{Logger: logger.Discard()})
	err := w.Run(context.Background())
	assert.Error(t, err)
}
