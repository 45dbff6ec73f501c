package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/chunker"
	"ragqa/internal/domain"
	"ragqa/internal/embedding"
	"ragqa/internal/logger"
	"ragqa/internal/reader"
	"ragqa/internal/summarizer"
	"ragqa/internal/vectorstore"
	"ragqa/internal/vectorstore/flat"
)

// topicBackend embeds texts onto fixed topic axes so that rankings are predictable.
type topicBackend struct {
	mu    sync.Mutex
	calls int
	fail  error
	fixed map[string][]float32
}

var topics = [][]string{
	{"cat", "cats", "feline", "kitten", "mat"},
	{"dog", "dogs", "bark", "puppy"},
	{"stock", "market", "shares"},
}

func (b *topicBackend) Name() string  { return "topic" }
func (b *topicBackend) Model() string { return "topic-v1" }

func (b *topicBackend) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	b.mu.Lock()
	b.calls++
	fail := b.fail
	b.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := b.fixed[t]; ok {
			out[i] = v
			continue
		}
		v := make([]float32, len(topics))
		for _, w := range strings.Fields(strings.ToLower(strings.Trim(t, ".?!"))) {
			w = strings.Trim(w, ".,?!")
			for axis, words := range topics {
				for _, tw := range words {
					if w == tw {
						v[axis]++
					}
				}
			}
		}
		out[i] = v
	}
	return out, nil
}

type recordingGenerator struct {
	retrieved []domain.Retrieved
	err       error
}

func (g *recordingGenerator) ModelName() string { return "recording" }

func (g *recordingGenerator) Generate(_ context.Context, question string, retrieved []domain.Retrieved) (string, error) {
	g.retrieved = retrieved
	if g.err != nil {
		return "", g.err
	}
	return "answer to " + question, nil
}

type fixture struct {
	svc       *RAGServiceImpl
	backend   *topicBackend
	generator *recordingGenerator
	docsDir   string
	indexDir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	docsDir := filepath.Join(root, "docs")
	indexDir := filepath.Join(root, "index")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))

	files := map[string]string{
		"cats.txt":   "The cat sat on the mat. A kitten is a young feline.",
		"dogs.txt":   "Dogs bark loudly. A puppy is a young dog.",
		"market.txt": "The stock market rallied as shares rose.",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(docsDir, name), []byte(content), 0o644))
	}

	f := &fixture{
		backend:   &topicBackend{},
		generator: &recordingGenerator{},
		docsDir:   docsDir,
		indexDir:  indexDir,
	}
	f.svc = f.build(t)
	return f
}

// build assembles a fresh service over the fixture's directories.
func (f *fixture) build(t *testing.T) *RAGServiceImpl {
	t.Helper()
	ch, err := chunker.NewRecursiveChunker(200, 20)
	require.NoError(t, err)
	log := logger.Discard()

	return NewRAGService(Options{
		DocumentsDir: f.docsDir,
		IndexDir:     f.indexDir,
		ChunkSize:    200,
		ChunkOverlap: 20,
		Logger:       log,
	}, Deps{
		Reader:     reader.New(log),
		Chunker:    ch,
		Embedder:   embedding.NewGateway(f.backend, embedding.Options{Logger: log}),
		Store:      flat.NewStorage(filepath.Join(f.indexDir, vectorstore.IndexFile)),
		Generator:  f.generator,
		Summarizer: summarizer.NewFrequencySummarizer(),
	})
}

func TestIngest_BuildsAndPersistsIndex(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Documents)
	assert.Equal(t, 3, report.TextFiles)
	assert.Equal(t, 3, report.Chunks)
	assert.Equal(t, 3, report.Dimension)
	assert.Equal(t, "topic-v1", report.EmbeddingModel)
	assert.NotEmpty(t, report.IndexID)

	assert.FileExists(t, filepath.Join(f.indexDir, vectorstore.IndexFile))
	meta, err := vectorstore.LoadMetadata(filepath.Join(f.indexDir, vectorstore.MetadataFile))
	require.NoError(t, err)
	assert.Len(t, meta.Chunks, 3)
	assert.Equal(t, report.IndexID, meta.Manifest.ID)
	assert.Equal(t, 200, meta.Manifest.ChunkSize)
}

func TestRetrieve_RanksRelevantChunkFirst(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	results, err := f.svc.Retrieve(context.Background(), domain.Query{Text: "Where does the feline sit? On a mat?", K: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, filepath.Join(f.docsDir, "cats.txt"), results[0].Chunk.SourcePath)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestRetrieve_KLargerThanIndex(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	results, err := f.svc.Retrieve(context.Background(), domain.Query{Text: "dog", K: 10})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRetrieve_ZeroVectorFallsBackToLexical(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	results, err := f.svc.Retrieve(context.Background(), domain.Query{Text: "rallied", K: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(f.docsDir, "market.txt"), results[0].Chunk.SourcePath)
}

func TestRetrieve_NegativeScoresKeepVectorRanking(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	const query = "opposite of everything"
	f.backend.fixed = map[string][]float32{query: {-1, -0.2, -0.5}}

	results, err := f.svc.Retrieve(context.Background(), domain.Query{Text: query, K: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, filepath.Join(f.docsDir, "dogs.txt"), results[0].Chunk.SourcePath)
	assert.Equal(t, filepath.Join(f.docsDir, "market.txt"), results[1].Chunk.SourcePath)
	assert.Equal(t, filepath.Join(f.docsDir, "cats.txt"), results[2].Chunk.SourcePath)
	assert.InDelta(t, -0.176, results[0].Score, 1e-3)
	assert.InDelta(t, -0.880, results[2].Score, 1e-3)
}

func TestRetrieve_InvalidQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Retrieve(context.Background(), domain.Query{Text: "  ", K: 3})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)

	_, err = f.svc.Retrieve(context.Background(), domain.Query{Text: "cat", K: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidTopK)
}

func TestRetrieve_IndexNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Retrieve(context.Background(), domain.Query{Text: "cat", K: 3})
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestAsk_LoadsPersistedIndexInNewService(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	fresh := f.build(t)
	answer, err := fresh.Ask(context.Background(), domain.Query{Text: "Why do dogs bark?", K: 1})
	require.NoError(t, err)

	assert.Equal(t, "answer to Why do dogs bark?", answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, filepath.Join(f.docsDir, "dogs.txt"), answer.Sources[0].Path)
	assert.Equal(t, 0, answer.Sources[0].ChunkIndex)
	assert.Equal(t, 1, answer.Sources[0].TotalChunks)
	assert.NotEmpty(t, answer.Sources[0].Preview)

	require.Len(t, f.generator.retrieved, 1)
	assert.Equal(t, "Dogs bark loudly. A puppy is a young dog.", f.generator.retrieved[0].Text)
}

func TestAsk_GenerationFailure(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	f.generator.err = &domain.GenerationBackendError{Backend: "x", Err: errors.New("down")}
	_, err = f.svc.Ask(context.Background(), domain.Query{Text: "cat", K: 1})

	var genErr *domain.GenerationBackendError
	assert.True(t, errors.As(err, &genErr))
}

func TestIngest_NoDocuments(t *testing.T) {
	f := newFixture(t)
	empty := t.TempDir()

	_, err := f.svc.Ingest(context.Background(), []string{empty})
	assert.ErrorIs(t, err, domain.ErrNoDocuments)
}

func TestIngest_EmbeddingFailureKeepsPreviousIndex(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	f.backend.fail = errors.New("backend down")
	_, err = f.svc.Ingest(context.Background(), nil)
	var backendErr *domain.RetrievalBackendError
	require.True(t, errors.As(err, &backendErr))

	f.backend.fail = nil
	results, err := f.svc.Retrieve(context.Background(), domain.Query{Text: "cat", K: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestLoad_CountMismatchIsCorrupt(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	metaPath := filepath.Join(f.indexDir, vectorstore.MetadataFile)
	meta, err := vectorstore.LoadMetadata(metaPath)
	require.NoError(t, err)
	meta.Chunks = meta.Chunks[:2]
	require.NoError(t, vectorstore.SaveMetadata(metaPath, *meta))

	err = f.build(t).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	st := f.svc.Status(context.Background())
	assert.False(t, st.IndexLoaded)
	assert.Equal(t, 3, st.TextFiles)
	assert.Equal(t, "flat", st.Store)
	assert.Equal(t, "topic-v1", st.EmbeddingModel)

	_, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	st = f.svc.Status(context.Background())
	assert.True(t, st.IndexLoaded)
	assert.Equal(t, 3, st.Chunks)
	assert.NotEmpty(t, st.IndexID)
}

func TestConcurrentQueries(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Retrieve(context.Background(), domain.Query{Text: "puppy", K: 2})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestOverlapOchiai(t *testing.T) {
	q := toTokenSet("red apple")
	assert.InDelta(t, 1.0, overlapOchiai(q, "Apple red"), 1e-9)
	assert.InDelta(t, 0.5, overlapOchiai(q, "red car green tree"), 1e-9)
	assert.Zero(t, overlapOchiai(q, ""))
}
