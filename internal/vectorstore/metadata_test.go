package vectorstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
)

func TestMetadata_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", MetadataFile)
	m := Metadata{
		Manifest: Manifest{
			ID:             "abc",
			CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			EmbeddingModel: "hashing-256",
			Dimension:      256,
			Count:          1,
		},
		Chunks: []domain.Chunk{{SourcePath: "a.txt", Text: "hello", SourceType: domain.SourceText, ChunkIndex: 0, TotalChunks: 1}},
	}
	require.NoError(t, SaveMetadata(path, m))

	got, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, m, *got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadMetadata_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadMetadata(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadMetadata(bad)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"chunks":[{"chunk_index":3,"total_chunks":2}]}`), 0o644))
	_, err = LoadMetadata(invalid)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}
