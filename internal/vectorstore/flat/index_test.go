package flat

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
)

func TestIndex_SearchOrdersByScore(t *testing.T) {
	x, err := Build([]domain.Vector{
		{1, 0},
		{0, 1},
		{0.6, 0.8},
	})
	require.NoError(t, err)

	hits, err := x.Search(domain.Vector{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, 0, hits[0].Position)
	assert.Equal(t, 2, hits[1].Position)
	assert.Equal(t, 1, hits[2].Position)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.6, hits[1].Score, 1e-6)
}

func TestIndex_TiesKeepInsertionOrder(t *testing.T) {
	x, err := Build([]domain.Vector{
		{0, 1},
		{1, 0},
		{0, 1},
		{1, 0},
	})
	require.NoError(t, err)

	hits, err := x.Search(domain.Vector{1, 0}, 4)
	require.NoError(t, err)
	positions := []int{hits[0].Position, hits[1].Position, hits[2].Position, hits[3].Position}
	assert.Equal(t, []int{1, 3, 0, 2}, positions)
}

func TestIndex_SearchLimits(t *testing.T) {
	x, err := Build([]domain.Vector{{1, 0}, {0, 1}})
	require.NoError(t, err)

	hits, err := x.Search(domain.Vector{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = x.Search(domain.Vector{1, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = x.Search(domain.Vector{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTopK)

	_, err = x.Search(domain.Vector{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndex_Empty(t *testing.T) {
	x, err := Build(nil)
	require.NoError(t, err)

	hits, err := x.Search(domain.Vector{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Zero(t, x.Len())
}

func TestIndex_BuildRejectsMixedDimensions(t *testing.T) {
	_, err := Build([]domain.Vector{{1, 0}, {1, 0, 0}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndex_PersistedIndexAnswersIdentically(t *testing.T) {
	vectors := []domain.Vector{
		{0.1, 0.2, 0.97},
		{0.7, 0.7, 0.14},
		{-0.5, 0.5, 0.7},
		{0.9, -0.1, 0.42},
	}
	x, err := Build(vectors)
	require.NoError(t, err)

	data, err := x.MarshalBinary()
	require.NoError(t, err)
	loaded, err := Load(data)
	require.NoError(t, err)

	assert.Equal(t, x.Len(), loaded.Len())
	assert.Equal(t, x.Dimension(), loaded.Dimension())
	for _, q := range vectors {
		want, err := x.Search(q, 4)
		require.NoError(t, err)
		got, err := loaded.Search(q, 4)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, vectors[2], loaded.Vector(2))
}

func TestLoad_RejectsCorruptData(t *testing.T) {
	x, err := Build([]domain.Vector{{1, 0}})
	require.NoError(t, err)
	data, err := x.MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("XXXX"), data[4:]...)},
		{"truncated", data[:len(data)-2]},
		{"row count wraps size", header(4, 1<<62, 0)},
		{"huge dimension", header(1<<31, 1<<33, 8)},
		{"rows without dimension", header(0, 5, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.data)
			assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
		})
	}
}

func TestStorage_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index", "index.bin")

	s := NewStorage(path)
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Vector{{1, 0}, {0, 1}}))
	require.NoError(t, s.Persist(ctx))

	restored := NewStorage(path)
	require.NoError(t, restored.Load(ctx))
	n, err := restored.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := restored.Search(ctx, domain.Vector{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Position)

	require.NoError(t, restored.Clear(ctx))
	n, _ = restored.Count(ctx)
	assert.Zero(t, n)
}

func TestStorage_LoadMissing(t *testing.T) {
	s := NewStorage(filepath.Join(t.TempDir(), "missing.bin"))
	assert.ErrorIs(t, s.Load(context.Background()), domain.ErrIndexNotFound)
}

func TestStorage_UpsertDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(filepath.Join(t.TempDir(), "index.bin"))
	require.NoError(t, s.Init(ctx, 3))
	assert.ErrorIs(t, s.Upsert(ctx, []domain.Vector{{1, 0}}), domain.ErrDimensionMismatch)
}

func header(dim uint32, n uint64, payload int) []byte {
	buf := make([]byte, headerSize+payload)
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], formatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], dim)
	binary.LittleEndian.PutUint64(buf[12:20], n)
	return buf
}
