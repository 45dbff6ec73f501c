package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
)

func TestSplit_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("some text", tt.size, tt.overlap)
			assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig)

			_, err = NewRecursiveChunker(tt.size, tt.overlap)
			assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig)
		})
	}
}

func TestSplit_ShortText(t *testing.T) {
	chunks, err := Split("  Hello world.  ", 800, 200)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello world."}, chunks)
}

func TestSplit_EmptyAndBlank(t *testing.T) {
	chunks, err := Split("", 800, 200)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = Split(" \n\t ", 800, 200)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	text := strings.Repeat("a", 17) + ". " + strings.Repeat("b", 30)

	chunks, err := Split(text, 20, 5)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.Repeat("a", 17)+".", chunks[0])
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 20)
	}
}

func TestSplit_HardCutWithoutBoundary(t *testing.T) {
	text := strings.Repeat("x", 25)

	chunks, err := Split(text, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		strings.Repeat("x", 10),
		strings.Repeat("x", 10),
		strings.Repeat("x", 9),
		"x",
	}, chunks)
}

func TestSplit_TailInsideOverlap(t *testing.T) {
	// the window reaching the end still advances the cursor by size-overlap
	chunks, err := Split(strings.Repeat("y", 18), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{strings.Repeat("y", 10), strings.Repeat("y", 10), "yy"}, chunks)

	chunks, err = Split(strings.Repeat("x", 1700), DefaultChunkSize, DefaultOverlap)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[1], 900)
	assert.Len(t, chunks[2], 100)
}

func TestSplit_StopsWhenCursorPassesEnd(t *testing.T) {
	chunks, err := Split(strings.Repeat("z", 20), 10, 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	chunks, err = Split(strings.Repeat("z", 16), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{strings.Repeat("z", 10), strings.Repeat("z", 8)}, chunks)
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("é", 30)

	chunks, err := Split(text, 10, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, 10, utf8.RuneCountInString(c))
	}
}

func TestWindows_Properties(t *testing.T) {
	text := strings.Repeat("The cat sat on the mat. It was warm.\nDogs bark. ", 40)
	runes := []rune(text)

	configs := []struct{ size, overlap int }{
		{50, 0},
		{50, 10},
		{50, 49},
		{64, 40},
		{7, 6},
		{800, 200},
	}

	for _, cfg := range configs {
		spans, err := windows(runes, cfg.size, cfg.overlap)
		require.NoError(t, err)
		require.NotEmpty(t, spans)

		assert.Equal(t, 0, spans[0].start)
		assert.Equal(t, len(runes), spans[len(spans)-1].end)
		for i, sp := range spans {
			assert.LessOrEqual(t, sp.end-sp.start, cfg.size)
			assert.Greater(t, sp.end, sp.start)
			if i > 0 {
				prev := spans[i-1]
				assert.Greater(t, sp.start, prev.start, "windows must advance")
				assert.LessOrEqual(t, sp.start, prev.end, "windows must cover the text")
				if prev.end < len(runes) {
					assert.Equal(t, cfg.overlap, prev.end-sp.start)
				} else {
					assert.LessOrEqual(t, prev.end-sp.start, cfg.overlap)
				}
			}
		}
	}
}

func TestRecursiveChunker_Chunk(t *testing.T) {
	c, err := NewRecursiveChunker(20, 5)
	require.NoError(t, err)

	doc := domain.Document{
		Path:       "docs/a.txt",
		Text:       strings.Repeat("word ", 20),
		SourceType: domain.SourceText,
	}
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, ch := range chunks {
		assert.Equal(t, "docs/a.txt", ch.SourcePath)
		assert.Equal(t, domain.SourceText, ch.SourceType)
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, len(chunks), ch.TotalChunks)
		assert.True(t, ch.Valid())
		assert.NotEmpty(t, ch.Text)
	}
}

func TestRecursiveChunker_EmptyDocument(t *testing.T) {
	c, err := NewRecursiveChunker(DefaultChunkSize, DefaultOverlap)
	require.NoError(t, err)

	chunks, err := c.Chunk(domain.Document{Path: "empty.txt"})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
