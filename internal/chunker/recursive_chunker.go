package chunker

import (
	"fmt"
	"strings"

	"ragqa/internal/domain"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// boundaryFraction is the tail share of a window scanned for a sentence end.
const boundaryFraction = 0.2

type span struct {
	start, end int
}

// Split cuts text into overlapping windows of at most size characters.
// A window is shortened to end just after a '.' followed by whitespace when
// such a break lies in the last fifth of the window. Windows are trimmed and
// empty ones are dropped, so whitespace-only text yields no chunks.
// The cursor moves to end-overlap after every window, including one that
// reaches the end of text, and stops once it is at or past the end.
func Split(text string, size, overlap int) ([]string, error) {
	runes := []rune(text)
	spans, err := windows(runes, size, overlap)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		piece := strings.TrimSpace(string(runes[sp.start:sp.end]))
		if piece == "" {
			continue
		}
		out = append(out, piece)
	}
	return out, nil
}

func windows(runes []rune, size, overlap int) ([]span, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", domain.ErrInvalidChunkConfig, size, overlap)
	}
	n := len(runes)
	var spans []span
	start := 0
	for start < n {
		end := start + size
		if end < n {
			// a boundary that would not move the next window forward is ignored
			if cut := sentenceBoundary(runes, start, end, size); cut-overlap > start {
				end = cut
			}
		}
		spans = append(spans, span{start, min(end, n)})
		start = end - overlap
	}
	return spans, nil
}

// sentenceBoundary returns the rightmost i in (lower, end] such that runes[i-1]
// is '.' and runes[i] is whitespace, or end if there is none. end must be < len(runes).
func sentenceBoundary(runes []rune, start, end, size int) int {
	lower := end - int(float64(size)*boundaryFraction)
	if lower < start {
		lower = start
	}
	for i := end; i > lower; i-- {
		if runes[i-1] == '.' && isBreak(runes[i]) {
			return i
		}
	}
	return end
}

func isBreak(r rune) bool {
	switch r {
	case ' ', '\n', '\r', '\t':
		return true
	}
	return false
}

// RecursiveChunker splits documents into character windows with overlap.
type RecursiveChunker struct {
	size    int
	overlap int
}

var _ domain.Chunker = (*RecursiveChunker)(nil)

func NewRecursiveChunker(size, overlap int) (*RecursiveChunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", domain.ErrInvalidChunkConfig, size, overlap)
	}
	return &RecursiveChunker{size: size, overlap: overlap}, nil
}

func (c *RecursiveChunker) Size() int    { return c.size }
func (c *RecursiveChunker) Overlap() int { return c.overlap }

func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	pieces, err := Split(document.Text, c.size, c.overlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = domain.Chunk{
			SourcePath:  document.Path,
			Text:        p,
			SourceType:  document.SourceType,
			ChunkIndex:  i,
			TotalChunks: len(pieces),
		}
	}
	return chunks, nil
}
