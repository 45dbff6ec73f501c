package local

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"ragqa/internal/embedding"
)

const DefaultDimension = 256

// Backend is an offline embedder that hashes word tokens into a fixed number
// of buckets and weights them by log term frequency. It needs no corpus
// preparation, so query and document vectors share a space across runs.
type Backend struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

var _ embedding.Backend = (*Backend)(nil)

func New(dimension int) *Backend {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Backend{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

func (b *Backend) Name() string  { return "local" }
func (b *Backend) Model() string { return fmt.Sprintf("hashing-%d", b.dimension) }

func (b *Backend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = b.embed(t)
	}
	return out, nil
}

func (b *Backend) embed(text string) []float32 {
	vec := make([]float32, b.dimension)
	tf := make(map[int]int)
	for _, tok := range b.Tokenize(text) {
		tf[b.bucket(tok)]++
	}
	for idx, count := range tf {
		vec[idx] = float32(1 + math.Log(float64(count)))
	}
	return vec
}

func (b *Backend) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(b.dimension))
}

// Tokenize lowercases text and returns its word tokens without stopwords.
func (b *Backend) Tokenize(text string) []string {
	raw := b.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := b.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "whom", "how", "why", "where", "when", "do", "does", "did",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
