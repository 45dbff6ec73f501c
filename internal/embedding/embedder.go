package embedding

import (
	"context"
	"math"

	"ragqa/internal/domain"
)

// Backend is a raw embedding service. Implementations return one vector per
// input text, in input order, without normalizing them.
type Backend interface {
	Name() string
	Model() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Normalize scales v in place to unit L2 norm. A zero vector is left as is.
func Normalize(v []float32) domain.Vector {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// IsZero reports whether every component of v is zero.
func IsZero(v domain.Vector) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
