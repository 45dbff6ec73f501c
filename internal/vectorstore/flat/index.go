package flat

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"ragqa/internal/domain"
)

const (
	magic         = "RQFI"
	formatVersion = 1
	headerSize    = 4 + 4 + 4 + 8
)

// Index is an exact inner-product index over vectors stored row-major.
// Scores equal cosine similarity when the vectors are L2-normalized.
type Index struct {
	dim  int
	data []float32
}

// New returns an empty index. A zero dimension is fixed by the first Add.
func New(dim int) *Index {
	return &Index{dim: dim}
}

// Build creates an index holding vectors in order.
func Build(vectors []domain.Vector) (*Index, error) {
	x := New(0)
	if err := x.Add(vectors...); err != nil {
		return nil, err
	}
	return x, nil
}

func (x *Index) Dimension() int { return x.dim }

func (x *Index) Len() int {
	if x.dim == 0 {
		return 0
	}
	return len(x.data) / x.dim
}

// Add appends vectors. All of them must match the index dimension.
func (x *Index) Add(vectors ...domain.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	if x.dim == 0 {
		x.dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != x.dim || len(v) == 0 {
			return fmt.Errorf("%w: vector %d has %d components, index has %d", domain.ErrDimensionMismatch, i, len(v), x.dim)
		}
	}
	for _, v := range vectors {
		x.data = append(x.data, v...)
	}
	return nil
}

// Vector returns a copy of the vector at position i.
func (x *Index) Vector(i int) domain.Vector {
	out := make(domain.Vector, x.dim)
	copy(out, x.data[i*x.dim:(i+1)*x.dim])
	return out
}

// Search returns the min(k, Len) highest-scoring positions.
func (x *Index) Search(query domain.Vector, k int) ([]domain.Hit, error) {
	if k < 1 {
		return nil, domain.ErrInvalidTopK
	}
	n := x.Len()
	if n == 0 {
		return []domain.Hit{}, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d components, index has %d", domain.ErrDimensionMismatch, len(query), x.dim)
	}

	hits := make([]domain.Hit, n)
	for i := 0; i < n; i++ {
		row := x.data[i*x.dim : (i+1)*x.dim]
		var s float32
		for j, q := range query {
			s += row[j] * q
		}
		hits[i] = domain.Hit{Score: s, Position: i}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	return hits[:min(k, n)], nil
}

// MarshalBinary encodes the index as a little-endian header followed by the rows.
func (x *Index) MarshalBinary() ([]byte, error) {
	n := x.Len()
	buf := make([]byte, headerSize+4*len(x.data))
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], formatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(x.dim))
	binary.LittleEndian.PutUint64(buf[12:20], uint64(n))
	off := headerSize
	for _, f := range x.data {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
		off += 4
	}
	return buf, nil
}

func (x *Index) UnmarshalBinary(buf []byte) error {
	if len(buf) < headerSize || string(buf[0:4]) != magic {
		return fmt.Errorf("%w: not an index file", domain.ErrIndexCorrupt)
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v != formatVersion {
		return fmt.Errorf("%w: unsupported index version %d", domain.ErrIndexCorrupt, v)
	}
	dim := int(binary.LittleEndian.Uint32(buf[8:12]))
	n := binary.LittleEndian.Uint64(buf[12:20])
	payload := uint64(len(buf) - headerSize)
	floats := payload / 4
	// bound both factors first so n*dim cannot wrap
	if payload%4 != 0 || n > floats || (n > 0 && (dim == 0 || uint64(dim) > floats/n)) || n*uint64(dim) != floats {
		return fmt.Errorf("%w: index size does not match header", domain.ErrIndexCorrupt)
	}

	data := make([]float32, int(n)*dim)
	off := headerSize
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
	}
	x.dim = dim
	x.data = data
	return nil
}

// Load decodes an index produced by MarshalBinary.
func Load(buf []byte) (*Index, error) {
	x := &Index{}
	if err := x.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return x, nil
}
