// Package vectors provides the vector arithmetic shared by the index stores
// and the theme detector: cosine similarity, centroids, brute-force top-k
// ranking and the little-endian float32 blob encoding used for storage.
package vectors

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Dot returns the dot product of a and b. Extra elements of the longer vector are ignored.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float64 {
	return math.Sqrt(Dot(v, v))
}

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector has zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	ma, mb := Magnitude(a), Magnitude(b)
	if ma == 0 || mb == 0 {
		return 0
	}
	s := Dot(a, b) / (ma * mb)
	if math.IsNaN(s) {
		return 0
	}
	return s
}

// Normalise returns a unit-length copy of v. Zero vectors are returned as a copy.
func Normalise(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	m := Magnitude(v)
	if m == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / m)
	}
	return out
}

// Centroid returns the element-wise mean of vecs. All vectors must share a length.
func Centroid(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	dim := len(vecs[0])
	sum := make([]float64, dim)
	for _, v := range vecs {
		for i := 0; i < dim && i < len(v); i++ {
			sum[i] += float64(v[i])
		}
	}
	out := make([]float32, dim)
	for i := range sum {
		out[i] = float32(sum[i] / float64(len(vecs)))
	}
	return out
}

// Scored is a candidate position with its similarity to a query.
type Scored struct {
	Index int
	Score float64
}

// TopK ranks candidates by cosine similarity to query and returns at most k.
// Ties are broken by the tie function when given, else by candidate position.
// Candidates with a different dimension are skipped. k <= 0 returns all.
func TopK(query []float32, candidates [][]float32, k int, tie func(a, b int) bool) []Scored {
	qm := Magnitude(query)
	if qm == 0 || len(candidates) == 0 {
		return nil
	}

	scored := make([]Scored, 0, len(candidates))
	for i, c := range candidates {
		if len(c) != len(query) {
			continue
		}
		cm := Magnitude(c)
		if cm == 0 {
			continue
		}
		s := Dot(query, c) / (qm * cm)
		if math.IsNaN(s) {
			continue
		}
		scored = append(scored, Scored{Index: i, Score: s})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		if tie != nil {
			return tie(scored[a].Index, scored[b].Index)
		}
		return scored[a].Index < scored[b].Index
	})

	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// Encode encodes v as little-endian IEEE 754 float32 values without a length prefix.
func Encode(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// Decode reverses Encode.
func Decode(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vectors: invalid blob length %d (not multiple of 4)", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
