// Package local provides an offline embedding service based on feature hashing.
//
// Terms and adjacent term pairs are hashed into a fixed number of buckets
// with a sign bit, weighted by log term frequency and L2-normalised. Texts
// sharing vocabulary get high cosine similarity. The output is deterministic,
// so the same model name always produces comparable vectors.
package local

import (
	"context"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/textutil"
	"github.com/custodia-labs/doclens/internal/vectors"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "hashing-v1"
	DefaultDimensions = 256
)

// pairWeight scales the contribution of adjacent term pairs.
const pairWeight = 0.5

// Config holds configuration for the local embedding service.
type Config struct {
	// Model names the vector space (default: hashing-v1).
	Model string

	// Dimensions is the number of hash buckets (default: 256).
	Dimensions int
}

// EmbeddingService hashes text into vectors without any network access.
type EmbeddingService struct {
	model      string
	dimensions int
}

// NewEmbeddingService creates a local embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.vector(text), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("local: embed text %d: %w", i, err)
		}
		out[i] = s.vector(text)
	}
	return out, nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	counts := make(map[string]float64)
	terms := textutil.Terms(text)
	for i, term := range terms {
		counts[term]++
		if i > 0 {
			counts[terms[i-1]+" "+term] += pairWeight
		}
	}

	v := make([]float32, s.dimensions)
	if len(counts) == 0 {
		// Give empty text a fixed direction so cosine stays defined.
		v[0] = 1
		return v
	}
	for feature, tf := range counts {
		h := xxhash.Sum64String(feature)
		bucket := h % uint64(s.dimensions)
		weight := 1 + math.Log(tf)
		if tf < 1 {
			weight = tf
		}
		if h&(1<<63) != 0 {
			weight = -weight
		}
		v[bucket] += float32(weight)
	}
	return vectors.Normalise(v)
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model name.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
