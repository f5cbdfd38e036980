// Package static provides a fully offline embedding service.
//
// Vectors are built by hashing word features into a fixed number of
// buckets and normalizing. There is no model download and no network
// dependency, which makes it the backend for tests and for archives
// where approximate lexical similarity is enough. Texts sharing
// vocabulary land near each other; unrelated texts do not.
package static

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the default vector size.
const DefaultDimensions = 256

// modelName identifies this backend in the store's model metadata.
const modelName = "static-hash-v1"

// EmbeddingService generates deterministic hash-based embeddings.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a static embedding service. A dims value
// of zero selects DefaultDimensions.
func NewEmbeddingService(dims int) *EmbeddingService {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dims}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, s.dimensions)

	for _, token := range tokenize(text) {
		// Each token contributes to one bucket; the hash's high bit
		// picks the sign so common words do not all pile up positive.
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		bucket := int(sum % uint64(s.dimensions)) //nolint:gosec // dimensions > 0
		sign := 1.0
		if sum&(1<<63) != 0 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	// L2-normalize so cosine similarity behaves.
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, s.dimensions)
	if norm > 0 {
		for i, v := range vec {
			out[i] = float32(v / norm)
		}
	}
	return out, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model identifier.
func (s *EmbeddingService) ModelName() string {
	return modelName
}

// Ping always succeeds; there is no backend to reach.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// tokenize lowercases and splits text on non-letter, non-digit runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
