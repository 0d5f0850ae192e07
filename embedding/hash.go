package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashDimensions is the fixed vector size of the hashed fallback embedder.
const HashDimensions = 64

// HashEmbedder is a deterministic bag-of-words hash embedder used when no
// model-backed provider is available. Vectors are small (64 dims) so cosine
// similarity stays meaningful, but they are not comparable with vectors from
// any model-backed provider.
type HashEmbedder struct{}

// NewHashEmbedder returns the fallback embedder. It is always available.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

func (h *HashEmbedder) Name() string { return "hash" }

func (h *HashEmbedder) Dimensions() int { return HashDimensions }

// Embed tokenizes on whitespace, hashes each token into one of 64 buckets,
// accumulates counts, and L2-normalizes. Empty input yields an empty vector.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil, nil
	}

	vec := make([]float32, HashDimensions)
	for _, word := range words {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(word))
		vec[hasher.Sum32()%HashDimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}
