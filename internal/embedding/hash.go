package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEngine produces deterministic embeddings from token hashes. It
// needs no network and gives identical texts identical vectors, which
// is enough for offline runs and for exercising the recall path in
// tests. Similar texts share tokens and therefore score higher than
// unrelated ones, but this is not a semantic model.
type HashEngine struct {
	dims int
}

// NewHashEngine creates a hash-based engine with the given dimensions.
func NewHashEngine(dims int) *HashEngine {
	if dims <= 0 {
		dims = 128
	}
	return &HashEngine{dims: dims}
}

// Embed generates a deterministic embedding for the text.
func (e *HashEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		vec[int(sum)%e.dims] += 1.0
	}

	// L2 normalize so cosine similarity behaves
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v * v)
	}
	if magnitude > 0 {
		norm := float32(math.Sqrt(magnitude))
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *HashEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Dimensions returns the dimensionality of embeddings.
func (e *HashEngine) Dimensions() int {
	return e.dims
}

// Name returns the engine name.
func (e *HashEngine) Name() string {
	return "hash"
}
