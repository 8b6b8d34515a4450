package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashEmbedder is a deterministic feature-hashing embedder. It needs no
// network access and is used for offline corpora and tests.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hashing embedder; non-positive dimensions fall back to 256
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashEmbedder{dim: dimension}
}

// Embed hashes word unigrams and bigrams into a signed bag-of-features vector
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)

	tokens := tokenize(text)
	for i, tok := range tokens {
		e.add(vec, tok, 1.0)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	l2normalize(vec)
	return vec, nil
}

func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func (e *HashEmbedder) Dimension() int { return e.dim }

func (e *HashEmbedder) ModelInfo() string { return fmt.Sprintf("hash-fnv64a-%d", e.dim) }

// tokenize lowercases and splits on anything that is not a letter, digit or %
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '%'
	})
}
