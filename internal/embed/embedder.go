// Package embed turns text into fixed-dimension vectors in the same space
// as the prebuilt index.
package embed

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/model"
)

// Embedder produces deterministic vectors for text.
// Empty or very short input yields a well-formed vector, never an error.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	ModelInfo() string
}

// New builds the configured embedder, wrapped in c when caching is enabled
func New(cfg model.EmbeddingConfig, c cache.Cache) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		e, err = NewOpenAIEmbedder(cfg)
	case "hash":
		e = NewHashEmbedder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, hash)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Cache && c != nil {
		e = NewCachedEmbedder(e, c, 24*time.Hour)
	}
	return e, nil
}

// CheckDimension fails when the embedder and the index disagree.
// Callers treat the mismatch as a fatal configuration error.
func CheckDimension(e Embedder, indexDim int) error {
	if e.Dimension() != indexDim {
		return model.Errorf(model.CodeIndexUnavailable, "embedder",
			"embedder %s produces dimension %d but index has dimension %d", e.ModelInfo(), e.Dimension(), indexDim)
	}
	return nil
}

// l2normalize normalizes a vector to unit length in place
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
