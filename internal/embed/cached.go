package embed

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/ppiankov/claimcheck/internal/cache"
)

// CachedEmbedder memoises vectors keyed by model and text
type CachedEmbedder struct {
	next  Embedder
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedEmbedder wraps next with c
func NewCachedEmbedder(next Embedder, c cache.Cache, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: c, ttl: ttl}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key("emb", e.next.ModelInfo(), text)
	if raw, ok := e.cache.Get(key); ok {
		if vec, ok := decodeVector(raw, e.next.Dimension()); ok {
			return vec, nil
		}
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	_ = e.cache.Set(key, encodeVector(vec), e.ttl)
	return vec, nil
}

func (e *CachedEmbedder) Dimension() int    { return e.next.Dimension() }
func (e *CachedEmbedder) ModelInfo() string { return e.next.ModelInfo() }

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte, dim int) ([]float32, bool) {
	if len(buf) != 4*dim {
		return nil, false
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, true
}
