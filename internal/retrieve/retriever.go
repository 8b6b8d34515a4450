// Package retrieve turns a query into ranked local evidence.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/embed"
	"github.com/ppiankov/claimcheck/internal/index"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
)

// overfetch widens the raw query so deduplication still yields k chunks
const overfetch = 3

// Retriever embeds queries and ranks chunks from a shared index.
// It never mutates the index and is safe for concurrent use.
type Retriever struct {
	index    *index.Index
	embedder embed.Embedder
	logger   *zap.Logger
}

// New creates a retriever
func New(idx *index.Index, e embed.Embedder, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		index:    idx,
		embedder: e,
		logger:   logger.With(zap.String("component", "retriever")),
	}
}

// Retrieve returns at most k chunks ordered by descending score. Chunks
// repeating a (source, chunk_index) pair collapse to the best scoring one,
// and chunks scoring below minScore are dropped. An empty result is not an
// error; an embedding failure is.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, minScore float64) ([]model.EvidenceChunk, error) {
	if k < 1 {
		k = 1
	}
	start := time.Now()
	defer func() { metrics.RetrievalDuration.Observe(time.Since(start).Seconds()) }()

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		if model.CodeOf(err) == model.CodeEmbeddingFailure {
			return nil, err
		}
		return nil, model.NewError(model.CodeEmbeddingFailure, "retrieve", err)
	}

	hits, err := r.index.Query(ctx, vec, min(k*overfetch, max(r.index.Len(), 1)))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("index query: %w", err)
	}

	chunks := make([]model.EvidenceChunk, 0, len(hits))
	for _, h := range hits {
		chunk, err := r.index.Lookup(h.Position)
		if err != nil {
			// validated at load time, so this is corruption
			return nil, model.NewError(model.CodeIndexUnavailable, "retrieve", err)
		}
		chunk.Score = index.NormalizedScore(r.index.Metric(), h.Distance)
		chunks = append(chunks, chunk)
	}

	deduped := Dedupe(chunks)
	kept := make([]model.EvidenceChunk, 0, len(deduped))
	for _, c := range deduped {
		if c.Score >= minScore {
			kept = append(kept, c)
		}
	}
	if len(kept) > k {
		kept = kept[:k]
	}

	r.logger.Debug("retrieved evidence",
		zap.Int("hits", len(hits)),
		zap.Int("returned", len(kept)),
		zap.Float64("min_score", minScore),
	)
	return kept, nil
}

// SortByScore orders chunks by descending score, keeping input order for ties
func SortByScore(chunks []model.EvidenceChunk) {
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
}

// Dedupe removes repeated (source, chunk_index) pairs keeping the highest
// score, then orders the result by descending score
func Dedupe(chunks []model.EvidenceChunk) []model.EvidenceChunk {
	best := make(map[string]int)
	out := make([]model.EvidenceChunk, 0, len(chunks))
	for _, c := range chunks {
		key := dedupeKey(c)
		if i, ok := best[key]; ok {
			if c.Score > out[i].Score {
				out[i] = c
			}
			continue
		}
		best[key] = len(out)
		out = append(out, c)
	}
	SortByScore(out)
	return out
}

// TopScore returns the highest score in chunks, 0 when empty
func TopScore(chunks []model.EvidenceChunk) float64 {
	var top float64
	for _, c := range chunks {
		if c.Score > top {
			top = c.Score
		}
	}
	return top
}

func dedupeKey(c model.EvidenceChunk) string {
	switch {
	case c.ChunkIndex != nil:
		return c.Source + "\x00" + strconv.Itoa(*c.ChunkIndex)
	case c.URL != "":
		return c.Source + "\x00" + c.URL
	default:
		return c.Source + "\x00text:" + c.Text
	}
}
