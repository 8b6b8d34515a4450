// Package index serves the prebuilt vector index and its evidence store.
// An Index is immutable after Load and safe for unbounded concurrent readers.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/claimcheck/internal/model"
)

// ErrNotFound is returned by Lookup for a position outside the store
var ErrNotFound = errors.New("position not found")

// Hit is one raw query result. Distance is the metric's native value:
// cosine similarity for MetricCosine, squared L2 distance for MetricL2.
type Hit struct {
	Position int
	Distance float32
}

// Index is the in-memory vector index
type Index struct {
	records    []Record
	embeddings [][]float32
	dimension  int
	metric     Metric
	modelInfo  string
}

// Stats summarises an index for inspection
type Stats struct {
	Chunks    int            `json:"chunks" yaml:"chunks"`
	Sources   int            `json:"sources" yaml:"sources"`
	Dimension int            `json:"dimension" yaml:"dimension"`
	Metric    Metric         `json:"metric" yaml:"metric"`
	ModelInfo string         `json:"model_info" yaml:"model_info"`
	PerSource map[string]int `json:"per_source" yaml:"per_source"`
}

// Load reads and validates an artifact. Any failure is IndexUnavailable.
func Load(path string) (*Index, error) {
	a, err := ReadArtifact(path)
	if err != nil {
		return nil, model.NewError(model.CodeIndexUnavailable, "load", err)
	}
	return New(a)
}

// New wraps an in-memory artifact and validates it
func New(a *Artifact) (*Index, error) {
	idx := &Index{
		records:    a.Records,
		embeddings: a.Embeddings,
		dimension:  a.Dimension,
		metric:     a.Metric,
		modelInfo:  a.ModelInfo,
	}
	if idx.metric == "" {
		idx.metric = MetricCosine
	}
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Validate checks that every position resolves and every vector has the
// configured dimension. Corruption is fatal at startup.
func (idx *Index) Validate() error {
	if idx.dimension <= 0 {
		return model.Errorf(model.CodeIndexUnavailable, "validate", "invalid dimension %d", idx.dimension)
	}
	if idx.metric != MetricCosine && idx.metric != MetricL2 {
		return model.Errorf(model.CodeIndexUnavailable, "validate", "unsupported metric %q", idx.metric)
	}
	if len(idx.records) != len(idx.embeddings) {
		return model.Errorf(model.CodeIndexUnavailable, "validate",
			"%d records but %d embeddings", len(idx.records), len(idx.embeddings))
	}
	for i, vec := range idx.embeddings {
		if len(vec) != idx.dimension {
			return model.Errorf(model.CodeIndexUnavailable, "validate",
				"embedding %d has dimension %d, want %d", i, len(vec), idx.dimension)
		}
		if _, err := idx.Lookup(i); err != nil {
			return model.NewError(model.CodeIndexUnavailable, "validate", err)
		}
	}
	return nil
}

// Query returns the k nearest positions, best first. Results are ordered
// by descending similarity for cosine and ascending distance for l2.
func (idx *Index) Query(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("query: k must be >= 1, got %d", k)
	}
	if len(vec) != idx.dimension {
		return nil, fmt.Errorf("query: vector dimension %d, index dimension %d", len(vec), idx.dimension)
	}

	hits := make([]Hit, 0, len(idx.embeddings))
	for i, emb := range idx.embeddings {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var d float32
		if idx.metric == MetricL2 {
			d = SquaredL2(vec, emb)
		} else {
			d = CosineSimilarity(vec, emb)
		}
		hits = append(hits, Hit{Position: i, Distance: d})
	}

	if idx.metric == MetricL2 {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	} else {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance > hits[j].Distance })
	}

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Lookup resolves a position to a fresh EvidenceChunk with a zero score
func (idx *Index) Lookup(pos int) (model.EvidenceChunk, error) {
	if pos < 0 || pos >= len(idx.records) {
		return model.EvidenceChunk{}, fmt.Errorf("lookup %d: %w", pos, ErrNotFound)
	}
	r := idx.records[pos]
	if r.Text == "" || r.Source == "" {
		return model.EvidenceChunk{}, fmt.Errorf("lookup %d: empty record: %w", pos, ErrNotFound)
	}

	chunk := model.EvidenceChunk{
		Text:   r.Text,
		Source: r.Source,
		URL:    r.URL,
		Title:  r.Title,
		Origin: model.OriginLocal,
	}
	if r.ChunkIndex >= 0 {
		chunk.ChunkIndex = model.IntPtr(r.ChunkIndex)
	}
	if !r.Published.IsZero() {
		ts := r.Published
		chunk.Published = &ts
	}
	return chunk, nil
}

func (idx *Index) Dimension() int    { return idx.dimension }
func (idx *Index) Metric() Metric    { return idx.metric }
func (idx *Index) ModelInfo() string { return idx.modelInfo }
func (idx *Index) Len() int          { return len(idx.records) }

// Stats computes summary statistics
func (idx *Index) Stats() Stats {
	per := make(map[string]int)
	for _, r := range idx.records {
		per[r.Source]++
	}
	return Stats{
		Chunks:    len(idx.records),
		Sources:   len(per),
		Dimension: idx.dimension,
		Metric:    idx.metric,
		ModelInfo: idx.modelInfo,
		PerSource: per,
	}
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// SquaredL2 computes the squared euclidean distance
func SquaredL2(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(math.Inf(1))
	}
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// NormalizedScore maps a native metric value onto [0,1], higher is better.
// Cosine similarities are clamped; squared L2 distances between unit
// vectors are converted with 1 - d/2, which equals the cosine similarity.
func NormalizedScore(m Metric, d float32) float64 {
	var s float64
	switch m {
	case MetricL2:
		s = 1 - float64(d)/2
	default:
		s = float64(d)
	}
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
