package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ppiankov/claimcheck/internal/embed"
	"github.com/ppiankov/claimcheck/internal/index"
	"github.com/ppiankov/claimcheck/internal/model"
)

const dim = 256

func buildIndex(t *testing.T, records []index.Record) *index.Index {
	t.Helper()
	e := embed.NewHashEmbedder(dim)
	a := &index.Artifact{Dimension: dim, Metric: index.MetricCosine, ModelInfo: e.ModelInfo()}
	for _, r := range records {
		v, err := e.Embed(context.Background(), r.Text)
		require.NoError(t, err)
		a.Records = append(a.Records, r)
		a.Embeddings = append(a.Embeddings, v)
	}
	idx, err := index.New(a)
	require.NoError(t, err)
	return idx
}

var corpus = []index.Record{
	{Text: "Company X revenue grew 15% in Q3", Source: "companyx-q3.txt", ChunkIndex: 0},
	{Text: "Company X revenue grew 15% in Q3 driven by services", Source: "companyx-q3.txt", ChunkIndex: 0},
	{Text: "Company X operating margin narrowed in Q3", Source: "companyx-q3.txt", ChunkIndex: 1},
	{Text: "The Federal Reserve held interest rates steady", Source: "fed.txt", ChunkIndex: 0},
	{Text: "Oil prices slipped on weaker demand", Source: "oil.txt", ChunkIndex: -1},
}

func TestRetrieve_OrderedAndDeduped(t *testing.T) {
	r := New(buildIndex(t, corpus), embed.NewHashEmbedder(dim), zaptest.NewLogger(t))

	got, err := r.Retrieve(context.Background(), "Company X revenue Q3", 5, 0)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	assert.Equal(t, "companyx-q3.txt", got[0].Source)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score, "scores must be non-increasing")
	}

	seen := map[string]bool{}
	for _, c := range got {
		key := dedupeKey(c)
		assert.False(t, seen[key], "duplicate chunk %s", key)
		seen[key] = true
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 1.0)
	}
}

func TestRetrieve_KeepsHighestDuplicate(t *testing.T) {
	r := New(buildIndex(t, corpus), embed.NewHashEmbedder(dim), nil)

	got, err := r.Retrieve(context.Background(), "Company X revenue grew 15% in Q3", 5, 0)
	require.NoError(t, err)

	var zero []model.EvidenceChunk
	for _, c := range got {
		if c.Source == "companyx-q3.txt" && c.ChunkIndex != nil && *c.ChunkIndex == 0 {
			zero = append(zero, c)
		}
	}
	require.Len(t, zero, 1)
	assert.Equal(t, "Company X revenue grew 15% in Q3", zero[0].Text)
	assert.InDelta(t, 1.0, zero[0].Score, 1e-5)
}

func TestRetrieve_FloorDropsEverything(t *testing.T) {
	r := New(buildIndex(t, corpus), embed.NewHashEmbedder(dim), nil)

	got, err := r.Retrieve(context.Background(), "Tesla reported a 20% rise in Q3 2025 revenue", 5, 0.99)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRetrieve_RespectsK(t *testing.T) {
	r := New(buildIndex(t, corpus), embed.NewHashEmbedder(dim), nil)

	got, err := r.Retrieve(context.Background(), "Company X", 2, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), 2)

	got, err = r.Retrieve(context.Background(), "Company X", 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type failingEmbedder struct{ embed.Embedder }

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("model server down")
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	r := New(buildIndex(t, corpus), failingEmbedder{embed.NewHashEmbedder(dim)}, nil)

	_, err := r.Retrieve(context.Background(), "anything", 3, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrEmbeddingFailure)
}

func TestRetrieve_ConcurrentConsistent(t *testing.T) {
	r := New(buildIndex(t, corpus), embed.NewHashEmbedder(dim), nil)
	want, err := r.Retrieve(context.Background(), "interest rates", 3, 0)
	require.NoError(t, err)

	errs := make(chan error, 16)
	results := make(chan []model.EvidenceChunk, 16)
	for i := 0; i < 16; i++ {
		go func() {
			got, err := r.Retrieve(context.Background(), "interest rates", 3, 0)
			errs <- err
			results <- got
		}()
	}
	for i := 0; i < 16; i++ {
		require.NoError(t, <-errs)
		assert.Equal(t, want, <-results)
	}
}

func TestDedupe(t *testing.T) {
	chunks := []model.EvidenceChunk{
		{Source: "a", ChunkIndex: model.IntPtr(1), Score: 0.4},
		{Source: "b", URL: "https://b/1", Score: 0.9},
		{Source: "a", ChunkIndex: model.IntPtr(1), Score: 0.7, Text: "better"},
		{Source: "b", URL: "https://b/2", Score: 0.5},
	}
	got := Dedupe(chunks)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Source)
	assert.Equal(t, "better", got[1].Text)
	assert.Equal(t, 0.9, TopScore(got))
	assert.Equal(t, 0.0, TopScore(nil))
}
