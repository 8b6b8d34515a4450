package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/claimcheck/internal/model"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

// knownDimensions holds native output sizes for common models
var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// NewOpenAIEmbedder creates an OpenAI embedder
func NewOpenAIEmbedder(cfg model.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for embeddings")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	dim := cfg.Dimension
	if dim <= 0 {
		dim = knownDimensions[cfg.Model]
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension unknown for model %q; set embedding.dimension", cfg.Model)
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		dim:    dim,
	}, nil
}

// Embed returns a unit-length vector. Blank text maps to the zero vector
// without calling the API.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.dim), nil
	}

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	}
	if native, ok := knownDimensions[e.model]; ok && native != e.dim && strings.HasPrefix(e.model, "text-embedding-3") {
		req.Dimensions = e.dim
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, model.NewError(model.CodeEmbeddingFailure, "openai", err)
	}
	if len(resp.Data) == 0 {
		return nil, model.Errorf(model.CodeEmbeddingFailure, "openai", "no embedding data returned")
	}

	v := resp.Data[0].Embedding
	if len(v) != e.dim {
		return nil, model.Errorf(model.CodeEmbeddingFailure, "openai",
			"got dimension %d, want %d", len(v), e.dim)
	}

	out := make([]float32, len(v))
	for i := range v {
		out[i] = float32(v[i])
	}
	l2normalize(out)
	return out, nil
}

func (e *OpenAIEmbedder) Dimension() int { return e.dim }

func (e *OpenAIEmbedder) ModelInfo() string { return "openai-" + e.model }
