// Package llm wraps the language-model providers behind one completion
// interface.
package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one system+user prompt and returns the raw reply text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is a single structured-output call
type CompletionRequest struct {
	System      string
	Prompt      string
	Model       string // overrides the configured model when set
	MaxTokens   int
	Temperature float32
	// JSONMode asks the provider to constrain output to a JSON object
	// where the API supports it
	JSONMode bool
}

// CompletionResponse carries the model reply
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (OpenAI-compatible gateways, Ollama)
	BaseURL string

	// Timeout per call, seconds
	Timeout int

	// MaxTokens default when a request leaves it unset
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		Timeout:   60,
		MaxTokens: 600,
	}
}

// ConfigFromModel converts the application config into provider config
func ConfigFromModel(cfg model.Config, logger *zap.Logger) Config {
	return Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.Timeout,
		MaxTokens:  cfg.LLM.VerdictTokens,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
		Logger:     logger,
	}
}

func (c Config) logger(name string) *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger.With(zap.String("component", "llm"), zap.String("provider", name))
}

func (c Config) maxTokens(req CompletionRequest, fallback int) int {
	switch {
	case req.MaxTokens > 0:
		return req.MaxTokens
	case c.MaxTokens > 0:
		return c.MaxTokens
	default:
		return fallback
	}
}
