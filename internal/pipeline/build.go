package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/embed"
	"github.com/ppiankov/claimcheck/internal/index"
	"github.com/ppiankov/claimcheck/internal/keywords"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/online"
	"github.com/ppiankov/claimcheck/internal/reason"
	"github.com/ppiankov/claimcheck/internal/retrieve"
	"github.com/ppiankov/claimcheck/internal/session"
)

// Build wires a pipeline from configuration. Any failure here is fatal:
// a missing or corrupt index, or an embedder that does not match it,
// means no request can be served.
func Build(ctx context.Context, cfg model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	idx, err := index.Load(cfg.Index.Path)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	embedder, err := embed.New(cfg.Embedding, c)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if err := embed.CheckDimension(embedder, idx.Dimension()); err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	conn, err := online.FromConfig(cfg, embedder, c, logger)
	if err != nil {
		return nil, fmt.Errorf("online: %w", err)
	}
	if cfg.Online.Enabled && !conn.Enabled() {
		logger.Warn("online expansion enabled but no sources configured (set NEWS_API_KEY or online.feeds)")
	}

	var symbols map[string]bool
	if cfg.Keywords.SymbolsFile != "" {
		if symbols, err = keywords.LoadSymbols(cfg.Keywords.SymbolsFile); err != nil {
			return nil, fmt.Errorf("keywords: %w", err)
		}
	}

	sessions, err := session.New(ctx, cfg.Session, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("pipeline ready",
		zap.Int("chunks", idx.Len()),
		zap.String("metric", string(idx.Metric())),
		zap.String("embedder", embedder.ModelInfo()),
		zap.String("llm", provider.Name()),
		zap.Bool("online", conn.Enabled()),
		zap.String("sessions", cfg.Session.Backend),
	)

	return New(Deps{
		Retriever: retrieve.New(idx, embedder, logger),
		Reasoner:  reason.New(provider, reason.OptionsFromConfig(cfg), logger),
		Online:    conn,
		Keywords:  keywords.New(symbols, cfg.Keywords.Max),
		Sessions:  sessions,
		Logger:    logger,
	}, OptionsFromConfig(cfg)), nil
}
