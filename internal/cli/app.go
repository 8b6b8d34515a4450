package cli

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/logging"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/pipeline"
)

// app bundles what every serving command needs
type app struct {
	cfg      model.Config
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
}

// newApp loads configuration, builds the logger and wires the pipeline.
// adjust, when non-nil, may override config from command flags.
func newApp(ctx context.Context, adjust func(*model.Config)) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(&cfg)
	}
	if verbose && cfg.Logging.Level == "info" {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	p, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, pipeline: p}, nil
}

func (a *app) Close() {
	if err := a.pipeline.Close(); err != nil {
		a.logger.Warn("close session store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
