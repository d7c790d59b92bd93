package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/agent"
	"github.com/glimpsebot/glimpse/internal/config"
	"github.com/glimpsebot/glimpse/internal/inference"
	"github.com/glimpsebot/glimpse/internal/memory"
	"github.com/glimpsebot/glimpse/internal/observability"
)

// core bundles the assembled collaborators a subcommand works with.
type core struct {
	cfg       *config.Config
	inference schemas.InferenceClient
	store     *memory.Store
	mind      *agent.Mind
	logger    *zap.Logger
}

// buildCore assembles the full stack from configuration: inference client,
// vector index, memory store, and the cognitive core on top.
func buildCore(ctx context.Context) (*core, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := observability.GetLogger()

	client, err := inference.NewClient(cfg.Inference, logger)
	if err != nil {
		return nil, fmt.Errorf("build inference client: %w", err)
	}

	index, err := memory.NewIndex(ctx, cfg.Memory, logger)
	if err != nil {
		return nil, fmt.Errorf("build vector index: %w", err)
	}

	store := memory.NewStore(cfg.Memory, client, index, logger)
	if err := store.EnsureReady(ctx); err != nil {
		return nil, fmt.Errorf("prepare memory store: %w", err)
	}

	mind := agent.NewMind(cfg.Agent, store, client, logger)
	return &core{
		cfg:       cfg,
		inference: client,
		store:     store,
		mind:      mind,
		logger:    logger,
	}, nil
}
