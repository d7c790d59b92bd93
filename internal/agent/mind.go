// Package agent is the cognitive core: confidence-gated recall (Think),
// dual-indexed persistence (Learn), text-to-coordinate grounding, task
// decomposition with visibility checks, and the idle curiosity loop. It
// holds no goroutines of its own; callers drive it and own scheduling.
package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/config"
)

// RecordStore is the slice of the memory store the mind consumes.
type RecordStore interface {
	SaveRecord(ctx context.Context, embedText string, rec schemas.MemoryRecord) error
	SearchRecords(ctx context.Context, query string, limit int) ([]schemas.SearchHit, error)
}

// Mind bundles the decision, learning, and verification engines around one
// memory store and one inference client.
type Mind struct {
	store     RecordStore
	inference schemas.InferenceClient
	cfg       config.AgentConfig
	logger    *zap.Logger
}

// NewMind wires the cognitive core from its collaborators.
func NewMind(cfg config.AgentConfig, store RecordStore, inference schemas.InferenceClient, logger *zap.Logger) *Mind {
	return &Mind{
		store:     store,
		inference: inference,
		cfg:       cfg,
		logger:    logger.Named("mind"),
	}
}
