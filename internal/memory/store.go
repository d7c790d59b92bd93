// Package memory orchestrates the embedding model and the vector index into
// the record store the decision and learning engines talk to. Two backends
// implement the index contract: a Qdrant HTTP client and a pgvector table.
package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/config"
)

// Backend names accepted by NewIndex.
const (
	BackendQdrant   = "qdrant"
	BackendPgVector = "pgvector"
)

// NewIndex builds the configured vector index backend.
func NewIndex(ctx context.Context, cfg config.MemoryConfig, logger *zap.Logger) (schemas.VectorIndex, error) {
	switch cfg.Backend {
	case BackendQdrant, "":
		return NewQdrantIndex(cfg, logger), nil
	case BackendPgVector:
		return NewPgVectorIndex(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown memory backend %q. Supported: [%s %s]", cfg.Backend, BackendQdrant, BackendPgVector)
	}
}

// Store pairs the inference client's Embed with the vector index. Repeated
// embeddings of identical text are served from a TTL cache, and concurrent
// requests for the same text are coalesced so the model sees each distinct
// text once.
type Store struct {
	inference  schemas.InferenceClient
	index      schemas.VectorIndex
	vectorSize int
	embedCache *cache.Cache
	embedGroup singleflight.Group
	logger     *zap.Logger
}

// NewStore wires the store from its collaborators.
func NewStore(cfg config.MemoryConfig, inference schemas.InferenceClient, index schemas.VectorIndex, logger *zap.Logger) *Store {
	return &Store{
		inference:  inference,
		index:      index,
		vectorSize: cfg.VectorSize,
		embedCache: cache.New(cfg.EmbedCacheTTL, 2*cfg.EmbedCacheTTL),
		logger:     logger.Named("memory.store"),
	}
}

// EnsureReady creates the backing collection if needed.
func (s *Store) EnsureReady(ctx context.Context) error {
	return s.index.EnsureCollection(ctx, s.vectorSize)
}

// Embed returns the vector for text, consulting the cache first.
func (s *Store) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := s.embedCache.Get(text); ok {
		return cached.([]float32), nil
	}

	v, err, _ := s.embedGroup.Do(text, func() (interface{}, error) {
		vec, err := s.inference.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		s.embedCache.SetDefault(text, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// SaveRecord embeds embedText and upserts the record under a fresh point ID.
// The record payload, not the embedded text, is what comes back from search.
func (s *Store) SaveRecord(ctx context.Context, embedText string, rec schemas.MemoryRecord) error {
	vec, err := s.Embed(ctx, embedText)
	if err != nil {
		return fmt.Errorf("embed record text: %w", err)
	}
	id := uuid.NewString()
	if err := s.index.Upsert(ctx, id, vec, rec); err != nil {
		return err
	}
	s.logger.Debug("Persisted memory record",
		zap.String("point_id", id),
		zap.String("memory_type", string(rec.MemoryType)),
		zap.String("goal", rec.Goal))
	return nil
}

// SearchRecords embeds the query and returns the nearest records, best score
// first.
func (s *Store) SearchRecords(ctx context.Context, query string, limit int) ([]schemas.SearchHit, error) {
	vec, err := s.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.index.Search(ctx, vec, limit)
}

// RecentRecords proxies the index's recent listing.
func (s *Store) RecentRecords(ctx context.Context, limit int) ([]schemas.MemoryRecord, error) {
	return s.index.RecentPoints(ctx, limit)
}

// Info proxies collection statistics.
func (s *Store) Info(ctx context.Context) (schemas.CollectionInfo, error) {
	return s.index.CollectionInfo(ctx)
}

// Reset drops and recreates the collection, and clears the embed cache.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.index.DeleteCollection(ctx); err != nil {
		return err
	}
	s.embedCache.Flush()
	return s.index.EnsureCollection(ctx, s.vectorSize)
}
