package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/config"
)

func newTestStore(t *testing.T) (*Store, *MockInferenceClient, *MockVectorIndex) {
	t.Helper()
	inf := new(MockInferenceClient)
	idx := new(MockVectorIndex)
	store := NewStore(config.MemoryConfig{
		VectorSize:    4,
		EmbedCacheTTL: time.Minute,
	}, inf, idx, zap.NewNop())
	return store, inf, idx
}

func TestEmbedCachesByText(t *testing.T) {
	store, inf, _ := newTestStore(t)
	inf.On("Embed", mock.Anything, "open settings").Return([]float32{1, 2, 3, 4}, nil).Once()

	for i := 0; i < 3; i++ {
		vec, err := store.Embed(context.Background(), "open settings")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3, 4}, vec)
	}
	inf.AssertExpectations(t)
}

func TestSaveRecordEmbedsAndUpserts(t *testing.T) {
	store, inf, idx := newTestStore(t)
	rec := schemas.MemoryRecord{
		Goal:       "Open Settings",
		Action:     schemas.Action{Type: schemas.ActionClick, TargetText: "Settings"},
		MemoryType: schemas.MemoryTask,
	}

	inf.On("Embed", mock.Anything, "Open Settings").Return([]float32{0.5, 0.5, 0, 0}, nil).Once()
	idx.On("Upsert", mock.Anything, mock.AnythingOfType("string"), []float32{0.5, 0.5, 0, 0}, rec).Return(nil).Once()

	require.NoError(t, store.SaveRecord(context.Background(), "Open Settings", rec))
	inf.AssertExpectations(t)
	idx.AssertExpectations(t)
}

func TestSearchRecordsPropagatesEmbedFailure(t *testing.T) {
	store, inf, _ := newTestStore(t)
	inf.On("Embed", mock.Anything, "query").Return(nil, assert.AnError).Once()

	_, err := store.SearchRecords(context.Background(), "query", 5)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSearchRecordsReturnsHits(t *testing.T) {
	store, inf, idx := newTestStore(t)
	hits := []schemas.SearchHit{
		{Score: 0.92, Record: schemas.MemoryRecord{Goal: "Open Settings"}},
		{Score: 0.61, Record: schemas.MemoryRecord{Goal: "Close window"}},
	}
	inf.On("Embed", mock.Anything, "settings").Return([]float32{1, 0, 0, 0}, nil).Once()
	idx.On("Search", mock.Anything, []float32{1, 0, 0, 0}, 5).Return(hits, nil).Once()

	got, err := store.SearchRecords(context.Background(), "settings", 5)
	require.NoError(t, err)
	assert.Equal(t, hits, got)
}

func TestResetDropsAndRecreates(t *testing.T) {
	store, _, idx := newTestStore(t)
	idx.On("DeleteCollection", mock.Anything).Return(nil).Once()
	idx.On("EnsureCollection", mock.Anything, 4).Return(nil).Once()

	require.NoError(t, store.Reset(context.Background()))
	idx.AssertExpectations(t)
}

func TestNewIndexSelectsBackend(t *testing.T) {
	logger := zap.NewNop()

	idx, err := NewIndex(context.Background(), config.MemoryConfig{Backend: "qdrant", Collection: "mem"}, logger)
	require.NoError(t, err)
	assert.IsType(t, (*QdrantIndex)(nil), idx)

	_, err = NewIndex(context.Background(), config.MemoryConfig{Backend: "sqlite"}, logger)
	assert.Error(t, err)
}
