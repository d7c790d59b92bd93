package memory

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/glimpsebot/glimpse/api/schemas"
)

// MockInferenceClient mocks the schemas.InferenceClient interface.
type MockInferenceClient struct {
	mock.Mock
}

func (m *MockInferenceClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockInferenceClient) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockVectorIndex mocks the schemas.VectorIndex interface.
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) EnsureCollection(ctx context.Context, vectorSize int) error {
	return m.Called(ctx, vectorSize).Error(0)
}

func (m *MockVectorIndex) Upsert(ctx context.Context, id string, embedding []float32, rec schemas.MemoryRecord) error {
	return m.Called(ctx, id, embedding, rec).Error(0)
}

func (m *MockVectorIndex) Search(ctx context.Context, embedding []float32, limit int) ([]schemas.SearchHit, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.SearchHit), args.Error(1)
}

func (m *MockVectorIndex) RecentPoints(ctx context.Context, limit int) ([]schemas.MemoryRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.MemoryRecord), args.Error(1)
}

func (m *MockVectorIndex) DeleteCollection(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockVectorIndex) CollectionInfo(ctx context.Context) (schemas.CollectionInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(schemas.CollectionInfo), args.Error(1)
}
