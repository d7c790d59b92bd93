package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/glimpsebot/glimpse/api/schemas"
)

// -- Record Store Mock --

// MockRecordStore mocks the RecordStore slice of the memory store.
type MockRecordStore struct {
	mock.Mock
	mu sync.Mutex
}

// SaveRecord mocks the corresponding store method.
func (m *MockRecordStore) SaveRecord(ctx context.Context, embedText string, rec schemas.MemoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, embedText, rec)
	return args.Error(0)
}

// SearchRecords mocks the corresponding store method.
func (m *MockRecordStore) SearchRecords(ctx context.Context, query string, limit int) ([]schemas.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.SearchHit), args.Error(1)
}

// -- Inference Client Mock --

// MockInferenceClient mocks the schemas.InferenceClient interface.
type MockInferenceClient struct {
	mock.Mock
	// OnGenerate, when set, runs before each Generate call resolves. Tests
	// use it to mutate loop state mid-flight.
	OnGenerate func(req schemas.GenerationRequest)
}

// Generate mocks the text generation call.
func (m *MockInferenceClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if m.OnGenerate != nil {
		m.OnGenerate(req)
	}
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// Embed mocks the embedding call with a deterministic fake vector.
func (m *MockInferenceClient) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// -- Shared test fixtures --

// testScreen builds a ScreenState from (text, box) pairs with a stable ID
// derived from the texts.
func testScreen(blocks ...schemas.OcrBlock) *schemas.ScreenState {
	id := "screen"
	for _, b := range blocks {
		id = fmt.Sprintf("%s|%s", id, b.Text)
	}
	return &schemas.ScreenState{
		ID:          id,
		Blocks:      blocks,
		ImageWidth:  1920,
		ImageHeight: 1080,
	}
}

func block(text string, left, top, right, bottom float64) schemas.OcrBlock {
	return schemas.OcrBlock{
		Text: text,
		Box:  schemas.BoundingBox{Left: left, Top: top, Right: right, Bottom: bottom},
	}
}
