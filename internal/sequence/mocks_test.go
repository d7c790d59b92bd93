package sequence

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/config"
)

// MockBackend mocks the recordBackend slice of the memory store.
type MockBackend struct {
	mock.Mock
	mu sync.Mutex
}

func (m *MockBackend) SaveRecord(ctx context.Context, embedText string, rec schemas.MemoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, embedText, rec)
	return args.Error(0)
}

func (m *MockBackend) SearchRecords(ctx context.Context, query string, limit int) ([]schemas.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.SearchHit), args.Error(1)
}

func (m *MockBackend) RecentRecords(ctx context.Context, limit int) ([]schemas.MemoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.MemoryRecord), args.Error(1)
}

// recordingExecutor collects every performed action.
type recordingExecutor struct {
	mu        sync.Mutex
	performed []schemas.Action
	err       error
}

func (r *recordingExecutor) Perform(ctx context.Context, action schemas.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.performed = append(r.performed, action)
	return nil
}

func testSequenceConfig() config.SequenceConfig {
	return config.SequenceConfig{
		StepDelay:        0,
		UnchangedJaccard: 0.95,
		WaitPollInterval: 10 * time.Millisecond,
		WaitTimeout:      100 * time.Millisecond,
	}
}

func screenOf(id string, texts ...string) *schemas.ScreenState {
	blocks := make([]schemas.OcrBlock, 0, len(texts))
	for i, t := range texts {
		top := float64(20 * i)
		blocks = append(blocks, schemas.OcrBlock{
			Text: t,
			Box:  schemas.BoundingBox{Left: 10, Top: top, Right: 110, Bottom: top + 18},
		})
	}
	return &schemas.ScreenState{ID: id, Blocks: blocks, ImageWidth: 1920, ImageHeight: 1080}
}

func staticScreen(state *schemas.ScreenState) schemas.ScreenSource {
	return schemas.ScreenSourceFunc(func(ctx context.Context) (*schemas.ScreenState, error) {
		return state, nil
	})
}

func stepRecord(name string, order int, action schemas.Action) schemas.SearchHit {
	return schemas.SearchHit{
		Score: 0.9,
		Record: schemas.MemoryRecord{
			Action:     action,
			Source:     schemas.SourceSequence,
			SequenceID: name,
			StepOrder:  order,
		},
	}
}
