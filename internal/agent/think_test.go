package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/config"
	"github.com/glimpsebot/glimpse/internal/observability"
)

func newTestMind(store RecordStore, inference schemas.InferenceClient) *Mind {
	cfg := config.NewDefaultConfig().Agent
	return NewMind(cfg, store, inference, observability.GetLogger())
}

func TestThinkEmptyMemoryAsksForHelp(t *testing.T) {
	store := new(MockRecordStore)
	store.On("SearchRecords", mock.Anything, mock.Anything, mock.Anything).
		Return([]schemas.SearchHit{}, nil)

	mind := newTestMind(store, new(MockInferenceClient))
	decision := mind.Think(context.Background(), testScreen(block("Desktop", 0, 0, 100, 20)), "")

	assert.False(t, decision.Confident)
	assert.Nil(t, decision.Action)
	assert.Equal(t, "no relevant memory found", decision.Reasoning)
	store.AssertExpectations(t)
}

func TestThinkMemoryFailureDegradesToDecision(t *testing.T) {
	store := new(MockRecordStore)
	store.On("SearchRecords", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	mind := newTestMind(store, new(MockInferenceClient))
	decision := mind.Think(context.Background(), testScreen(), "open settings")

	assert.False(t, decision.Confident)
	assert.Equal(t, ErrCodeMemoryUnavailable, decision.ErrorCode)
	assert.Contains(t, decision.Reasoning, "connection refused")
}

func TestThinkBelowThresholdAsksWithGoalHint(t *testing.T) {
	store := new(MockRecordStore)
	store.On("SearchRecords", mock.Anything, mock.Anything, mock.Anything).
		Return([]schemas.SearchHit{{
			Score:  0.75,
			Record: schemas.MemoryRecord{Goal: "open the settings panel"},
		}}, nil)

	mind := newTestMind(store, new(MockInferenceClient))
	decision := mind.Think(context.Background(), testScreen(), "settings")

	assert.False(t, decision.Confident)
	assert.InDelta(t, 0.75, decision.Confidence, 1e-9)
	assert.Contains(t, decision.Reasoning, "open the settings panel")
	assert.Contains(t, decision.Reasoning, "ask the user")
}

func TestThinkConfidentGroundsRecalledAction(t *testing.T) {
	store := new(MockRecordStore)
	store.On("SearchRecords", mock.Anything, mock.Anything, mock.Anything).
		Return([]schemas.SearchHit{{
			Score: 0.92,
			Record: schemas.MemoryRecord{
				Goal:   "open the settings panel",
				Action: schemas.Action{Type: schemas.ActionClick, TargetText: "Settings"},
			},
		}}, nil)

	state := testScreen(block("Settings", 100, 200, 180, 230))
	mind := newTestMind(store, new(MockInferenceClient))
	decision := mind.Think(context.Background(), state, "settings")

	require.True(t, decision.Confident)
	require.NotNil(t, decision.Action)
	assert.Equal(t, 140.0, decision.Action.X)
	assert.Equal(t, 215.0, decision.Action.Y)
	assert.InDelta(t, 0.92, decision.Confidence, 1e-9)
}

func TestThinkGroundingMissStaysNonConfident(t *testing.T) {
	store := new(MockRecordStore)
	store.On("SearchRecords", mock.Anything, mock.Anything, mock.Anything).
		Return([]schemas.SearchHit{{
			Score: 0.95,
			Record: schemas.MemoryRecord{
				Goal:   "open the settings panel",
				Action: schemas.Action{Type: schemas.ActionClick, TargetText: "Settings"},
			},
		}}, nil)

	// High similarity but the remembered target is gone from this screen.
	state := testScreen(block("Lock Screen", 0, 0, 120, 20))
	mind := newTestMind(store, new(MockInferenceClient))
	decision := mind.Think(context.Background(), state, "settings")

	assert.False(t, decision.Confident)
	assert.Nil(t, decision.Action)
	assert.Equal(t, ErrCodeGroundingMiss, decision.ErrorCode)
	assert.Contains(t, decision.Reasoning, `"Settings"`)
	assert.Contains(t, decision.Reasoning, "cannot find it on this screen")
}

func TestThinkSurfacesPrerequisites(t *testing.T) {
	store := new(MockRecordStore)
	store.On("SearchRecords", mock.Anything, mock.Anything, mock.Anything).
		Return([]schemas.SearchHit{{
			Score: 0.93,
			Record: schemas.MemoryRecord{
				Goal:          "save the document",
				Action:        schemas.Action{Type: schemas.ActionClick, TargetText: "Save"},
				Prerequisites: []string{"a document is open"},
			},
		}}, nil)

	state := testScreen(block("Save", 10, 10, 50, 30))
	mind := newTestMind(store, new(MockInferenceClient))
	decision := mind.Think(context.Background(), state, "save")

	require.True(t, decision.Confident)
	assert.Equal(t, []string{"a document is open"}, decision.Prerequisites)
	assert.Contains(t, decision.Reasoning, "a document is open")
}

func TestBuildRecallQueryCombinesGoalAndScreen(t *testing.T) {
	state := testScreen(block("Settings", 0, 0, 10, 10))

	assert.Equal(t, "open settings\n"+state.Describe(), buildRecallQuery(state, "open settings"))
	assert.Equal(t, state.Describe(), buildRecallQuery(state, ""))
	assert.Equal(t, "open settings", buildRecallQuery(nil, "open settings"))
}
