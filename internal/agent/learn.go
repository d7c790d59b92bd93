package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
)

// Learn persists one experienced (goal, action, fact) tuple twice: once
// embedded on the goal text for "how do I accomplish X" queries, and once
// embedded on the screen description for "what can I do here" queries. The
// two query distributions are different enough that sharing one vector
// would degrade both.
func (m *Mind) Learn(ctx context.Context, state *schemas.ScreenState, goal string, action schemas.Action, prerequisites []string, fact string) error {
	return m.learnWithSource(ctx, state, goal, action, prerequisites, fact, schemas.SourceLearned)
}

func (m *Mind) learnWithSource(ctx context.Context, state *schemas.ScreenState, goal string, action schemas.Action, prerequisites []string, fact, source string) error {
	now := time.Now().UTC()
	description := ""
	if state != nil {
		description = state.Describe()
	}

	task := schemas.MemoryRecord{
		Goal:          goal,
		Action:        action,
		Fact:          fact,
		Prerequisites: prerequisites,
		Description:   description,
		MemoryType:    schemas.MemoryTask,
		Source:        source,
		Timestamp:     now,
	}
	if err := m.store.SaveRecord(ctx, goal, task); err != nil {
		return fmt.Errorf("save task record: %w", err)
	}

	contextRec := task
	contextRec.MemoryType = schemas.MemoryContext
	embedText := description
	if embedText == "" {
		embedText = goal
	}
	if err := m.store.SaveRecord(ctx, embedText, contextRec); err != nil {
		return fmt.Errorf("save context record: %w", err)
	}

	m.logger.Info("Learned",
		zap.String("goal", goal),
		zap.String("action_type", string(action.Type)),
		zap.String("source", source))
	return nil
}

// KnownInteractiveElements runs a broad context-embedded search for the
// current screen and returns the distinct target texts of matched actions.
// Callers use it to render "already learned" feedback without re-deciding.
func (m *Mind) KnownInteractiveElements(ctx context.Context, state *schemas.ScreenState) ([]string, error) {
	hits, err := m.store.SearchRecords(ctx, state.Describe(), m.cfg.ContextScanTopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMemoryUnavailable, err)
	}

	seen := make(map[string]struct{})
	var targets []string
	for _, h := range hits {
		t := h.Record.Action.TargetText
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		targets = append(targets, t)
	}
	return targets, nil
}

// BackfillFromSession converts the hypotheses of a recorded training session
// into learned memory. Frames without a hypothesis or without a goal carry
// no learnable content and are skipped.
func (m *Mind) BackfillFromSession(ctx context.Context, session *schemas.TrainingSession) (int, error) {
	learned := 0
	for i, frame := range session.Frames {
		h := frame.Hypothesis
		if h == nil || h.Goal == "" {
			continue
		}

		action := schemas.Action{Type: schemas.ActionClick, TargetText: h.TargetText}
		if frame.Event == schemas.EventKeypress {
			action = schemas.Action{Type: schemas.ActionKey, KeyName: h.TargetText}
		}

		if err := m.learnWithSource(ctx, frame.State, h.Goal, action, nil, h.Fact, schemas.SourceTraining); err != nil {
			return learned, fmt.Errorf("backfill frame %d of session %s: %w", i, session.ID, err)
		}
		learned++
	}
	m.logger.Info("Backfilled training session",
		zap.String("session_id", session.ID),
		zap.Int("records", learned))
	return learned, nil
}
