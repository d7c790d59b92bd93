package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
)

// Think recalls the most similar past experience for the current screen and
// optional goal, grounds its action onto the screen, and returns a
// confidence-scored decision. Every collaborator failure degrades to a
// non-confident decision carrying the cause; Think never returns an error,
// because the agent's fallback for any failure is the same: ask for help.
func (m *Mind) Think(ctx context.Context, state *schemas.ScreenState, goal string) Decision {
	query := buildRecallQuery(state, goal)

	hits, err := m.store.SearchRecords(ctx, query, m.cfg.RecallTopK)
	if err != nil {
		m.logger.Warn("Memory recall failed", zap.Error(err))
		return Decision{
			Reasoning: fmt.Sprintf("memory unavailable: %v", err),
			ErrorCode: ErrCodeMemoryUnavailable,
		}
	}
	if len(hits) == 0 {
		return Decision{Reasoning: "no relevant memory found"}
	}

	best := hits[0]
	if best.Score < m.cfg.ExecuteConfidence {
		return Decision{
			Confidence: best.Score,
			Goal:       best.Record.Goal,
			Reasoning: fmt.Sprintf(
				"best match %q scored %.2f, below the execution threshold %.2f; ask the user whether this is what they meant",
				best.Record.Goal, best.Score, m.cfg.ExecuteConfidence),
		}
	}

	action := best.Record.Action
	if action.NeedsGrounding() {
		grounded, err := Ground(action, state, "")
		if err != nil {
			m.logger.Info("Grounding miss on recalled action",
				zap.String("goal", best.Record.Goal),
				zap.String("target", action.TargetText))
			return Decision{
				Confidence: best.Score,
				Goal:       best.Record.Goal,
				Reasoning: fmt.Sprintf(
					"I remember how to %q via %q but cannot find it on this screen; the context may have changed",
					best.Record.Goal, action.TargetText),
				ErrorCode: ErrCodeGroundingMiss,
			}
		}
		action = grounded
	}

	reasoning := fmt.Sprintf("recalled %q with similarity %.2f", best.Record.Goal, best.Score)
	if len(best.Record.Prerequisites) > 0 {
		// Grounding success is indirect evidence the preconditions held:
		// the target is on screen. Still surface them for the caller.
		reasoning += fmt.Sprintf("; prerequisites noted: %s", strings.Join(best.Record.Prerequisites, ", "))
	}

	return Decision{
		Confident:     true,
		Action:        &action,
		Goal:          best.Record.Goal,
		Confidence:    best.Score,
		Reasoning:     reasoning,
		Prerequisites: best.Record.Prerequisites,
	}
}

// buildRecallQuery combines the stated goal with the screen description so
// both the task and the context index can answer.
func buildRecallQuery(state *schemas.ScreenState, goal string) string {
	desc := ""
	if state != nil {
		desc = state.Describe()
	}
	switch {
	case goal == "":
		return desc
	case desc == "":
		return goal
	default:
		return goal + "\n" + desc
	}
}
