package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/llmutil"
	"github.com/glimpsebot/glimpse/internal/textutil"
)

const noteNotVisible = "Not visible on current screen"

type decomposition struct {
	Steps []string `json:"steps"`
}

type rerankVerdict struct {
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
}

// DecomposeAndVerify splits a free-text instruction into atomic UI steps and
// scores each against memory and, when a screen state is supplied, against
// what is actually visible. Visibility is a hard gate: a step whose target
// is absent from the screen is never marked known, whatever its score.
func (m *Mind) DecomposeAndVerify(ctx context.Context, instruction string, state *schemas.ScreenState) ([]TaskStep, error) {
	steps := m.decompose(ctx, instruction)

	results := make([]TaskStep, 0, len(steps))
	for _, step := range steps {
		results = append(results, m.verifyStep(ctx, step, state))
	}
	return results, nil
}

// decompose asks the model to split the instruction; malformed output falls
// back to treating the whole instruction as a single step.
func (m *Mind) decompose(ctx context.Context, instruction string) []string {
	prompt := fmt.Sprintf(`Split the following instruction into an ordered list of atomic UI actions.
Each step is one click, one text entry, or one open/navigation - nothing compound.
Respond with JSON only: {"steps": ["...", "..."]}

Instruction: %s`, instruction)

	resp, err := m.inference.Generate(ctx, schemas.GenerationRequest{
		Prompt:      prompt,
		NumPredict:  512,
		Temperature: 0.1,
		ForceJSON:   true,
	})
	if err != nil {
		m.logger.Warn("Decomposition generation failed, using whole instruction", zap.Error(err))
		return []string{instruction}
	}

	parsed, err := llmutil.ParseJSONResponse[decomposition](resp)
	if err != nil || len(parsed.Steps) == 0 {
		m.logger.Warn("Decomposition output unusable, using whole instruction", zap.Error(err))
		return []string{instruction}
	}

	var steps []string
	for _, s := range parsed.Steps {
		if strings.TrimSpace(s) != "" {
			steps = append(steps, strings.TrimSpace(s))
		}
	}
	if len(steps) == 0 {
		return []string{instruction}
	}
	return steps
}

// verifyStep retrieves memory candidates for one step, re-ranks them with
// the model, and applies the visibility gate.
func (m *Mind) verifyStep(ctx context.Context, step string, state *schemas.ScreenState) TaskStep {
	result := TaskStep{StepDescription: step}

	query := textutil.Normalize(step)
	hits, err := m.store.SearchRecords(ctx, query, m.cfg.RecallTopK)
	if err != nil {
		result.Note = fmt.Sprintf("memory unavailable: %v", err)
		return result
	}
	if len(hits) == 0 {
		result.Note = "no matching memory"
		return result
	}

	idx, confidence := m.rerank(ctx, step, hits)
	candidate := hits[idx].Record

	result.Confidence = confidence
	result.TargetText = candidate.Action.TargetText

	if state != nil && result.TargetText != "" {
		result.ContextVisible = state.ContainsText(result.TargetText)
		if !result.ContextVisible {
			// Hard gate: score is irrelevant when the target is absent.
			result.Note = noteNotVisible
			return result
		}
	}

	result.IsKnown = confidence >= m.cfg.KnownStepConfidence
	if !result.IsKnown && result.Note == "" {
		result.Note = fmt.Sprintf("confidence %.2f below %.2f", confidence, m.cfg.KnownStepConfidence)
	}
	return result
}

// rerank asks the model to pick the best candidate index for the step.
// Pure vector similarity misranks paraphrased steps, so the model sees the
// full candidate tuples. On any failure the vector order stands: index 0
// with its raw score.
func (m *Mind) rerank(ctx context.Context, step string, hits []schemas.SearchHit) (int, float64) {
	var sb strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&sb, "%d: goal=%q action=%s target=%q fact=%q prerequisites=%v\n",
			i, h.Record.Goal, h.Record.Action.Type, h.Record.Action.TargetText, h.Record.Fact, h.Record.Prerequisites)
	}

	prompt := fmt.Sprintf(`A user wants to perform this step: %q

Candidate memories:
%s
Pick the candidate that truly accomplishes the step and rate how well it matches.
Respond with JSON only: {"index": <int>, "confidence": <0.0-1.0>}`, step, sb.String())

	resp, err := m.inference.Generate(ctx, schemas.GenerationRequest{
		Prompt:      prompt,
		NumPredict:  128,
		Temperature: 0.0,
		ForceJSON:   true,
	})
	if err != nil {
		m.logger.Warn("Re-rank generation failed, keeping vector order", zap.Error(err))
		return 0, hits[0].Score
	}

	verdict, err := llmutil.ParseJSONResponse[rerankVerdict](resp)
	if err != nil || verdict.Index < 0 || verdict.Index >= len(hits) {
		m.logger.Warn("Re-rank output unusable, keeping vector order", zap.Error(err))
		return 0, hits[0].Score
	}
	return verdict.Index, verdict.Confidence
}
