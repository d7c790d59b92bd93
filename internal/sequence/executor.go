package sequence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/agent"
	"github.com/glimpsebot/glimpse/internal/config"
	"github.com/glimpsebot/glimpse/internal/textutil"
)

// StepResult records the outcome of one replayed step.
type StepResult struct {
	StepOrder       int            `json:"step_order"`
	Action          schemas.Action `json:"action"`
	ScreenUnchanged bool           `json:"screen_unchanged"`
}

// RunReport summarizes one sequence replay.
type RunReport struct {
	Name     string       `json:"name"`
	Steps    []StepResult `json:"steps"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Executor replays stored sequences as a linear state machine. Each step is
// re-grounded against a fresh capture before it is performed; a grounding
// miss aborts the whole run, because every later step assumes the screen the
// missed step would have produced. A screen that does not change after a
// step is only a warning: plenty of legitimate actions (typing into a field
// OCR cannot read, toggling state) leave the token set intact.
type Executor struct {
	store    *Store
	screen   schemas.ScreenSource
	actions  schemas.ActionExecutor
	cfg      config.SequenceConfig
	logger   *zap.Logger
	sleepFns func(ctx context.Context, d time.Duration)
}

// NewExecutor wires a sequence executor.
func NewExecutor(store *Store, screen schemas.ScreenSource, actions schemas.ActionExecutor, cfg config.SequenceConfig, logger *zap.Logger) *Executor {
	return &Executor{
		store:   store,
		screen:  screen,
		actions: actions,
		cfg:     cfg,
		logger:  logger.Named("executor"),
		sleepFns: func(ctx context.Context, d time.Duration) {
			if d <= 0 {
				return
			}
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		},
	}
}

// Run loads and replays the named sequence against the live screen.
func (e *Executor) Run(ctx context.Context, name string) (*RunReport, error) {
	steps, err := e.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.runSteps(ctx, name, steps)
}

func (e *Executor) runSteps(ctx context.Context, name string, steps []schemas.Action) (*RunReport, error) {
	report := &RunReport{Name: name}

	before, err := e.screen.Capture(ctx)
	if err != nil {
		return report, fmt.Errorf("capture before sequence %q: %w", name, err)
	}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("sequence %q interrupted at step %d: %w", name, i+1, err)
		}

		grounded, err := agent.Ground(step, before, "")
		if err != nil {
			return report, fmt.Errorf("sequence %q aborted at step %d (target %q): %w",
				name, i+1, step.TargetText, err)
		}

		if err := e.actions.Perform(ctx, grounded); err != nil {
			return report, fmt.Errorf("sequence %q failed at step %d: %w", name, i+1, err)
		}

		// Give the interface time to settle before judging the effect.
		e.sleepFns(ctx, e.cfg.StepDelay)

		after, err := e.screen.Capture(ctx)
		if err != nil {
			return report, fmt.Errorf("capture after step %d of sequence %q: %w", i+1, name, err)
		}

		result := StepResult{StepOrder: i, Action: grounded}
		similarity := textutil.Jaccard(before.TokenSet(), after.TokenSet())
		if similarity > e.cfg.UnchangedJaccard {
			result.ScreenUnchanged = true
			warning := fmt.Sprintf("step %d of %q produced no visible screen change (similarity %.2f)",
				i+1, name, similarity)
			report.Warnings = append(report.Warnings, warning)
			e.logger.Warn("Screen unchanged after step",
				zap.String("sequence", name),
				zap.Int("step", i+1),
				zap.Float64("similarity", similarity))
		}
		report.Steps = append(report.Steps, result)
		before = after
	}

	e.logger.Info("Sequence completed",
		zap.String("name", name),
		zap.Int("steps", len(report.Steps)),
		zap.Int("warnings", len(report.Warnings)))
	return report, nil
}
