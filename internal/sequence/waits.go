package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/agent"
	"github.com/glimpsebot/glimpse/internal/config"
	"github.com/glimpsebot/glimpse/internal/textutil"
)

// Waiter polls the screen until a condition holds or the budget runs out.
// It exists so replayed sequences can bridge loading screens and slow
// dialogs without hard-coded sleeps.
type Waiter struct {
	screen schemas.ScreenSource
	cfg    config.SequenceConfig
}

// NewWaiter wires a waiter over the given screen source.
func NewWaiter(screen schemas.ScreenSource, cfg config.SequenceConfig) *Waiter {
	return &Waiter{screen: screen, cfg: cfg}
}

// ForTextAppears blocks until text is visible on screen and returns the
// observation that satisfied it. A zero timeout uses the configured default.
func (w *Waiter) ForTextAppears(ctx context.Context, text string, timeout time.Duration) (*schemas.ScreenState, error) {
	state, err := w.poll(ctx, timeout, func(state *schemas.ScreenState) bool {
		return state.ContainsText(text)
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for %q to appear: %w", text, err)
	}
	return state, nil
}

// ForTextDisappears blocks until text is no longer visible on screen.
func (w *Waiter) ForTextDisappears(ctx context.Context, text string, timeout time.Duration) (*schemas.ScreenState, error) {
	state, err := w.poll(ctx, timeout, func(state *schemas.ScreenState) bool {
		return !state.ContainsText(text)
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for %q to disappear: %w", text, err)
	}
	return state, nil
}

// ForScreenChange blocks until the screen's token set diverges from the
// baseline by more than the unchanged threshold.
func (w *Waiter) ForScreenChange(ctx context.Context, baseline *schemas.ScreenState, timeout time.Duration) (*schemas.ScreenState, error) {
	base := baseline.TokenSet()
	state, err := w.poll(ctx, timeout, func(state *schemas.ScreenState) bool {
		return textutil.Jaccard(base, state.TokenSet()) <= w.cfg.UnchangedJaccard
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for screen change: %w", err)
	}
	return state, nil
}

// poll evaluates the condition against fresh captures at the configured
// interval. The first capture happens immediately so an already satisfied
// condition never waits.
func (w *Waiter) poll(ctx context.Context, timeout time.Duration, done func(*schemas.ScreenState) bool) (*schemas.ScreenState, error) {
	if timeout <= 0 {
		timeout = w.cfg.WaitTimeout
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(w.cfg.WaitPollInterval)
	defer ticker.Stop()

	for {
		state, err := w.screen.Capture(ctx)
		if err != nil {
			return nil, fmt.Errorf("capture: %w", err)
		}
		if done(state) {
			return state, nil
		}
		if time.Now().After(deadline) {
			return nil, agent.ErrTimeoutExceeded
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
