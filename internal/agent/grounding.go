package agent

import (
	"strings"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/screen"
)

// Proximity threshold used when a region hint requires clustering the screen
// into candidate regions.
const groundingRegionProximity = 32.0

// Ground resolves a remembered action's target text to concrete coordinates
// on the given screen. Matching is a case-insensitive substring test against
// block text; when regionHint is non-empty, candidates are restricted to the
// blocks of the first proximity region whose text contains the hint, which
// disambiguates the same label appearing in several dialogs. The result is a
// copy of the action with X, Y set to the matched block's center; the input
// is never modified, so grounding the same action against the same state is
// idempotent.
func Ground(action schemas.Action, state *schemas.ScreenState, regionHint string) (schemas.Action, error) {
	if !action.NeedsGrounding() {
		return action, nil
	}
	if state == nil {
		return schemas.Action{}, &GroundingMissError{Target: action.TargetText, Hint: regionHint}
	}

	candidates := state.Blocks
	if regionHint != "" {
		regions := screen.GroupByProximity(state.Blocks, groundingRegionProximity)
		if hit := screen.RegionContaining(regions, regionHint); hit != nil {
			candidates = hit.Blocks
		}
		// No region matches the hint: fall back to the whole screen rather
		// than failing, the hint narrows but never vetoes.
	}

	needle := strings.ToLower(action.TargetText)
	for _, block := range candidates {
		if strings.Contains(strings.ToLower(block.Text), needle) {
			grounded := action
			grounded.X, grounded.Y = block.Box.Center()
			grounded.Grounded = true
			return grounded, nil
		}
	}
	return schemas.Action{}, &GroundingMissError{Target: action.TargetText, Hint: regionHint}
}
