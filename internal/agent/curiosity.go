package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/config"
	"github.com/glimpsebot/glimpse/internal/llmutil"
	"github.com/glimpsebot/glimpse/internal/textutil"
)

// Phase is the curiosity loop's two-state activity model. There is exactly
// one owner of the phase: the caller reporting activity and idleness.
type Phase string

const (
	PhaseIdle Phase = "IDLE"
	PhaseBusy Phase = "BUSY"
)

// Analysis policies.
const (
	PolicyOCR    = "ocr"
	PolicyVision = "vision"
)

// curiosityOutput is the wire shape requested from the model for the
// OCR-grounded policy. Questions carry their implied target explicitly so
// validation has something concrete to check.
type curiosityOutput struct {
	Insights  []curiosityInsight  `json:"insights"`
	Questions []curiosityQuestion `json:"questions"`
}

type curiosityInsight struct {
	Goal   string `json:"goal"`
	Action struct {
		Type       string `json:"type"`
		TargetText string `json:"target_text"`
	} `json:"action"`
	Fact string `json:"fact,omitempty"`
}

type curiosityQuestion struct {
	Text       string `json:"text"`
	TargetText string `json:"target_text"`
}

type visionOutput struct {
	Elements []LabeledElement `json:"elements"`
}

// CuriosityLoop proposes and validates new knowledge about unexplained
// screen elements while the system is otherwise idle. Generative output is
// never trusted to reference real UI elements: every target goes through
// exact token membership, one corrective re-prompt, and a fuzzy Levenshtein
// fallback before any side effect is applied. Results computed against a
// screen or idle phase that has since changed are discarded wholesale.
type CuriosityLoop struct {
	mind      *Mind
	inference schemas.InferenceClient
	idleCfg   config.IdleConfig
	agentCfg  config.AgentConfig
	limiter   *rate.Limiter
	asked     *cache.Cache
	logger    *zap.Logger

	mu         sync.Mutex
	phase      Phase
	generation uint64
	idleSince  time.Time
	screenID   string
}

// NewCuriosityLoop wires the loop. It owns no goroutine; the caller decides
// when to call ShouldAnalyze and Analyze, which keeps mutual exclusion with
// the active execution loop in exactly one place.
func NewCuriosityLoop(idleCfg config.IdleConfig, agentCfg config.AgentConfig, mind *Mind, inference schemas.InferenceClient, logger *zap.Logger) *CuriosityLoop {
	return &CuriosityLoop{
		mind:      mind,
		inference: inference,
		idleCfg:   idleCfg,
		agentCfg:  agentCfg,
		limiter:   rate.NewLimiter(rate.Every(idleCfg.Cooldown), 1),
		asked:     cache.New(idleCfg.QuestionMemory, 2*idleCfg.QuestionMemory),
		logger:    logger.Named("curiosity"),
	}
}

// NoteActivity records user or executor activity: the loop goes Busy and
// any in-flight analysis result becomes stale.
func (c *CuriosityLoop) NoteActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseBusy
	c.generation++
}

// NoteIdle records an idle observation of the given screen. Entering Idle
// starts the idle clock; a screen change while idle restarts it and stales
// in-flight work, since the analysis would describe a screen that is gone.
func (c *CuriosityLoop) NoteIdle(now time.Time, screenID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		c.phase = PhaseIdle
		c.idleSince = now
	}
	if screenID != c.screenID {
		if c.screenID != "" {
			c.generation++
			c.idleSince = now
		}
		c.screenID = screenID
	}
}

// Phase returns the current activity phase.
func (c *CuriosityLoop) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// ShouldAnalyze reports whether an analysis pass is due: enabled, idle past
// the threshold, and outside the cool-down window. A true result consumes
// the cool-down token, so callers must follow through with Analyze.
func (c *CuriosityLoop) ShouldAnalyze(now time.Time) bool {
	if !c.idleCfg.Enabled {
		return false
	}
	c.mu.Lock()
	ok := c.phase == PhaseIdle && !c.idleSince.IsZero() && now.Sub(c.idleSince) >= c.idleCfg.Threshold
	c.mu.Unlock()
	return ok && c.limiter.Allow()
}

// snapshot captures the staleness token for an analysis about to start.
func (c *CuriosityLoop) snapshot() (uint64, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, c.screenID, c.phase == PhaseIdle
}

// stale reports whether the captured token no longer describes reality.
func (c *CuriosityLoop) stale(generation uint64, screenID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation != generation || c.screenID != screenID || c.phase != PhaseIdle
}

// Analyze runs one analysis pass against the given state. frame is the raw
// captured image, used only by the vision policy. The returned report has
// Discarded set when the screen or phase changed mid-flight; in that case
// nothing was persisted or surfaced.
func (c *CuriosityLoop) Analyze(ctx context.Context, state *schemas.ScreenState, frame []byte) (*CuriosityReport, error) {
	generation, screenID, idle := c.snapshot()
	if !idle {
		return &CuriosityReport{Discarded: true}, nil
	}

	if c.idleCfg.Policy == PolicyVision {
		return c.analyzeVision(ctx, state, frame, generation, screenID)
	}
	return c.analyzeOCR(ctx, state, generation, screenID)
}

// analyzeOCR runs the OCR-grounded policy: the model may only reference
// tokens that literally appear on screen, enforced by the validation
// pipeline below.
func (c *CuriosityLoop) analyzeOCR(ctx context.Context, state *schemas.ScreenState, generation uint64, screenID string) (*CuriosityReport, error) {
	tokens := textutil.Tokenize(state.Texts())
	if len(tokens) == 0 {
		return &CuriosityReport{}, nil
	}

	resp, err := c.inference.Generate(ctx, schemas.GenerationRequest{
		Prompt:      ocrCuriosityPrompt(tokens),
		NumPredict:  1024,
		Temperature: 0.4,
		ForceJSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("curiosity generation: %w", err)
	}

	output, err := llmutil.ParseJSONResponse[curiosityOutput](resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	validated := c.validate(ctx, *output, tokens)

	// The model call took time; the world may have moved on. Nothing below
	// this check may have side effects above it.
	if c.stale(generation, screenID) {
		c.logger.Debug("Discarding stale curiosity result", zap.Uint64("generation", generation))
		return &CuriosityReport{Discarded: true}, nil
	}

	report := &CuriosityReport{}
	for _, ins := range validated.Insights {
		action := schemas.Action{Type: schemas.ActionType(ins.Action.Type), TargetText: ins.Action.TargetText}
		if action.TargetText == "" {
			continue
		}
		if err := c.mind.learnWithSource(ctx, state, ins.Goal, action, nil, ins.Fact, schemas.SourceIdle); err != nil {
			c.logger.Warn("Failed to persist idle insight", zap.String("goal", ins.Goal), zap.Error(err))
			continue
		}
		report.Insights = append(report.Insights, Insight{Goal: ins.Goal, Action: action, Fact: ins.Fact})
	}

	for _, q := range validated.Questions {
		key := textutil.Normalize(q.Text)
		if _, dup := c.asked.Get(key); dup {
			continue
		}
		c.asked.SetDefault(key, struct{}{})
		report.Questions = append(report.Questions, q.Text)
	}
	return report, nil
}

// analyzeVision asks the model to label elements directly from the frame.
// There is no OCR token set to validate against, so the output is surfaced
// but never persisted.
func (c *CuriosityLoop) analyzeVision(ctx context.Context, state *schemas.ScreenState, frame []byte, generation uint64, screenID string) (*CuriosityReport, error) {
	req := schemas.GenerationRequest{
		Prompt: `Identify the interactive elements visible in this screenshot.
For each, give its visible label, its role (button, field, menu, link, toggle), its likely purpose, and your confidence.
Respond with JSON only: {"elements":[{"label":"...","role":"...","purpose":"...","confidence":0.0}]}`,
		NumPredict:  1024,
		Temperature: 0.3,
		ForceJSON:   true,
	}
	if len(frame) > 0 {
		req.Images = [][]byte{frame}
	} else if state != nil {
		req.Prompt += "\n\nOCR text on screen for reference:\n" + strings.Join(state.Texts(), "\n")
	}

	resp, err := c.inference.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision curiosity generation: %w", err)
	}
	output, err := llmutil.ParseJSONResponse[visionOutput](resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	if c.stale(generation, screenID) {
		return &CuriosityReport{Discarded: true}, nil
	}
	return &CuriosityReport{Elements: output.Elements}, nil
}

// validate enforces the grounding invariant on model output in up to three
// stages: exact normalized membership, one corrective re-prompt for the
// rejects, then fuzzy substitution of the closest token. Items that survive
// none of the stages are dropped entirely.
func (c *CuriosityLoop) validate(ctx context.Context, output curiosityOutput, tokens []string) curiosityOutput {
	byNorm := make(map[string]string, len(tokens))
	for _, t := range tokens {
		byNorm[textutil.Normalize(t)] = t
	}
	resolve := func(target string) (string, bool) {
		tok, ok := byNorm[textutil.Normalize(target)]
		return tok, ok
	}

	var valid curiosityOutput
	var rejects curiosityOutput
	for _, ins := range output.Insights {
		if tok, ok := resolve(ins.Action.TargetText); ok {
			ins.Action.TargetText = tok
			valid.Insights = append(valid.Insights, ins)
		} else {
			rejects.Insights = append(rejects.Insights, ins)
		}
	}
	for _, q := range output.Questions {
		if tok, ok := resolve(q.TargetText); ok {
			q.TargetText = tok
			valid.Questions = append(valid.Questions, q)
		} else {
			rejects.Questions = append(rejects.Questions, q)
		}
	}

	if len(rejects.Insights) == 0 && len(rejects.Questions) == 0 {
		return valid
	}

	c.logger.Debug("Curiosity output references unknown tokens, re-prompting",
		zap.Int("insights", len(rejects.Insights)),
		zap.Int("questions", len(rejects.Questions)))

	corrected := c.reprompt(ctx, rejects, tokens)
	for _, ins := range corrected.Insights {
		if tok, ok := resolve(ins.Action.TargetText); ok {
			ins.Action.TargetText = tok
			valid.Insights = append(valid.Insights, ins)
		} else if tok, ok := c.fuzzyToken(ins.Action.TargetText, tokens); ok {
			ins.Action.TargetText = tok
			valid.Insights = append(valid.Insights, ins)
		}
	}
	for _, q := range corrected.Questions {
		if tok, ok := resolve(q.TargetText); ok {
			q.TargetText = tok
			valid.Questions = append(valid.Questions, q)
		} else if tok, ok := c.fuzzyToken(q.TargetText, tokens); ok {
			q.TargetText = tok
			valid.Questions = append(valid.Questions, q)
		}
	}
	return valid
}

// reprompt gives the model one chance to fix its references. On any failure
// the rejects pass through unchanged and the fuzzy stage decides their fate.
func (c *CuriosityLoop) reprompt(ctx context.Context, rejects curiosityOutput, tokens []string) curiosityOutput {
	var sb strings.Builder
	sb.WriteString("The following items reference text that does not appear on screen.\n")
	for _, ins := range rejects.Insights {
		fmt.Fprintf(&sb, "insight: goal=%q target_text=%q\n", ins.Goal, ins.Action.TargetText)
	}
	for _, q := range rejects.Questions {
		fmt.Fprintf(&sb, "question: text=%q target_text=%q\n", q.Text, q.TargetText)
	}
	fmt.Fprintf(&sb, "\nThe only valid target_text values are:\n%s\n", strings.Join(tokens, "\n"))
	sb.WriteString(`
Replace each target_text with the closest valid value, or drop the item if none fits.
Respond with JSON only: {"insights":[...],"questions":[...]}`)

	resp, err := c.inference.Generate(ctx, schemas.GenerationRequest{
		Prompt:      sb.String(),
		NumPredict:  1024,
		Temperature: 0.0,
		ForceJSON:   true,
	})
	if err != nil {
		c.logger.Warn("Corrective re-prompt failed", zap.Error(err))
		return rejects
	}
	corrected, err := llmutil.ParseJSONResponse[curiosityOutput](resp)
	if err != nil {
		c.logger.Warn("Corrective re-prompt output unusable", zap.Error(err))
		return rejects
	}
	return *corrected
}

// fuzzyToken finds the OCR token closest to the hallucinated string, or
// reports failure when nothing reaches the similarity floor.
func (c *CuriosityLoop) fuzzyToken(target string, tokens []string) (string, bool) {
	if target == "" {
		return "", false
	}
	normTarget := textutil.Normalize(target)
	best := ""
	bestScore := 0.0
	for _, tok := range tokens {
		score := textutil.LevenshteinSimilarity(normTarget, textutil.Normalize(tok))
		if score > bestScore {
			best, bestScore = tok, score
		}
	}
	if bestScore >= c.agentCfg.FuzzyMatchThreshold {
		c.logger.Debug("Fuzzy-corrected hallucinated target",
			zap.String("from", target),
			zap.String("to", best),
			zap.Float64("similarity", bestScore))
		return best, true
	}
	return "", false
}

func ocrCuriosityPrompt(tokens []string) string {
	return fmt.Sprintf(`You are exploring an unfamiliar application screen. The exact text fragments
visible on screen are listed below. Propose what unexplained elements might do
(insights) and what you would need a human to clarify (questions).

Every target_text you output MUST be copied verbatim from this list:
%s

Respond with JSON only:
{"insights":[{"goal":"...","action":{"type":"click","target_text":"..."},"fact":"..."}],
 "questions":[{"text":"...","target_text":"..."}]}`, strings.Join(tokens, "\n"))
}
