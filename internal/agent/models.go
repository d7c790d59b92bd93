package agent

import (
	"github.com/glimpsebot/glimpse/api/schemas"
)

// Decision is the outcome of one Think call. When Confident is false the
// Reasoning string explains why, phrased so a caller can relay it to the
// user as a request for clarification.
type Decision struct {
	Confident     bool            `json:"confident"`
	Action        *schemas.Action `json:"action,omitempty"`
	Goal          string          `json:"goal,omitempty"`
	Confidence    float64         `json:"confidence"`
	Reasoning     string          `json:"reasoning"`
	Prerequisites []string        `json:"prerequisites,omitempty"`
	ErrorCode     ErrorCode       `json:"error_code,omitempty"`
}

// Insight is one learnable observation proposed by the idle analysis: a goal
// the element serves, the action that exercises it, and a supporting fact.
type Insight struct {
	Goal   string         `json:"goal"`
	Action schemas.Action `json:"action"`
	Fact   string         `json:"fact,omitempty"`
}

// CuriosityReport is the validated result of one idle analysis pass.
// Discarded is true when the result was computed against a screen or idle
// phase that no longer held by completion time; no side effects were applied
// in that case.
type CuriosityReport struct {
	Insights  []Insight        `json:"insights,omitempty"`
	Questions []string         `json:"questions,omitempty"`
	Elements  []LabeledElement `json:"elements,omitempty"`
	Discarded bool             `json:"discarded,omitempty"`
}

// LabeledElement is the vision-only analysis output: a screen element with
// an inferred role and purpose. Nothing validates these against OCR tokens,
// so they are surfaced to the caller and never persisted.
type LabeledElement struct {
	Label      string  `json:"label"`
	Role       string  `json:"role"`
	Purpose    string  `json:"purpose,omitempty"`
	Confidence float64 `json:"confidence"`
}

// TaskStep is one decomposed step of a free-text instruction together with
// its verification against memory and the current screen.
type TaskStep struct {
	StepDescription string  `json:"step_description"`
	Confidence      float64 `json:"confidence"`
	TargetText      string  `json:"target_text,omitempty"`
	ContextVisible  bool    `json:"context_visible"`
	IsKnown         bool    `json:"is_known"`
	Note            string  `json:"note,omitempty"`
}
