package schemas

import (
	"fmt"
	"time"

	json "github.com/json-iterator/go"
)

// -- Memory Record Schemas --
//
// The JSON field names below are the persisted payload contract with the
// vector memory collaborator. Renaming any of them breaks compatibility with
// records written by earlier deployments.

// MemoryType distinguishes the two embeddings written for every learned event.
type MemoryType string

const (
	// MemoryTask is embedded on the goal text and answers "how do I do X".
	MemoryTask MemoryType = "task"
	// MemoryContext is embedded on the screen description and answers
	// "what can I do on this screen".
	MemoryContext MemoryType = "context"
)

// RecordSource tags where a record came from.
const (
	SourceLearned  = "learned"
	SourceIdle     = "idle"
	SourceSequence = "sequence"
	SourceTraining = "training"
)

// ActionType enumerates the closed set of actions the agent can remember and
// replay. It mirrors the vocabulary of the input-injection collaborator.
type ActionType string

const (
	ActionClick      ActionType = "click"
	ActionInputText  ActionType = "type"
	ActionKey        ActionType = "key"
	ActionMouseMove  ActionType = "mouse_move"
	ActionRightClick ActionType = "right_click"
	ActionOpen       ActionType = "open"
)

// Action is the tagged variant decoded from the untyped wire JSON at the
// boundary. Which fields are meaningful depends on Type: click/right_click
// use TargetText (and X/Y once grounded), type uses Text, key uses KeyName.
type Action struct {
	Type       ActionType `json:"type"`
	TargetText string     `json:"target_text,omitempty"`
	Text       string     `json:"text,omitempty"`
	KeyName    string     `json:"key_name,omitempty"`
	X          float64    `json:"x,omitempty"`
	Y          float64    `json:"y,omitempty"`
	Grounded   bool       `json:"grounded,omitempty"`
}

// NeedsGrounding reports whether the action references a screen element by
// text and therefore must be resolved to coordinates before execution.
func (a Action) NeedsGrounding() bool {
	switch a.Type {
	case ActionClick, ActionRightClick, ActionInputText, ActionKey, ActionMouseMove:
		return a.TargetText != ""
	}
	return false
}

// DecodeAction converts a raw wire payload into the closed Action variant,
// rejecting unknown action types so the rest of the core never has to touch
// untyped maps.
func DecodeAction(raw map[string]interface{}) (Action, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return Action{}, fmt.Errorf("encode action payload: %w", err)
	}
	var a Action
	if err := json.Unmarshal(buf, &a); err != nil {
		return Action{}, fmt.Errorf("decode action payload: %w", err)
	}
	switch a.Type {
	case ActionClick, ActionInputText, ActionKey, ActionMouseMove, ActionRightClick, ActionOpen:
		return a, nil
	default:
		return Action{}, fmt.Errorf("unknown action type %q", a.Type)
	}
}

// MemoryRecord is one learned (goal, action, fact) tuple as stored in the
// vector index payload. Records are immutable; newer knowledge supersedes,
// never edits.
type MemoryRecord struct {
	Goal          string     `json:"goal"`
	Action        Action     `json:"action"`
	Fact          string     `json:"fact,omitempty"`
	Prerequisites []string   `json:"prerequisites,omitempty"`
	Description   string     `json:"description,omitempty"`
	MemoryType    MemoryType `json:"memory_type"`
	Source        string     `json:"source,omitempty"`
	SequenceID    string     `json:"sequence_id,omitempty"`
	StepOrder     int        `json:"step_order,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// SearchHit is one vector search result: the similarity score and the stored
// payload, already decoded into a MemoryRecord.
type SearchHit struct {
	Score  float64      `json:"score"`
	Record MemoryRecord `json:"record"`
}
