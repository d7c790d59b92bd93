package schemas

import "time"

// -- Training Capture Schemas --
//
// A training session is an append-only recording of (state, event,
// hypothesis) tuples made while a human demonstrates the interface. The
// learning engine consumes sessions to backfill memory; the raw frame images
// are referenced by path and their lifecycle belongs to the caller.

// TrainingEventKind classifies the user event captured with a frame.
type TrainingEventKind string

const (
	EventClick    TrainingEventKind = "click"
	EventKeypress TrainingEventKind = "keypress"
	EventScroll   TrainingEventKind = "scroll"
	EventIdleGap  TrainingEventKind = "idle_gap"
)

// Hypothesis is the inferred explanation for an observed event: what the user
// was trying to do and which element served it.
type Hypothesis struct {
	Goal       string  `json:"goal"`
	TargetText string  `json:"target_text,omitempty"`
	Fact       string  `json:"fact,omitempty"`
	Confidence float64 `json:"confidence"`
}

// TrainingFrame pairs one screen state with the event that occurred on it and
// the hypothesis inferred for that event. ImagePath points at an externally
// owned file.
type TrainingFrame struct {
	State      *ScreenState      `json:"state"`
	Event      TrainingEventKind `json:"event"`
	ImagePath  string            `json:"image_path,omitempty"`
	Hypothesis *Hypothesis       `json:"hypothesis,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// TrainingSession is an ordered, append-only capture of frames.
type TrainingSession struct {
	ID        string          `json:"id"`
	StartedAt time.Time       `json:"started_at"`
	Frames    []TrainingFrame `json:"frames"`
}
