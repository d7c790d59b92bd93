package schemas

import (
	"sort"
	"strings"
	"time"
)

// -- Screen Observation Schemas --

// BoundingBox describes the pixel rectangle of an OCR block on the captured
// frame. Coordinates follow image convention: origin top-left, Right and
// Bottom exclusive of nothing in particular - they are the raw OCR values.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent of the box.
func (b BoundingBox) Width() float64 { return b.Right - b.Left }

// Height returns the vertical extent of the box.
func (b BoundingBox) Height() float64 { return b.Bottom - b.Top }

// Area returns the surface of the box in square pixels.
func (b BoundingBox) Area() float64 { return b.Width() * b.Height() }

// Center returns the midpoint of the box, the coordinate an input executor
// should click to hit the element.
func (b BoundingBox) Center() (x, y float64) {
	return b.Left + b.Width()/2, b.Top + b.Height()/2
}

// Union returns the smallest box containing both b and other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	out := b
	if other.Left < out.Left {
		out.Left = other.Left
	}
	if other.Top < out.Top {
		out.Top = other.Top
	}
	if other.Right > out.Right {
		out.Right = other.Right
	}
	if other.Bottom > out.Bottom {
		out.Bottom = other.Bottom
	}
	return out
}

// Contains reports whether the point (x, y) falls inside the box.
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.Left && x <= b.Right && y >= b.Top && y <= b.Bottom
}

// OcrBlock is a single unit of recognized text with its location. Blocks are
// produced by the OCR collaborator once per capture and never mutated.
type OcrBlock struct {
	Text       string      `json:"text"`
	Box        BoundingBox `json:"bounding_box"`
	Confidence float64     `json:"confidence,omitempty"`
}

// ScreenState is an immutable snapshot of one screen observation. A new
// capture supersedes the previous state; nothing edits an existing one.
// ID doubles as the identity token used to detect that an asynchronous
// analysis result was computed against a screen that no longer exists.
type ScreenState struct {
	ID          string     `json:"id"`
	Blocks      []OcrBlock `json:"ocr_blocks"`
	ImageWidth  int        `json:"image_width"`
	ImageHeight int        `json:"image_height"`
	CreatedAt   time.Time  `json:"created_at"`
	Embedding   []float32  `json:"-"`
}

// Texts returns the raw text of every block in capture order.
func (s *ScreenState) Texts() []string {
	out := make([]string, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		out = append(out, b.Text)
	}
	return out
}

// TokenSet returns the set of distinct block texts, used for Jaccard-style
// screen comparison. Keys are the raw block texts, not normalized.
func (s *ScreenState) TokenSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Blocks))
	for _, b := range s.Blocks {
		if b.Text != "" {
			set[b.Text] = struct{}{}
		}
	}
	return set
}

// ContainsText reports whether any block's text contains the given substring,
// case-insensitively.
func (s *ScreenState) ContainsText(substr string) bool {
	needle := strings.ToLower(substr)
	for _, b := range s.Blocks {
		if strings.Contains(strings.ToLower(b.Text), needle) {
			return true
		}
	}
	return false
}

// Describe renders the screen as a stable, embeddable text description. Block
// texts are sorted so two captures of the same screen describe identically
// regardless of OCR emission order.
func (s *ScreenState) Describe() string {
	texts := s.Texts()
	sort.Strings(texts)
	var sb strings.Builder
	sb.WriteString("Screen elements: ")
	for i, t := range texts {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(t)
	}
	return sb.String()
}

// OcrRegion is a derived spatial cluster of blocks, recomputed per query and
// never persisted.
type OcrRegion struct {
	Bounds BoundingBox `json:"bounds"`
	Blocks []OcrBlock  `json:"blocks"`
	Label  string      `json:"label,omitempty"`
}

// ContainsTextIn reports whether some member block of the region contains the
// substring, case-insensitively.
func (r *OcrRegion) ContainsTextIn(substr string) bool {
	needle := strings.ToLower(substr)
	for _, b := range r.Blocks {
		if strings.Contains(strings.ToLower(b.Text), needle) {
			return true
		}
	}
	return false
}
