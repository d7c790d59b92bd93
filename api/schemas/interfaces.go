package schemas

import "context"

// -- External Collaborator Interfaces --
//
// The core orchestrates these; it never captures pixels or touches input
// hardware itself.

// ScreenSource supplies the current observation on demand. Implementations
// own the capture pipeline (frame grab + OCR); the core only reads the
// resulting blocks and dimensions.
type ScreenSource interface {
	Capture(ctx context.Context) (*ScreenState, error)
}

// ActionExecutor performs a concrete, grounded action against the device.
// Actions that need coordinates must be grounded before they reach Perform.
type ActionExecutor interface {
	Perform(ctx context.Context, action Action) error
}

// ScreenSourceFunc adapts a plain capture function to the ScreenSource
// interface, mirroring http.HandlerFunc.
type ScreenSourceFunc func(ctx context.Context) (*ScreenState, error)

// Capture calls f.
func (f ScreenSourceFunc) Capture(ctx context.Context) (*ScreenState, error) { return f(ctx) }
