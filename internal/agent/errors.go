package agent

import (
	"errors"
	"fmt"
)

// ErrorCode is a structured code attached to operation outcomes so callers
// can branch without string matching.
type ErrorCode string

const (
	ErrCodeGroundingMiss     ErrorCode = "GROUNDING_MISS"
	ErrCodeMemoryUnavailable ErrorCode = "MEMORY_UNAVAILABLE"
	ErrCodeMalformedOutput   ErrorCode = "MALFORMED_MODEL_OUTPUT"
	ErrCodeTimeoutExceeded   ErrorCode = "TIMEOUT_EXCEEDED"
	ErrCodeSequenceNotFound  ErrorCode = "SEQUENCE_NOT_FOUND"
)

// Sentinel errors for the recoverable and hard failure classes. Wrap with
// fmt.Errorf("...: %w", ...) so errors.Is keeps working across layers.
var (
	// ErrMemoryUnavailable marks transport or timeout failures against the
	// embedding model or the vector store.
	ErrMemoryUnavailable = errors.New("memory unavailable")
	// ErrMalformedModelOutput marks generation results that failed parsing
	// even after sanitizing.
	ErrMalformedModelOutput = errors.New("malformed model output")
	// ErrTimeoutExceeded marks a smart wait or sequence step that ran out of
	// budget.
	ErrTimeoutExceeded = errors.New("timeout exceeded")
	// ErrSequenceNotFound is a hard error: the named sequence does not exist
	// and there is nothing to retry.
	ErrSequenceNotFound = errors.New("sequence not found")
)

// GroundingMissError reports that a remembered target text could not be
// located on the current screen. It is recoverable by design: callers turn
// it into a non-confident decision, never a crash, since acting on stale
// coordinates is the primary correctness hazard of the whole system.
type GroundingMissError struct {
	Target string
	Hint   string
}

func (e *GroundingMissError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("target %q not found on current screen (region hint %q)", e.Target, e.Hint)
	}
	return fmt.Sprintf("target %q not found on current screen", e.Target)
}

// IsGroundingMiss reports whether err is a grounding miss.
func IsGroundingMiss(err error) bool {
	var miss *GroundingMissError
	return errors.As(err, &miss)
}
