package parchi

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidImage is returned before any upstream call when the upload
	// is empty, oversized, or not an image. Fatal to the whole request.
	ErrInvalidImage = errors.New("invalid image upload")

	// ErrBatchCancelled marks entries that were never dispatched because
	// the batch context was cancelled.
	ErrBatchCancelled = errors.New("cancelled")
)

// Validation reasons recorded on per-entry results.
const (
	ReasonMissingName     = "missing_name"
	ReasonMissingPhone    = "missing_phone"
	ReasonMissingSchedule = "missing_schedule"
)

// ValidationError marks an entry that failed normalization. It never aborts
// the batch; it becomes that entry's result.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ExtractionError wraps a vision-service failure. Fatal to the request: no
// entries exist yet, so there are no partial results to salvage.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("parchi: extraction failed: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// ParseError wraps an unusable entry-parser response. Fatal to the request.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parchi: parse failed: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// CreationError wraps a registry write failure for one entry. Recorded on
// that entry's result; sibling entries are unaffected.
type CreationError struct {
	Op    string
	Cause error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *CreationError) Unwrap() error {
	return e.Cause
}
