package loansaf

import (
	"errors"
	"fmt"
)

// DocumentOpenError means the source PDF could not be located or parsed.
// It is the only extraction error that aborts a run; everything else
// degrades to lower confidence.
type DocumentOpenError struct {
	Path  string
	Cause error
}

func (e *DocumentOpenError) Error() string {
	return fmt.Sprintf("opening document %s: %v", e.Path, e.Cause)
}

func (e *DocumentOpenError) Unwrap() error {
	return e.Cause
}

// Graceful-degradation sentinels. Callers branch with errors.Is; none of
// these abort an extraction.
var (
	// ErrOCRUnavailable means no OCR backend produced text for a page.
	// The page degrades to a placeholder string.
	ErrOCRUnavailable = errors.New("no OCR backend available")

	// ErrAIExtraction means the LLM call or its JSON parse failed. The
	// regex tier takes over.
	ErrAIExtraction = errors.New("ai extraction failed")

	// ErrPatternNotFound means no pattern in a field's resolver chain
	// matched. The field's documented default applies.
	ErrPatternNotFound = errors.New("no pattern matched")
)
