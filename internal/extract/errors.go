package extract

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrInvalidPDF is returned when the input is not a valid PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrDocumentTooLarge is returned when the PDF exceeds size limits.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")

	// ErrExtractionFailed is returned when Document AI processing fails.
	ErrExtractionFailed = errors.New("document extraction failed")

	// ErrMissingCredentials is returned when Google Cloud credentials are not configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials")

	// ErrInvalidConfiguration is returned when the engine configuration is incomplete.
	ErrInvalidConfiguration = errors.New("invalid extraction configuration")

	// ErrQuotaExceeded is returned when the Document AI API quota is exhausted.
	ErrQuotaExceeded = errors.New("Document AI API quota exceeded")

	// ErrCompletionFailed is returned when the language-model enrichment fails.
	ErrCompletionFailed = errors.New("invoice completion failed")
)

// ExtractionError wraps extraction failures with operation context.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "Extract", "Complete").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped sentinel comparisons.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var exErr *ExtractionError
	if errors.As(err, &exErr) {
		return err
	}
	return &ExtractionError{Op: op, Err: err, Details: details}
}
