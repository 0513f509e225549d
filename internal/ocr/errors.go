package ocr

import (
	"errors"
	"fmt"
)

// Common OCR errors
var (
	// ErrInvalidPDF is returned when the input is not a valid PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrPDFTooLarge is returned when the PDF exceeds the synchronous size limit.
	ErrPDFTooLarge = errors.New("PDF exceeds maximum size limit")

	// ErrTooManyPages is returned when the PDF has more pages than synchronous
	// processing allows.
	ErrTooManyPages = errors.New("PDF has too many pages for synchronous processing")

	// ErrMissingCredentials is returned when Google Cloud credentials are not configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials")

	// ErrOCRFailed is returned when the Vision API call fails.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrEmptyDocument is returned when no text could be detected.
	ErrEmptyDocument = errors.New("no text detected in document")
)

// OCRError wraps OCR failures with the operation that produced them.
type OCRError struct {
	Op      string
	Err     error
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped sentinel comparisons.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}
	return &OCRError{Op: op, Err: err, Details: details}
}
