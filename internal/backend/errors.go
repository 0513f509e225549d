package backend

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Common backend client errors
var (
	// ErrUnreachable is returned when no configured base URL accepted the
	// request.
	ErrUnreachable = errors.New("backend unreachable")

	// ErrUploadFailed is returned when the upload endpoint rejects a file.
	ErrUploadFailed = errors.New("document upload failed")

	// ErrProcessingFailed is returned when extraction fails after the upload
	// succeeded. The uploaded document is kept server-side for retry.
	ErrProcessingFailed = errors.New("document processing failed")

	// ErrUnauthorized is returned for authentication failures.
	ErrUnauthorized = errors.New("backend authentication failed")

	// ErrNotFound is returned when the referenced document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidResponse is returned when the backend answers with a body
	// the client cannot decode.
	ErrInvalidResponse = errors.New("invalid backend response")
)

// QuotaExceededError is returned when the monthly page quota is exhausted.
// Used and Limit are parsed from the 429 response body when present.
type QuotaExceededError struct {
	Used  int
	Limit int
	Body  string
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("monthly quota exceeded: %d/%d pages used", e.Used, e.Limit)
	}
	return "monthly quota exceeded"
}

// quotaPattern matches "used/limit" figures in quota error messages.
var quotaPattern = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)

// newQuotaExceededError parses the usage figures from a 429 body; a body
// without figures still yields a typed quota error.
func newQuotaExceededError(body string) *QuotaExceededError {
	e := &QuotaExceededError{Body: body}
	if m := quotaPattern.FindStringSubmatch(body); m != nil {
		e.Used, _ = strconv.Atoi(m[1])
		e.Limit, _ = strconv.Atoi(m[2])
	}
	return e
}

// ClientError wraps transport and protocol failures with the operation and
// endpoint that produced them.
type ClientError struct {
	// Op is the operation that failed (e.g., "Upload", "Process").
	Op string

	// Err is the underlying error.
	Err error

	// URL is the endpoint that was called (if available).
	URL string

	// StatusCode is the HTTP status received (if any).
	StatusCode int
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend: %s failed (status %d, %s): %v", e.Op, e.StatusCode, e.URL, e.Err)
	}
	if e.URL != "" {
		return fmt.Sprintf("backend: %s failed (%s): %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("backend: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped sentinel comparisons.
func (e *ClientError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
