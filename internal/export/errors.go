package export

import (
	"errors"
	"fmt"
	"strings"
)

// Common export errors.
var (
	// ErrNoInvoices is returned when an export is attempted with an empty
	// selection. Surfaced to the user as "no invoices selected", never as
	// a generated file.
	ErrNoInvoices = errors.New("no invoices selected")

	// ErrExportCanceled is returned when the user declines the warning
	// confirmation or the format choice. No file is produced.
	ErrExportCanceled = errors.New("export canceled")

	// ErrUnknownFormat is returned for an unrecognized export format name.
	ErrUnknownFormat = errors.New("unknown export format")
)

// ValidationFailedError blocks an export entirely: the selection contained
// invoices with hard rule violations. Errors holds one human-readable entry
// per offending invoice.
type ValidationFailedError struct {
	Format Format
	Errors []string
}

// Error implements the error interface.
func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("%s export blocked by %d validation error(s): %s",
		e.Format, len(e.Errors), strings.Join(e.Errors, "; "))
}

// AsValidationFailed extracts a *ValidationFailedError if err is one.
func AsValidationFailed(err error) (*ValidationFailedError, bool) {
	var vErr *ValidationFailedError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
