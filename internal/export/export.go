// Package export converts stored invoice records into accounting-software
// import payloads: plain CSV, Tally voucher XML, QuickBooks IIF/CSV, Zoho
// Books CSV and Excel workbooks.
//
// Generation is pure: the same invoice list always yields byte-identical
// output. Validation runs first; blocking errors abort with a structured
// per-invoice list, and defaultable warnings are pushed through an injected
// Confirmer so the caller (CLI prompt, test stub) decides whether to
// proceed. A canceled confirmation produces no file.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trulyinvoice/internal/logger"
	"trulyinvoice/pkg/models"
)

// Format identifies an export target.
type Format string

// Supported export formats.
const (
	FormatCSV           Format = "csv"
	FormatTally         Format = "tally"
	FormatQuickBooksIIF Format = "quickbooks-iif"
	FormatQuickBooksCSV Format = "quickbooks-csv"
	FormatZoho          Format = "zoho"
	FormatExcel         Format = "excel"
	FormatSheets        Format = "sheets"
)

// ParseFormat converts a user-supplied format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatCSV, FormatTally, FormatQuickBooksIIF, FormatQuickBooksCSV,
		FormatZoho, FormatExcel, FormatSheets:
		return Format(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// File is a generated export payload ready to be written to disk.
type File struct {
	Name     string
	MIMEType string
	Content  []byte
}

// Summary reports what an export produced, mirroring the counts shown to
// the user after a successful Tally import generation.
type Summary struct {
	Invoices       int
	Vouchers       int
	PartyLedgers   int
	GSTLedgers     int
	ExpenseLedgers int
	Warnings       int
}

// Confirmer is the user-confirmation port for soft validation warnings.
// Returning false cancels the export with no side effects.
type Confirmer interface {
	ConfirmWarnings(ctx context.Context, warnings []string) (bool, error)
}

// FormatChooser resolves the QuickBooks Desktop (IIF) vs Online (CSV)
// choice. Returning ok=false cancels the export.
type FormatChooser interface {
	ChooseQuickBooksFormat(ctx context.Context) (format Format, ok bool, err error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, warnings []string) (bool, error)

// ConfirmWarnings implements Confirmer.
func (f ConfirmerFunc) ConfirmWarnings(ctx context.Context, warnings []string) (bool, error) {
	return f(ctx, warnings)
}

// Service orchestrates validation, confirmation and generation.
type Service struct {
	confirmer Confirmer
	chooser   FormatChooser
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates an export service. confirmer gates soft warnings;
// chooser resolves the plain "quickbooks" format request and may be nil if
// callers always pass an explicit sub-format.
func NewService(confirmer Confirmer, chooser FormatChooser) *Service {
	return &Service{
		confirmer: confirmer,
		chooser:   chooser,
		now:       time.Now,
		log:       logger.WithComponent("export"),
	}
}

// ResolveQuickBooks asks the chooser which QuickBooks sub-format to build.
func (s *Service) ResolveQuickBooks(ctx context.Context) (Format, error) {
	if s.chooser == nil {
		return FormatQuickBooksCSV, nil
	}
	format, ok, err := s.chooser.ChooseQuickBooksFormat(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrExportCanceled
	}
	if format != FormatQuickBooksIIF && format != FormatQuickBooksCSV {
		return "", fmt.Errorf("%w: %q is not a QuickBooks format", ErrUnknownFormat, format)
	}
	return format, nil
}

// Export validates the selection, gates warnings through the Confirmer and
// builds the payload for the requested format.
func (s *Service) Export(ctx context.Context, invoices []models.InvoiceRecord, format Format) (*File, *Summary, error) {
	if len(invoices) == 0 {
		return nil, nil, ErrNoInvoices
	}

	s.log.Info().
		Str("format", string(format)).
		Int("invoices", len(invoices)).
		Msg("Starting export")

	result := Validate(format, invoices)
	if len(result.Errors) > 0 {
		s.log.Warn().
			Str("format", string(format)).
			Int("errors", len(result.Errors)).
			Msg("Export blocked by validation errors")
		return nil, nil, &ValidationFailedError{Format: format, Errors: result.Errors}
	}

	if len(result.Warnings) > 0 && s.confirmer != nil {
		confirmed, err := s.confirmer.ConfirmWarnings(ctx, result.Warnings)
		if err != nil {
			return nil, nil, fmt.Errorf("warning confirmation failed: %w", err)
		}
		if !confirmed {
			s.log.Info().Msg("Export canceled by user at warning confirmation")
			return nil, nil, ErrExportCanceled
		}
	}

	file, summary, err := s.build(format, invoices)
	if err != nil {
		return nil, nil, err
	}
	summary.Warnings = len(result.Warnings)

	s.log.Info().
		Str("format", string(format)).
		Str("file", file.Name).
		Int("bytes", len(file.Content)).
		Int("vouchers", summary.Vouchers).
		Int("warnings", summary.Warnings).
		Msg("Export completed")

	return file, summary, nil
}

func (s *Service) build(format Format, invoices []models.InvoiceRecord) (*File, *Summary, error) {
	stamp := s.now().Format("2006-01-02")
	switch format {
	case FormatCSV:
		content := BuildCSV(invoices)
		return &File{
			Name:     fmt.Sprintf("invoices_%s.csv", stamp),
			MIMEType: "text/csv;charset=utf-8",
			Content:  []byte(content),
		}, &Summary{Invoices: len(invoices)}, nil
	case FormatTally:
		content, summary, err := BuildTallyXML(invoices)
		if err != nil {
			return nil, nil, err
		}
		return &File{
			Name:     fmt.Sprintf("tally_import_%s.xml", stamp),
			MIMEType: "application/xml",
			Content:  []byte(content),
		}, summary, nil
	case FormatQuickBooksIIF:
		content := BuildQuickBooksIIF(invoices)
		return &File{
			Name:     fmt.Sprintf("quickbooks_%s.iif", stamp),
			MIMEType: "text/plain",
			Content:  []byte(content),
		}, &Summary{Invoices: len(invoices), Vouchers: len(invoices)}, nil
	case FormatQuickBooksCSV:
		content := BuildQuickBooksCSV(invoices)
		return &File{
			Name:     fmt.Sprintf("quickbooks_online_%s.csv", stamp),
			MIMEType: "text/csv;charset=utf-8",
			Content:  []byte(content),
		}, &Summary{Invoices: len(invoices)}, nil
	case FormatZoho:
		content := BuildZohoCSV(invoices)
		return &File{
			Name:     fmt.Sprintf("zoho_books_%s.csv", stamp),
			MIMEType: "text/csv;charset=utf-8",
			Content:  []byte(content),
		}, &Summary{Invoices: len(invoices)}, nil
	case FormatExcel:
		content, err := BuildExcel(invoices, TemplateSimple)
		if err != nil {
			return nil, nil, err
		}
		return &File{
			Name:     fmt.Sprintf("invoices_%s.xlsx", stamp),
			MIMEType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:  content,
		}, &Summary{Invoices: len(invoices)}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
