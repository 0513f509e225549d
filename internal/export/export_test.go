package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"trulyinvoice/pkg/models"
)

func acceptAll(ctx context.Context, warnings []string) (bool, error) { return true, nil }
func rejectAll(ctx context.Context, warnings []string) (bool, error) { return false, nil }

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"csv", "tally", "quickbooks-iif", "quickbooks-csv", "zoho", "excel", "sheets"} {
		if _, err := ParseFormat(name); err != nil {
			t.Errorf("ParseFormat(%q) error: %v", name, err)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(pdf) = %v, want ErrUnknownFormat", err)
	}
}

func TestExportEmptySelection(t *testing.T) {
	s := NewService(ConfirmerFunc(acceptAll), nil)
	_, _, err := s.Export(context.Background(), nil, FormatCSV)
	if !errors.Is(err, ErrNoInvoices) {
		t.Errorf("Export(empty) = %v, want ErrNoInvoices", err)
	}
}

func TestExportBlockedByValidation(t *testing.T) {
	s := NewService(ConfirmerFunc(acceptAll), nil)
	_, _, err := s.Export(context.Background(), []models.InvoiceRecord{{}}, FormatTally)

	vErr, ok := AsValidationFailed(err)
	if !ok {
		t.Fatalf("Export(invalid) = %v, want *ValidationFailedError", err)
	}
	if vErr.Format != FormatTally {
		t.Errorf("Format = %s, want tally", vErr.Format)
	}
	if len(vErr.Errors) == 0 {
		t.Error("expected per-invoice error list")
	}
}

func TestExportCanceledAtWarningPrompt(t *testing.T) {
	inv := models.InvoiceRecord{
		InvoiceNumber: "INV-001",
		VendorName:    "Acme",
		TotalAmount:   100,
		InvoiceDate:   date(2024, time.March, 1),
	}
	s := NewService(ConfirmerFunc(rejectAll), nil)
	_, _, err := s.Export(context.Background(), []models.InvoiceRecord{inv}, FormatTally)
	if !errors.Is(err, ErrExportCanceled) {
		t.Errorf("Export with declined warnings = %v, want ErrExportCanceled", err)
	}
}

func TestExportWarningsAccepted(t *testing.T) {
	inv := models.InvoiceRecord{
		InvoiceNumber: "INV-001",
		VendorName:    "Acme",
		TotalAmount:   100,
		InvoiceDate:   date(2024, time.March, 1),
	}
	s := NewService(ConfirmerFunc(acceptAll), nil)
	file, summary, err := s.Export(context.Background(), []models.InvoiceRecord{inv}, FormatTally)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if summary.Warnings != 3 {
		t.Errorf("Warnings = %d, want 3", summary.Warnings)
	}
	if !strings.HasSuffix(file.Name, ".xml") {
		t.Errorf("file name %q should be an .xml file", file.Name)
	}
	if len(file.Content) == 0 {
		t.Error("empty export payload")
	}
}

func TestExportCSVNeverBlocked(t *testing.T) {
	s := NewService(ConfirmerFunc(rejectAll), nil)
	file, _, err := s.Export(context.Background(), []models.InvoiceRecord{{}}, FormatCSV)
	if err != nil {
		t.Fatalf("CSV export must not block: %v", err)
	}
	if file.MIMEType != "text/csv;charset=utf-8" {
		t.Errorf("MIMEType = %q", file.MIMEType)
	}
}

type fixedChooser struct {
	format Format
	ok     bool
}

func (c fixedChooser) ChooseQuickBooksFormat(ctx context.Context) (Format, bool, error) {
	return c.format, c.ok, nil
}

func TestResolveQuickBooks(t *testing.T) {
	s := NewService(nil, fixedChooser{format: FormatQuickBooksIIF, ok: true})
	format, err := s.ResolveQuickBooks(context.Background())
	if err != nil || format != FormatQuickBooksIIF {
		t.Errorf("ResolveQuickBooks() = %s, %v", format, err)
	}

	s = NewService(nil, fixedChooser{ok: false})
	if _, err := s.ResolveQuickBooks(context.Background()); !errors.Is(err, ErrExportCanceled) {
		t.Errorf("declined chooser = %v, want ErrExportCanceled", err)
	}

	s = NewService(nil, fixedChooser{format: FormatZoho, ok: true})
	if _, err := s.ResolveQuickBooks(context.Background()); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("non-QuickBooks choice = %v, want ErrUnknownFormat", err)
	}
}
