// Package sheets appends exported invoices to a Google Sheet so an
// accountant can review a batch before it goes into the books.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"trulyinvoice/internal/logger"
	"trulyinvoice/pkg/models"
)

// ErrMissingCredentials is returned when no service account credentials are
// configured.
var ErrMissingCredentials = errors.New("missing Google service account credentials")

// DefaultWorksheet is the tab name used when none is configured.
const DefaultWorksheet = "Invoices"

var invoiceHeaders = []interface{}{
	"Invoice Number",
	"Vendor Name",
	"GSTIN",
	"Invoice Date",
	"Subtotal",
	"CGST",
	"SGST",
	"IGST",
	"Total Amount",
	"Classification",
	"Place of Supply",
	"Payment Status",
}

// Service writes invoice rows to a spreadsheet.
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// NewService creates a sheets writer for the given sheet URL. Credentials
// come from GOOGLE_CREDENTIALS (inline JSON) or GOOGLE_APPLICATION_CREDENTIALS.
func NewService(ctx context.Context, sheetURL string) (*Service, error) {
	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, err
	}

	creds, err := loadCredentials()
	if err != nil {
		return nil, err
	}
	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           logger.WithComponent("sheets"),
	}, nil
}

func loadCredentials() ([]byte, error) {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []byte(credJSON), nil
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		creds, err := os.ReadFile(credFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return creds, nil
	}
	return nil, ErrMissingCredentials
}

// extractSpreadsheetID pulls the document ID out of a full sheet URL.
func extractSpreadsheetID(url string) (string, error) {
	re := regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	matches := re.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL: %s", url)
	}
	return matches[1], nil
}

// WriteInvoices appends one row per invoice to the worksheet, creating the
// worksheet with headers if it does not exist yet.
func (s *Service) WriteInvoices(ctx context.Context, invoices []models.InvoiceRecord, worksheet string) error {
	if worksheet == "" {
		worksheet = DefaultWorksheet
	}
	if err := s.ensureWorksheet(ctx, worksheet); err != nil {
		return err
	}

	values := make([][]interface{}, 0, len(invoices))
	for i := range invoices {
		values = append(values, invoiceRow(&invoices[i]))
	}

	valueRange := &sheets.ValueRange{Values: values}
	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!A:L", worksheet),
		valueRange,
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append invoice rows: %w", err)
	}

	s.log.Info().
		Int("invoices", len(invoices)).
		Str("worksheet", worksheet).
		Msg("Invoices written to sheet")
	return nil
}

func invoiceRow(inv *models.InvoiceRecord) []interface{} {
	date := ""
	if inv.InvoiceDate != nil {
		date = inv.InvoiceDate.Format("02/01/2006")
	}
	return []interface{}{
		inv.InvoiceNumber,
		inv.NormalizedVendor(),
		inv.GSTIN,
		date,
		inv.EffectiveSubtotal(),
		inv.CGST,
		inv.SGST,
		inv.IGST,
		inv.TotalAmount,
		inv.Classification(),
		inv.PlaceOfSupply,
		inv.PaymentStatus,
	}
}

// ensureWorksheet creates the tab with a header row if missing.
func (s *Service) ensureWorksheet(ctx context.Context, worksheet string) error {
	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == worksheet {
			return nil
		}
	}

	batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: worksheet},
				},
			},
		},
	}
	if _, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create worksheet %s: %w", worksheet, err)
	}

	headerRange := &sheets.ValueRange{Values: [][]interface{}{invoiceHeaders}}
	_, err = s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		fmt.Sprintf("%s!A1", worksheet),
		headerRange,
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write worksheet headers: %w", err)
	}
	return nil
}
