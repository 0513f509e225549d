package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"trulyinvoice/internal/logger"
	"trulyinvoice/pkg/models"
)

// maxDocumentSizeBytes is the Document AI synchronous processing limit.
const maxDocumentSizeBytes = 20 * 1024 * 1024

// DocumentAIConfig locates the invoice processor.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
	Timeout     time.Duration
}

// DocumentAIExtractor implements Extractor with Google Document AI's
// invoice processor.
type DocumentAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIExtractor creates an extractor. Credentials come from
// GOOGLE_CREDENTIALS (inline JSON) or GOOGLE_APPLICATION_CREDENTIALS.
func NewDocumentAIExtractor(ctx context.Context, config DocumentAIConfig) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, WrapExtractionError(op, ErrInvalidConfiguration, "project ID and processor ID are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	var opts []option.ClientOption
	if config.Location != "us" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)))
	}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractionError(op, err, "failed to create Document AI client")
	}

	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

// NewDocumentAIExtractorWithClient creates an extractor with an explicit
// client (for testing).
func NewDocumentAIExtractorWithClient(config DocumentAIConfig, client *documentai.DocumentProcessorClient) *DocumentAIExtractor {
	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

// Extract runs the invoice processor over a PDF and maps the entities onto
// an invoice record.
func (d *DocumentAIExtractor) Extract(ctx context.Context, pdf io.Reader) (*models.InvoiceRecord, error) {
	const op = "Extract"

	pdfBytes, err := io.ReadAll(pdf)
	if err != nil {
		return nil, WrapExtractionError(op, err, "failed to read PDF data")
	}
	if len(pdfBytes) > maxDocumentSizeBytes {
		return nil, WrapExtractionError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, WrapExtractionError(op, ErrInvalidPDF, "missing PDF header")
	}

	processCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			d.config.ProjectID, d.config.Location, d.config.ProcessorID),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := d.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, d.translateError(op, err)
	}
	if resp.Document == nil {
		return nil, WrapExtractionError(op, ErrExtractionFailed, "no document in response")
	}

	return d.mapEntities(resp.Document), nil
}

func (d *DocumentAIExtractor) translateError(op string, err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return WrapExtractionError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "RESOURCE_EXHAUSTED"):
		return WrapExtractionError(op, ErrQuotaExceeded, "")
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapExtractionError(op, ErrInvalidPDF, "document format not supported or corrupted")
	default:
		return WrapExtractionError(op, ErrExtractionFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// mapEntities converts invoice-processor entities to an invoice record.
// Total tax is split evenly into CGST/SGST by default; the completion step
// reassigns it to IGST when the raw text shows an inter-state supply.
func (d *DocumentAIExtractor) mapEntities(doc *documentaipb.Document) *models.InvoiceRecord {
	record := &models.InvoiceRecord{}
	confidence := make(map[string]float32)
	var totalTax float64

	for _, entity := range doc.Entities {
		value := strings.TrimSpace(entity.MentionText)
		confidence[entity.Type] = entity.Confidence

		d.log.Debug().
			Str("entity_type", entity.Type).
			Str("value", value).
			Float32("confidence", entity.Confidence).
			Msg("Processing Document AI entity")

		switch entity.Type {
		case "invoice_id", "invoice_number":
			record.InvoiceNumber = value
		case "supplier_name", "vendor_name":
			record.VendorName = value
		case "supplier_tax_id":
			record.GSTIN = strings.ToUpper(strings.ReplaceAll(value, " ", ""))
		case "supplier_address":
			record.BillingAddress = value
		case "receiver_email", "customer_email":
			record.CustomerEmail = value
		case "invoice_date":
			if date, err := extractDate(entity); err == nil {
				record.InvoiceDate = &date
			}
		case "due_date":
			if date, err := extractDate(entity); err == nil {
				record.DueDate = &date
			}
		case "net_amount", "subtotal_amount":
			if amount, err := extractAmount(entity); err == nil {
				record.Subtotal = amount
			}
		case "total_tax_amount", "vat_amount":
			if amount, err := extractAmount(entity); err == nil {
				totalTax = amount
			}
		case "total_amount", "gross_amount":
			if amount, err := extractAmount(entity); err == nil {
				record.TotalAmount = amount
			}
		case "payment_terms":
			record.Terms = value
		case "line_item":
			if item := mapLineItem(entity); item != nil {
				record.LineItems = append(record.LineItems, *item)
			}
		}
	}

	if record.InvoiceNumber == "" {
		record.InvoiceNumber = findInvoiceNumber(doc.Text)
	}
	if totalTax > 0 {
		record.CGST = totalTax / 2
		record.SGST = totalTax / 2
	}
	for entityType, c := range confidence {
		if c > 0 && c < 0.5 {
			d.log.Warn().
				Str("entity_type", entityType).
				Float32("confidence", c).
				Msg("Low-confidence extraction, review recommended")
		}
	}
	if record.Subtotal == 0 && record.TotalAmount > 0 {
		record.Subtotal = record.TotalAmount - totalTax
	}
	if record.TotalAmount == 0 && record.Subtotal > 0 {
		record.TotalAmount = record.Subtotal + totalTax
	}

	d.log.Info().
		Str("invoice_number", record.InvoiceNumber).
		Str("vendor", record.VendorName).
		Float64("total", record.TotalAmount).
		Int("line_items", len(record.LineItems)).
		Msg("Document AI extraction completed")
	return record
}

// invoiceNumberPatterns recover an invoice number from the raw page text
// when the processor misses the invoice_id entity.
var invoiceNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|#)\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9/\-]*)`),
	regexp.MustCompile(`(?i)bill\s*(?:no\.?|number)\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9/\-]*)`),
}

func findInvoiceNumber(text string) string {
	for _, pattern := range invoiceNumberPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// mapLineItem reads a line_item entity's sub-properties.
func mapLineItem(entity *documentaipb.Document_Entity) *models.LineItem {
	item := &models.LineItem{}
	for _, prop := range entity.Properties {
		value := strings.TrimSpace(prop.MentionText)
		switch prop.Type {
		case "line_item/description":
			item.ItemName = value
		case "line_item/quantity":
			if q, err := parseIndianAmount(value); err == nil {
				item.Quantity = q
			}
		case "line_item/unit_price":
			if r, err := parseIndianAmount(value); err == nil {
				item.Rate = r
			}
		case "line_item/amount":
			if a, err := extractAmount(prop); err == nil {
				item.Amount = a
			}
		case "line_item/product_code":
			item.HSNCode = value
		}
	}
	if item.ItemName == "" && item.Amount == 0 {
		return nil
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if item.Rate == 0 && item.Quantity > 0 {
		item.Rate = item.Amount / item.Quantity
	}
	return item
}

func extractDate(entity *documentaipb.Document_Entity) (time.Time, error) {
	if entity.NormalizedValue != nil {
		if dv := entity.NormalizedValue.GetDateValue(); dv != nil {
			return time.Date(int(dv.Year), time.Month(dv.Month), int(dv.Day), 0, 0, 0, 0, time.UTC), nil
		}
	}
	dateStr := strings.TrimSpace(entity.MentionText)
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	formats := []string{
		"02/01/2006",
		"02-01-2006",
		"2006-01-02",
		"02.01.2006",
		"2 January 2006",
		"2 Jan 2006",
		"January 2, 2006",
	}
	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

func extractAmount(entity *documentaipb.Document_Entity) (float64, error) {
	if entity.NormalizedValue != nil {
		if mv := entity.NormalizedValue.GetMoneyValue(); mv != nil {
			return float64(mv.Units) + float64(mv.Nanos)/1e9, nil
		}
	}
	return parseIndianAmount(entity.MentionText)
}

// parseIndianAmount handles rupee symbols and lakh/crore grouping commas
// ("1,23,456.78").
func parseIndianAmount(value string) (float64, error) {
	cleaned := strings.TrimSpace(value)
	for _, prefix := range []string{"₹", "Rs.", "Rs", "INR"} {
		cleaned = strings.ReplaceAll(cleaned, prefix, "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount value")
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse amount: %s", value)
	}
	return amount, nil
}

// Close closes the underlying Document AI client.
func (d *DocumentAIExtractor) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
