// Package extract runs invoice extraction locally instead of through the
// hosted backend: Google Document AI pulls the structured fields, Cloud
// Vision OCR supplies the raw page text, and a language-model completion
// step fills GST-specific fields (GSTIN, HSN codes, place of supply) the
// structured extractor does not know about.
package extract

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trulyinvoice/internal/logger"
	"trulyinvoice/internal/ocr"
	"trulyinvoice/pkg/models"
)

// Extractor pulls structured invoice fields from a PDF.
type Extractor interface {
	Extract(ctx context.Context, pdf io.Reader) (*models.InvoiceRecord, error)
}

// Completer fills missing GST fields from raw invoice text.
type Completer interface {
	Complete(ctx context.Context, record *models.InvoiceRecord, rawText string) error
}

// Engine is the full local pipeline: structured extraction, then OCR-backed
// completion when an OCR service and completer are configured.
type Engine struct {
	extractor Extractor
	ocr       ocr.Service
	completer Completer
	log       zerolog.Logger
}

// NewEngine assembles the pipeline. ocrService and completer may be nil,
// which disables the enrichment step.
func NewEngine(extractor Extractor, ocrService ocr.Service, completer Completer) *Engine {
	return &Engine{
		extractor: extractor,
		ocr:       ocrService,
		completer: completer,
		log:       logger.WithComponent("extract"),
	}
}

// ExtractFile runs the pipeline over one PDF file.
func (e *Engine) ExtractFile(ctx context.Context, open func() (io.ReadCloser, error)) (*models.InvoiceRecord, error) {
	const op = "ExtractFile"

	pdf, err := open()
	if err != nil {
		return nil, WrapExtractionError(op, err, "open document")
	}
	record, err := e.extractor.Extract(ctx, pdf)
	pdf.Close()
	if err != nil {
		return nil, err
	}

	if e.ocr != nil && e.completer != nil && needsCompletion(record) {
		pdf, err := open()
		if err != nil {
			return nil, WrapExtractionError(op, err, "reopen document for OCR")
		}
		text, ocrErr := e.ocr.ExtractText(ctx, pdf)
		pdf.Close()
		if ocrErr != nil {
			// Enrichment is best effort; the structured fields stand alone.
			e.log.Warn().Err(ocrErr).Msg("OCR pass failed, skipping completion")
		} else if err := e.completer.Complete(ctx, record, text); err != nil {
			e.log.Warn().Err(err).Msg("Completion failed, keeping structured fields")
		}
	}

	finalizeRecord(record)
	return record, nil
}

// needsCompletion reports whether GST fields are missing that the
// completion step could recover from raw text.
func needsCompletion(record *models.InvoiceRecord) bool {
	return record.GSTIN == "" ||
		record.PlaceOfSupply == "" ||
		(record.HSNCode == "" && record.SACCode == "") ||
		len(record.LineItems) == 0
}

func finalizeRecord(record *models.InvoiceRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.DocumentStatus == "" {
		record.DocumentStatus = models.StatusProcessed
	}
}
