// Package ocr extracts raw text from invoice PDFs with Google Cloud Vision.
//
// The text feeds the local extraction engine's completion step, which pulls
// GST fields the structured extractor missed (GSTIN, HSN codes, place of
// supply) out of the full page text.
//
// Vision API limits for synchronous processing: 20MB per file, 5 pages.
package ocr

import (
	"context"
	"io"
	"time"
)

// Service is the OCR text extraction interface.
type Service interface {
	// ExtractText returns the concatenated text of all pages in reading order.
	ExtractText(ctx context.Context, pdf io.Reader) (string, error)

	// ExtractTextWithMetadata additionally reports page count and confidence.
	ExtractTextWithMetadata(ctx context.Context, pdf io.Reader) (*Result, error)
}

// Result is the outcome of one OCR pass.
type Result struct {
	Text        string    `json:"text"`
	PageCount   int       `json:"page_count"`
	Confidence  float32   `json:"confidence"`
	ProcessedAt time.Time `json:"processed_at"`
}
