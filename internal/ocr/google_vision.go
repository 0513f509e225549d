package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

const (
	// maxFileSizeBytes is the Vision API limit for synchronous processing.
	maxFileSizeBytes = 20 * 1024 * 1024

	// maxPagesSync is the Vision API page limit for synchronous processing.
	maxPagesSync = 5
)

// GoogleVisionService implements Service with the Cloud Vision API.
type GoogleVisionService struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionService creates an OCR service using credentials from
// GOOGLE_CREDENTIALS (inline JSON) or GOOGLE_APPLICATION_CREDENTIALS (file
// path), falling back to application default credentials.
func NewGoogleVisionService(ctx context.Context) (Service, error) {
	const op = "NewGoogleVisionService"

	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}
	return &GoogleVisionService{client: client}, nil
}

// NewGoogleVisionServiceWithClient creates an OCR service with an explicit
// client (for testing).
func NewGoogleVisionServiceWithClient(client *vision.ImageAnnotatorClient) Service {
	return &GoogleVisionService{client: client}
}

// ExtractText extracts text from a PDF document.
func (g *GoogleVisionService) ExtractText(ctx context.Context, pdf io.Reader) (string, error) {
	result, err := g.ExtractTextWithMetadata(ctx, pdf)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ExtractTextWithMetadata extracts text with page count and confidence.
func (g *GoogleVisionService) ExtractTextWithMetadata(ctx context.Context, pdf io.Reader) (*Result, error) {
	const op = "ExtractTextWithMetadata"

	pdfBytes, err := io.ReadAll(pdf)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read PDF data")
	}
	if len(pdfBytes) > maxFileSizeBytes {
		return nil, WrapOCRError(op, ErrPDFTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdfBytes,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}
	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}

	return buildResult(fileResp)
}

func buildResult(fileResp *visionpb.AnnotateFileResponse) (*Result, error) {
	const op = "buildResult"

	pageCount := len(fileResp.Responses)
	if pageCount == 0 {
		return nil, WrapOCRError(op, ErrEmptyDocument, "")
	}
	if pageCount > maxPagesSync {
		return nil, WrapOCRError(op, ErrTooManyPages, fmt.Sprintf("document has %d pages", pageCount))
	}

	var text strings.Builder
	var confidenceSum float32
	var confidenceCount int
	for i, page := range fileResp.Responses {
		if page.Error != nil {
			return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("page %d: %s", i+1, page.Error.Message))
		}
		if page.FullTextAnnotation == nil {
			continue
		}
		text.WriteString(page.FullTextAnnotation.Text)
		for _, p := range page.FullTextAnnotation.Pages {
			confidenceSum += p.Confidence
			confidenceCount++
		}
	}
	if text.Len() == 0 {
		return nil, WrapOCRError(op, ErrEmptyDocument, "")
	}

	result := &Result{
		Text:        text.String(),
		PageCount:   pageCount,
		ProcessedAt: time.Now(),
	}
	if confidenceCount > 0 {
		result.Confidence = confidenceSum / float32(confidenceCount)
	}
	return result, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
