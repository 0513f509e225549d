// Package backend talks to the TrulyInvoice extraction API: document
// upload, extraction, anonymous one-shot processing and the bulk Excel
// proxy. The client walks an ordered list of candidate base URLs so a CLI
// configured with both a production and a localhost endpoint degrades
// gracefully when one is down.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"trulyinvoice/internal/logger"
	"trulyinvoice/pkg/models"
)

// RetryPolicy controls how processing requests are retried. The backoff is
// fixed, not exponential: extraction failures are usually cold-start
// timeouts that resolve within seconds.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy matches the server-side cold-start window.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 3 * time.Second}

// Document is the upload endpoint's view of a stored file.
type Document struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Status   string `json:"status"`
	PageCnt  int    `json:"page_count,omitempty"`
}

type uploadResponse struct {
	Success  bool      `json:"success"`
	Document *Document `json:"document"`
	Error    string    `json:"error,omitempty"`
}

type processResponse struct {
	Success bool                  `json:"success"`
	Invoice *models.InvoiceRecord `json:"invoice"`
	Error   string                `json:"error,omitempty"`
}

// Client is the HTTP client for the extraction backend.
type Client struct {
	baseURLs   []string
	apiKey     string
	httpClient *http.Client
	retry      RetryPolicy
	log        zerolog.Logger
}

// NewClient creates a backend client over the given candidate base URLs,
// tried in order on transport failure.
func NewClient(baseURLs []string, apiKey string) *Client {
	return &Client{
		baseURLs:   baseURLs,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		retry:      DefaultRetryPolicy,
		log:        logger.WithComponent("backend"),
	}
}

// WithRetryPolicy overrides the processing retry policy.
func (c *Client) WithRetryPolicy(policy RetryPolicy) *Client {
	c.retry = policy
	return c
}

// Upload stores a document for the given user and returns its server-side
// record. The file is not processed yet; call Process with the returned ID.
func (c *Client) Upload(ctx context.Context, userID, path string) (*Document, error) {
	const op = "Upload"

	body, contentType, err := multipartFileBody(path)
	if err != nil {
		return nil, &ClientError{Op: op, Err: err}
	}

	endpoint := "/api/documents/upload?user_id=" + url.QueryEscape(userID)
	resp, reqURL, err := c.post(ctx, op, endpoint, contentType, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(op, reqURL, resp); err != nil {
		return nil, err
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &ClientError{Op: op, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err), URL: reqURL}
	}
	if !decoded.Success || decoded.Document == nil {
		return nil, &ClientError{Op: op, Err: fmt.Errorf("%w: %s", ErrUploadFailed, decoded.Error), URL: reqURL}
	}

	c.log.Info().
		Str("document_id", decoded.Document.ID).
		Str("file", filepath.Base(path)).
		Msg("Document uploaded")
	return decoded.Document, nil
}

// Process runs extraction on an uploaded document, retrying per the
// client's policy. The uploaded file survives a final failure so the user
// can retry later without re-uploading.
func (c *Client) Process(ctx context.Context, documentID string) (*models.InvoiceRecord, error) {
	const op = "Process"

	endpoint := "/api/documents/" + url.PathEscape(documentID) + "/process"
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			c.log.Warn().
				Str("document_id", documentID).
				Int("attempt", attempt).
				Msg("Retrying document processing")
			select {
			case <-ctx.Done():
				return nil, &ClientError{Op: op, Err: ctx.Err()}
			case <-time.After(c.retry.Backoff):
			}
		}

		invoice, err := c.processOnce(ctx, op, endpoint)
		if err == nil {
			return invoice, nil
		}
		lastErr = err

		// Quota and auth failures are not transient.
		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) processOnce(ctx context.Context, op, endpoint string) (*models.InvoiceRecord, error) {
	resp, reqURL, err := c.post(ctx, op, endpoint, "application/json", bytes.NewReader(nil))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(op, reqURL, resp); err != nil {
		return nil, err
	}
	return decodeInvoice(op, reqURL, resp.Body)
}

// ProcessAnonymous uploads and extracts a document in one round trip
// without an account; results are not persisted server-side, so the caller
// must cache the response locally for later claiming.
func (c *Client) ProcessAnonymous(ctx context.Context, path string) (*models.InvoiceRecord, error) {
	const op = "ProcessAnonymous"

	body, contentType, err := multipartFileBody(path)
	if err != nil {
		return nil, &ClientError{Op: op, Err: err}
	}

	resp, reqURL, err := c.post(ctx, op, "/api/documents/process-anonymous", contentType, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(op, reqURL, resp); err != nil {
		return nil, err
	}
	return decodeInvoice(op, reqURL, resp.Body)
}

// ExportExcel proxies a bulk Excel export through the backend, returning
// the workbook bytes. template selects the backend's workbook layout
// ("simple" or "accountant").
func (c *Client) ExportExcel(ctx context.Context, invoiceIDs []string, template string) ([]byte, error) {
	const op = "ExportExcel"

	if template == "" {
		template = "simple"
	}
	payload, err := json.Marshal(map[string]any{
		"invoice_ids": invoiceIDs,
		"template":    template,
	})
	if err != nil {
		return nil, &ClientError{Op: op, Err: err}
	}

	resp, reqURL, err := c.post(ctx, op, "/api/bulk/export-excel", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(op, reqURL, resp); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Op: op, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err), URL: reqURL}
	}
	return content, nil
}

// post walks the candidate base URLs in order. Transport errors advance to
// the next candidate; any HTTP response, success or failure, is final.
func (c *Client) post(ctx context.Context, op, endpoint, contentType string, body io.Reader) (*http.Response, string, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, "", &ClientError{Op: op, Err: err}
	}

	var lastErr error
	for _, base := range c.baseURLs {
		reqURL := base + endpoint
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
		if err != nil {
			return nil, "", &ClientError{Op: op, Err: err, URL: reqURL}
		}
		req.Header.Set("Content-Type", contentType)
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Warn().
				Str("base_url", base).
				Err(err).
				Msg("Backend candidate unreachable, trying next")
			lastErr = err
			continue
		}
		return resp, reqURL, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no base URLs configured")
	}
	return nil, "", &ClientError{Op: op, Err: fmt.Errorf("%w: %v", ErrUnreachable, lastErr)}
}

// checkStatus translates HTTP failures into typed errors. The body is read
// on failure so quota figures can be recovered from 429 responses.
func (c *Client) checkStatus(op, reqURL string, resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return newQuotaExceededError(string(body))
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ClientError{Op: op, Err: ErrUnauthorized, URL: reqURL, StatusCode: resp.StatusCode}
	case http.StatusNotFound:
		return &ClientError{Op: op, Err: ErrNotFound, URL: reqURL, StatusCode: resp.StatusCode}
	default:
		return &ClientError{
			Op:         op,
			Err:        fmt.Errorf("%w: %s", ErrProcessingFailed, string(body)),
			URL:        reqURL,
			StatusCode: resp.StatusCode,
		}
	}
}

func decodeInvoice(op, reqURL string, body io.Reader) (*models.InvoiceRecord, error) {
	var decoded processResponse
	if err := json.NewDecoder(body).Decode(&decoded); err != nil {
		return nil, &ClientError{Op: op, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err), URL: reqURL}
	}
	if !decoded.Success || decoded.Invoice == nil {
		return nil, &ClientError{Op: op, Err: fmt.Errorf("%w: %s", ErrProcessingFailed, decoded.Error), URL: reqURL}
	}
	return decoded.Invoice, nil
}

// multipartFileBody builds a single-file multipart body for upload calls.
func multipartFileBody(path string) (io.Reader, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
