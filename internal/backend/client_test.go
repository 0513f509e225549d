package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trulyinvoice/pkg/models"
)

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}
}

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents/upload" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("user_id"); got != "u-42" {
			t.Errorf("user_id = %q, want u-42", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not a multipart request: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file field missing: %v", err)
		}
		file.Close()
		if header.Filename != "invoice.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}

		json.NewEncoder(w).Encode(uploadResponse{
			Success:  true,
			Document: &Document{ID: "doc-1", FileName: "invoice.pdf", Status: "stored"},
		})
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, "secret")
	doc, err := client.Upload(context.Background(), "u-42", writeTempPDF(t))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if doc.ID != "doc-1" {
		t.Errorf("doc ID = %q", doc.ID)
	}
}

func TestUploadQuotaExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"monthly quota exceeded: 95/100 pages used"}`))
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, "")
	_, err := client.Upload(context.Background(), "u-42", writeTempPDF(t))

	var quotaErr *QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("err = %v, want *QuotaExceededError", err)
	}
	if quotaErr.Used != 95 || quotaErr.Limit != 100 {
		t.Errorf("parsed %d/%d, want 95/100", quotaErr.Used, quotaErr.Limit)
	}
}

func TestProcessRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("cold start"))
			return
		}
		json.NewEncoder(w).Encode(processResponse{
			Success: true,
			Invoice: &models.InvoiceRecord{InvoiceNumber: "INV-001", VendorName: "Acme", TotalAmount: 1180},
		})
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, "").WithRetryPolicy(fastRetry())
	invoice, err := client.Process(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if invoice.InvoiceNumber != "INV-001" {
		t.Errorf("invoice number = %q", invoice.InvoiceNumber)
	}
}

func TestProcessGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, "").WithRetryPolicy(fastRetry())
	_, err := client.Process(context.Background(), "doc-1")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if !errors.Is(err, ErrProcessingFailed) {
		t.Errorf("err = %v, want ErrProcessingFailed", err)
	}
}

func TestProcessDoesNotRetryQuota(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("100/100"))
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, "").WithRetryPolicy(fastRetry())
	_, err := client.Process(context.Background(), "doc-1")

	var quotaErr *QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("err = %v, want *QuotaExceededError", err)
	}
	if attempts != 1 {
		t.Errorf("quota errors must not be retried, got %d attempts", attempts)
	}
}

func TestBaseURLFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(processResponse{
			Success: true,
			Invoice: &models.InvoiceRecord{InvoiceNumber: "INV-001"},
		})
	}))
	defer server.Close()

	// First candidate refuses connections; the client must move on.
	client := NewClient([]string{"http://127.0.0.1:1", server.URL}, "")
	invoice, err := client.ProcessAnonymous(context.Background(), writeTempPDF(t))
	if err != nil {
		t.Fatalf("ProcessAnonymous() error: %v", err)
	}
	if invoice.InvoiceNumber != "INV-001" {
		t.Errorf("invoice number = %q", invoice.InvoiceNumber)
	}
}

func TestAllBaseURLsUnreachable(t *testing.T) {
	client := NewClient([]string{"http://127.0.0.1:1"}, "")
	_, err := client.ProcessAnonymous(context.Background(), writeTempPDF(t))
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("err = %v, want ErrUnreachable", err)
	}
}

func TestProcessAnonymous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents/process-anonymous" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(processResponse{
			Success: true,
			Invoice: &models.InvoiceRecord{InvoiceNumber: "INV-009", VendorName: "Acme", TotalAmount: 500},
		})
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, "")
	invoice, err := client.ProcessAnonymous(context.Background(), writeTempPDF(t))
	if err != nil {
		t.Fatalf("ProcessAnonymous() error: %v", err)
	}
	if invoice.TotalAmount != 500 {
		t.Errorf("total = %v", invoice.TotalAmount)
	}
}

func TestExportExcel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/bulk/export-excel" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			InvoiceIDs []string `json:"invoice_ids"`
			Template   string   `json:"template"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.InvoiceIDs) != 2 {
			t.Errorf("invoice_ids = %v", body.InvoiceIDs)
		}
		if body.Template != "accountant" {
			t.Errorf("template = %q, want accountant", body.Template)
		}
		w.Write([]byte("xlsx-bytes"))
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, "")
	content, err := client.ExportExcel(context.Background(), []string{"a", "b"}, "accountant")
	if err != nil {
		t.Fatalf("ExportExcel() error: %v", err)
	}
	if string(content) != "xlsx-bytes" {
		t.Errorf("content = %q", content)
	}
}

func TestExportExcelDefaultTemplate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Template string `json:"template"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Template != "simple" {
			t.Errorf("template = %q, want simple", body.Template)
		}
		w.Write([]byte("xlsx-bytes"))
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, "")
	if _, err := client.ExportExcel(context.Background(), []string{"a"}, ""); err != nil {
		t.Fatalf("ExportExcel() error: %v", err)
	}
}

func TestNewQuotaExceededErrorWithoutFigures(t *testing.T) {
	e := newQuotaExceededError("quota exceeded")
	if e.Used != 0 || e.Limit != 0 {
		t.Errorf("figures = %d/%d, want 0/0", e.Used, e.Limit)
	}
	if e.Error() != "monthly quota exceeded" {
		t.Errorf("Error() = %q", e.Error())
	}
}
