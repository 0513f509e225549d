package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"trulyinvoice/pkg/models"
)

func TestParseExcelTemplate(t *testing.T) {
	if _, err := ParseExcelTemplate("simple"); err != nil {
		t.Errorf("simple: %v", err)
	}
	if _, err := ParseExcelTemplate("accountant"); err != nil {
		t.Errorf("accountant: %v", err)
	}
	if _, err := ParseExcelTemplate("fancy"); err == nil {
		t.Error("unknown template should fail")
	}
}

func TestBuildExcelSimple(t *testing.T) {
	content, err := BuildExcel([]models.InvoiceRecord{acmeInvoice()}, TemplateSimple)
	if err != nil {
		t.Fatalf("BuildExcel() error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("generated workbook is unreadable: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Invoices")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if rows[0][0] != "Invoice Number" {
		t.Errorf("header[0] = %q", rows[0][0])
	}
	if rows[1][0] != "INV-001" {
		t.Errorf("row value = %q, want INV-001", rows[1][0])
	}
}

func TestBuildExcelAccountantSummary(t *testing.T) {
	invs := []models.InvoiceRecord{acmeInvoice(), acmeInvoice()}
	content, err := BuildExcel(invs, TemplateAccountant)
	if err != nil {
		t.Fatalf("BuildExcel() error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("generated workbook is unreadable: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("summary sheet missing: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("got %d summary rows, want 7", len(rows))
	}
	if rows[0][0] != "Invoices" || rows[0][1] != "2" {
		t.Errorf("invoice count row = %v", rows[0])
	}
	if rows[6][0] != "Total Amount" || rows[6][1] != "2360" {
		t.Errorf("total amount row = %v", rows[6])
	}
}
