package export

import (
	"strings"
	"testing"
	"time"

	"trulyinvoice/pkg/models"
)

func TestBuildZohoCSVColumnCount(t *testing.T) {
	out := BuildZohoCSV([]models.InvoiceRecord{acmeInvoice()})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for i, line := range lines {
		cols := strings.Count(line, `","`) + 1
		if cols != 36 {
			t.Errorf("line %d has %d columns, want 36: %q", i, cols, line)
		}
	}
}

func TestBuildZohoCSVRow(t *testing.T) {
	inv := acmeInvoice()
	inv.DueDate = date(2024, time.February, 14)
	inv.Notes = "Monthly supplies"

	out := BuildZohoCSV([]models.InvoiceRecord{inv})
	for _, want := range []string{
		`"INV-001"`,
		`"15/01/2024"`, // invoice date DD/MM/YYYY
		`"14/02/2024"`, // due date
		`"Net 30"`,     // 30-day gap derived from the dates
		`"Acme Traders"`,
		`"Taxable"`, // registered vendor GST treatment
		`"Maharashtra"`,
		`"Intra-State"`,
		`"Monthly supplies"`,
		`"Registered Business"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestBuildZohoCSVPaymentTermsDefault(t *testing.T) {
	inv := acmeInvoice() // no due date
	out := BuildZohoCSV([]models.InvoiceRecord{inv})
	if !strings.Contains(out, `"Net 30"`) {
		t.Error("missing due date should default payment terms to Net 30")
	}
}

func TestBuildZohoCSVConsumerTreatment(t *testing.T) {
	inv := acmeInvoice()
	inv.GSTIN = ""
	out := BuildZohoCSV([]models.InvoiceRecord{inv})
	if !strings.Contains(out, `"Consumer"`) {
		t.Error("unregistered vendor should get Consumer GST treatment")
	}
}

func TestBuildZohoCSVNotesOnlyOnFirstRow(t *testing.T) {
	inv := acmeInvoice()
	inv.Notes = "ANNUAL-CONTRACT"
	inv.Terms = "Payment within 30 days"
	inv.LineItems = []models.LineItem{
		{ItemName: "Widget A", Amount: 300},
		{ItemName: "Widget B", Amount: 700},
	}

	out := BuildZohoCSV([]models.InvoiceRecord{inv})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 item rows", len(lines))
	}
	if !strings.Contains(lines[1], "ANNUAL-CONTRACT") {
		t.Error("first item row should carry the notes")
	}
	if strings.Contains(lines[2], "ANNUAL-CONTRACT") {
		t.Error("second item row must not repeat the notes")
	}
	if strings.Contains(lines[2], "Payment within 30 days") {
		t.Error("second item row must not repeat the terms")
	}
}

func TestBuildZohoCSVFractionalRates(t *testing.T) {
	inv := acmeInvoice()
	inv.CGST = 62.5
	inv.SGST = 62.5
	inv.TotalAmount = 1125

	out := BuildZohoCSV([]models.InvoiceRecord{inv})
	row := csvFields(strings.Split(out, "\n")[1])
	// CGST Rate and SGST Rate columns carry the exact per-row rate.
	if row[18] != "6.25" || row[20] != "6.25" {
		t.Errorf("rates = %q / %q, want 6.25", row[18], row[20])
	}
}

func TestBuildZohoCSVInterStateSupplyType(t *testing.T) {
	inv := acmeInvoice()
	inv.CGST = 0
	inv.SGST = 0
	inv.IGST = 180

	out := BuildZohoCSV([]models.InvoiceRecord{inv})
	if !strings.Contains(out, `"Inter-State"`) {
		t.Error("IGST invoice should default supply type to Inter-State")
	}
}
