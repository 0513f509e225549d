package export

import (
	"math"
	"strings"
	"testing"

	"trulyinvoice/pkg/models"
)

func TestBuildQuickBooksIIF(t *testing.T) {
	out := BuildQuickBooksIIF([]models.InvoiceRecord{acmeInvoice()})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	if lines[0] != "!TRNS\tTRNSTYPE\tDATE\tACCNT\tNAME\tAMOUNT\tDOCNUM\tMEMO" {
		t.Errorf("unexpected TRNS header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "!SPL\t") || lines[2] != "!ENDTRNS" {
		t.Errorf("unexpected header block: %q / %q", lines[1], lines[2])
	}

	// Header block + TRNS + 3 SPL + ENDTRNS
	if len(lines) != 8 {
		t.Fatalf("got %d lines, want 8:\n%s", len(lines), out)
	}

	trns := lines[3]
	for _, want := range []string{"TRNS\tBILL\t", "01/15/2024", "Accounts Payable", "Acme Traders", "1180.00", "INV-001"} {
		if !strings.Contains(trns, want) {
			t.Errorf("TRNS line %q missing %q", trns, want)
		}
	}

	body := strings.Join(lines[4:7], "\n")
	for _, want := range []string{
		"Purchase Expenses\tAcme Traders\t-1000.00",
		"CGST Input Tax\tAcme Traders\t-90.00",
		"SGST Input Tax\tAcme Traders\t-90.00",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("SPL lines missing %q:\n%s", want, body)
		}
	}
	if lines[7] != "ENDTRNS" {
		t.Errorf("transaction not terminated: %q", lines[7])
	}
}

func TestBuildQuickBooksIIFInterState(t *testing.T) {
	inv := acmeInvoice()
	inv.CGST = 0
	inv.SGST = 0
	inv.IGST = 180

	out := BuildQuickBooksIIF([]models.InvoiceRecord{inv})
	if !strings.Contains(out, "IGST Input Tax") {
		t.Error("inter-state bill should post to the IGST input account")
	}
	if strings.Contains(out, "CGST Input Tax") || strings.Contains(out, "SGST Input Tax") {
		t.Error("inter-state bill must not post CGST/SGST splits")
	}
}

func TestBuildQuickBooksCSVColumnCount(t *testing.T) {
	out := BuildQuickBooksCSV([]models.InvoiceRecord{acmeInvoice()})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for i, line := range lines {
		cols := strings.Count(line, `","`) + 1
		if cols != 25 {
			t.Errorf("line %d has %d columns, want 25: %q", i, cols, line)
		}
	}
}

func TestBuildQuickBooksCSVAggregateRow(t *testing.T) {
	out := BuildQuickBooksCSV([]models.InvoiceRecord{acmeInvoice()})

	for _, want := range []string{
		`"INV-001"`,
		`"Acme Traders"`,
		`"01/15/2024"`,
		`"Invoice Total"`, // no line items, single aggregate row
		`"9983"`,          // default SAC
		`"9"`,             // CGST rate (18/2)
		`"90.00"`,
		`"180.00"`,
		`"1180.00"`,
		`"B2B"`,
		`"Maharashtra"`,
		`"Unpaid"`, // payment status default
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestBuildQuickBooksCSVLineItemRows(t *testing.T) {
	inv := acmeInvoice()
	inv.LineItems = []models.LineItem{
		{ItemName: "Widget A", HSNCode: "8471", Quantity: 3, Rate: 100, Amount: 300},
		{ItemName: "Widget B", Quantity: 7, Rate: 100, Amount: 700},
	}

	out := BuildQuickBooksCSV([]models.InvoiceRecord{inv})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 item rows", len(lines))
	}
	if !strings.Contains(lines[1], `"Widget A"`) || !strings.Contains(lines[1], `"8471"`) {
		t.Errorf("first item row wrong: %q", lines[1])
	}
	// 30% of the 90.00 CGST goes to Widget A, the remainder to Widget B.
	if !strings.Contains(lines[1], `"27.00"`) {
		t.Errorf("Widget A should carry 27.00 CGST: %q", lines[1])
	}
	if !strings.Contains(lines[2], `"63.00"`) {
		t.Errorf("Widget B should carry the 63.00 remainder: %q", lines[2])
	}
}

// csvFields splits an always-quoted CSV line into its cells.
func csvFields(line string) []string {
	return strings.Split(strings.Trim(line, `"`), `","`)
}

func TestBuildQuickBooksCSVComplianceColumns(t *testing.T) {
	inv := acmeInvoice()
	inv.ReverseCharge = true
	inv.TDSPercentage = 2
	inv.TDSAmount = 20
	inv.VendorType = "Composition"

	out := BuildQuickBooksCSV([]models.InvoiceRecord{inv})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	row := csvFields(lines[1])
	if len(row) != 25 {
		t.Fatalf("got %d columns, want 25: %q", len(row), lines[1])
	}
	if row[20] != "Yes" {
		t.Errorf("Reverse Charge = %q, want Yes", row[20])
	}
	if row[21] != "2" {
		t.Errorf("TDS Percentage = %q, want 2", row[21])
	}
	if row[22] != "20.00" {
		t.Errorf("TDS Amount = %q, want 20.00", row[22])
	}
	if row[23] != "Yes" {
		t.Errorf("Composition Scheme = %q, want Yes", row[23])
	}
}

func TestBuildQuickBooksCSVComplianceDefaults(t *testing.T) {
	out := BuildQuickBooksCSV([]models.InvoiceRecord{acmeInvoice()})
	row := csvFields(strings.Split(out, "\n")[1])
	if row[20] != "No" {
		t.Errorf("Reverse Charge = %q, want No", row[20])
	}
	if row[23] != "No" {
		t.Errorf("Composition Scheme = %q, want No", row[23])
	}
}

func TestBuildQuickBooksCSVFractionalRates(t *testing.T) {
	inv := acmeInvoice()
	inv.CGST = 62.5
	inv.SGST = 62.5
	inv.TotalAmount = 1125

	out := BuildQuickBooksCSV([]models.InvoiceRecord{inv})
	row := csvFields(strings.Split(out, "\n")[1])
	if row[9] != "6.25" {
		t.Errorf("CGST Rate = %q, want 6.25", row[9])
	}
	if row[11] != "6.25" {
		t.Errorf("SGST Rate = %q, want 6.25", row[11])
	}
	if row[10] != "62.50" || row[12] != "62.50" {
		t.Errorf("tax amounts = %q / %q, want 62.50", row[10], row[12])
	}
}

func TestItemGSTRatesPerRow(t *testing.T) {
	rows := invoiceItemRows(&models.InvoiceRecord{
		CGST:      50,
		SGST:      50,
		Subtotal:  800,
		LineItems: []models.LineItem{{ItemName: "A", Amount: 400}, {ItemName: "B", Amount: 400}},
	})
	for _, row := range rows {
		cgst, sgst, igst := itemGSTRates(row)
		if cgst != 6.25 || sgst != 6.25 {
			t.Errorf("row %s rates = %v / %v, want 6.25", row.name, cgst, sgst)
		}
		if igst != 0 {
			t.Errorf("row %s IGST rate = %v, want 0", row.name, igst)
		}
	}
}

func TestInvoiceItemRowsTaxRemainder(t *testing.T) {
	inv := acmeInvoice()
	inv.CGST = 50
	inv.SGST = 50
	inv.LineItems = []models.LineItem{
		{ItemName: "A", Amount: 333},
		{ItemName: "B", Amount: 333},
		{ItemName: "C", Amount: 334},
	}

	rows := invoiceItemRows(&inv)
	var cgst float64
	for _, row := range rows {
		cgst += row.cgst
	}
	if math.Abs(cgst-50) > 1e-9 {
		t.Errorf("distributed CGST sums to %v, want 50", cgst)
	}
}
