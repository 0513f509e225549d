package export

import (
	"strings"
	"testing"
	"time"

	"trulyinvoice/pkg/models"
)

func TestValidateHardErrors(t *testing.T) {
	bad := models.InvoiceRecord{} // everything missing
	result := Validate(FormatTally, []models.InvoiceRecord{bad})

	if len(result.Errors) != 4 {
		t.Fatalf("got %d errors, want 4: %v", len(result.Errors), result.Errors)
	}
	for _, want := range []string{
		"missing invoice number",
		"missing vendor name",
		"missing or non-positive total amount",
		"missing invoice date",
	} {
		found := false
		for _, e := range result.Errors {
			if strings.Contains(e, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("errors missing %q: %v", want, result.Errors)
		}
	}
}

func TestValidateErrorsNamePerInvoice(t *testing.T) {
	invs := []models.InvoiceRecord{
		{InvoiceNumber: "INV-001", VendorName: "Acme", TotalAmount: 100}, // date missing
		{InvoiceNumber: "INV-002", VendorName: "Acme", TotalAmount: 0, InvoiceDate: date(2024, time.March, 1)},
	}
	result := Validate(FormatZoho, invs)

	if len(result.Errors) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(result.Errors), result.Errors)
	}
	if !strings.Contains(result.Errors[0], "INV-001") {
		t.Errorf("first error should name INV-001: %s", result.Errors[0])
	}
	if !strings.Contains(result.Errors[1], "INV-002") {
		t.Errorf("second error should name INV-002: %s", result.Errors[1])
	}
}

func TestValidateSoftWarningsTallyOnly(t *testing.T) {
	inv := models.InvoiceRecord{
		InvoiceNumber: "INV-001",
		VendorName:    "Acme",
		TotalAmount:   100,
		InvoiceDate:   date(2024, time.March, 1),
		// GSTIN, place of supply and HSN all missing
	}

	tally := Validate(FormatTally, []models.InvoiceRecord{inv})
	if len(tally.Errors) != 0 {
		t.Errorf("tally errors = %v, want none", tally.Errors)
	}
	if len(tally.Warnings) != 3 {
		t.Errorf("tally warnings = %d, want 3: %v", len(tally.Warnings), tally.Warnings)
	}

	qb := Validate(FormatQuickBooksCSV, []models.InvoiceRecord{inv})
	if len(qb.Warnings) != 0 {
		t.Errorf("quickbooks should not produce soft warnings, got %v", qb.Warnings)
	}
}

func TestValidateFallbackFormatsSkipValidation(t *testing.T) {
	bad := models.InvoiceRecord{}
	for _, format := range []Format{FormatCSV, FormatExcel, FormatSheets} {
		result := Validate(format, []models.InvoiceRecord{bad})
		if !result.OK() {
			t.Errorf("%s should never block or warn, got errors=%v warnings=%v",
				format, result.Errors, result.Warnings)
		}
	}
}

func TestValidateHSNWarningSatisfiedBySAC(t *testing.T) {
	inv := models.InvoiceRecord{
		InvoiceNumber: "INV-001",
		VendorName:    "Acme",
		GSTIN:         "27AAPFU0939F1ZV",
		PlaceOfSupply: "Maharashtra",
		SACCode:       "9983",
		TotalAmount:   100,
		InvoiceDate:   date(2024, time.March, 1),
	}
	result := Validate(FormatTally, []models.InvoiceRecord{inv})
	if len(result.Warnings) != 0 {
		t.Errorf("SAC code should satisfy the HSN/SAC check, got %v", result.Warnings)
	}
}
