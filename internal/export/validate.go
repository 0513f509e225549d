package export

import (
	"fmt"
	"strings"

	"trulyinvoice/pkg/models"
)

// ValidationResult separates blocking errors from defaultable warnings.
// Errors abort the export with zero output files; warnings require user
// confirmation before generation proceeds with defaulted values.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// OK reports whether generation may proceed without confirmation.
func (v *ValidationResult) OK() bool {
	return len(v.Errors) == 0 && len(v.Warnings) == 0
}

// validateHard applies the blocking rules shared by Tally, QuickBooks and
// Zoho exports: invoice number, vendor name, invoice date and a positive
// total are mandatory.
func validateHard(invoices []models.InvoiceRecord) []string {
	var errs []string
	for i := range invoices {
		inv := &invoices[i]
		label := invoiceLabel(inv, i)
		if strings.TrimSpace(inv.InvoiceNumber) == "" {
			errs = append(errs, fmt.Sprintf("%s: missing invoice number", label))
		}
		if strings.TrimSpace(inv.VendorName) == "" {
			errs = append(errs, fmt.Sprintf("%s: missing vendor name", label))
		}
		if inv.TotalAmount <= 0 {
			errs = append(errs, fmt.Sprintf("%s: missing or non-positive total amount", label))
		}
		if inv.InvoiceDate == nil {
			errs = append(errs, fmt.Sprintf("%s: missing invoice date", label))
		}
	}
	return errs
}

// validateSoft collects the defaultable conditions that gate a Tally export
// behind user confirmation.
func validateSoft(invoices []models.InvoiceRecord) []string {
	var warnings []string
	for i := range invoices {
		inv := &invoices[i]
		label := invoiceLabel(inv, i)
		if !inv.IsB2B() {
			warnings = append(warnings, fmt.Sprintf("%s: missing GSTIN, will be treated as B2C", label))
		}
		if strings.TrimSpace(inv.PlaceOfSupply) == "" {
			warnings = append(warnings, fmt.Sprintf("%s: missing place of supply, will be derived (default %s)", label, DefaultPlaceOfSupply))
		}
		if strings.TrimSpace(inv.HSNCode) == "" && strings.TrimSpace(inv.SACCode) == "" {
			warnings = append(warnings, fmt.Sprintf("%s: missing HSN/SAC code, defaulting to %s", label, models.DefaultSACCode))
		}
	}
	return warnings
}

// Validate runs the validation policy for the given format.
func Validate(format Format, invoices []models.InvoiceRecord) *ValidationResult {
	result := &ValidationResult{}
	switch format {
	case FormatCSV, FormatExcel, FormatSheets:
		// Always-succeeds fallback formats; missing fields render as
		// empty cells or zero-filled defaults.
	case FormatTally:
		result.Errors = validateHard(invoices)
		result.Warnings = validateSoft(invoices)
	case FormatQuickBooksIIF, FormatQuickBooksCSV, FormatZoho:
		result.Errors = validateHard(invoices)
	}
	return result
}

func invoiceLabel(inv *models.InvoiceRecord, index int) string {
	if n := strings.TrimSpace(inv.InvoiceNumber); n != "" {
		return fmt.Sprintf("invoice %s", n)
	}
	if inv.ID != "" {
		return fmt.Sprintf("invoice %s", inv.ID)
	}
	return fmt.Sprintf("invoice #%d", index+1)
}
