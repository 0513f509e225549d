package export

import (
	"fmt"
	"strings"
	"time"

	"trulyinvoice/pkg/models"
)

// zohoCSVHeader is the 36-column Zoho Books bill import layout.
var zohoCSVHeader = []string{
	"Invoice Number",
	"Invoice Date",
	"Due Date",
	"Payment Terms",
	"Vendor Name",
	"Customer Email",
	"Billing Address",
	"GSTIN",
	"GST Treatment",
	"Place of Supply",
	"Supply Type",
	"Item Name",
	"HSN/SAC",
	"Quantity",
	"Rate",
	"Item Amount",
	"Discount Percentage",
	"Discount Amount",
	"CGST Rate",
	"CGST Amount",
	"SGST Rate",
	"SGST Amount",
	"IGST Rate",
	"IGST Amount",
	"Item Tax Total",
	"Subtotal",
	"Total Tax",
	"Total Amount",
	"Reverse Charge",
	"TDS Percentage",
	"TDS Amount",
	"Vendor Type",
	"Payment Status",
	"Payment Method",
	"Notes",
	"Terms & Conditions",
}

// BuildZohoCSV renders the Zoho Books import: one row per line item sharing
// the invoice-level columns, with Notes and Terms emitted only on the first
// row of each invoice so Zoho doesn't duplicate them per item.
func BuildZohoCSV(invoices []models.InvoiceRecord) string {
	var b strings.Builder
	writeCSVRow(&b, zohoCSVHeader)

	for i := range invoices {
		inv := &invoices[i]
		for j, row := range invoiceItemRows(inv) {
			writeCSVRow(&b, zohoCSVRow(inv, row, j == 0))
		}
	}
	return b.String()
}

func zohoCSVRow(inv *models.InvoiceRecord, row itemRow, first bool) []string {
	cgstRate, sgstRate, igstRate := itemGSTRates(row)

	notes, terms := "", ""
	discountPct, discountAmt := "0", "0.00"
	if first {
		notes = inv.Notes
		terms = inv.Terms
		// Invoice-level discount goes on the first row only.
		discountPct = formatRate(inv.DiscountPercentage)
		discountAmt = formatAmount(inv.DiscountAmount)
	}

	return []string{
		inv.InvoiceNumber,
		formatDate(inv.InvoiceDate),
		formatDate(inv.DueDate),
		paymentTerms(inv),
		inv.NormalizedVendor(),
		inv.CustomerEmail,
		inv.BillingAddress,
		inv.GSTIN,
		gstTreatment(inv),
		PlaceOfSupply(inv),
		supplyTypeOrDefault(inv),
		row.name,
		row.hsn,
		formatQuantity(row.quantity),
		formatAmount(row.rate),
		formatAmount(row.amount),
		discountPct,
		discountAmt,
		formatRate(cgstRate),
		formatAmount(row.cgst),
		formatRate(sgstRate),
		formatAmount(row.sgst),
		formatRate(igstRate),
		formatAmount(row.igst),
		formatAmount(row.cgst + row.sgst + row.igst),
		formatAmount(inv.EffectiveSubtotal()),
		formatAmount(inv.TotalGST()),
		formatAmount(inv.TotalAmount),
		yesNo(inv.ReverseCharge),
		formatRate(inv.TDSPercentage),
		formatAmount(inv.TDSAmount),
		vendorTypeOrDefault(inv.VendorType),
		paymentStatusOrDefault(inv.PaymentStatus),
		inv.PaymentMethod,
		notes,
		terms,
	}
}

// paymentTerms derives the terms column from the date gap when both dates
// are present, otherwise falls back to Net 30.
func paymentTerms(inv *models.InvoiceRecord) string {
	if inv.InvoiceDate != nil && inv.DueDate != nil && inv.DueDate.After(*inv.InvoiceDate) {
		days := int(inv.DueDate.Sub(*inv.InvoiceDate) / (24 * time.Hour))
		return fmt.Sprintf("Net %d", days)
	}
	return "Net 30"
}

// gstTreatment maps registration status to Zoho's treatment values.
func gstTreatment(inv *models.InvoiceRecord) string {
	if inv.IsB2B() {
		return "Taxable"
	}
	return "Consumer"
}

func supplyTypeOrDefault(inv *models.InvoiceRecord) string {
	if inv.SupplyType != "" {
		return inv.SupplyType
	}
	if inv.IsInterState() {
		return "Inter-State"
	}
	return "Intra-State"
}

func vendorTypeOrDefault(vendorType string) string {
	if vendorType == "" {
		return "Registered Business"
	}
	return vendorType
}
