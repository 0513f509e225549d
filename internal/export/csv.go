package export

import (
	"fmt"
	"strings"
	"time"

	"trulyinvoice/pkg/models"
)

// csvHeader is the fixed 11-column layout of the plain CSV export.
var csvHeader = []string{
	"Invoice Number",
	"Vendor Name",
	"Invoice Date",
	"Due Date",
	"Subtotal",
	"Tax Amount",
	"Total Amount",
	"Payment Status",
	"Payment Method",
	"GSTIN",
	"Created At",
}

// BuildCSV renders the always-succeeds fallback format: one row per
// invoice, every cell double-quoted, dates as DD/MM/YYYY with missing
// dates rendered empty. No validation is applied.
func BuildCSV(invoices []models.InvoiceRecord) string {
	var b strings.Builder
	writeCSVRow(&b, csvHeader)

	for i := range invoices {
		inv := &invoices[i]
		tax := inv.TotalGST()
		subtotal := inv.Subtotal
		if subtotal == 0 && inv.TotalAmount > 0 {
			subtotal = inv.TotalAmount - tax
		}
		writeCSVRow(&b, []string{
			inv.InvoiceNumber,
			inv.VendorName,
			formatDate(inv.InvoiceDate),
			formatDate(inv.DueDate),
			formatAmount(subtotal),
			formatAmount(tax),
			formatAmount(inv.TotalAmount),
			inv.PaymentStatus,
			inv.PaymentMethod,
			inv.GSTIN,
			formatTimestamp(inv.CreatedAt),
		})
	}
	return b.String()
}

// writeCSVRow quotes every cell unconditionally, doubling embedded quotes.
func writeCSVRow(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

// formatDate renders DD/MM/YYYY; nil dates render empty instead of erroring.
func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
