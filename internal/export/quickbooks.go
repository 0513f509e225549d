package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"trulyinvoice/pkg/models"
)

// QuickBooks Desktop account names used in IIF BILL transactions.
const (
	qbAccountsPayable = "Accounts Payable"
	qbPurchaseExpense = "Purchase Expenses"
	qbCGSTInput       = "CGST Input Tax"
	qbSGSTInput       = "SGST Input Tax"
	qbIGSTInput       = "IGST Input Tax"
)

// BuildQuickBooksIIF renders a QuickBooks Desktop IIF batch: one BILL
// transaction per invoice with the header line crediting Accounts Payable
// for the full total and negative SPL lines for the expense and input-tax
// splits.
func BuildQuickBooksIIF(invoices []models.InvoiceRecord) string {
	var b strings.Builder
	b.WriteString("!TRNS\tTRNSTYPE\tDATE\tACCNT\tNAME\tAMOUNT\tDOCNUM\tMEMO\n")
	b.WriteString("!SPL\tTRNSTYPE\tDATE\tACCNT\tNAME\tAMOUNT\tDOCNUM\tMEMO\n")
	b.WriteString("!ENDTRNS\n")

	for i := range invoices {
		inv := &invoices[i]
		date := formatIIFDate(inv.InvoiceDate)
		vendor := iifField(inv.NormalizedVendor())
		docnum := iifField(inv.InvoiceNumber)
		memo := iifField(fmt.Sprintf("Bill %s from %s", inv.InvoiceNumber, inv.VendorName))
		gst := inv.TotalGST()
		expense := inv.TotalAmount - gst

		fmt.Fprintf(&b, "TRNS\tBILL\t%s\t%s\t%s\t%s\t%s\t%s\n",
			date, qbAccountsPayable, vendor, formatAmount(inv.TotalAmount), docnum, memo)
		fmt.Fprintf(&b, "SPL\tBILL\t%s\t%s\t%s\t%s\t%s\t%s\n",
			date, qbPurchaseExpense, vendor, formatAmount(-expense), docnum, memo)

		writeTaxSplit := func(account string, amount float64) {
			if amount <= 0 {
				return
			}
			fmt.Fprintf(&b, "SPL\tBILL\t%s\t%s\t%s\t%s\t%s\t%s\n",
				date, account, vendor, formatAmount(-amount), docnum, memo)
		}
		if inv.IsInterState() {
			writeTaxSplit(qbIGSTInput, inv.IGST)
		} else {
			writeTaxSplit(qbCGSTInput, inv.CGST)
			writeTaxSplit(qbSGSTInput, inv.SGST)
		}

		b.WriteString("ENDTRNS\n")
	}
	return b.String()
}

// quickBooksCSVHeader is the 25-column QuickBooks Online bill import layout.
var quickBooksCSVHeader = []string{
	"Bill No",
	"Vendor",
	"Bill Date",
	"Due Date",
	"Item Name",
	"HSN/SAC",
	"Quantity",
	"Rate",
	"Item Amount",
	"CGST Rate",
	"CGST Amount",
	"SGST Rate",
	"SGST Amount",
	"IGST Rate",
	"IGST Amount",
	"Total Tax",
	"Total Amount",
	"GSTIN",
	"Classification",
	"Place of Supply",
	"Reverse Charge",
	"TDS Percentage",
	"TDS Amount",
	"Composition Scheme",
	"Payment Status",
}

// BuildQuickBooksCSV renders the QuickBooks Online bill import: one row per
// line item, or a single aggregate row when an invoice carries no items.
func BuildQuickBooksCSV(invoices []models.InvoiceRecord) string {
	var b strings.Builder
	writeCSVRow(&b, quickBooksCSVHeader)

	for i := range invoices {
		inv := &invoices[i]
		for _, row := range invoiceItemRows(inv) {
			writeCSVRow(&b, quickBooksCSVRow(inv, row))
		}
	}
	return b.String()
}

// itemRow is one export row's slice of an invoice: either a real line item
// with its proportional tax share, or the whole invoice as a single row.
type itemRow struct {
	name     string
	hsn      string
	quantity float64
	rate     float64
	amount   float64
	cgst     float64
	sgst     float64
	igst     float64
}

// invoiceItemRows splits an invoice into export rows. Taxes are distributed
// proportionally to item amounts, with the last row taking the remainder so
// the rows sum back to the invoice totals.
func invoiceItemRows(inv *models.InvoiceRecord) []itemRow {
	hsn := inv.HSNCode
	if hsn == "" {
		hsn = inv.SACCode
	}
	if hsn == "" {
		hsn = models.DefaultSACCode
	}

	if len(inv.LineItems) == 0 {
		subtotal := inv.EffectiveSubtotal()
		return []itemRow{{
			name:     "Invoice Total",
			hsn:      hsn,
			quantity: 1,
			rate:     subtotal,
			amount:   subtotal,
			cgst:     inv.CGST,
			sgst:     inv.SGST,
			igst:     inv.IGST,
		}}
	}

	itemsTotal := 0.0
	for _, item := range inv.LineItems {
		itemsTotal += item.Amount
	}

	rows := make([]itemRow, 0, len(inv.LineItems))
	var usedCGST, usedSGST, usedIGST float64
	for i, item := range inv.LineItems {
		last := i == len(inv.LineItems)-1
		share := 0.0
		if itemsTotal > 0 {
			share = item.Amount / itemsTotal
		} else if last {
			share = 1
		}

		cgst := round2(inv.CGST * share)
		sgst := round2(inv.SGST * share)
		igst := round2(inv.IGST * share)
		if last {
			cgst = round2(inv.CGST - usedCGST)
			sgst = round2(inv.SGST - usedSGST)
			igst = round2(inv.IGST - usedIGST)
		}
		usedCGST += cgst
		usedSGST += sgst
		usedIGST += igst

		itemHSN := item.HSNCode
		if itemHSN == "" {
			itemHSN = hsn
		}
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		rate := item.Rate
		if rate == 0 && quantity > 0 {
			rate = item.Amount / quantity
		}
		rows = append(rows, itemRow{
			name:     item.ItemName,
			hsn:      itemHSN,
			quantity: quantity,
			rate:     rate,
			amount:   item.Amount,
			cgst:     cgst,
			sgst:     sgst,
			igst:     igst,
		})
	}
	return rows
}

// itemGSTRates derives the rate columns from the row's own tax shares and
// taxable amount, so fractional slab rates survive the split.
func itemGSTRates(row itemRow) (cgst, sgst, igst float64) {
	if row.amount <= 0 {
		return 0, 0, 0
	}
	return round2(row.cgst / row.amount * 100),
		round2(row.sgst / row.amount * 100),
		round2(row.igst / row.amount * 100)
}

func quickBooksCSVRow(inv *models.InvoiceRecord, row itemRow) []string {
	cgstRate, sgstRate, igstRate := itemGSTRates(row)

	return []string{
		inv.InvoiceNumber,
		inv.NormalizedVendor(),
		formatUSDate(inv.InvoiceDate),
		formatUSDate(inv.DueDate),
		row.name,
		row.hsn,
		formatQuantity(row.quantity),
		formatAmount(row.rate),
		formatAmount(row.amount),
		formatRate(cgstRate),
		formatAmount(row.cgst),
		formatRate(sgstRate),
		formatAmount(row.sgst),
		formatRate(igstRate),
		formatAmount(row.igst),
		formatAmount(inv.TotalGST()),
		formatAmount(inv.TotalAmount),
		inv.GSTIN,
		inv.Classification(),
		PlaceOfSupply(inv),
		yesNo(inv.ReverseCharge),
		formatRate(inv.TDSPercentage),
		formatAmount(inv.TDSAmount),
		yesNo(inv.IsComposition()),
		paymentStatusOrDefault(inv.PaymentStatus),
	}
}

// formatIIFDate renders MM/DD/YYYY as QuickBooks Desktop expects.
func formatIIFDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("01/02/2006")
}

func formatUSDate(t *time.Time) string {
	return formatIIFDate(t)
}

// iifField strips tabs and newlines, which would break the IIF layout.
func iifField(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func paymentStatusOrDefault(status string) string {
	if status == "" {
		return "Unpaid"
	}
	return status
}
