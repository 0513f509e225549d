package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"trulyinvoice/pkg/models"
)

// ExcelTemplate selects the workbook layout.
type ExcelTemplate string

// Supported Excel templates.
const (
	// TemplateSimple mirrors the CSV export as a single worksheet.
	TemplateSimple ExcelTemplate = "simple"

	// TemplateAccountant adds the GST breakup columns and a summary sheet
	// with batch totals.
	TemplateAccountant ExcelTemplate = "accountant"
)

// ParseExcelTemplate converts a user-supplied template name.
func ParseExcelTemplate(name string) (ExcelTemplate, error) {
	switch ExcelTemplate(name) {
	case TemplateSimple, TemplateAccountant:
		return ExcelTemplate(name), nil
	default:
		return "", fmt.Errorf("unknown Excel template %q (want simple or accountant)", name)
	}
}

var accountantHeader = []string{
	"Invoice Number",
	"Vendor Name",
	"GSTIN",
	"Invoice Date",
	"Due Date",
	"Subtotal",
	"CGST",
	"SGST",
	"IGST",
	"Total Tax",
	"Total Amount",
	"Classification",
	"Place of Supply",
	"HSN/SAC",
	"Payment Status",
}

// BuildExcel renders an xlsx workbook for the invoice batch in the given
// template. Like the CSV export it never validates: missing values render
// as empty cells.
func BuildExcel(invoices []models.InvoiceRecord, template ExcelTemplate) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Invoices"
	f.SetSheetName("Sheet1", sheet)

	switch template {
	case TemplateAccountant:
		if err := writeAccountantSheet(f, sheet, invoices); err != nil {
			return nil, err
		}
	default:
		if err := writeSimpleSheet(f, sheet, invoices); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSimpleSheet(f *excelize.File, sheet string, invoices []models.InvoiceRecord) error {
	if err := writeRow(f, sheet, 1, toCells(csvHeader)); err != nil {
		return err
	}
	for i := range invoices {
		inv := &invoices[i]
		tax := inv.TotalGST()
		subtotal := inv.Subtotal
		if subtotal == 0 && inv.TotalAmount > 0 {
			subtotal = inv.TotalAmount - tax
		}
		cells := []interface{}{
			inv.InvoiceNumber,
			inv.VendorName,
			formatDate(inv.InvoiceDate),
			formatDate(inv.DueDate),
			subtotal,
			tax,
			inv.TotalAmount,
			inv.PaymentStatus,
			inv.PaymentMethod,
			inv.GSTIN,
			formatTimestamp(inv.CreatedAt),
		}
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func writeAccountantSheet(f *excelize.File, sheet string, invoices []models.InvoiceRecord) error {
	if err := writeRow(f, sheet, 1, toCells(accountantHeader)); err != nil {
		return err
	}

	var totalSub, totalCGST, totalSGST, totalIGST, totalAmount float64
	for i := range invoices {
		inv := &invoices[i]
		hsn := inv.HSNCode
		if hsn == "" {
			hsn = inv.SACCode
		}
		cells := []interface{}{
			inv.InvoiceNumber,
			inv.NormalizedVendor(),
			inv.GSTIN,
			formatDate(inv.InvoiceDate),
			formatDate(inv.DueDate),
			inv.EffectiveSubtotal(),
			inv.CGST,
			inv.SGST,
			inv.IGST,
			inv.TotalGST(),
			inv.TotalAmount,
			inv.Classification(),
			PlaceOfSupply(inv),
			hsn,
			paymentStatusOrDefault(inv.PaymentStatus),
		}
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return err
		}
		totalSub += inv.EffectiveSubtotal()
		totalCGST += inv.CGST
		totalSGST += inv.SGST
		totalIGST += inv.IGST
		totalAmount += inv.TotalAmount
	}

	const summary = "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Invoices", len(invoices)},
		{"Subtotal", totalSub},
		{"CGST", totalCGST},
		{"SGST", totalSGST},
		{"IGST", totalIGST},
		{"Total Tax", totalCGST + totalSGST + totalIGST},
		{"Total Amount", totalAmount},
	}
	for i, cells := range rows {
		if err := writeRow(f, summary, i+1, cells); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
