package models

import (
	"math"
	"strings"
	"time"
)

// DefaultSACCode is used when an invoice carries no HSN/SAC classification.
const DefaultSACCode = "9983"

// Document processing states for an uploaded source file.
const (
	StatusPending        = "pending"
	StatusUploading      = "uploading"
	StatusProcessing     = "processing"
	StatusProcessed      = "processed"
	StatusUploadComplete = "upload_complete" // file stored, extraction failed
	StatusFailed         = "failed"
)

// LineItem is a single line of an invoice. Invoices with more than one
// line item export one row (or ledger entry) per item.
type LineItem struct {
	ItemName  string  `json:"item_name"`
	HSNCode   string  `json:"hsn_code,omitempty"`
	Quantity  float64 `json:"quantity"`
	Rate      float64 `json:"rate"`
	Amount    float64 `json:"amount"`
	GSTAmount float64 `json:"gst_amount"`
}

// InvoiceRecord is the unit of export: structured fields extracted from a
// supplier invoice. Amounts are decimal rupee values as returned by the
// extraction backend.
type InvoiceRecord struct {
	ID            string `json:"id" gorm:"primaryKey"`
	InvoiceNumber string `json:"invoice_number"`

	VendorName string `json:"vendor_name"`
	// GSTIN is the 15-character tax ID. Absence means a B2C /
	// unregistered-consumer transaction.
	GSTIN string `json:"gstin,omitempty"`

	InvoiceDate *time.Time `json:"invoice_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`

	Subtotal    float64 `json:"subtotal"`
	CGST        float64 `json:"cgst"`
	SGST        float64 `json:"sgst"`
	IGST        float64 `json:"igst"`
	TotalAmount float64 `json:"total_amount"`

	HSNCode       string `json:"hsn_code,omitempty"`
	SACCode       string `json:"sac_code,omitempty"`
	PlaceOfSupply string `json:"place_of_supply,omitempty"`
	SupplyType    string `json:"supply_type,omitempty"` // "Service" or "Goods"

	LineItems []LineItem `json:"line_items,omitempty" gorm:"serializer:json"`

	DiscountPercentage float64 `json:"discount_percentage,omitempty"`
	DiscountAmount     float64 `json:"discount_amount,omitempty"`

	ReverseCharge bool    `json:"reverse_charge,omitempty"`
	TDSAmount     float64 `json:"tds_amount,omitempty"`
	TDSPercentage float64 `json:"tds_percentage,omitempty"`
	VendorType    string  `json:"vendor_type,omitempty"` // e.g. "Composition"

	PaymentStatus  string `json:"payment_status,omitempty"`
	PaymentMethod  string `json:"payment_method,omitempty"`
	CustomerEmail  string `json:"customer_email,omitempty"`
	BillingAddress string `json:"billing_address,omitempty"`
	Notes          string `json:"notes,omitempty"`
	Terms          string `json:"terms,omitempty"`

	// SourcePath is the uploaded document backing this record. Deleting a
	// record removes the file best-effort.
	SourcePath     string `json:"source_path,omitempty"`
	DocumentID     string `json:"document_id,omitempty"`
	DocumentStatus string `json:"document_status,omitempty"`
	UserID         string `json:"user_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalGST returns CGST + SGST + IGST. CGST+SGST and IGST are mutually
// exclusive in valid data (intra-state vs inter-state supply).
func (r *InvoiceRecord) TotalGST() float64 {
	return r.CGST + r.SGST + r.IGST
}

// EffectiveSubtotal returns the subtotal, deriving it from the total minus
// GST when it was not extracted.
func (r *InvoiceRecord) EffectiveSubtotal() float64 {
	if r.Subtotal > 0 {
		return r.Subtotal
	}
	if r.TotalAmount > 0 {
		return r.TotalAmount - r.TotalGST()
	}
	return 0
}

// IsInterState reports whether the supply crossed state lines (IGST levied).
func (r *InvoiceRecord) IsInterState() bool {
	return r.IGST > 0
}

// IsB2B reports whether the vendor is GST-registered.
func (r *InvoiceRecord) IsB2B() bool {
	return strings.TrimSpace(r.GSTIN) != ""
}

// GSTRate derives the overall GST rate by reverse-dividing total tax by the
// subtotal and rounding to the nearest whole percent. Invoices with
// fractional cess-augmented rates are rounded to the nearest slab.
func (r *InvoiceRecord) GSTRate() float64 {
	sub := r.EffectiveSubtotal()
	if sub <= 0 {
		return 0
	}
	return math.Round(r.TotalGST() / sub * 100)
}

// ClassificationCode returns the HSN/SAC code, defaulting to DefaultSACCode.
func (r *InvoiceRecord) ClassificationCode() string {
	if c := strings.TrimSpace(r.HSNCode); c != "" {
		return c
	}
	if c := strings.TrimSpace(r.SACCode); c != "" {
		return c
	}
	return DefaultSACCode
}

// Classification returns "B2B" for GST-registered vendors, "B2C" otherwise.
func (r *InvoiceRecord) Classification() string {
	if r.IsB2B() {
		return "B2B"
	}
	return "B2C"
}

// IsComposition reports whether the vendor is registered under the GST
// composition scheme.
func (r *InvoiceRecord) IsComposition() bool {
	return strings.EqualFold(strings.TrimSpace(r.VendorType), "Composition")
}

// HasMultipleItems reports whether export must emit one row per line item.
func (r *InvoiceRecord) HasMultipleItems() bool {
	return len(r.LineItems) > 1
}

// NormalizedVendor returns the vendor name trimmed and Title-Cased per word,
// the form used for ledger master names.
func (r *InvoiceRecord) NormalizedVendor() string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(r.VendorName)))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
