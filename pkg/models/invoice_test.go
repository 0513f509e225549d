package models

import (
	"testing"
)

func TestGSTRate(t *testing.T) {
	tests := []struct {
		name string
		inv  InvoiceRecord
		want float64
	}{
		{
			name: "standard 18 percent intra-state",
			inv:  InvoiceRecord{Subtotal: 1000, CGST: 90, SGST: 90, TotalAmount: 1180},
			want: 18,
		},
		{
			name: "12 percent inter-state",
			inv:  InvoiceRecord{Subtotal: 500, IGST: 60, TotalAmount: 560},
			want: 12,
		},
		{
			name: "fractional rate rounds to nearest slab",
			inv:  InvoiceRecord{Subtotal: 1000, CGST: 89, SGST: 89, TotalAmount: 1178},
			want: 18,
		},
		{
			name: "no tax",
			inv:  InvoiceRecord{Subtotal: 1000, TotalAmount: 1000},
			want: 0,
		},
		{
			name: "zero subtotal",
			inv:  InvoiceRecord{CGST: 90, SGST: 90},
			want: 0,
		},
		{
			name: "subtotal derived from total",
			inv:  InvoiceRecord{CGST: 90, SGST: 90, TotalAmount: 1180},
			want: 18,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inv.GSTRate(); got != tt.want {
				t.Errorf("GSTRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffectiveSubtotal(t *testing.T) {
	tests := []struct {
		name string
		inv  InvoiceRecord
		want float64
	}{
		{"explicit subtotal wins", InvoiceRecord{Subtotal: 900, TotalAmount: 1180, CGST: 90, SGST: 90}, 900},
		{"derived from total minus tax", InvoiceRecord{TotalAmount: 1180, CGST: 90, SGST: 90}, 1000},
		{"nothing extracted", InvoiceRecord{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inv.EffectiveSubtotal(); got != tt.want {
				t.Errorf("EffectiveSubtotal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizedVendor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"acme traders", "Acme Traders"},
		{"  ACME   TRADERS  ", "Acme Traders"},
		{"sharma & sons pvt ltd", "Sharma & Sons Pvt Ltd"},
		{"", ""},
	}

	for _, tt := range tests {
		inv := InvoiceRecord{VendorName: tt.in}
		if got := inv.NormalizedVendor(); got != tt.want {
			t.Errorf("NormalizedVendor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassification(t *testing.T) {
	b2b := InvoiceRecord{GSTIN: "27AAPFU0939F1ZV"}
	if got := b2b.Classification(); got != "B2B" {
		t.Errorf("Classification() with GSTIN = %q, want B2B", got)
	}
	b2c := InvoiceRecord{GSTIN: "   "}
	if got := b2c.Classification(); got != "B2C" {
		t.Errorf("Classification() without GSTIN = %q, want B2C", got)
	}
}

func TestIsInterState(t *testing.T) {
	if (&InvoiceRecord{IGST: 50}).IsInterState() != true {
		t.Error("IGST > 0 should be inter-state")
	}
	if (&InvoiceRecord{CGST: 25, SGST: 25}).IsInterState() != false {
		t.Error("CGST/SGST only should be intra-state")
	}
}

func TestClassificationCode(t *testing.T) {
	tests := []struct {
		name string
		inv  InvoiceRecord
		want string
	}{
		{"HSN wins", InvoiceRecord{HSNCode: "8471", SACCode: "9983"}, "8471"},
		{"SAC fallback", InvoiceRecord{SACCode: "9954"}, "9954"},
		{"default", InvoiceRecord{}, DefaultSACCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inv.ClassificationCode(); got != tt.want {
				t.Errorf("ClassificationCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasMultipleItems(t *testing.T) {
	one := InvoiceRecord{LineItems: []LineItem{{ItemName: "a"}}}
	if one.HasMultipleItems() {
		t.Error("single item should not count as multiple")
	}
	two := InvoiceRecord{LineItems: []LineItem{{ItemName: "a"}, {ItemName: "b"}}}
	if !two.HasMultipleItems() {
		t.Error("two items should count as multiple")
	}
}

func TestTotalGST(t *testing.T) {
	inv := InvoiceRecord{CGST: 45, SGST: 45, IGST: 0}
	if got := inv.TotalGST(); got != 90 {
		t.Errorf("TotalGST() = %v, want 90", got)
	}
}
