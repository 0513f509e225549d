package extract

import "testing"

func TestFindInvoiceNumber(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"TAX INVOICE\nInvoice No: INV-2024/001\nDate: 15/01/2024", "INV-2024/001"},
		{"Invoice Number INV-42", "INV-42"},
		{"Invoice #: 1001", "1001"},
		{"Bill No. B-77/A", "B-77/A"},
		{"no identifiers here", ""},
	}
	for _, tt := range tests {
		if got := findInvoiceNumber(tt.text); got != tt.want {
			t.Errorf("findInvoiceNumber(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
