package export

import (
	"strings"

	"trulyinvoice/pkg/models"
)

// DefaultPlaceOfSupply applies when neither an explicit place of supply nor
// a recognizable GSTIN state code is available.
const DefaultPlaceOfSupply = "Maharashtra"

// gstStateCodes maps the first two digits of a GSTIN to the state whose GST
// regime applies to the transaction.
var gstStateCodes = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"27": "Maharashtra",
	"29": "Karnataka",
	"30": "Goa",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"36": "Telangana",
	"37": "Andhra Pradesh",
}

// PlaceOfSupply resolves the state for an invoice: the explicit value if
// present, else the state encoded in the GSTIN's first two digits, else
// DefaultPlaceOfSupply.
func PlaceOfSupply(r *models.InvoiceRecord) string {
	if pos := strings.TrimSpace(r.PlaceOfSupply); pos != "" {
		return pos
	}
	gstin := strings.TrimSpace(r.GSTIN)
	if len(gstin) >= 2 {
		if state, ok := gstStateCodes[gstin[:2]]; ok {
			return state
		}
	}
	return DefaultPlaceOfSupply
}
