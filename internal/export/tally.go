package export

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"trulyinvoice/pkg/models"
)

// Ledger master parents used by the voucher import.
const (
	parentSundryCreditors = "Sundry Creditors"
	parentDutiesAndTaxes  = "Duties & Taxes"
	parentPurchaseAccount = "Purchase Accounts"
)

// ledgerActionCreateOrAlter makes repeated imports idempotent: Tally
// creates missing masters and leaves existing ones intact.
const ledgerActionCreateOrAlter = "Create Or Alter"

type tallyEnvelope struct {
	XMLName xml.Name    `xml:"ENVELOPE"`
	Header  tallyHeader `xml:"HEADER"`
	Body    tallyBody   `xml:"BODY"`
}

type tallyHeader struct {
	TallyRequest string `xml:"TALLYREQUEST"`
}

type tallyBody struct {
	ImportData tallyImportData `xml:"IMPORTDATA"`
}

type tallyImportData struct {
	RequestDesc tallyRequestDesc `xml:"REQUESTDESC"`
	RequestData tallyRequestData `xml:"REQUESTDATA"`
}

type tallyRequestDesc struct {
	ReportName      string               `xml:"REPORTNAME"`
	StaticVariables tallyStaticVariables `xml:"STATICVARIABLES"`
}

type tallyStaticVariables struct {
	FromDate string `xml:"SVFROMDATE"`
	ToDate   string `xml:"SVTODATE"`
}

type tallyRequestData struct {
	Messages []tallyMessage `xml:"TALLYMESSAGE"`
}

type tallyMessage struct {
	UDFNamespace string        `xml:"xmlns:UDF,attr"`
	Ledger       *tallyLedger  `xml:"LEDGER,omitempty"`
	Voucher      *tallyVoucher `xml:"VOUCHER,omitempty"`
}

type tallyLedger struct {
	NameAttr  string `xml:"NAME,attr"`
	Action    string `xml:"ACTION,attr"`
	Name      string `xml:"NAME"`
	Parent    string `xml:"PARENT"`
	GSTIN     string `xml:"PARTYGSTIN,omitempty"`
	StateName string `xml:"LEDSTATENAME,omitempty"`
}

type tallyVoucher struct {
	VoucherType     string             `xml:"VCHTYPE,attr"`
	Action          string             `xml:"ACTION,attr"`
	Date            string             `xml:"DATE"`
	EffectiveDate   string             `xml:"EFFECTIVEDATE"`
	VoucherTypeName string             `xml:"VOUCHERTYPENAME"`
	VoucherNumber   string             `xml:"VOUCHERNUMBER"`
	PartyLedgerName string             `xml:"PARTYLEDGERNAME"`
	PlaceOfSupply   string             `xml:"PLACEOFSUPPLY,omitempty"`
	StateName       string             `xml:"STATENAME,omitempty"`
	Narration       string             `xml:"NARRATION,omitempty"`
	IsInvoice       string             `xml:"ISINVOICE"`
	LedgerEntries   []tallyLedgerEntry `xml:"ALLLEDGERENTRIES.LIST"`
}

type tallyLedgerEntry struct {
	LedgerName       string `xml:"LEDGERNAME"`
	IsDeemedPositive string `xml:"ISDEEMEDPOSITIVE"`
	Amount           string `xml:"AMOUNT"`
}

// ledgerRef is a ledger name plus the master metadata needed to auto-create
// it ahead of the vouchers that reference it.
type ledgerRef struct {
	name   string
	parent string
	gstin  string
	state  string
}

// BuildTallyXML produces a Tally voucher-import document: ledger masters
// with "Create Or Alter" semantics followed by one Purchase Voucher per
// invoice. Callers must run Tally validation first; the builder assumes
// invoice number, vendor, date and positive total are present.
func BuildTallyXML(invoices []models.InvoiceRecord) (string, *Summary, error) {
	fromDate, toDate := financialYearWindow(invoices)

	var masters []ledgerRef
	seen := map[string]bool{}
	addMaster := func(ref ledgerRef) {
		if ref.name == "" || seen[ref.name] {
			return
		}
		seen[ref.name] = true
		masters = append(masters, ref)
	}

	summary := &Summary{Invoices: len(invoices)}
	var vouchers []tallyVoucher

	for i := range invoices {
		inv := &invoices[i]
		party := inv.NormalizedVendor()
		place := PlaceOfSupply(inv)

		addMaster(ledgerRef{name: party, parent: parentSundryCreditors, gstin: inv.GSTIN, state: place})

		entries, refs := voucherEntries(inv, party)
		for _, ref := range refs {
			addMaster(ref)
		}

		date := inv.InvoiceDate.Format("20060102")
		vouchers = append(vouchers, tallyVoucher{
			VoucherType:     "Purchase",
			Action:          "Create",
			Date:            date,
			EffectiveDate:   date,
			VoucherTypeName: "Purchase",
			VoucherNumber:   inv.InvoiceNumber,
			PartyLedgerName: party,
			PlaceOfSupply:   place,
			StateName:       place,
			Narration:       voucherNarration(inv),
			IsInvoice:       "Yes",
			LedgerEntries:   entries,
		})
	}

	messages := make([]tallyMessage, 0, len(masters)+len(vouchers))
	for i := range masters {
		m := masters[i]
		messages = append(messages, tallyMessage{
			UDFNamespace: "TallyUDF",
			Ledger: &tallyLedger{
				NameAttr:  m.name,
				Action:    ledgerActionCreateOrAlter,
				Name:      m.name,
				Parent:    m.parent,
				GSTIN:     m.gstin,
				StateName: m.state,
			},
		})
		switch m.parent {
		case parentSundryCreditors:
			summary.PartyLedgers++
		case parentDutiesAndTaxes:
			summary.GSTLedgers++
		case parentPurchaseAccount:
			summary.ExpenseLedgers++
		}
	}
	for i := range vouchers {
		messages = append(messages, tallyMessage{UDFNamespace: "TallyUDF", Voucher: &vouchers[i]})
		summary.Vouchers++
	}

	envelope := tallyEnvelope{
		Header: tallyHeader{TallyRequest: "Import Data"},
		Body: tallyBody{
			ImportData: tallyImportData{
				RequestDesc: tallyRequestDesc{
					ReportName: "Vouchers",
					StaticVariables: tallyStaticVariables{
						FromDate: fromDate.Format("20060102"),
						ToDate:   toDate.Format("20060102"),
					},
				},
				RequestData: tallyRequestData{Messages: messages},
			},
		},
	}

	output, err := xml.MarshalIndent(envelope, "", " ")
	if err != nil {
		return "", nil, fmt.Errorf("marshal Tally envelope: %w", err)
	}
	return xml.Header + string(output), summary, nil
}

// financialYearWindow computes the declared Tally period: April 1 of the
// year before the earliest invoice through March 31 two years after the
// latest, so every voucher date falls inside the window no matter how the
// batch straddles real fiscal years.
func financialYearWindow(invoices []models.InvoiceRecord) (time.Time, time.Time) {
	var earliest, latest time.Time
	for i := range invoices {
		d := invoices[i].InvoiceDate
		if d == nil {
			continue
		}
		if earliest.IsZero() || d.Before(earliest) {
			earliest = *d
		}
		if latest.IsZero() || d.After(latest) {
			latest = *d
		}
	}
	if earliest.IsZero() {
		earliest = time.Now()
		latest = earliest
	}
	from := time.Date(earliest.Year()-1, time.April, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(latest.Year()+2, time.March, 31, 0, 0, 0, 0, time.UTC)
	return from, to
}

// voucherEntries builds the balanced ledger entry list for one invoice:
// party amount positive, expense and tax amounts negative, netting to zero.
func voucherEntries(inv *models.InvoiceRecord, party string) ([]tallyLedgerEntry, []ledgerRef) {
	gst := inv.TotalGST()
	rate := inv.GSTRate()
	expenseTotal := inv.TotalAmount - gst

	entries := []tallyLedgerEntry{{
		LedgerName:       party,
		IsDeemedPositive: "No",
		Amount:           formatAmount(inv.TotalAmount),
	}}
	var refs []ledgerRef

	addNegative := func(name, parent string, amount float64) {
		entries = append(entries, tallyLedgerEntry{
			LedgerName:       name,
			IsDeemedPositive: "Yes",
			Amount:           formatAmount(-amount),
		})
		refs = append(refs, ledgerRef{name: name, parent: parent})
	}

	if !inv.HasMultipleItems() {
		addNegative(expenseLedgerName(rate), parentPurchaseAccount, expenseTotal)
		appendTaxEntries(inv, rate, "", inv.CGST, inv.SGST, inv.IGST, addNegative)
		return entries, refs
	}

	itemsTotal := 0.0
	for _, item := range inv.LineItems {
		itemsTotal += item.Amount
	}
	if itemsTotal <= 0 {
		itemsTotal = expenseTotal
	}

	// Proportional split per item amount; the last item absorbs rounding
	// drift so the voucher stays balanced.
	var usedExpense, usedCGST, usedSGST, usedIGST float64
	for i, item := range inv.LineItems {
		last := i == len(inv.LineItems)-1
		share := item.Amount / itemsTotal

		itemExpense := round2(expenseTotal * share)
		itemCGST := round2(inv.CGST * share)
		itemSGST := round2(inv.SGST * share)
		itemIGST := round2(inv.IGST * share)
		if last {
			itemExpense = round2(expenseTotal - usedExpense)
			itemCGST = round2(inv.CGST - usedCGST)
			itemSGST = round2(inv.SGST - usedSGST)
			itemIGST = round2(inv.IGST - usedIGST)
		}
		usedExpense += itemExpense
		usedCGST += itemCGST
		usedSGST += itemSGST
		usedIGST += itemIGST

		addNegative(expenseLedgerName(rate), parentPurchaseAccount, itemExpense)
		appendTaxEntries(inv, rate, item.ItemName, itemCGST, itemSGST, itemIGST, addNegative)
	}
	return entries, refs
}

// appendTaxEntries emits the GST legs for one row. For multi-item invoices
// the ledger names carry the item name as a suffix, so each distinct item
// description yields its own tax ledger pair.
func appendTaxEntries(inv *models.InvoiceRecord, rate float64, itemSuffix string, cgst, sgst, igst float64, addNegative func(name, parent string, amount float64)) {
	suffix := ""
	if itemSuffix != "" {
		suffix = " - " + itemSuffix
	}
	if inv.IsInterState() {
		if igst > 0 {
			addNegative(fmt.Sprintf("IGST Input @ %s%%%s", formatRate(rate), suffix), parentDutiesAndTaxes, igst)
		}
		return
	}
	if cgst > 0 {
		addNegative(fmt.Sprintf("CGST Input @ %s%%%s", formatRate(rate/2), suffix), parentDutiesAndTaxes, cgst)
	}
	if sgst > 0 {
		addNegative(fmt.Sprintf("SGST Input @ %s%%%s", formatRate(rate/2), suffix), parentDutiesAndTaxes, sgst)
	}
}

// expenseLedgerName names the purchase expense ledger for a GST rate; a
// zero rate maps to the dedicated Non-GST ledger.
func expenseLedgerName(rate float64) string {
	if rate == 0 {
		return "Purchase - Non-GST"
	}
	return fmt.Sprintf("Purchase @ %s%%", formatRate(rate))
}

func voucherNarration(inv *models.InvoiceRecord) string {
	narration := fmt.Sprintf("Purchase from %s, Invoice %s", inv.NormalizedVendor(), inv.InvoiceNumber)
	if inv.IsB2B() {
		narration += fmt.Sprintf(", GSTIN %s", inv.GSTIN)
	}
	return narration
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
