package reporter

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"document-reconciliation-service/internal/models"
)

// ReconciliationColumns is the export column order for reconciliation items
var ReconciliationColumns = []string{
	"Doc No", "Type", "SOA Amount", "Ledger Amount", "Variance",
	"SOA Date", "Ledger Date", "Date Diff", "Aging Days", "Aging Bucket",
	"Status", "Investigation", "Assigned To", "Last Updated",
}

// RecordColumns is the export column order for enriched record rows
var RecordColumns = []string{
	"No", "Company Name", "TIN No", "Type", "Invoice No", "Invoice Date",
	"Account No", "Lot No", "Location", "Lease ID", "Unit No", "Premise Address",
	"Description", "Total Amount", "Electricity Amount",
	"Kwh Reading Before", "Kwh Reading After", "Total Units",
	"Matched To", "Match Confidence", "Matched On", "Source",
}

// LastUpdatedLayout formats the Last Updated column
const LastUpdatedLayout = "2006-01-02 15:04"

// itemValues renders one item in ReconciliationColumns order. Amounts keep
// their source text.
func itemValues(it *models.ReconciliationItem) []string {
	return []string{
		it.DocNo,
		it.DocType,
		amountText(it.SOAAmount),
		amountText(it.LedgerAmount),
		varianceText(it.Variance),
		it.SOADate,
		it.LedgerDate,
		intText(it.DateDiffDays),
		strconv.Itoa(it.AgingDays),
		string(it.AgingBucket),
		string(it.Status),
		string(it.Investigation),
		it.AssignedTo,
		timeText(it.LastUpdated),
	}
}

func recordValues(r *models.RecordRow) []string {
	return []string{
		strconv.Itoa(r.No),
		r.Company,
		r.TINNo,
		r.Type,
		r.InvoiceNo,
		r.InvoiceDate,
		r.AccountNo,
		r.LotNo,
		r.Location,
		r.LeaseID,
		r.UnitNo,
		r.PremiseAddress,
		r.Description,
		r.TotalAmount,
		r.ElectricityAmount,
		r.KwhBefore,
		r.KwhAfter,
		r.TotalUnits,
		r.MatchedTo,
		string(r.MatchConfidence),
		r.MatchedOn,
		r.Source,
	}
}

func amountText(a *models.Amount) string {
	if a == nil {
		return ""
	}
	return a.Text
}

func varianceText(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.StringFixed(2)
}

func intText(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func timeText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(LastUpdatedLayout)
}

// grouped formats d with thousands separators, rounded to places
func grouped(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if sign == "-" && strings.Trim(b.String()+frac, "0,.") == "" {
		sign = ""
	}
	return sign + b.String() + frac
}

// displayAmount renders a readable amount with grouping, the source text
// when it is unreadable, or "-" when absent
func displayAmount(a *models.Amount, places int32) string {
	switch {
	case a == nil || a.Text == "":
		return "-"
	case !a.Valid:
		return a.Text
	default:
		return grouped(a.Value, places)
	}
}

func displayVariance(v *decimal.Decimal, places int32) string {
	if v == nil {
		return "-"
	}
	return grouped(*v, places)
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

// truncate shortens s to width runes for fixed-width layouts
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
