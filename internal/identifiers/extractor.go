// Package identifiers resolves cross-reference keys from extracted records.
// Every identifier has a fixed chain of sources: the field the extractor
// labelled directly, then named raw fields, then a regex over free text.
// The first source that yields a value wins and a miss is never an error.
package identifiers

import (
	"strings"

	"document-reconciliation-service/internal/models"
)

type source func(r *models.ExtractedRecord) (string, bool)

func direct(get func(ids *models.Identifiers) string) source {
	return func(r *models.ExtractedRecord) (string, bool) {
		v := strings.TrimSpace(get(&r.Identifiers))
		return v, v != ""
	}
}

func rawField(keys ...string) source {
	return func(r *models.ExtractedRecord) (string, bool) {
		v := r.Field(keys...)
		return v, v != ""
	}
}

func scan(texts func(r *models.ExtractedRecord) []string, scrape Scraper) source {
	return func(r *models.ExtractedRecord) (string, bool) {
		for _, t := range texts(r) {
			if v, ok := scrape(t); ok {
				return v, true
			}
		}
		return "", false
	}
}

func billTo(r *models.ExtractedRecord) []string {
	return []string{r.BillTo}
}

func descriptions(r *models.ExtractedRecord) []string {
	out := make([]string, 0, len(r.LineItems))
	for _, item := range r.LineItems {
		out = append(out, item.Description)
	}
	return out
}

var (
	leaseIDChain = []source{
		direct(func(ids *models.Identifiers) string { return ids.LeaseID }),
		rawField("Lease ID", "Lease No", "Lease ID No"),
		scan(descriptions, ScrapeLeaseID),
	}
	lotNoChain = []source{
		direct(func(ids *models.Identifiers) string { return ids.LotNo }),
		rawField("Lot No", "Lot No."),
		scan(billTo, ScrapeLotNo),
	}
	unitNoChain = []source{
		direct(func(ids *models.Identifiers) string { return ids.UnitNo }),
		rawField("Unit No", "Unit No."),
		scan(descriptions, ScrapeUnitNo),
	}
	accountNoChain = []source{
		direct(func(ids *models.Identifiers) string { return ids.AccountNo }),
		rawField("Account No", "Account No.", "No. Akaun", "Payment Account No"),
		scan(billTo, ScrapeAccountNo),
	}
	tinNoChain = []source{
		direct(func(ids *models.Identifiers) string { return ids.TINNo }),
		rawField("TIN No.", "TIN No", "TIN"),
	}
)

func resolve(r *models.ExtractedRecord, chain []source) string {
	for _, src := range chain {
		if v, ok := src(r); ok {
			return v
		}
	}
	return ""
}

// Extract resolves every identifier of r. The record itself is not modified.
func Extract(r *models.ExtractedRecord) models.Identifiers {
	if r == nil {
		return models.Identifiers{}
	}
	return models.Identifiers{
		LeaseID:   resolve(r, leaseIDChain),
		LotNo:     resolve(r, lotNoChain),
		UnitNo:    resolve(r, unitNoChain),
		AccountNo: resolve(r, accountNoChain),
		TINNo:     resolve(r, tinNoChain),
	}
}

// Location returns the first mall, hotel or plaza named in a line item
func Location(r *models.ExtractedRecord) string {
	v, _ := scan(descriptions, ScrapeLocation)(r)
	return v
}

// MeterReadings holds kWh readings gathered across line items
type MeterReadings struct {
	Before     []string
	After      []string
	TotalUnits []string
}

// Display values joined the way report rows show them
func (m MeterReadings) BeforeDisplay() string { return strings.Join(m.Before, " / ") }
func (m MeterReadings) AfterDisplay() string  { return strings.Join(m.After, " / ") }
func (m MeterReadings) UnitsDisplay() string  { return strings.Join(m.TotalUnits, " / ") }

// IsEmpty reports whether no reading was found
func (m MeterReadings) IsEmpty() bool {
	return len(m.Before) == 0 && len(m.After) == 0 && len(m.TotalUnits) == 0
}

// Meter collects before/after ranges, deduplicated in first-seen order, and
// the quantity of every line item whose description mentions "Meter".
func Meter(r *models.ExtractedRecord) MeterReadings {
	var m MeterReadings
	for _, item := range r.LineItems {
		if before, after, ok := ScrapeMeterRange(item.Description); ok {
			m.Before = appendUnique(m.Before, before)
			m.After = appendUnique(m.After, after)
		}
		if qty := strings.TrimSpace(item.Quantity); qty != "" && strings.Contains(item.Description, "Meter") {
			m.TotalUnits = append(m.TotalUnits, qty)
		}
	}
	return m
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// ElectricityAmount is the amount of the first line item describing electricity
func ElectricityAmount(r *models.ExtractedRecord) string {
	for _, item := range r.LineItems {
		amount := strings.TrimSpace(item.Amount)
		if amount != "" && strings.Contains(strings.ToLower(item.Description), "electricity") {
			return amount
		}
	}
	return ""
}

// Description summarizes up to four distinct first lines of the line items
func Description(r *models.ExtractedRecord) string {
	var lines []string
	for _, item := range r.LineItems {
		first := strings.TrimSpace(strings.SplitN(item.Description, "\n", 2)[0])
		if first != "" {
			lines = appendUnique(lines, first)
		}
	}
	if len(lines) > 4 {
		return strings.Join(lines[:4], "; ") + "..."
	}
	return strings.Join(lines, "; ")
}
