package matcher

import (
	"fmt"
	"strings"

	"document-reconciliation-service/internal/identifiers"
	"document-reconciliation-service/internal/models"
)

// BuildRow flattens a record for export. no is the 1-based row number.
func BuildRow(r *models.ExtractedRecord, no int) *models.RecordRow {
	ids := identifiers.Extract(r)
	meter := identifiers.Meter(r)

	premise := strings.TrimSpace(r.ServiceAddress)
	if premise == "" {
		premise = strings.TrimSpace(r.BillTo)
	}

	return &models.RecordRow{
		No:                no,
		Company:           r.Company,
		TINNo:             ids.TINNo,
		Type:              r.Category.ShortType(),
		InvoiceNo:         r.DocNo,
		InvoiceDate:       r.DocumentDate(),
		AccountNo:         ids.AccountNo,
		LotNo:             ids.LotNo,
		Location:          identifiers.Location(r),
		LeaseID:           ids.LeaseID,
		UnitNo:            ids.UnitNo,
		PremiseAddress:    premise,
		Description:       identifiers.Description(r),
		TotalAmount:       FormatMoney(r.TotalAmount(), r.Currency),
		ElectricityAmount: FormatMoney(identifiers.ElectricityAmount(r), r.Currency),
		KwhBefore:         meter.BeforeDisplay(),
		KwhAfter:          meter.AfterDisplay(),
		TotalUnits:        meter.UnitsDisplay(),
		Source:            r.Source,
	}
}

// FormatMoney prefixes a verbatim amount with its currency code unless the
// text already carries it. The number itself is never reformatted.
func FormatMoney(value, currency string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return ""
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return text
	}
	upper := strings.ToUpper(text)
	if upper == code || strings.HasPrefix(upper, code+" ") {
		return text
	}
	return code + " " + text
}

// Enrich builds one row per record and attaches match details to both sides
// of every match. Utility electricity and kWh values are copied into the
// candidate row where that row has none.
func Enrich(records []*models.ExtractedRecord, matches []*models.MatchResult) []*models.RecordRow {
	rows := make([]*models.RecordRow, len(records))
	byRecord := make(map[*models.ExtractedRecord]*models.RecordRow, len(records))
	for i, r := range records {
		rows[i] = BuildRow(r, i+1)
		byRecord[r] = rows[i]
	}

	for _, m := range matches {
		left, okLeft := byRecord[m.Left]
		right, okRight := byRecord[m.Right]
		if !okLeft || !okRight {
			continue
		}

		matchedOn := strings.Join(m.Evidence, ", ")

		left.MatchedTo = describe(right)
		left.MatchConfidence = m.Confidence
		left.MatchedOn = matchedOn

		right.MatchedTo = describe(left)
		right.MatchConfidence = m.Confidence
		right.MatchedOn = matchedOn

		copyIfEmpty(&right.ElectricityAmount, left.ElectricityAmount)
		copyIfEmpty(&right.KwhBefore, left.KwhBefore)
		copyIfEmpty(&right.KwhAfter, left.KwhAfter)
		copyIfEmpty(&right.TotalUnits, left.TotalUnits)
	}

	return rows
}

func describe(row *models.RecordRow) string {
	return fmt.Sprintf("%s #%d - %s (%s)", row.Type, row.No, row.InvoiceNo, row.Company)
}

func copyIfEmpty(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}
