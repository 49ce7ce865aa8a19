package parsers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"document-reconciliation-service/internal/labels"
	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

// Keys read from extraction output. Each list is tried in order.
var (
	docNoKeys    = []string{"doc_no", "invoice_number", "invoice_no", "document_number", "statement_number", "folio_number", "bill_number"}
	labelKeys    = []string{"category", "document_type", "doc_type", "label"}
	companyKeys  = []string{"company", "vendor_name", "vendor", "supplier", "bank_name"}
	billToKeys   = []string{"bill_to", "customer_name", "account_holder"}
	serviceKeys  = []string{"service_address", "premise_address", "customer_address"}
	bodyTextKeys = []string{"body_text", "text", "ocr_text", "raw_text"}

	amountKeys = []string{
		"grand_total", "total_amount", "subtotal", "tax_total", "current_charges",
		"previous_balance", "total_outstanding", "closing_balance", "opening_balance",
	}
	dateKeys = []string{
		"invoice_date", "document_date", "statement_date", "due_date",
		"billing_period_from", "billing_period_to", "check_in_date", "check_out_date",
	}

	// top-level fields kept as raw fields under their display label
	rawFieldKeys = map[string]string{
		"property_name":  "Property Name",
		"trade_name":     "Trade Name",
		"tenancy_period": "Tenancy Period",
		"po_number":      "PO Number",
		"payment_terms":  "Payment Terms",
		"room_number":    "Room No",
	}
)

// RecordParser decodes upstream extraction output into ExtractedRecords
type RecordParser struct {
	*BaseParser
	normalizer *labels.Normalizer
}

// NewRecordParser creates a record parser. A nil normalizer means the
// package default.
func NewRecordParser(normalizer *labels.Normalizer) *RecordParser {
	if normalizer == nil {
		normalizer = labels.Default()
	}
	return &RecordParser{
		BaseParser: NewBaseParser(nil, "record_parser"),
		normalizer: normalizer,
	}
}

// ParseFile reads a JSON file holding one record or an array of records
func (rp *RecordParser) ParseFile(ctx context.Context, path string) ([]*models.ExtractedRecord, *ParseStats, error) {
	data, err := rp.ReadFile(path)
	if err != nil {
		return nil, NewParseStats(path), err
	}
	return rp.ParseJSON(ctx, path, data)
}

// ParseJSON decodes records from data. name identifies the source in stats,
// logs and the records' Source field.
func (rp *RecordParser) ParseJSON(ctx context.Context, name string, data []byte) ([]*models.ExtractedRecord, *ParseStats, error) {
	stats := NewParseStats(name)

	raw, err := decodeJSON(data)
	if err != nil {
		return nil, stats, errors.ParseError(errors.CodeInvalidJSON, name, 0, "", err)
	}

	var objects []map[string]interface{}
	switch v := raw.(type) {
	case []interface{}:
		objects = objectsOf(v)
	case map[string]interface{}:
		if list, ok := v["records"].([]interface{}); ok {
			objects = objectsOf(list)
		} else {
			objects = []map[string]interface{}{v}
		}
	default:
		return nil, stats, errors.ParseError(errors.CodeInvalidJSON, name, 0, "", fmt.Errorf("expected object or array, got %T", raw))
	}

	var records []*models.ExtractedRecord
	for i, obj := range objects {
		if ctx != nil && ctx.Err() != nil {
			return records, stats, errors.InternalError(errors.CodeUnexpectedError, "parsing "+name, ctx.Err())
		}
		stats.RecordsParsed++

		r := rp.DecodeRecord(obj)
		if r.DocNo == "" {
			stats.Skip(errors.ValidationError(errors.CodeMissingDocNo, "doc_no", fmt.Sprintf("%s#%d", name, i+1), nil))
			rp.logger.WithFields(logger.Fields{
				"file":     name,
				"index":    i + 1,
				"category": r.Category,
				"company":  r.Company,
			}).Warn("Skipping record without doc_no")
			continue
		}

		r.Source = name
		records = append(records, r)
		stats.RecordsValid++
	}

	stats.TotalLines = len(objects)
	rp.logger.WithFields(logger.Fields{
		"file":    name,
		"records": len(records),
		"skipped": stats.SkippedCount(),
	}).Debug("Parsed record file")

	return records, stats, nil
}

// DecodeRecord maps one decoded JSON object to a record. It accepts both
// the service's own record shape and the raw extractor output, where
// identifiers and other labelled values sit in additional_fields.
func (rp *RecordParser) DecodeRecord(obj map[string]interface{}) *models.ExtractedRecord {
	top := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		top[NormalizeKey(k)] = v
	}
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := stringValue(top[k]); v != "" {
				return v
			}
		}
		return ""
	}

	r := &models.ExtractedRecord{
		DocNo:          get(docNoKeys...),
		RawLabel:       get(labelKeys...),
		Company:        get(companyKeys...),
		Currency:       get("currency"),
		BillTo:         get(billToKeys...),
		ServiceAddress: get(serviceKeys...),
		BodyText:       get(bodyTextKeys...),
		Amounts:        stringMap(top["amounts"]),
		Dates:          stringMap(top["dates"]),
		RawFields:      stringMap(top["raw_fields"]),
		LineItems:      lineItems(top["line_items"]),
	}

	for k, v := range stringMap(top["additional_fields"]) {
		if _, exists := r.RawFields[k]; !exists {
			r.RawFields[k] = v
		}
	}
	for key, label := range rawFieldKeys {
		if v := get(key); v != "" {
			if _, exists := r.RawFields[label]; !exists {
				r.RawFields[label] = v
			}
		}
	}
	if payment, ok := top["payment_info"].(map[string]interface{}); ok {
		if acct := stringValue(payment["account_number"]); acct != "" {
			r.RawFields["Payment Account No"] = acct
		}
	}

	for _, k := range amountKeys {
		if v := get(k); v != "" {
			if _, exists := r.Amounts[k]; !exists {
				r.Amounts[k] = v
			}
		}
	}
	for _, k := range dateKeys {
		if v := get(k); v != "" {
			if _, exists := r.Dates[k]; !exists {
				r.Dates[k] = v
			}
		}
	}

	r.Identifiers = identifiersOf(top)

	// the body text only decides when the label alone is unknown
	r.Category = rp.normalizer.Classify(r.RawLabel, rp.classificationText(r))

	return r
}

func (rp *RecordParser) classificationText(r *models.ExtractedRecord) string {
	if r.BodyText != "" {
		return r.BodyText
	}
	parts := make([]string, 0, len(r.LineItems)+len(r.RawFields))
	for _, item := range r.LineItems {
		parts = append(parts, item.Description)
	}
	keys := make([]string, 0, len(r.RawFields))
	for k := range r.RawFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+" "+r.RawFields[k])
	}
	return strings.Join(parts, "\n")
}

func identifiersOf(top map[string]interface{}) models.Identifiers {
	ids := models.Identifiers{}
	if nested, ok := top["identifiers"].(map[string]interface{}); ok {
		m := make(map[string]string, len(nested))
		for k, v := range nested {
			m[NormalizeKey(k)] = stringValue(v)
		}
		ids.LeaseID = m["lease_id"]
		ids.LotNo = m["lot_no"]
		ids.UnitNo = m["unit_no"]
		ids.AccountNo = m["account_no"]
		ids.TINNo = m["tin_no"]
	}

	fill := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := stringValue(top[k]); v != "" {
				*dst = v
				return
			}
		}
	}
	fill(&ids.LeaseID, "lease_id")
	fill(&ids.LotNo, "lot_no")
	fill(&ids.UnitNo, "unit_no", "unit_number")
	fill(&ids.AccountNo, "account_no", "account_number", "customer_account")
	fill(&ids.TINNo, "tin_no")
	return ids
}

func stringMap(v interface{}) map[string]string {
	out := map[string]string{}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return out
	}
	for k, val := range obj {
		if s := stringValue(val); s != "" {
			out[strings.TrimSpace(k)] = s
		}
	}
	return out
}

func lineItems(v interface{}) []models.LineItem {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	items := make([]models.LineItem, 0, len(list))
	for _, obj := range objectsOf(list) {
		desc := stringValue(obj["description"])
		if desc == "" {
			desc = stringValue(obj["product_description"])
		}
		items = append(items, models.LineItem{
			Description: desc,
			Quantity:    stringValue(obj["quantity"]),
			Amount:      stringValue(obj["amount"]),
		})
	}
	return items
}
