package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CanonicalLabel is one of the fixed document-category tags
type CanonicalLabel string

const (
	LabelCommercialInvoice CanonicalLabel = "commercial_invoice"
	LabelTravel            CanonicalLabel = "travel"
	LabelRental            CanonicalLabel = "rental"
	LabelHotel             CanonicalLabel = "hotel"
	LabelUtility           CanonicalLabel = "utility"
	LabelSOA               CanonicalLabel = "soa"
	LabelBankStatement     CanonicalLabel = "bank_statement"
	LabelCreditNote        CanonicalLabel = "credit_note"
	LabelUnknown           CanonicalLabel = "unknown"
)

// CanonicalLabels lists every label in declaration order
var CanonicalLabels = []CanonicalLabel{
	LabelCommercialInvoice,
	LabelTravel,
	LabelRental,
	LabelHotel,
	LabelUtility,
	LabelSOA,
	LabelBankStatement,
	LabelCreditNote,
	LabelUnknown,
}

// String returns the string representation of CanonicalLabel
func (l CanonicalLabel) String() string {
	return string(l)
}

// IsValid checks if the label is one of the canonical labels
func (l CanonicalLabel) IsValid() bool {
	for _, c := range CanonicalLabels {
		if l == c {
			return true
		}
	}
	return false
}

// ShortType is the compact document type shown in report rows
func (l CanonicalLabel) ShortType() string {
	switch l {
	case LabelCreditNote:
		return "CN"
	case LabelUtility:
		return "Utility"
	case LabelRental:
		return "Rental"
	case LabelSOA:
		return "SOA"
	case LabelHotel:
		return "Hotel"
	case LabelTravel:
		return "Travel"
	default:
		return "Inv"
	}
}

// Identifiers are the cross-reference keys of a record. Empty means absent.
type Identifiers struct {
	LeaseID   string `json:"lease_id,omitempty"`
	LotNo     string `json:"lot_no,omitempty"`
	UnitNo    string `json:"unit_no,omitempty"`
	AccountNo string `json:"account_no,omitempty"`
	TINNo     string `json:"tin_no,omitempty"`
}

// LineItem is one billed line of an extracted document
type LineItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity,omitempty"`
	Amount      string `json:"amount,omitempty"`
}

// ExtractedRecord is one document's fields as produced by the upstream extractor.
// Records are treated as immutable; derived values live in new structs.
type ExtractedRecord struct {
	DocNo          string            `json:"doc_no"`
	Category       CanonicalLabel    `json:"category"`
	RawLabel       string            `json:"raw_label,omitempty"`
	Company        string            `json:"company,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	BillTo         string            `json:"bill_to,omitempty"`
	ServiceAddress string            `json:"service_address,omitempty"`
	Amounts        map[string]string `json:"amounts,omitempty"`
	Dates          map[string]string `json:"dates,omitempty"`
	Identifiers    Identifiers       `json:"identifiers"`
	RawFields      map[string]string `json:"raw_fields,omitempty"`
	LineItems      []LineItem        `json:"line_items,omitempty"`
	BodyText       string            `json:"-"`
	Source         string            `json:"source,omitempty"`
}

// Field returns the first non-empty RawFields entry among keys
func (r *ExtractedRecord) Field(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r.RawFields[k]); v != "" {
			return v
		}
	}
	return ""
}

// TotalAmount returns the verbatim grand total, falling back to total_amount
func (r *ExtractedRecord) TotalAmount() string {
	if v := strings.TrimSpace(r.Amounts["grand_total"]); v != "" {
		return v
	}
	return strings.TrimSpace(r.Amounts["total_amount"])
}

// DocumentDate returns the first populated document date for display
func (r *ExtractedRecord) DocumentDate() string {
	for _, k := range []string{"invoice_date", "document_date", "statement_date"} {
		if v := strings.TrimSpace(r.Dates[k]); v != "" {
			return v
		}
	}
	return r.Field("Invoice Date")
}

// String returns a string representation of the record
func (r *ExtractedRecord) String() string {
	return fmt.Sprintf("Record{DocNo: %s, Category: %s, Company: %s}", r.DocNo, r.Category, r.Company)
}

// ConfidenceTier buckets a match score for display
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "High"
	ConfidenceMedium ConfidenceTier = "Medium"
	ConfidenceLow    ConfidenceTier = "Low"
)

// TierForScore returns High for 6 and above, Medium for 4 and 5, Low otherwise
func TierForScore(score int) ConfidenceTier {
	switch {
	case score >= 6:
		return ConfidenceHigh
	case score >= 4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MatchResult pairs a utility record with the candidate it belongs to
type MatchResult struct {
	LeftID     string         `json:"left_id"`
	RightID    string         `json:"right_id"`
	Score      int            `json:"score"`
	Confidence ConfidenceTier `json:"confidence_tier"`
	MatchedOn  []string       `json:"matched_on"`
	Evidence   []string       `json:"evidence,omitempty"`

	Left  *ExtractedRecord `json:"-"`
	Right *ExtractedRecord `json:"-"`
}

// RecordRow is an extracted record flattened for export, with match details attached
type RecordRow struct {
	No                int            `json:"no"`
	Company           string         `json:"company_name"`
	TINNo             string         `json:"tin_no"`
	Type              string         `json:"type"`
	InvoiceNo         string         `json:"invoice_no"`
	InvoiceDate       string         `json:"invoice_date"`
	AccountNo         string         `json:"account_no"`
	LotNo             string         `json:"lot_no"`
	Location          string         `json:"location"`
	LeaseID           string         `json:"lease_id"`
	UnitNo            string         `json:"unit_no"`
	PremiseAddress    string         `json:"premise_address"`
	Description       string         `json:"description"`
	TotalAmount       string         `json:"total_amount"`
	ElectricityAmount string         `json:"electricity_amount"`
	KwhBefore         string         `json:"kwh_reading_before"`
	KwhAfter          string         `json:"kwh_reading_after"`
	TotalUnits        string         `json:"total_units"`
	MatchedTo         string         `json:"matched_to,omitempty"`
	MatchConfidence   ConfidenceTier `json:"match_confidence,omitempty"`
	MatchedOn         string         `json:"matched_on,omitempty"`
	Source            string         `json:"source,omitempty"`
}

// StatementEntry is one line of a supplier statement or a ledger export
type StatementEntry struct {
	DocNo   string `json:"doc_no" csv:"doc_no"`
	DocType string `json:"doc_type" csv:"doc_type"`
	Date    string `json:"date" csv:"date"`
	Amount  string `json:"amount" csv:"amount"`
}

// ReconciliationStatus is the computed pairing outcome of a document number
type ReconciliationStatus string

const (
	StatusMatch           ReconciliationStatus = "Match"
	StatusAmountMismatch  ReconciliationStatus = "Amount Mismatch"
	StatusMissingInLedger ReconciliationStatus = "Missing in Ledger"
	StatusMissingInSOA    ReconciliationStatus = "Missing in SOA"
)

// AllStatuses lists statuses in report order
var AllStatuses = []ReconciliationStatus{
	StatusMatch,
	StatusAmountMismatch,
	StatusMissingInLedger,
	StatusMissingInSOA,
}

// InvestigationState is the reviewer workflow state of an item
type InvestigationState string

const (
	InvestigationUnderInvestigation InvestigationState = "Under Investigation"
	InvestigationResolved           InvestigationState = "Resolved"
	InvestigationApproved           InvestigationState = "Approved"
)

// ParseInvestigationState accepts the display form or a snake/kebab-case form
func ParseInvestigationState(s string) (InvestigationState, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	switch key {
	case "under investigation", "investigating":
		return InvestigationUnderInvestigation, nil
	case "resolved":
		return InvestigationResolved, nil
	case "approved":
		return InvestigationApproved, nil
	default:
		return "", fmt.Errorf("invalid investigation state '%s': must be Under Investigation, Resolved or Approved", s)
	}
}

// AgingBucket is one of the four fixed day-count ranges
type AgingBucket string

const (
	Bucket0To30  AgingBucket = "0–30"
	Bucket31To60 AgingBucket = "31–60"
	Bucket61To90 AgingBucket = "61–90"
	BucketOver90 AgingBucket = "90+"
)

// AgingBuckets lists buckets in ascending order
var AgingBuckets = []AgingBucket{Bucket0To30, Bucket31To60, Bucket61To90, BucketOver90}

// BucketForDays places a day count in its bucket. Bounds are inclusive: 30 is
// in 0–30 and 31 starts 31–60. Negative ages (future-dated) fall in 0–30.
func BucketForDays(days int) AgingBucket {
	switch {
	case days <= 30:
		return Bucket0To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// ReconciliationItem is the outcome for one document number across SOA and ledger
type ReconciliationItem struct {
	DocNo         string               `json:"doc_no"`
	DocType       string               `json:"doc_type"`
	SOAAmount     *Amount              `json:"soa_amount"`
	LedgerAmount  *Amount              `json:"ledger_amount"`
	Variance      *decimal.Decimal     `json:"variance"`
	SOADate       string               `json:"soa_date,omitempty"`
	LedgerDate    string               `json:"ledger_date,omitempty"`
	DateDiffDays  *int                 `json:"date_diff_days"`
	AgingDays     int                  `json:"aging_days"`
	AgingBucket   AgingBucket          `json:"aging_bucket"`
	Status        ReconciliationStatus `json:"status"`
	Investigation InvestigationState   `json:"investigation"`
	AssignedTo    string               `json:"assigned_to"`
	LastUpdated   time.Time            `json:"last_updated"`
}

// IsException reports whether the item needs reviewer attention
func (i *ReconciliationItem) IsException() bool {
	return i.Status != StatusMatch
}

// ReviewState is reviewer-owned state for one document number
type ReviewState struct {
	DocNo         string             `json:"doc_no"`
	Investigation InvestigationState `json:"investigation,omitempty"`
	AssignedTo    string             `json:"assigned_to,omitempty"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// DisplayDateLayout is the day-month-year form used for report dates
const DisplayDateLayout = "02-Jan-2006"

var dateLayouts = []string{
	DisplayDateLayout,
	"2-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-January-2006",
}

// ParseDate reads a display date in any of the source formats seen on
// statements. Day-first is assumed for slash dates.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysBetween returns whole calendar days from a to b, ignoring time of day
func DaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}
