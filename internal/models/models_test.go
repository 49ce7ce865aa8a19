package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCanonicalLabel_IsValid(t *testing.T) {
	for _, l := range CanonicalLabels {
		if !l.IsValid() {
			t.Errorf("expected %s to be valid", l)
		}
	}
	for _, l := range []CanonicalLabel{"", "invoice", "Utility"} {
		if l.IsValid() {
			t.Errorf("expected %q to be invalid", l)
		}
	}
}

func TestCanonicalLabel_ShortType(t *testing.T) {
	tests := []struct {
		label    CanonicalLabel
		expected string
	}{
		{LabelCreditNote, "CN"},
		{LabelUtility, "Utility"},
		{LabelRental, "Rental"},
		{LabelSOA, "SOA"},
		{LabelHotel, "Hotel"},
		{LabelTravel, "Travel"},
		{LabelCommercialInvoice, "Inv"},
		{LabelBankStatement, "Inv"},
		{LabelUnknown, "Inv"},
	}

	for _, tt := range tests {
		t.Run(string(tt.label), func(t *testing.T) {
			if got := tt.label.ShortType(); got != tt.expected {
				t.Errorf("ShortType() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTierForScore(t *testing.T) {
	tests := []struct {
		score    int
		expected ConfidenceTier
	}{
		{2, ConfidenceLow},
		{3, ConfidenceLow},
		{4, ConfidenceMedium},
		{5, ConfidenceMedium},
		{6, ConfidenceHigh},
		{12, ConfidenceHigh},
	}

	for _, tt := range tests {
		if got := TierForScore(tt.score); got != tt.expected {
			t.Errorf("TierForScore(%d) = %v, want %v", tt.score, got, tt.expected)
		}
	}
}

func TestBucketForDays(t *testing.T) {
	tests := []struct {
		days     int
		expected AgingBucket
	}{
		{-3, Bucket0To30},
		{0, Bucket0To30},
		{30, Bucket0To30},
		{31, Bucket31To60},
		{60, Bucket31To60},
		{61, Bucket61To90},
		{90, Bucket61To90},
		{91, BucketOver90},
		{400, BucketOver90},
	}

	for _, tt := range tests {
		if got := BucketForDays(tt.days); got != tt.expected {
			t.Errorf("BucketForDays(%d) = %v, want %v", tt.days, got, tt.expected)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		text  string
		valid bool
		value string
	}{
		{"8500", true, "8500"},
		{"8,500.00", true, "8500"},
		{"RM 1,200.50", true, "1200.5"},
		{"1,200 MYR", true, "1200"},
		{"-2000", true, "-2000"},
		{"(1,000.00)", true, "-1000"},
		{"$ 99.99", true, "99.99"},
		{"", false, ""},
		{"n/a", false, ""},
		{"12.3.4", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			a := ParseAmount(tt.text)
			if a.Valid != tt.valid {
				t.Fatalf("ParseAmount(%q).Valid = %v, want %v", tt.text, a.Valid, tt.valid)
			}
			if a.Text != tt.text {
				t.Errorf("expected verbatim text %q, got %q", tt.text, a.Text)
			}
			if tt.valid && !a.Value.Equal(decimal.RequireFromString(tt.value)) {
				t.Errorf("expected value %s, got %s", tt.value, a.Value)
			}
		})
	}
}

func TestAmountJSON(t *testing.T) {
	var a Amount
	if err := json.Unmarshal([]byte(`8500`), &a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Valid || a.Text != "8500" {
		t.Errorf("expected valid 8500, got %+v", a)
	}

	if err := json.Unmarshal([]byte(`"8,500.00"`), &a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `"8,500.00"` {
		t.Errorf("expected verbatim text in JSON, got %s", out)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2026, time.February, 24, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"24-Feb-2026", "2026-02-24", "24/02/2026", "24 Feb 2026", "Feb 24, 2026"} {
		got, ok := ParseDate(s)
		if !ok {
			t.Errorf("ParseDate(%q) failed", s)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", s, got, want)
		}
	}

	if _, ok := ParseDate("sometime"); ok {
		t.Error("expected unparseable date to fail")
	}
	if _, ok := ParseDate(""); ok {
		t.Error("expected empty date to fail")
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, time.January, 25, 18, 0, 0, 0, time.UTC)
	b := time.Date(2026, time.February, 24, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 30 {
		t.Errorf("DaysBetween = %d, want 30", got)
	}
	if got := DaysBetween(b, a); got != -30 {
		t.Errorf("DaysBetween reversed = %d, want -30", got)
	}
}

func TestParseInvestigationState(t *testing.T) {
	tests := []struct {
		in       string
		expected InvestigationState
		wantErr  bool
	}{
		{"Under Investigation", InvestigationUnderInvestigation, false},
		{"under_investigation", InvestigationUnderInvestigation, false},
		{"resolved", InvestigationResolved, false},
		{"APPROVED", InvestigationApproved, false},
		{"closed", "", true},
	}

	for _, tt := range tests {
		got, err := ParseInvestigationState(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseInvestigationState(%q) error = %v", tt.in, err)
		}
		if got != tt.expected {
			t.Errorf("ParseInvestigationState(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}

func TestExtractedRecordHelpers(t *testing.T) {
	r := &ExtractedRecord{
		Amounts:   map[string]string{"total_amount": "1,000.00"},
		Dates:     map[string]string{"document_date": "01-Feb-2026"},
		RawFields: map[string]string{"TIN No": "C123", "TIN No.": " "},
	}

	if got := r.Field("TIN No.", "TIN No"); got != "C123" {
		t.Errorf("Field() = %q, want C123", got)
	}
	if got := r.TotalAmount(); got != "1,000.00" {
		t.Errorf("TotalAmount() = %q", got)
	}
	if got := r.DocumentDate(); got != "01-Feb-2026" {
		t.Errorf("DocumentDate() = %q", got)
	}
}
