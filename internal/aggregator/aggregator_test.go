package aggregator

import (
	"math"
	"testing"

	"document-reconciliation-service/internal/matcher"
	"document-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func amt(s string) *models.Amount {
	a := models.ParseAmount(s)
	return &a
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func item(docNo string, status models.ReconciliationStatus, soa, ledger *models.Amount, variance *decimal.Decimal, aging int) *models.ReconciliationItem {
	return &models.ReconciliationItem{
		DocNo:        docNo,
		SOAAmount:    soa,
		LedgerAmount: ledger,
		Variance:     variance,
		AgingDays:    aging,
		AgingBucket:  models.BucketForDays(aging),
		Status:       status,
	}
}

func sampleItems() []*models.ReconciliationItem {
	return []*models.ReconciliationItem{
		item("INV-5001", models.StatusMatch, amt("42,800"), amt("42,800"), dec("0"), 95),
		item("INV-5002", models.StatusMatch, amt("18,350"), amt("18,350"), dec("0"), 75),
		item("INV-5003", models.StatusAmountMismatch, amt("6,900"), amt("6,500"), dec("400"), 55),
		item("CN-5001", models.StatusAmountMismatch, amt("-3,200"), amt("-3,000"), dec("-200"), 20),
		item("INV-5004", models.StatusMissingInLedger, amt("31,500"), nil, nil, 40),
		item("DN-5001", models.StatusMissingInSOA, nil, amt("1,200"), nil, 10),
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleItems())

	tests := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"soa_total", s.SOATotal, "96350"},
		{"ledger_total", s.LedgerTotal, "65850"},
		{"net_variance", s.NetVariance, "30500"},
		{"mismatch_amount", s.MismatchAmount, "600"},
		{"overdue_variance", s.OverdueVariance, "400"},
	}
	for _, tt := range tests {
		if !tt.got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%s = %s, want %s", tt.name, tt.got, tt.want)
		}
	}

	if math.Abs(s.MatchRate-100.0/3.0) > 1e-9 {
		t.Errorf("expected match rate 33.3, got %f", s.MatchRate)
	}
	if s.TotalItems != 6 || s.Exceptions != 4 || s.Matched() != 2 || s.Missing() != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.StatusCounts[models.StatusAmountMismatch] != 2 {
		t.Errorf("expected 2 mismatches, got %d", s.StatusCounts[models.StatusAmountMismatch])
	}
}

func TestSummarize_HistogramExcludesMatches(t *testing.T) {
	s := Summarize(sampleItems())

	want := map[models.AgingBucket]int{
		models.Bucket0To30:  2,
		models.Bucket31To60: 2,
		models.Bucket61To90: 0,
		models.BucketOver90: 0,
	}
	for bucket, count := range want {
		if s.AgingHistogram[bucket] != count {
			t.Errorf("bucket %s: expected %d, got %d", bucket, count, s.AgingHistogram[bucket])
		}
	}

	buckets := s.Buckets()
	if len(buckets) != 4 || buckets[0].Bucket != models.Bucket0To30 || buckets[3].Bucket != models.BucketOver90 {
		t.Errorf("unexpected bucket order %+v", buckets)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.MatchRate != 0 || s.TotalItems != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
	if !s.SOATotal.IsZero() || !s.NetVariance.IsZero() {
		t.Error("expected zero totals")
	}
	if len(s.AgingHistogram) != len(models.AgingBuckets) {
		t.Errorf("expected every bucket present, got %v", s.AgingHistogram)
	}
}

func TestSummarize_UnreadableAmountsAreAbsent(t *testing.T) {
	items := []*models.ReconciliationItem{
		item("A", models.StatusAmountMismatch, amt("n/a"), amt("100"), nil, 45),
	}
	s := Summarize(items)
	if !s.SOATotal.IsZero() || !s.LedgerTotal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected totals %s/%s", s.SOATotal, s.LedgerTotal)
	}
	if !s.OverdueVariance.IsZero() || !s.MismatchAmount.IsZero() {
		t.Error("nil variance must count as zero")
	}
}

func TestExceptions(t *testing.T) {
	got := Exceptions(sampleItems())
	if len(got) != 4 {
		t.Fatalf("expected 4 exceptions, got %d", len(got))
	}
	if got[0].DocNo != "INV-5003" || got[3].DocNo != "DN-5001" {
		t.Errorf("exceptions must keep input order, got %s..%s", got[0].DocNo, got[3].DocNo)
	}
}

func TestSummarizeMatches(t *testing.T) {
	result := &matcher.Result{
		Matches: []*models.MatchResult{
			{Score: 7, Confidence: models.ConfidenceHigh, MatchedOn: []string{matcher.KeyLeaseID, matcher.KeyLotNo}},
			{Score: 3, Confidence: models.ConfidenceLow, MatchedOn: []string{matcher.KeyLotNo}},
		},
		UnmatchedUtilities: []*models.ExtractedRecord{{DocNo: "U-3"}},
		Utilities:          3,
		Candidates:         4,
	}

	s := SummarizeMatches(result)
	if s.Matched != 2 || s.Unmatched != 1 || s.Utilities != 3 || s.Candidates != 4 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.ByConfidence[models.ConfidenceHigh] != 1 || s.ByConfidence[models.ConfidenceMedium] != 0 {
		t.Errorf("unexpected confidence counts %v", s.ByConfidence)
	}
	if s.ByKey[matcher.KeyLotNo] != 2 || s.ByKey[matcher.KeyLeaseID] != 1 {
		t.Errorf("unexpected key counts %v", s.ByKey)
	}

	if empty := SummarizeMatches(nil); empty.Matched != 0 {
		t.Error("nil result should summarize to zero")
	}
}
