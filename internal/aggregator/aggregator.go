// Package aggregator rolls reconciliation items and match results up into
// the totals and histograms shown at the top of every report.
//
// Every function here is a pure function of its input; summaries are never
// cached and are recomputed whenever the items change.
package aggregator

import (
	"document-reconciliation-service/internal/matcher"
	"document-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// overdueAfterDays is the aging past which a non-Match variance is overdue
const overdueAfterDays = 30

// Summary holds the KPIs of one reconciliation run
type Summary struct {
	TotalItems      int                                 `json:"total_items"`
	SOATotal        decimal.Decimal                     `json:"soa_total"`
	LedgerTotal     decimal.Decimal                     `json:"ledger_total"`
	NetVariance     decimal.Decimal                     `json:"net_variance"`
	MatchRate       float64                             `json:"match_rate"`
	MismatchAmount  decimal.Decimal                     `json:"mismatch_amount"`
	OverdueVariance decimal.Decimal                     `json:"overdue_variance"`
	Exceptions      int                                 `json:"exceptions"`
	AgingHistogram  map[models.AgingBucket]int          `json:"aging_histogram"`
	StatusCounts    map[models.ReconciliationStatus]int `json:"status_counts"`
	Investigations  map[models.InvestigationState]int   `json:"investigations"`
}

// BucketCount is one row of an aging histogram
type BucketCount struct {
	Bucket models.AgingBucket `json:"bucket"`
	Count  int                `json:"count"`
}

// Summarize computes totals, match rate and the exception aging histogram.
// Amounts that could not be read count as absent.
func Summarize(items []*models.ReconciliationItem) Summary {
	s := Summary{
		TotalItems:     len(items),
		AgingHistogram: make(map[models.AgingBucket]int, len(models.AgingBuckets)),
		StatusCounts:   make(map[models.ReconciliationStatus]int, len(models.AllStatuses)),
		Investigations: make(map[models.InvestigationState]int, 3),
	}
	for _, b := range models.AgingBuckets {
		s.AgingHistogram[b] = 0
	}
	for _, st := range models.AllStatuses {
		s.StatusCounts[st] = 0
	}

	for _, it := range items {
		if it == nil {
			continue
		}

		if it.SOAAmount != nil && it.SOAAmount.Valid {
			s.SOATotal = s.SOATotal.Add(it.SOAAmount.Value)
		}
		if it.LedgerAmount != nil && it.LedgerAmount.Valid {
			s.LedgerTotal = s.LedgerTotal.Add(it.LedgerAmount.Value)
		}

		s.StatusCounts[it.Status]++
		if it.Investigation != "" {
			s.Investigations[it.Investigation]++
		}

		if it.Status == models.StatusAmountMismatch && it.Variance != nil {
			s.MismatchAmount = s.MismatchAmount.Add(it.Variance.Abs())
		}

		if it.Status == models.StatusMatch {
			continue
		}
		s.Exceptions++
		s.AgingHistogram[it.AgingBucket]++
		if it.AgingDays > overdueAfterDays && it.Variance != nil {
			s.OverdueVariance = s.OverdueVariance.Add(it.Variance.Abs())
		}
	}

	s.NetVariance = s.SOATotal.Sub(s.LedgerTotal)
	if s.TotalItems > 0 {
		s.MatchRate = float64(s.StatusCounts[models.StatusMatch]) / float64(s.TotalItems) * 100
	}

	return s
}

// Buckets returns the exception histogram in bucket order
func (s Summary) Buckets() []BucketCount {
	out := make([]BucketCount, 0, len(models.AgingBuckets))
	for _, b := range models.AgingBuckets {
		out = append(out, BucketCount{Bucket: b, Count: s.AgingHistogram[b]})
	}
	return out
}

// Matched is the number of Match items
func (s Summary) Matched() int {
	return s.StatusCounts[models.StatusMatch]
}

// Missing is the number of items absent from one side
func (s Summary) Missing() int {
	return s.StatusCounts[models.StatusMissingInLedger] + s.StatusCounts[models.StatusMissingInSOA]
}

// Exceptions returns the non-Match items in their original order
func Exceptions(items []*models.ReconciliationItem) []*models.ReconciliationItem {
	var out []*models.ReconciliationItem
	for _, it := range items {
		if it != nil && it.IsException() {
			out = append(out, it)
		}
	}
	return out
}

// MatchSummary describes one utility-to-rental matching run
type MatchSummary struct {
	Utilities    int                           `json:"utilities"`
	Candidates   int                           `json:"candidates"`
	Matched      int                           `json:"matched"`
	Unmatched    int                           `json:"unmatched"`
	Ambiguous    int                           `json:"ambiguous"`
	ByConfidence map[models.ConfidenceTier]int `json:"by_confidence"`
	ByKey        map[string]int                `json:"by_key"`
}

// SummarizeMatches counts matches per confidence tier and per agreeing key
func SummarizeMatches(result *matcher.Result) MatchSummary {
	s := MatchSummary{
		ByConfidence: map[models.ConfidenceTier]int{
			models.ConfidenceHigh:   0,
			models.ConfidenceMedium: 0,
			models.ConfidenceLow:    0,
		},
		ByKey: make(map[string]int),
	}
	if result == nil {
		return s
	}

	s.Utilities = result.Utilities
	s.Candidates = result.Candidates
	s.Matched = len(result.Matches)
	s.Unmatched = len(result.UnmatchedUtilities)
	s.Ambiguous = len(result.Ambiguities)

	for _, m := range result.Matches {
		s.ByConfidence[m.Confidence]++
		for _, key := range m.MatchedOn {
			s.ByKey[key]++
		}
	}
	return s
}
