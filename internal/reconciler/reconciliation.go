// Package reconciler compares a supplier statement of account against the
// internal ledger, one document number at a time.
//
// Every doc_no found on either side yields exactly one ReconciliationItem.
// Paired entries are checked for amount variance and posting delay, and all
// items are aged against a fixed as-of date. Reviewer state (investigation
// and assignee) is looked up by doc_no and laid over the computed defaults
// without touching status, variance or aging.
//
// Example usage:
//
//	rec, err := reconciler.New(&reconciler.Config{AsOf: asOf})
//	if err != nil {
//		return err
//	}
//	items := rec.Reconcile(soaEntries, ledgerEntries, reviews)
package reconciler

import (
	"fmt"
	"strings"
	"time"

	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/pkg/logger"
)

// Config holds configuration options for the reconciler
type Config struct {
	// AsOf is the reference date all items are aged against
	AsOf time.Time `json:"as_of" mapstructure:"as_of"`

	// Preprocessing controls entry cleanup before pairing
	Preprocessing *PreprocessingConfig `json:"preprocessing" mapstructure:"preprocessing"`
}

// DefaultConfig ages items against today's date
func DefaultConfig() *Config {
	return &Config{
		AsOf:          Today(),
		Preprocessing: DefaultPreprocessingConfig(),
	}
}

// Today returns the current date at midnight UTC
func Today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.AsOf.IsZero() {
		return fmt.Errorf("as-of date is required")
	}
	return nil
}

// ReviewLookup maps doc_no to the state a reviewer last saved for it
type ReviewLookup map[string]models.ReviewState

// NewReviewLookup indexes review states by doc_no. Later states replace
// earlier ones for the same doc_no.
func NewReviewLookup(states []models.ReviewState) ReviewLookup {
	lookup := make(ReviewLookup, len(states))
	for _, s := range states {
		lookup[strings.TrimSpace(s.DocNo)] = s
	}
	return lookup
}

// Reconciler pairs statement entries with ledger entries
type Reconciler struct {
	config       *Config
	preprocessor *Preprocessor
	log          logger.Logger
}

// Result is the outcome of one reconciliation run
type Result struct {
	Items  []*models.ReconciliationItem `json:"items"`
	SOA    *PreprocessingStats          `json:"soa"`
	Ledger *PreprocessingStats          `json:"ledger"`
}

// New creates a reconciler. A nil config means DefaultConfig.
func New(config *Config) (*Reconciler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.WithComponent("reconciler")
	return &Reconciler{
		config:       config,
		preprocessor: NewPreprocessor(config.Preprocessing, log),
		log:          log,
	}, nil
}

// WithLogger replaces the reconciler's logger
func (r *Reconciler) WithLogger(log logger.Logger) *Reconciler {
	r.log = log.WithComponent("reconciler")
	r.preprocessor.log = r.log
	return r
}

// Config returns the active configuration
func (r *Reconciler) Config() *Config {
	return r.config
}

// Reconcile reconciles with today's date as the reference
func Reconcile(soa, ledger []models.StatementEntry, review ReviewLookup) []*models.ReconciliationItem {
	r, _ := New(nil)
	return r.Reconcile(soa, ledger, review)
}

// Reconcile returns one item per doc_no in SOA order, followed by ledger
// entries that never appeared on the statement.
func (r *Reconciler) Reconcile(soa, ledger []models.StatementEntry, review ReviewLookup) []*models.ReconciliationItem {
	return r.Run(soa, ledger, review).Items
}

// Run reconciles and also reports what preprocessing dropped
func (r *Reconciler) Run(soa, ledger []models.StatementEntry, review ReviewLookup) *Result {
	soa, soaStats := r.preprocessor.PreprocessEntries("soa", soa)
	ledger, ledgerStats := r.preprocessor.PreprocessEntries("ledger", ledger)
	review = r.preprocessor.keyReview(review)

	ledgerByDoc := make(map[string]models.StatementEntry, len(ledger))
	for _, l := range ledger {
		ledgerByDoc[l.DocNo] = l
	}

	onStatement := make(map[string]bool, len(soa))
	items := make([]*models.ReconciliationItem, 0, len(soa)+len(ledger))

	for _, s := range soa {
		onStatement[s.DocNo] = true
		if l, ok := ledgerByDoc[s.DocNo]; ok {
			items = append(items, r.paired(s, l))
		} else {
			items = append(items, r.missingInLedger(s))
		}
	}

	for _, l := range ledger {
		if !onStatement[l.DocNo] {
			items = append(items, r.missingInSOA(l))
		}
	}

	for _, item := range items {
		r.applyReview(item, review)
	}

	r.log.WithFields(logger.Fields{
		"soa_entries":    len(soa),
		"ledger_entries": len(ledger),
		"items":          len(items),
		"as_of":          r.config.AsOf.Format("2006-01-02"),
	}).Debug("Reconciliation complete")

	return &Result{Items: items, SOA: soaStats, Ledger: ledgerStats}
}

func (r *Reconciler) paired(s, l models.StatementEntry) *models.ReconciliationItem {
	item := r.newItem(s.DocNo, firstNonEmpty(s.DocType, l.DocType), s.Date, l.Date)
	item.SOAAmount = amountOf(s.Amount)
	item.LedgerAmount = amountOf(l.Amount)
	item.SOADate = s.Date
	item.LedgerDate = l.Date
	item.DateDiffDays = dateDiff(s.Date, l.Date)

	if item.SOAAmount != nil && item.SOAAmount.Valid && item.LedgerAmount != nil && item.LedgerAmount.Valid {
		v := item.SOAAmount.Value.Sub(item.LedgerAmount.Value)
		item.Variance = &v
		if v.IsZero() {
			item.Status = models.StatusMatch
			item.Investigation = models.InvestigationApproved
			return item
		}
	}

	// An amount that cannot be read on either side is never a silent match
	item.Status = models.StatusAmountMismatch
	item.Investigation = models.InvestigationUnderInvestigation
	return item
}

func (r *Reconciler) missingInLedger(s models.StatementEntry) *models.ReconciliationItem {
	item := r.newItem(s.DocNo, s.DocType, s.Date, "")
	item.SOAAmount = amountOf(s.Amount)
	item.SOADate = s.Date
	item.Status = models.StatusMissingInLedger
	item.Investigation = models.InvestigationUnderInvestigation
	return item
}

func (r *Reconciler) missingInSOA(l models.StatementEntry) *models.ReconciliationItem {
	item := r.newItem(l.DocNo, l.DocType, "", l.Date)
	item.LedgerAmount = amountOf(l.Amount)
	item.LedgerDate = l.Date
	item.Status = models.StatusMissingInSOA
	item.Investigation = models.InvestigationUnderInvestigation
	return item
}

func (r *Reconciler) newItem(docNo, docType, soaDate, ledgerDate string) *models.ReconciliationItem {
	days := r.agingDays(soaDate, ledgerDate)
	return &models.ReconciliationItem{
		DocNo:       docNo,
		DocType:     docType,
		AgingDays:   days,
		AgingBucket: models.BucketForDays(days),
		LastUpdated: r.config.AsOf,
	}
}

// agingDays counts from the SOA date, else the ledger date, to the as-of
// date. An item with no readable date is 0 days old.
func (r *Reconciler) agingDays(soaDate, ledgerDate string) int {
	if t, ok := models.ParseDate(soaDate); ok {
		return models.DaysBetween(t, r.config.AsOf)
	}
	if t, ok := models.ParseDate(ledgerDate); ok {
		return models.DaysBetween(t, r.config.AsOf)
	}
	return 0
}

// applyReview lays reviewer state over the computed defaults. A Match item
// stays Approved unless a reviewer explicitly chose otherwise.
func (r *Reconciler) applyReview(item *models.ReconciliationItem, review ReviewLookup) {
	state, ok := review[item.DocNo]
	if !ok {
		return
	}
	if state.Investigation != "" {
		item.Investigation = state.Investigation
	}
	if state.AssignedTo != "" {
		item.AssignedTo = state.AssignedTo
	}
	if !state.UpdatedAt.IsZero() {
		item.LastUpdated = state.UpdatedAt
	}
}

func amountOf(text string) *models.Amount {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	a := models.ParseAmount(text)
	return &a
}

func dateDiff(a, b string) *int {
	ta, okA := models.ParseDate(a)
	tb, okB := models.ParseDate(b)
	if !okA || !okB {
		return nil
	}
	d := models.DaysBetween(ta, tb)
	if d < 0 {
		d = -d
	}
	return &d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
