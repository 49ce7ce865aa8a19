// Package matcher links utility bills to the rental invoices they belong to.
//
// Matching is a single greedy pass over utility records in input order.
// Each utility is scored against every candidate not yet taken, using
// additive weights for identifiers that are present and equal on both
// sides. The first candidate with the highest score wins and is consumed,
// so earlier utilities get first pick.
//
// Example usage:
//
//	m := matcher.New(matcher.DefaultConfig())
//	result := m.Run(records)
//	for _, u := range result.UnmatchedUtilities {
//		log.Printf("no rental found for %s", u.DocNo)
//	}
package matcher

import (
	"fmt"

	"document-reconciliation-service/internal/models"
)

// Weights are the score contributions of each agreeing identifier
type Weights struct {
	LeaseID   int `json:"lease_id" mapstructure:"lease_id"`
	LotNo     int `json:"lot_no" mapstructure:"lot_no"`
	Vendor    int `json:"vendor" mapstructure:"vendor"`
	TINNo     int `json:"tin_no" mapstructure:"tin_no"`
	AccountNo int `json:"account_no" mapstructure:"account_no"`
}

// Config controls candidate selection, scoring and parallelism
type Config struct {
	// Weights per identifier
	Weights Weights `json:"weights" mapstructure:"weights"`

	// MinScore is the lowest best score that is accepted as a match
	MinScore int `json:"min_score" mapstructure:"min_score"`

	// UtilityCategories select the left side of the pairing
	UtilityCategories []models.CanonicalLabel `json:"utility_categories" mapstructure:"utility_categories"`

	// CandidateCategories select the right side; the generic invoice label
	// is included because rentals are often extracted as plain invoices
	CandidateCategories []models.CanonicalLabel `json:"candidate_categories" mapstructure:"candidate_categories"`

	// Parallel scores utilities on a worker pool. Results are identical to
	// the sequential run.
	Parallel bool `json:"parallel" mapstructure:"parallel"`

	// MaxWorkers bounds the pool when Parallel is set
	MaxWorkers int `json:"max_workers" mapstructure:"max_workers"`
}

// DefaultWeights returns Lease ID 4, Lot No 3, Vendor 2, TIN No 2, Account No 1
func DefaultWeights() Weights {
	return Weights{
		LeaseID:   4,
		LotNo:     3,
		Vendor:    2,
		TINNo:     2,
		AccountNo: 1,
	}
}

// DefaultConfig returns a configuration with the standard weights
func DefaultConfig() *Config {
	return &Config{
		Weights:             DefaultWeights(),
		MinScore:            2,
		UtilityCategories:   []models.CanonicalLabel{models.LabelUtility},
		CandidateCategories: []models.CanonicalLabel{models.LabelRental, models.LabelCommercialInvoice},
		Parallel:            false,
		MaxWorkers:          4,
	}
}

// Validate checks if the matching configuration is valid
func (c *Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]int{
		"lease_id":   w.LeaseID,
		"lot_no":     w.LotNo,
		"vendor":     w.Vendor,
		"tin_no":     w.TINNo,
		"account_no": w.AccountNo,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s cannot be negative: %d", name, v)
		}
	}

	if c.MinScore < 1 {
		return fmt.Errorf("minimum score must be positive: %d", c.MinScore)
	}

	if len(c.UtilityCategories) == 0 {
		return fmt.Errorf("at least one utility category is required")
	}
	if len(c.CandidateCategories) == 0 {
		return fmt.Errorf("at least one candidate category is required")
	}
	for _, l := range append(append([]models.CanonicalLabel{}, c.UtilityCategories...), c.CandidateCategories...) {
		if !l.IsValid() {
			return fmt.Errorf("invalid category: %s", l)
		}
	}
	for _, u := range c.UtilityCategories {
		for _, cand := range c.CandidateCategories {
			if u == cand {
				return fmt.Errorf("category %s cannot be both utility and candidate", u)
			}
		}
	}

	if c.Parallel && c.MaxWorkers <= 0 {
		return fmt.Errorf("max workers must be positive when parallel scoring is enabled: %d", c.MaxWorkers)
	}

	return nil
}

func contains(labels []models.CanonicalLabel, l models.CanonicalLabel) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}

// IsUtility reports whether r belongs on the left side
func (c *Config) IsUtility(r *models.ExtractedRecord) bool {
	return contains(c.UtilityCategories, r.Category)
}

// IsCandidate reports whether r can be matched to a utility
func (c *Config) IsCandidate(r *models.ExtractedRecord) bool {
	return contains(c.CandidateCategories, r.Category)
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("MatchingConfig{Weights: %+v, MinScore: %d, Candidates: %v, Parallel: %v}",
		c.Weights, c.MinScore, c.CandidateCategories, c.Parallel)
}
