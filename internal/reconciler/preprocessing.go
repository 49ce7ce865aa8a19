package reconciler

import (
	"strings"
	"time"

	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/pkg/logger"
)

// Preprocessor cleans statement entries before they are paired
type Preprocessor struct {
	config *PreprocessingConfig
	log    logger.Logger
}

// PreprocessingConfig contains configuration for entry cleanup
type PreprocessingConfig struct {
	// TrimWhitespace trims every field of an entry
	TrimWhitespace bool `json:"trim_whitespace" mapstructure:"trim_whitespace"`

	// CaseInsensitiveDocNo upper-cases doc_no so "inv-1" pairs with "INV-1"
	CaseInsensitiveDocNo bool `json:"case_insensitive_doc_no" mapstructure:"case_insensitive_doc_no"`
}

// PreprocessingStats counts what was dropped from one side
type PreprocessingStats struct {
	Side           string        `json:"side"`
	Received       int           `json:"received"`
	Kept           int           `json:"kept"`
	MissingDocNo   int           `json:"missing_doc_no"`
	Duplicates     int           `json:"duplicates"`
	DuplicateDocs  []string      `json:"duplicate_docs,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// DefaultPreprocessingConfig trims fields and compares doc_no exactly
func DefaultPreprocessingConfig() *PreprocessingConfig {
	return &PreprocessingConfig{
		TrimWhitespace:       true,
		CaseInsensitiveDocNo: false,
	}
}

// NewPreprocessor creates a new entry preprocessor
func NewPreprocessor(config *PreprocessingConfig, log logger.Logger) *Preprocessor {
	if config == nil {
		config = DefaultPreprocessingConfig()
	}
	if log == nil {
		log = logger.WithComponent("reconciler")
	}
	return &Preprocessor{config: config, log: log}
}

// PreprocessEntries returns entries that can take part in reconciliation.
// Entries without a doc_no are dropped, and only the first entry of each
// doc_no is kept so every document yields a single item. The input slice
// is not modified.
func (p *Preprocessor) PreprocessEntries(side string, entries []models.StatementEntry) ([]models.StatementEntry, *PreprocessingStats) {
	start := time.Now()
	stats := &PreprocessingStats{Side: side, Received: len(entries)}

	seen := make(map[string]bool, len(entries))
	kept := make([]models.StatementEntry, 0, len(entries))

	for i, e := range entries {
		e = p.normalize(e)

		if e.DocNo == "" {
			stats.MissingDocNo++
			p.log.WithFields(logger.Fields{
				"side": side,
				"row":  i + 1,
			}).Warn("Skipping entry without doc_no")
			continue
		}

		if seen[e.DocNo] {
			stats.Duplicates++
			stats.DuplicateDocs = append(stats.DuplicateDocs, e.DocNo)
			p.log.WithFields(logger.Fields{
				"side":   side,
				"doc_no": e.DocNo,
				"amount": e.Amount,
			}).Warn("Skipping repeated doc_no, first entry kept")
			continue
		}

		seen[e.DocNo] = true
		kept = append(kept, e)
	}

	stats.Kept = len(kept)
	stats.ProcessingTime = time.Since(start)
	return kept, stats
}

func (p *Preprocessor) normalize(e models.StatementEntry) models.StatementEntry {
	if p.config.TrimWhitespace {
		e.DocNo = strings.TrimSpace(e.DocNo)
		e.DocType = strings.TrimSpace(e.DocType)
		e.Date = strings.TrimSpace(e.Date)
		e.Amount = strings.TrimSpace(e.Amount)
	}
	if p.config.CaseInsensitiveDocNo {
		e.DocNo = strings.ToUpper(e.DocNo)
	}
	return e
}

// DocKey is the doc_no an entry pairs under once cleaned up
func (p *Preprocessor) DocKey(docNo string) string {
	return p.normalize(models.StatementEntry{DocNo: docNo}).DocNo
}

// keyReview re-keys saved review state by DocKey. When several saved
// spellings collapse onto one key the most recently updated state wins,
// then the spelling equal to the key, then the smallest doc_no.
func (p *Preprocessor) keyReview(review ReviewLookup) ReviewLookup {
	if len(review) == 0 {
		return review
	}

	keyed := make(ReviewLookup, len(review))
	source := make(map[string]string, len(review))
	for docNo, state := range review {
		key := p.DocKey(docNo)
		if prevDoc, ok := source[key]; ok && !replaces(docNo, state, prevDoc, keyed[key], key) {
			continue
		}
		keyed[key] = state
		source[key] = docNo
	}
	return keyed
}

func replaces(docNo string, state models.ReviewState, prevDoc string, prev models.ReviewState, key string) bool {
	switch {
	case !state.UpdatedAt.Equal(prev.UpdatedAt):
		return state.UpdatedAt.After(prev.UpdatedAt)
	case (docNo == key) != (prevDoc == key):
		return docNo == key
	default:
		return docNo < prevDoc
	}
}

// Dropped is the number of entries left out of reconciliation
func (s *PreprocessingStats) Dropped() int {
	return s.MissingDocNo + s.Duplicates
}
