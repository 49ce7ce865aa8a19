package matcher

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/iter"

	"document-reconciliation-service/internal/identifiers"
	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/pkg/logger"
)

// Key names reported in MatchResult.MatchedOn
const (
	KeyLeaseID   = "Lease ID"
	KeyLotNo     = "Lot No"
	KeyVendor    = "Vendor Name"
	KeyTINNo     = "TIN No"
	KeyAccountNo = "Account No"
)

// Matcher pairs utility records with candidate records
type Matcher struct {
	config *Config
	log    logger.Logger
}

// Result is the outcome of a matching run over a mixed record set
type Result struct {
	Matches            []*models.MatchResult
	UnmatchedUtilities []*models.ExtractedRecord
	Ambiguities        []*Ambiguity
	Utilities          int
	Candidates         int
}

// keys are the comparable values of one record
type keys struct {
	leaseRaw string
	lease    string
	lot      string
	vendor   string
	tin      string
	account  string
}

func keysOf(r *models.ExtractedRecord) keys {
	ids := identifiers.Extract(r)
	return keys{
		leaseRaw: ids.LeaseID,
		lease:    identifiers.NormalizeLeaseID(ids.LeaseID),
		lot:      strings.TrimSpace(ids.LotNo),
		vendor:   strings.ToLower(strings.TrimSpace(r.Company)),
		tin:      strings.TrimSpace(ids.TINNo),
		account:  strings.TrimSpace(ids.AccountNo),
	}
}

// score is one utility/candidate comparison
type score struct {
	total     int
	matchedOn []string
	evidence  []string
}

// New creates a matcher. A nil config means DefaultConfig.
func New(config *Config) *Matcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &Matcher{
		config: config,
		log:    logger.WithComponent("matcher"),
	}
}

// WithLogger replaces the matcher's logger
func (m *Matcher) WithLogger(log logger.Logger) *Matcher {
	m.log = log.WithComponent("matcher")
	return m
}

// Match runs the default matcher
func Match(utilities, candidates []*models.ExtractedRecord) []*models.MatchResult {
	return New(nil).Match(utilities, candidates)
}

// Match pairs each utility with its best unconsumed candidate. Utilities are
// visited in order; ties keep the earliest candidate; a candidate is used at
// most once.
func (m *Matcher) Match(utilities, candidates []*models.ExtractedRecord) []*models.MatchResult {
	matches, _ := m.assign(utilities, candidates)
	return matches
}

// scored is the score of one candidate position
type scored struct {
	pos int
	score
}

func (m *Matcher) assign(utilities, candidates []*models.ExtractedRecord) ([]*models.MatchResult, []*Ambiguity) {
	if len(utilities) == 0 || len(candidates) == 0 {
		return nil, nil
	}

	index := NewCandidateIndex(candidates)
	stats := logger.Fields{"candidates": index.Len()}
	for key, n := range index.Stats() {
		stats[key] = n
	}
	m.log.WithFields(stats).Debug("Indexed rental candidates")

	// Scores do not depend on which candidates are consumed, so the whole
	// table can be computed up front and concurrently.
	table := m.scoreTable(utilities, index)

	consumed := make([]bool, len(candidates))
	var matches []*models.MatchResult
	var ambiguities []*Ambiguity

	for ui, u := range utilities {
		row := table[ui]

		bestAt := -1
		bestScore := 0
		for i, sc := range row {
			if consumed[sc.pos] {
				continue
			}
			if sc.total > bestScore {
				bestAt = i
				bestScore = sc.total
			}
		}

		best := -1
		if bestAt >= 0 && bestScore >= m.config.MinScore {
			best = row[bestAt].pos
		} else {
			bestScore = 0
		}
		ambiguities = append(ambiguities, m.detectAmbiguity(u.DocNo, row, consumed, index, best, bestScore)...)

		if best < 0 {
			continue
		}

		consumed[best] = true
		s := row[bestAt].score
		matches = append(matches, &models.MatchResult{
			LeftID:     u.DocNo,
			RightID:    candidates[best].DocNo,
			Score:      s.total,
			Confidence: models.TierForScore(s.total),
			MatchedOn:  s.matchedOn,
			Evidence:   s.evidence,
			Left:       u,
			Right:      candidates[best],
		})
	}

	return matches, ambiguities
}

// scoreTable scores every utility against the candidates it shares a key
// with. Rows are in ascending candidate position.
func (m *Matcher) scoreTable(utilities []*models.ExtractedRecord, index *CandidateIndex) [][]scored {
	row := func(u **models.ExtractedRecord) []scored {
		uk := keysOf(*u)
		positions := index.lookup(uk)
		out := make([]scored, 0, len(positions))
		for _, pos := range positions {
			out = append(out, scored{pos: pos, score: m.compare(uk, index.keys[pos])})
		}
		return out
	}

	if !m.config.Parallel {
		table := make([][]scored, len(utilities))
		for i := range utilities {
			table[i] = row(&utilities[i])
		}
		return table
	}

	mapper := iter.Mapper[*models.ExtractedRecord, []scored]{MaxGoroutines: m.config.MaxWorkers}
	return mapper.Map(utilities, row)
}

// Score compares two records with the configured weights
func (m *Matcher) Score(utility, candidate *models.ExtractedRecord) (int, []string) {
	s := m.compare(keysOf(utility), keysOf(candidate))
	return s.total, s.matchedOn
}

func (m *Matcher) compare(u, c keys) score {
	var s score
	w := m.config.Weights

	add := func(weight int, key, evidence string) {
		s.total += weight
		s.matchedOn = append(s.matchedOn, key)
		s.evidence = append(s.evidence, evidence)
	}

	if u.lease != "" && u.lease == c.lease {
		add(w.LeaseID, KeyLeaseID, fmt.Sprintf("Lease ID (%s ↔ %s)", u.leaseRaw, c.leaseRaw))
	}
	if u.lot != "" && u.lot == c.lot {
		add(w.LotNo, KeyLotNo, fmt.Sprintf("Lot No (%s)", u.lot))
	}
	if u.vendor != "" && u.vendor == c.vendor {
		add(w.Vendor, KeyVendor, "Vendor Name")
	}
	if u.tin != "" && u.tin == c.tin {
		add(w.TINNo, KeyTINNo, fmt.Sprintf("TIN No (%s)", u.tin))
	}
	if u.account != "" && u.account == c.account {
		add(w.AccountNo, KeyAccountNo, fmt.Sprintf("Account No (%s)", u.account))
	}

	return s
}

// Run splits records into utilities and candidates by category, matches
// them, and reports utilities left without a candidate.
func (m *Matcher) Run(records []*models.ExtractedRecord) *Result {
	var utilities, candidates []*models.ExtractedRecord
	for _, r := range records {
		switch {
		case m.config.IsUtility(r):
			utilities = append(utilities, r)
		case m.config.IsCandidate(r):
			candidates = append(candidates, r)
		}
	}

	matches, ambiguities := m.assign(utilities, candidates)
	result := &Result{
		Matches:     matches,
		Ambiguities: ambiguities,
		Utilities:   len(utilities),
		Candidates:  len(candidates),
	}

	for _, a := range ambiguities {
		m.log.WithFields(logger.Fields{
			"doc_no": a.UtilityID,
			"kind":   a.Kind,
			"chosen": a.ChosenID,
			"others": a.Others,
		}).Warn("Ambiguous utility match")
	}

	matched := make(map[*models.ExtractedRecord]bool, len(result.Matches))
	for _, mr := range result.Matches {
		matched[mr.Left] = true
	}
	for _, u := range utilities {
		if !matched[u] {
			result.UnmatchedUtilities = append(result.UnmatchedUtilities, u)
			m.log.WithFields(logger.Fields{
				"doc_no":  u.DocNo,
				"company": u.Company,
				"source":  u.Source,
			}).Warn("Utility bill has no matching rental invoice")
		}
	}

	m.log.WithFields(logger.Fields{
		"utilities":  result.Utilities,
		"candidates": result.Candidates,
		"matched":    len(result.Matches),
		"unmatched":  len(result.UnmatchedUtilities),
		"ambiguous":  len(result.Ambiguities),
	}).Info("Matching complete")

	return result
}
