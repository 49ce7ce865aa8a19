package matcher

import (
	"fmt"
	"strings"
)

// AmbiguityKind classifies how a greedy choice was not clear-cut
type AmbiguityKind string

const (
	// AmbiguityTie means other free candidates reached the same best score;
	// the earliest one was taken
	AmbiguityTie AmbiguityKind = "tie"

	// AmbiguityContested means a better candidate had already been consumed
	// by an earlier utility
	AmbiguityContested AmbiguityKind = "contested"
)

// Ambiguity records a utility whose pairing a reviewer may want to check.
// The greedy result is not changed.
type Ambiguity struct {
	UtilityID string        `json:"utility_id"`
	Kind      AmbiguityKind `json:"kind"`
	ChosenID  string        `json:"chosen_id,omitempty"`
	Score     int           `json:"score"`

	// Others are the tied candidates for a tie, or the consumed higher
	// scoring candidates for a contested pick
	Others []string `json:"others"`
}

// String renders the ambiguity for logs and console reports
func (a *Ambiguity) String() string {
	chosen := a.ChosenID
	if chosen == "" {
		chosen = "nothing"
	}
	switch a.Kind {
	case AmbiguityTie:
		return fmt.Sprintf("%s → %s (score %d) tied with %s", a.UtilityID, chosen, a.Score, strings.Join(a.Others, ", "))
	default:
		return fmt.Sprintf("%s → %s (score %d); better candidates already taken: %s", a.UtilityID, chosen, a.Score, strings.Join(a.Others, ", "))
	}
}

// detectAmbiguity inspects one utility's scored row after the greedy pick.
// best is the chosen position or -1. consumed must reflect the state before
// the pick was marked.
func (m *Matcher) detectAmbiguity(utilityID string, row []scored, consumed []bool, index *CandidateIndex, best, bestScore int) []*Ambiguity {
	var ties, taken []string

	for _, sc := range row {
		if sc.pos == best || sc.total < m.config.MinScore {
			continue
		}
		docNo := index.Candidates[sc.pos].DocNo
		switch {
		case consumed[sc.pos] && sc.total > bestScore:
			taken = append(taken, docNo)
		case !consumed[sc.pos] && best >= 0 && sc.total == bestScore:
			ties = append(ties, docNo)
		}
	}

	var chosenID string
	if best >= 0 {
		chosenID = index.Candidates[best].DocNo
	}

	var out []*Ambiguity
	if len(ties) > 0 {
		out = append(out, &Ambiguity{
			UtilityID: utilityID,
			Kind:      AmbiguityTie,
			ChosenID:  chosenID,
			Score:     bestScore,
			Others:    ties,
		})
	}
	if len(taken) > 0 {
		out = append(out, &Ambiguity{
			UtilityID: utilityID,
			Kind:      AmbiguityContested,
			ChosenID:  chosenID,
			Score:     bestScore,
			Others:    taken,
		})
	}
	return out
}
