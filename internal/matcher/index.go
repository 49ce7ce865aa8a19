package matcher

import (
	"sort"

	"document-reconciliation-service/internal/models"
)

// CandidateIndex maps every comparable identifier value to the candidates
// carrying it, so a utility is only scored against candidates that share
// at least one key with it.
type CandidateIndex struct {
	// Candidates holds the indexed records in input order
	Candidates []*models.ExtractedRecord

	keys []keys

	// Each map goes from a normalized value to candidate positions,
	// ascending
	ByLeaseID   map[string][]int
	ByLotNo     map[string][]int
	ByVendor    map[string][]int
	ByTINNo     map[string][]int
	ByAccountNo map[string][]int
}

// NewCandidateIndex builds the index over candidates
func NewCandidateIndex(candidates []*models.ExtractedRecord) *CandidateIndex {
	index := &CandidateIndex{
		Candidates:  candidates,
		keys:        make([]keys, len(candidates)),
		ByLeaseID:   make(map[string][]int),
		ByLotNo:     make(map[string][]int),
		ByVendor:    make(map[string][]int),
		ByTINNo:     make(map[string][]int),
		ByAccountNo: make(map[string][]int),
	}

	index.buildIndexes()
	return index
}

func (ci *CandidateIndex) buildIndexes() {
	for pos, c := range ci.Candidates {
		k := keysOf(c)
		ci.keys[pos] = k

		addPosition(ci.ByLeaseID, k.lease, pos)
		addPosition(ci.ByLotNo, k.lot, pos)
		addPosition(ci.ByVendor, k.vendor, pos)
		addPosition(ci.ByTINNo, k.tin, pos)
		addPosition(ci.ByAccountNo, k.account, pos)
	}
}

func addPosition(index map[string][]int, value string, pos int) {
	if value == "" {
		return
	}
	index[value] = append(index[value], pos)
}

// Len returns the number of indexed candidates
func (ci *CandidateIndex) Len() int {
	return len(ci.Candidates)
}

// lookup returns the ascending positions of candidates sharing at least one
// identifier with u. Candidates sharing none would score zero.
func (ci *CandidateIndex) lookup(u keys) []int {
	seen := make(map[int]bool)
	var positions []int

	collect := func(index map[string][]int, value string) {
		if value == "" {
			return
		}
		for _, pos := range index[value] {
			if !seen[pos] {
				seen[pos] = true
				positions = append(positions, pos)
			}
		}
	}

	collect(ci.ByLeaseID, u.lease)
	collect(ci.ByLotNo, u.lot)
	collect(ci.ByVendor, u.vendor)
	collect(ci.ByTINNo, u.tin)
	collect(ci.ByAccountNo, u.account)

	sort.Ints(positions)
	return positions
}

// Stats reports the number of distinct values per identifier
func (ci *CandidateIndex) Stats() map[string]int {
	return map[string]int{
		KeyLeaseID:   len(ci.ByLeaseID),
		KeyLotNo:     len(ci.ByLotNo),
		KeyVendor:    len(ci.ByVendor),
		KeyTINNo:     len(ci.ByTINNo),
		KeyAccountNo: len(ci.ByAccountNo),
	}
}
