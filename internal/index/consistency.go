package index

import (
	"fmt"
	"sort"
	"time"
)

// InconsistencyType categorizes faults detected by Verify.
type InconsistencyType int

const (
	// InconsistencyTermCount indicates a document whose stored token count
	// disagrees with the sum of its term frequencies.
	InconsistencyTermCount InconsistencyType = iota
	// InconsistencyTermFreq indicates a term recorded with a non-positive
	// frequency.
	InconsistencyTermFreq
	// InconsistencyPositions indicates a positions list that disagrees with
	// the recorded frequency or is not in ascending order.
	InconsistencyPositions
	// InconsistencyDocFrequency indicates a document-frequency entry that
	// disagrees with a recount over the stored documents.
	InconsistencyDocFrequency
	// InconsistencyStaleTerm indicates a document-frequency entry for a
	// term no stored document contains.
	InconsistencyStaleTerm
)

// String returns a short machine-friendly name for the fault type.
func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyTermCount:
		return "term_count"
	case InconsistencyTermFreq:
		return "term_freq"
	case InconsistencyPositions:
		return "positions"
	case InconsistencyDocFrequency:
		return "doc_frequency"
	case InconsistencyStaleTerm:
		return "stale_term"
	default:
		return "unknown"
	}
}

// Inconsistency is a single structural fault. Path is empty for corpus-wide
// faults and Term for faults not tied to one token.
type Inconsistency struct {
	Type    InconsistencyType
	Path    string
	Term    string
	Details string
}

// VerifyResult contains the outcome of a structural verification.
type VerifyResult struct {
	// Documents is the number of documents checked.
	Documents int
	// Terms is the number of distinct terms in the document-frequency table.
	Terms int
	// Inconsistencies holds all detected faults.
	Inconsistencies []Inconsistency
	// Duration is how long the verification took.
	Duration time.Duration
}

// Verify cross-checks the index's derived structures against the stored
// documents: per-document token counts against summed frequencies, position
// lists against frequencies and ordering, and the document-frequency table
// against a full recount. A healthy index always passes; a failure means a
// snapshot was tampered with or a commit path has a bug.
//
// The walk holds the read lock, so searches proceed but commits block until
// it finishes.
func (ix *Index) Verify() *VerifyResult {
	start := time.Now()
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var issues []Inconsistency

	paths := make([]string, 0, len(ix.docs))
	for path := range ix.docs {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	recount := make(map[string]int, len(ix.df))
	for _, path := range paths {
		doc := ix.docs[path]

		sum := 0
		for term, freq := range doc.termFreq {
			sum += freq
			recount[term]++
			if freq <= 0 {
				issues = append(issues, Inconsistency{
					Type:    InconsistencyTermFreq,
					Path:    path,
					Term:    term,
					Details: fmt.Sprintf("frequency %d is not positive", freq),
				})
			}
			issues = appendPositionIssues(issues, path, term, freq, doc.positions[term])
		}
		if sum != doc.termCount {
			issues = append(issues, Inconsistency{
				Type:    InconsistencyTermCount,
				Path:    path,
				Details: fmt.Sprintf("stored token count %d, term frequencies sum to %d", doc.termCount, sum),
			})
		}
		for term := range doc.positions {
			if _, ok := doc.termFreq[term]; !ok {
				issues = append(issues, Inconsistency{
					Type:    InconsistencyPositions,
					Path:    path,
					Term:    term,
					Details: "positions recorded for a term with no frequency entry",
				})
			}
		}
	}

	for term, n := range recount {
		if got := ix.df[term]; got != n {
			issues = append(issues, Inconsistency{
				Type:    InconsistencyDocFrequency,
				Term:    term,
				Details: fmt.Sprintf("document frequency %d, recount found %d", got, n),
			})
		}
	}
	for term, n := range ix.df {
		if _, ok := recount[term]; !ok {
			issues = append(issues, Inconsistency{
				Type:    InconsistencyStaleTerm,
				Term:    term,
				Details: fmt.Sprintf("document frequency %d but no document contains the term", n),
			})
		}
	}

	return &VerifyResult{
		Documents:       len(paths),
		Terms:           len(ix.df),
		Inconsistencies: issues,
		Duration:        time.Since(start),
	}
}

func appendPositionIssues(issues []Inconsistency, path, term string, freq int, pos []int) []Inconsistency {
	if len(pos) != freq {
		issues = append(issues, Inconsistency{
			Type:    InconsistencyPositions,
			Path:    path,
			Term:    term,
			Details: fmt.Sprintf("%d positions recorded for frequency %d", len(pos), freq),
		})
	}
	for i := 1; i < len(pos); i++ {
		if pos[i] <= pos[i-1] {
			issues = append(issues, Inconsistency{
				Type:    InconsistencyPositions,
				Path:    path,
				Term:    term,
				Details: fmt.Sprintf("positions not ascending at offset %d", i),
			})
			break
		}
	}
	return issues
}
