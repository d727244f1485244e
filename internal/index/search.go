package index

import (
	"math"
	"sort"
	"strings"

	"github.com/trove-dev/trove/internal/token"
)

// Ranking multipliers. Coverage applies only to queries with more than one
// distinct token, the phrase boost only to queries with more than one token
// counting repeats; the two compose.
const (
	fullCoverageBoost  = 1.5
	partialCoverageExp = 2.0
	phraseBoost        = 2.0
)

// Result is one ranked search hit.
type Result struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Query tokenizes text and runs Search. Empty or whitespace-only queries
// return nil without touching the index.
func (ix *Index) Query(text string) []Result {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	tokens := token.Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	return ix.Search(tokens)
}

// Search ranks every document against the query token sequence and returns
// the hits in descending score order, ties broken by ascending path.
//
// The base score of a document is the sum of tf*idf over the query tokens,
// repeats included. With more than one distinct query token the base is
// scaled by a coverage factor: x1.5 when the document contains all distinct
// tokens, otherwise by the squared fraction it does contain. With more than
// one query token overall, a contiguous in-order occurrence of the full
// sequence doubles the score on top of that. Documents whose score comes
// out non-finite are dropped.
func (ix *Index) Search(queryTokens []string) []Result {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	docCount := len(ix.docs)
	if docCount == 0 {
		return nil
	}

	distinct := make(map[string]struct{}, len(queryTokens))
	idf := make(map[string]float64, len(queryTokens))
	for _, t := range queryTokens {
		if _, ok := distinct[t]; ok {
			continue
		}
		distinct[t] = struct{}{}
		idf[t] = ix.inverseDocFrequencyLocked(t, docCount)
	}

	results := make([]Result, 0, docCount)
	for path, doc := range ix.docs {
		score := 0.0
		for _, t := range queryTokens {
			score += doc.termFrequencyOf(t) * idf[t]
		}

		if len(distinct) > 1 {
			matched := 0
			for t := range distinct {
				if _, ok := doc.termFreq[t]; ok {
					matched++
				}
			}
			coverage := float64(matched) / float64(len(distinct))
			if coverage == 1 {
				score *= fullCoverageBoost
			} else {
				score *= math.Pow(coverage, partialCoverageExp)
			}
		}

		if len(queryTokens) > 1 && doc.containsPhrase(queryTokens) {
			score *= phraseBoost
		}

		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		results = append(results, Result{Path: path, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	return results
}

// termFrequencyOf returns the occurrence rate of t within the document, or
// zero for an empty document.
func (d *document) termFrequencyOf(t string) float64 {
	if d.termCount == 0 {
		return 0
	}
	return float64(d.termFreq[t]) / float64(d.termCount)
}

// inverseDocFrequencyLocked computes log10(N/df) with df floored at one so
// unseen tokens cannot divide by zero or push the weight to infinity.
// Callers must hold at least the read lock.
func (ix *Index) inverseDocFrequencyLocked(t string, docCount int) float64 {
	df := ix.df[t]
	if df < 1 {
		df = 1
	}
	return math.Log10(float64(docCount) / float64(df))
}

// containsPhrase reports whether the full query sequence occurs contiguously
// and in order in the document. Position lists are sorted, so every
// candidate start offset of the first token is extended by binary-searching
// each subsequent token for the next consecutive offset.
func (d *document) containsPhrase(queryTokens []string) bool {
	for _, t := range queryTokens {
		if len(d.positions[t]) == 0 {
			return false
		}
	}

	for _, start := range d.positions[queryTokens[0]] {
		expected := start + 1
		found := true
		for _, t := range queryTokens[1:] {
			pos := d.positions[t]
			i := sort.SearchInts(pos, expected)
			if i == len(pos) || pos[i] != expected {
				found = false
				break
			}
			expected++
		}
		if found {
			return true
		}
	}
	return false
}
