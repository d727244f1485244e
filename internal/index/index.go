// Package index implements the in-memory document index: per-document term
// statistics, corpus-wide document frequencies, and the ranked search over
// them.
//
// The index is the only shared mutable state in the engine. One RWMutex
// guards it: searches and staleness probes take the read side, commits and
// evictions the write side. Tokenization and file reads never happen under
// the lock; callers precompute DocStats with Analyze and commit the result
// through AddDocument in a short critical section.
package index

import (
	"sort"
	"sync"
	"time"

	"github.com/trove-dev/trove/internal/token"
)

// DocStats carries the per-document statistics committed by AddDocument.
// Analyze produces them in one pass; the maps become property of the index
// once handed to AddDocument.
type DocStats struct {
	// TermCount is the total number of tokens in the document.
	TermCount int
	// TermFreq maps token to occurrence count. The sum of its values
	// equals TermCount.
	TermFreq map[string]int
	// Positions maps token to the ascending zero-based token offsets at
	// which it occurs. Each list holds exactly TermFreq[token] entries.
	Positions map[string][]int
}

// Analyze tokenizes text and computes DocStats in a single pass over the
// token stream.
func Analyze(text string) DocStats {
	st := DocStats{
		TermFreq:  make(map[string]int),
		Positions: make(map[string][]int),
	}
	pos := 0
	for sc := token.NewScanner(text); sc.Scan(); pos++ {
		t := sc.Token()
		st.TermFreq[t]++
		st.Positions[t] = append(st.Positions[t], pos)
	}
	st.TermCount = pos
	return st
}

// document is the stored per-file state.
type document struct {
	termCount int
	termFreq  map[string]int
	positions map[string][]int
	lastMod   time.Time
}

// Index is the corpus: document statistics keyed by absolute path, plus the
// count of documents containing each token. The zero value is not usable;
// call New.
type Index struct {
	mu         sync.RWMutex
	docs       map[string]*document
	df         map[string]int
	generation uint64
}

// New returns an empty index.
func New() *Index {
	return &Index{
		docs: make(map[string]*document),
		df:   make(map[string]int),
	}
}

// RequiresReindexing reports whether path must be (re)indexed: true when no
// document exists for it or the stored timestamp is strictly earlier than
// mtime. An equal timestamp means the document is current.
func (ix *Index) RequiresReindexing(path string, mtime time.Time) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	doc, ok := ix.docs[path]
	if !ok {
		return true
	}
	return doc.lastMod.Before(mtime)
}

// AddDocument replaces whatever the index holds for path with the given
// statistics. The old document's document-frequency contributions are fully
// unwound before the new ones are folded in, so back-to-back calls on the
// same path keep every count consistent. The replacement is atomic from the
// point of view of concurrent searches.
func (ix *Index) AddDocument(path string, mtime time.Time, st DocStats) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(path)
	ix.docs[path] = &document{
		termCount: st.TermCount,
		termFreq:  st.TermFreq,
		positions: st.Positions,
		lastMod:   mtime,
	}
	for t := range st.TermFreq {
		ix.df[t]++
	}
	ix.generation++
}

// RemoveDocument evicts path from the index, unwinding its contribution to
// the document frequencies. It reports whether a document was present.
func (ix *Index) RemoveDocument(path string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	removed := ix.removeLocked(path)
	if removed {
		ix.generation++
	}
	return removed
}

// removeLocked unwinds and deletes the document at path, if any. Frequency
// entries never go below zero: a count reaching zero is deleted outright.
// Callers must hold the write lock.
func (ix *Index) removeLocked(path string) bool {
	doc, ok := ix.docs[path]
	if !ok {
		return false
	}
	for t := range doc.termFreq {
		if n := ix.df[t]; n > 1 {
			ix.df[t] = n - 1
		} else {
			delete(ix.df, t)
		}
	}
	delete(ix.docs, path)
	return true
}

// Summary is a point-in-time view of corpus size for status surfaces.
type Summary struct {
	// Documents is the number of indexed documents.
	Documents int `json:"documents"`
	// Terms is the number of distinct tokens across the corpus.
	Terms int `json:"terms"`
	// Generation increments on every mutation; consumers key caches on it.
	Generation uint64 `json:"generation"`
}

// Stats returns the current corpus summary.
func (ix *Index) Stats() Summary {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return Summary{
		Documents:  len(ix.docs),
		Terms:      len(ix.df),
		Generation: ix.generation,
	}
}

// Paths returns every indexed document path in sorted order.
func (ix *Index) Paths() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	paths := make([]string, 0, len(ix.docs))
	for p := range ix.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
