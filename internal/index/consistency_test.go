package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifyTestIndex(t *testing.T) *Index {
	t.Helper()
	ix := New()
	now := time.Now()
	ix.AddDocument("/srv/notes/a.txt", now, Analyze("the quick brown fox"))
	ix.AddDocument("/srv/notes/b.txt", now, Analyze("a lazy dog sleeps while the fox runs"))
	ix.AddDocument("/srv/notes/c.txt", now, Analyze("quick quick slow"))
	return ix
}

// termWithFreq returns some term of the document stored with frequency n.
func termWithFreq(t *testing.T, doc *document, n int) string {
	t.Helper()
	for term, freq := range doc.termFreq {
		if freq == n {
			return term
		}
	}
	t.Fatalf("no term with frequency %d", n)
	return ""
}

func TestVerify_HealthyIndexPasses(t *testing.T) {
	ix := verifyTestIndex(t)

	res := ix.Verify()

	assert.Empty(t, res.Inconsistencies)
	assert.Equal(t, 3, res.Documents)
	assert.Equal(t, ix.Stats().Terms, res.Terms)
}

func TestVerify_EmptyIndexPasses(t *testing.T) {
	res := New().Verify()

	assert.Empty(t, res.Inconsistencies)
	assert.Zero(t, res.Documents)
	assert.Zero(t, res.Terms)
}

func TestVerify_PassesAfterRemovals(t *testing.T) {
	// Given an index that has seen both commits and evictions
	ix := verifyTestIndex(t)
	require.True(t, ix.RemoveDocument("/srv/notes/b.txt"))

	res := ix.Verify()

	assert.Empty(t, res.Inconsistencies)
	assert.Equal(t, 2, res.Documents)
}

func TestVerify_DetectsTermCountDrift(t *testing.T) {
	ix := verifyTestIndex(t)
	// Given a document whose token count no longer matches its frequencies
	ix.docs["/srv/notes/a.txt"].termCount++

	res := ix.Verify()

	require.Len(t, res.Inconsistencies, 1)
	issue := res.Inconsistencies[0]
	assert.Equal(t, InconsistencyTermCount, issue.Type)
	assert.Equal(t, "/srv/notes/a.txt", issue.Path)
}

func TestVerify_DetectsTruncatedPositions(t *testing.T) {
	ix := verifyTestIndex(t)
	doc := ix.docs["/srv/notes/c.txt"]
	term := termWithFreq(t, doc, 2)
	// Given a positions list shorter than the recorded frequency
	doc.positions[term] = doc.positions[term][:1]

	res := ix.Verify()

	require.Len(t, res.Inconsistencies, 1)
	issue := res.Inconsistencies[0]
	assert.Equal(t, InconsistencyPositions, issue.Type)
	assert.Equal(t, term, issue.Term)
	assert.Equal(t, "/srv/notes/c.txt", issue.Path)
}

func TestVerify_DetectsUnsortedPositions(t *testing.T) {
	ix := verifyTestIndex(t)
	doc := ix.docs["/srv/notes/c.txt"]
	term := termWithFreq(t, doc, 2)
	p := doc.positions[term]
	p[0], p[1] = p[1], p[0]

	res := ix.Verify()

	require.Len(t, res.Inconsistencies, 1)
	issue := res.Inconsistencies[0]
	assert.Equal(t, InconsistencyPositions, issue.Type)
	assert.Contains(t, issue.Details, "not ascending")
}

func TestVerify_DetectsOrphanPositions(t *testing.T) {
	ix := verifyTestIndex(t)
	// Given positions for a term the frequency map never recorded
	ix.docs["/srv/notes/a.txt"].positions["ghost"] = []int{0}

	res := ix.Verify()

	require.Len(t, res.Inconsistencies, 1)
	issue := res.Inconsistencies[0]
	assert.Equal(t, InconsistencyPositions, issue.Type)
	assert.Equal(t, "ghost", issue.Term)
}

func TestVerify_DetectsDocFrequencyDrift(t *testing.T) {
	ix := verifyTestIndex(t)
	var inflated string
	for term := range ix.df {
		inflated = term
		break
	}
	require.NotEmpty(t, inflated)
	// Given one inflated entry and one entry for a vanished term
	ix.df[inflated]++
	ix.df["zzzz"] = 3

	res := ix.Verify()

	require.Len(t, res.Inconsistencies, 2)
	assert.Equal(t, InconsistencyDocFrequency, res.Inconsistencies[0].Type)
	assert.Equal(t, inflated, res.Inconsistencies[0].Term)
	assert.Equal(t, InconsistencyStaleTerm, res.Inconsistencies[1].Type)
	assert.Equal(t, "zzzz", res.Inconsistencies[1].Term)
}

func TestInconsistencyType_String(t *testing.T) {
	assert.Equal(t, "term_count", InconsistencyTermCount.String())
	assert.Equal(t, "term_freq", InconsistencyTermFreq.String())
	assert.Equal(t, "positions", InconsistencyPositions.String())
	assert.Equal(t, "doc_frequency", InconsistencyDocFrequency.String())
	assert.Equal(t, "stale_term", InconsistencyStaleTerm.String())
	assert.Equal(t, "unknown", InconsistencyType(99).String())
}
