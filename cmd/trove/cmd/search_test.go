package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trove-dev/trove/internal/index"
)

// indexedCorpus writes three small documents and indexes them, returning the
// directory.
func indexedCorpus(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "alpha.txt"),
		[]byte("the quick brown fox jumps over the lazy dog"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "beta.md"),
		[]byte("notes about indexing pipelines and snapshots"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "gamma.txt"),
		[]byte("snapshots of the quick fox archive"), 0o644))

	rootCmd := NewRootCmd()
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"index", tmpDir, "--quiet"})
	require.NoError(t, rootCmd.Execute())
	return tmpDir
}

func TestSearchCmd_RequiresIndex(t *testing.T) {
	// Given: a directory without a snapshot
	tmpDir := t.TempDir()

	// When: running search
	rootCmd := NewRootCmd()
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"search", "anything", tmpDir})

	err := rootCmd.Execute()

	// Then: error about the missing index, pointing at the fix
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index found")
	assert.Contains(t, err.Error(), "trove index")
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	// Given: search command without a query
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search"})

	err := rootCmd.Execute()

	// Then: argument validation fails
	require.Error(t, err)
}

func TestSearchCmd_FindsContent(t *testing.T) {
	// Given: an indexed corpus
	tmpDir := indexedCorpus(t)

	// When: searching a term unique to one file
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "pipelines", tmpDir})

	err := rootCmd.Execute()

	// Then: that file is listed with its score
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "Found 1 results")
	assert.Contains(t, output, "beta.md")
	assert.Contains(t, output, "score:")
	assert.NotContains(t, output, "alpha.txt")
}

func TestSearchCmd_RanksDenserMatchHigher(t *testing.T) {
	// Given: an indexed corpus where "fox" appears in two files
	tmpDir := indexedCorpus(t)

	// When: searching with JSON output to read exact ordering
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "fox", tmpDir, "--json"})

	err := rootCmd.Execute()

	// Then: the shorter document, where the term is a larger share, wins
	require.NoError(t, err)
	var results []index.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Path, "gamma.txt")
	assert.Contains(t, results[1].Path, "alpha.txt")
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchCmd_JSON_ValidOutput(t *testing.T) {
	// Given: an indexed corpus
	tmpDir := indexedCorpus(t)

	// When: searching with --json
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "pipelines", tmpDir, "--json"})

	err := rootCmd.Execute()

	// Then: output decodes to results with absolute paths and scores
	require.NoError(t, err)
	var results []index.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 1)
	assert.True(t, filepath.IsAbs(results[0].Path))
	assert.Contains(t, results[0].Path, "beta.md")
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearchCmd_LimitCapsResults(t *testing.T) {
	// Given: an indexed corpus where "snapshots" appears in two files
	tmpDir := indexedCorpus(t)

	// When: searching with --limit 1
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "snapshots", tmpDir, "--json", "--limit", "1"})

	err := rootCmd.Execute()

	// Then: only the top hit is emitted
	require.NoError(t, err)
	var results []index.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	assert.Len(t, results, 1)
}

func TestSearchCmd_NoResults_ShowsMessage(t *testing.T) {
	// Given: an indexed corpus
	tmpDir := indexedCorpus(t)

	// When: searching for a term in no document
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "xylophone", tmpDir})

	err := rootCmd.Execute()

	// Then: a no-results message, not an error
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No results found")
}

func TestSearchCmd_MinScoreZero_ShowsEverything(t *testing.T) {
	// Given: an indexed corpus
	tmpDir := indexedCorpus(t)

	// When: explicitly asking for zero-score results too
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "xylophone", tmpDir, "--json", "--min-score", "0"})

	err := rootCmd.Execute()

	// Then: every document is listed, all at score zero
	require.NoError(t, err)
	var results []index.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	assert.Len(t, results, 3)
	for _, r := range results {
		assert.Zero(t, r.Score)
	}
}

func TestSearchCmd_Flags(t *testing.T) {
	// Given: the search command
	rootCmd := NewRootCmd()
	searchCmd, _, _ := rootCmd.Find([]string{"search"})
	require.NotNil(t, searchCmd)

	// Then: flags exist with the sentinel defaults that defer to config
	limitFlag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "0", limitFlag.DefValue)

	minScoreFlag := searchCmd.Flags().Lookup("min-score")
	require.NotNil(t, minScoreFlag)
	assert.Equal(t, "-1", minScoreFlag.DefValue)

	jsonFlag := searchCmd.Flags().Lookup("json")
	require.NotNil(t, jsonFlag)
	assert.Equal(t, "false", jsonFlag.DefValue)
}
