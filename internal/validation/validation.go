// Package validation provides a data-driven golden-query harness for the
// search engine. Queries and their expected winners live in
// testdata/queries.yaml, so ranking changes are tuned by editing data
// rather than rebuilding tests.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trove-dev/trove/internal/index"
)

// QuerySpec defines one golden query with its expected results.
type QuerySpec struct {
	ID       string   `yaml:"id"`       // e.g. "R3"
	Name     string   `yaml:"name"`     // Human-readable name
	Query    string   `yaml:"query"`    // The search query as a user would type it
	Expected []string `yaml:"expected"` // Paths or prefixes that should appear in results
	Notes    string   `yaml:"notes"`    // Optional explanation for maintainers
	Negative bool     `yaml:"-"`        // Set programmatically based on section
}

// QueryConfig holds all golden queries loaded from YAML.
type QueryConfig struct {
	Ranked   []QuerySpec `yaml:"ranked"`
	Negative []QuerySpec `yaml:"negative"`
}

var (
	queriesOnce sync.Once
	queriesData *QueryConfig
	queriesErr  error
)

// LoadQueries loads golden queries from the testdata/queries.yaml file.
// Results are cached after first load.
func LoadQueries() (*QueryConfig, error) {
	queriesOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			queriesErr = fmt.Errorf("failed to get current file path")
			return
		}

		path := filepath.Join(filepath.Dir(filename), "testdata", "queries.yaml")

		data, err := os.ReadFile(path)
		if err != nil {
			queriesErr = fmt.Errorf("failed to read queries file %s: %w", path, err)
			return
		}

		var cfg QueryConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			queriesErr = fmt.Errorf("failed to parse queries YAML: %w", err)
			return
		}

		for i := range cfg.Negative {
			cfg.Negative[i].Negative = true
		}

		queriesData = &cfg
	})

	return queriesData, queriesErr
}

// ResetQueries clears the cached queries (for testing).
func ResetQueries() {
	queriesOnce = sync.Once{}
	queriesData = nil
	queriesErr = nil
}

// RankedQueries returns the golden queries that must hit their expected
// documents. A load failure yields nil and the suite reports 0/0.
func RankedQueries() []QuerySpec {
	cfg, err := LoadQueries()
	if err != nil {
		return nil
	}
	return cfg.Ranked
}

// NegativeQueries returns queries that must come back empty.
func NegativeQueries() []QuerySpec {
	cfg, err := LoadQueries()
	if err != nil {
		return nil
	}
	return cfg.Negative
}

// TestResult captures the outcome of a single golden query.
type TestResult struct {
	Spec       QuerySpec     `json:"spec"`
	Passed     bool          `json:"passed"`
	Duration   time.Duration `json:"duration_ms"`
	TopResults []string      `json:"top_results"` // Relative paths returned, best first
	MatchedAt  int           `json:"matched_at"`  // Position of first expected match (-1 if not found)
	Error      string        `json:"error,omitempty"`
}

// Report captures the results of a full golden-query run.
type Report struct {
	Timestamp     time.Time    `json:"timestamp"`
	Ranked        []TestResult `json:"ranked"`
	Negative      []TestResult `json:"negative"`
	RankedPass    int          `json:"ranked_pass"`
	RankedTotal   int          `json:"ranked_total"`
	NegativePass  int          `json:"negative_pass"`
	NegativeTotal int          `json:"negative_total"`
	Documents     int          `json:"documents"`
}

// Passed reports whether every query in the run succeeded.
func (r *Report) Passed() bool {
	return r.RankedPass == r.RankedTotal && r.NegativePass == r.NegativeTotal
}

// Result inspection depth and the floor below which a hit does not count.
// The floor mirrors the default search configuration so the harness sees
// what a user sees.
const (
	topN          = 10
	minScoreFloor = 0.001
)

// Harness runs golden queries against an index.
type Harness struct {
	idx  *index.Index
	root string
}

// NewHarness creates a harness over idx. Paths in results are reported
// relative to root, matching how expectations are written.
func NewHarness(idx *index.Index, root string) *Harness {
	return &Harness{idx: idx, root: root}
}

// RunQuery executes a single golden query and returns the result.
func (h *Harness) RunQuery(spec QuerySpec) TestResult {
	start := time.Now()
	result := TestResult{
		Spec:      spec,
		MatchedAt: -1,
	}

	hits := h.idx.Query(spec.Query)
	result.Duration = time.Since(start)

	for _, hit := range hits {
		if hit.Score < minScoreFloor {
			break
		}
		rel, err := filepath.Rel(h.root, hit.Path)
		if err != nil {
			rel = hit.Path
		}
		result.TopResults = append(result.TopResults, filepath.ToSlash(rel))
		if len(result.TopResults) == topN {
			break
		}
	}

	if spec.Negative {
		result.Passed = len(result.TopResults) == 0
		if !result.Passed {
			result.Error = fmt.Sprintf("expected no results, got %d", len(result.TopResults))
		}
		return result
	}

	result.Passed, result.MatchedAt = checkExpected(result.TopResults, spec.Expected)
	if !result.Passed {
		result.Error = fmt.Sprintf("expected one of %v in top %d", spec.Expected, topN)
	}
	return result
}

// RunAll executes every golden query and returns the aggregate report.
func (h *Harness) RunAll() *Report {
	report := &Report{
		Timestamp: time.Now(),
		Documents: h.idx.Stats().Documents,
	}

	for _, spec := range RankedQueries() {
		tr := h.RunQuery(spec)
		report.Ranked = append(report.Ranked, tr)
		report.RankedTotal++
		if tr.Passed {
			report.RankedPass++
		}
	}

	for _, spec := range NegativeQueries() {
		tr := h.RunQuery(spec)
		report.Negative = append(report.Negative, tr)
		report.NegativeTotal++
		if tr.Passed {
			report.NegativePass++
		}
	}

	return report
}

// checkExpected verifies whether any expected path appears in the results.
// Expectations match as a prefix (directories) or substring (file names).
func checkExpected(results []string, expected []string) (bool, int) {
	for i, path := range results {
		for _, exp := range expected {
			if strings.HasPrefix(path, exp) || strings.Contains(path, exp) {
				return true, i
			}
		}
	}
	return false, -1
}
