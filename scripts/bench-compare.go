//go:build ignore

// Package main compares two `trove bench --json` reports and flags
// regressions.
// Usage: go run scripts/bench-compare.go [options] <current.json> <baseline.json>
//
// Indexing throughput, query latency, and sustained QPS are compared
// against the baseline. A change worse than the threshold (default 20%)
// fails the comparison.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/trove-dev/trove/internal/ui"
)

const (
	// RegressionThreshold is the maximum allowed degradation (20%).
	RegressionThreshold = 0.20

	// ImprovementThreshold for highlighting significant improvements.
	ImprovementThreshold = 0.10
)

var (
	outputJSON    = flag.Bool("json", false, "Output results as JSON")
	threshold     = flag.Float64("threshold", RegressionThreshold, "Regression threshold (0.0-1.0)")
	verbose       = flag.Bool("verbose", false, "Show unchanged metrics too")
	failOnRegress = flag.Bool("fail", true, "Exit with code 1 on regression")
)

// Comparison is one metric measured against the baseline.
type Comparison struct {
	Metric      string  `json:"metric"`
	Current     float64 `json:"current"`
	Baseline    float64 `json:"baseline"`
	DeltaPct    float64 `json:"delta_percent"`
	IsRegressed bool    `json:"is_regressed"`
	IsImproved  bool    `json:"is_improved"`
	Status      string  `json:"status"`
}

// Report contains all comparison results.
type Report struct {
	Regressions      int           `json:"regressions"`
	Improvements     int           `json:"improvements"`
	Unchanged        int           `json:"unchanged"`
	Results          []*Comparison `json:"results"`
	RegressionFailed bool          `json:"regression_failed"`
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <current.json> <baseline.json>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Compares two 'trove bench --json' reports and detects regressions.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}

	current, err := loadReport(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading current report %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
	baseline, err := loadReport(flag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading baseline report %s: %v\n", flag.Arg(1), err)
		os.Exit(1)
	}

	report := compare(current, baseline, *threshold)

	if *outputJSON {
		outputJSONReport(report)
	} else {
		outputTextReport(report)
	}

	if *failOnRegress && report.RegressionFailed {
		os.Exit(1)
	}
}

func loadReport(path string) (ui.BenchReport, error) {
	var report ui.BenchReport
	data, err := os.ReadFile(path)
	if err != nil {
		return report, err
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("not a bench report: %w", err)
	}
	return report, nil
}

// compare walks the comparable metrics of both reports. lowerIsBetter holds
// for durations; throughput metrics invert the sign.
func compare(current, baseline ui.BenchReport, threshold float64) *Report {
	report := &Report{}

	addMetric(report, "index_ms", current.IndexMS, baseline.IndexMS, true, threshold)
	addMetric(report, "files_per_sec", current.FilesPerSec, baseline.FilesPerSec, false, threshold)
	addMetric(report, "avg_query_ms", current.AvgQueryMS, baseline.AvgQueryMS, true, threshold)
	addMetric(report, "qps", current.QPS, baseline.QPS, false, threshold)

	baseQueries := make(map[string]ui.QueryTiming, len(baseline.Queries))
	for _, q := range baseline.Queries {
		baseQueries[q.Query] = q
	}
	for _, q := range current.Queries {
		base, ok := baseQueries[q.Query]
		if !ok {
			continue
		}
		addMetric(report, "query "+q.Query, q.AvgMS, base.AvgMS, true, threshold)
	}

	return report
}

func addMetric(report *Report, name string, current, baseline float64, lowerIsBetter bool, threshold float64) {
	if baseline <= 0 {
		return
	}

	deltaPct := (current - baseline) / baseline
	worse := deltaPct
	if !lowerIsBetter {
		worse = -deltaPct
	}

	result := &Comparison{
		Metric:   name,
		Current:  current,
		Baseline: baseline,
		DeltaPct: deltaPct * 100,
	}

	switch {
	case worse > threshold:
		result.IsRegressed = true
		result.Status = "REGRESSION"
		report.Regressions++
		report.RegressionFailed = true
	case worse < -ImprovementThreshold:
		result.IsImproved = true
		result.Status = "IMPROVED"
		report.Improvements++
	default:
		result.Status = "OK"
		report.Unchanged++
	}

	if result.IsRegressed || result.IsImproved || *verbose {
		report.Results = append(report.Results, result)
	}
}

// outputTextReport prints a human-readable report.
func outputTextReport(report *Report) {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("BENCH COMPARISON")
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()

	fmt.Printf("Regressions:  %d (> %.0f%% worse)\n", report.Regressions, *threshold*100)
	fmt.Printf("Improvements: %d (> %.0f%% better)\n", report.Improvements, ImprovementThreshold*100)
	fmt.Printf("Unchanged:    %d\n", report.Unchanged)
	fmt.Println()

	if len(report.Results) > 0 {
		fmt.Printf("%-30s %12s %12s %10s\n", "METRIC", "CURRENT", "BASELINE", "DELTA")
		fmt.Println(strings.Repeat("-", 72))
		for _, r := range report.Results {
			fmt.Printf("%-30s %12.2f %12.2f %+8.1f%%  %s\n",
				truncate(r.Metric, 30), r.Current, r.Baseline, r.DeltaPct, r.Status)
		}
		fmt.Println(strings.Repeat("-", 72))
	}

	fmt.Println()
	if report.RegressionFailed {
		fmt.Printf("FAILED: %d metric(s) regressed by more than %.0f%%\n",
			report.Regressions, *threshold*100)
	} else {
		fmt.Println("PASSED: no significant regressions.")
	}
}

// outputJSONReport outputs the report as JSON.
func outputJSONReport(report *Report) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func truncate(name string, maxLen int) string {
	if len(name) <= maxLen {
		return name
	}
	return name[:maxLen-3] + "..."
}
