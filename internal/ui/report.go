package ui

import (
	"encoding/json"
	"fmt"
	"io"
)

// QueryTiming is one sample query's latency summary.
type QueryTiming struct {
	Query   string  `json:"query"`
	AvgMS   float64 `json:"avg_ms"`
	Results int     `json:"results"`
}

// BenchReport collects a benchmark run's measurements.
type BenchReport struct {
	Root        string        `json:"root"`
	Files       int           `json:"files"`
	IndexMS     float64       `json:"index_ms"`
	FilesPerSec float64       `json:"files_per_sec"`
	HeapBytes   uint64        `json:"heap_bytes"`
	Queries     []QueryTiming `json:"queries"`
	AvgQueryMS  float64       `json:"avg_query_ms"`
	QPS         float64       `json:"qps"`
	QPSWindowS  float64       `json:"qps_window_seconds"`
}

// BenchRenderer displays benchmark results.
type BenchRenderer struct {
	out    io.Writer
	styles Styles
}

// NewBenchRenderer creates a benchmark report renderer.
func NewBenchRenderer(out io.Writer, noColor bool) *BenchRenderer {
	return &BenchRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render prints the report as sectioned text.
func (r *BenchRenderer) Render(report BenchReport) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Benchmark: "+report.Root))

	_, _ = fmt.Fprintln(r.out, "  Indexing:")
	_, _ = fmt.Fprintf(r.out, "    Files:      %d\n", report.Files)
	_, _ = fmt.Fprintf(r.out, "    Duration:   %.0f ms\n", report.IndexMS)
	_, _ = fmt.Fprintf(r.out, "    Throughput: %.0f files/sec\n", report.FilesPerSec)
	if report.HeapBytes > 0 {
		_, _ = fmt.Fprintf(r.out, "    Heap:       %s\n", FormatBytes(int64(report.HeapBytes)))
	}
	_, _ = fmt.Fprintln(r.out)

	if len(report.Queries) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Query latency:")
		for _, q := range report.Queries {
			_, _ = fmt.Fprintf(r.out, "    %-22q %8.3f ms  (%d results)\n", q.Query, q.AvgMS, q.Results)
		}
		_, _ = fmt.Fprintf(r.out, "    %-22s %8.3f ms\n", "average", report.AvgQueryMS)
		_, _ = fmt.Fprintln(r.out)
	}

	_, _ = fmt.Fprintf(r.out, "  Sustained: %.0f queries/sec over %.0fs\n", report.QPS, report.QPSWindowS)
	return nil
}

// RenderJSON prints the report as indented JSON.
func (r *BenchRenderer) RenderJSON(report BenchReport) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// FormatBytes formats a byte count in human-readable units.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
