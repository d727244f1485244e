package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CheckStatus classifies the outcome of a single preflight check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// String returns the display form used in reports and logs.
func (s CheckStatus) String() string {
	return strings.ToUpper(string(s))
}

// CheckResult holds the outcome of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical reports whether a required check failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker runs environment validations before long-running commands start.
type Checker struct {
	verbose bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables detail lines in printed output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) { c.verbose = verbose }
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.output = w }
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{output: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every preflight check against the project root. The order
// is fixed so reports read the same from run to run.
func (c *Checker) RunAll(_ context.Context, projectPath string) []CheckResult {
	checks := []func() CheckResult{
		func() CheckResult { return c.CheckDiskSpace(projectPath) },
		c.CheckMemory,
		func() CheckResult { return c.CheckWritePermissions(projectPath) },
		c.CheckFileDescriptors,
	}

	results := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		results = append(results, check())
	}
	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus condenses the results into one machine-readable word:
// "failed" when a required check failed, "ready_with_warnings" when
// anything else was not a clean pass, "ready" otherwise.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	var critical, advisory int
	for _, r := range results {
		switch {
		case r.IsCritical():
			critical++
		case r.Status != StatusPass:
			advisory++
		}
	}

	switch {
	case critical > 0:
		return "failed"
	case advisory > 0:
		return "ready_with_warnings"
	default:
		return "ready"
	}
}

// PrintResults writes a human-readable report to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "trove preflight")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "  %-4s  %-18s %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "        %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	for _, r := range results {
		if r.IsCritical() {
			_, _ = fmt.Fprintf(c.output, "  error: %s: %s\n", r.Name, r.Message)
		}
	}
}

// CheckWritePermissions probes that the project directory accepts writes.
// The snapshot and its lock file live next to the indexed tree, so a
// read-only root makes every indexing command fail later anyway.
func (c *Checker) CheckWritePermissions(path string) CheckResult {
	probe := filepath.Join(path, ".trove-preflight-probe")
	f, err := os.Create(probe)
	if err != nil {
		return CheckResult{
			Name:     "write_permissions",
			Required: true,
			Status:   StatusFail,
			Message:  fmt.Sprintf("project root not writable: %v", err),
		}
	}
	_ = f.Close()
	_ = os.Remove(probe)

	return CheckResult{
		Name:     "write_permissions",
		Required: true,
		Status:   StatusPass,
		Message:  "project root is writable",
	}
}
