// Package ui provides the terminal surfaces: indexing progress rendering
// and the interactive search screen.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage identifies a phase of a batch indexing run.
type Stage int

const (
	// StageScanning is the eligible-file counting pass.
	StageScanning Stage = iota
	// StageIndexing is the extract-and-commit pass.
	StageIndexing
	// StageComplete indicates the run has finished.
	StageComplete
)

var stageLabels = [...]struct{ name, tag string }{
	StageScanning: {"Scanning", "SCAN"},
	StageIndexing: {"Indexing", "INDEX"},
	StageComplete: {"Complete", "DONE"},
}

// String returns the human-readable stage name.
func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageLabels) {
		return "Unknown"
	}
	return stageLabels[s].name
}

// Icon returns the short stage tag for plain text output.
func (s Stage) Icon() string {
	if s < 0 || int(s) >= len(stageLabels) {
		return "???"
	}
	return stageLabels[s].tag
}

// ProgressEvent carries one progress update from the indexing run.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent reports a problem encountered while indexing.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// CompletionStats summarizes a finished run.
type CompletionStats struct {
	Files    int
	Skipped  int
	Duration time.Duration
	Errors   int
	Warnings int
}

// Renderer is the progress display contract shared by the TUI and the
// plain fallback. Start must be called before events arrive and Stop
// after the last one.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	Complete(stats CompletionStats)
	Stop() error
}

// Config configures the progress renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Root       string // indexed directory shown in the header
}

// ConfigOption mutates a Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) { c.ForcePlain = force }
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) { c.NoColor = noColor }
}

// WithRoot sets the indexed directory shown in the header.
func WithRoot(root string) ConfigOption {
	return func(c *Config) { c.Root = root }
}

// NewConfig builds a Config for the given output.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer picks a renderer for the environment: the TUI on an
// interactive terminal, plain lines for pipes, CI, or --quiet.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || DetectCI() || !IsTTY(cfg.Output) {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
