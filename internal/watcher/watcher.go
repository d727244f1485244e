package watcher

import (
	"fmt"
	"time"
)

// Operation classifies what happened to a watched path.
type Operation int

const (
	// OpCreate reports a new file or directory.
	OpCreate Operation = iota
	// OpModify reports changed file content.
	OpModify
	// OpDelete reports a removed file or directory.
	OpDelete
	// OpRename reports a path that was renamed away. The new name, if any,
	// arrives as a separate OpCreate.
	OpRename
	// OpIgnoreChange reports an edit to the root .troveignore. The watcher
	// reloads its own rules before emitting this; consumers resync the
	// index against the new rule set.
	OpIgnoreChange
	// OpConfigChange reports an edit to the project config file.
	OpConfigChange
)

// String returns the operation name in log form.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpIgnoreChange:
		return "IGNORE_CHANGE"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed change. Path is relative to the watched root
// and slash-separated.
type FileEvent struct {
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Options tune the watcher.
type Options struct {
	// DebounceWindow is how long a path must stay quiet before its
	// coalesced event is emitted.
	DebounceWindow time.Duration

	// PollInterval is the scan cadence of the polling fallback.
	PollInterval time.Duration

	// EventBufferSize is the capacity, in batches, of the Events channel.
	EventBufferSize int

	// IgnorePatterns are extra exclusions in .troveignore syntax, applied
	// on top of the root ignore file.
	IgnorePatterns []string
}

// DefaultOptions returns the values used when an Options field is left
// zero.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 256,
	}
}

// WithDefaults fills zero fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = d.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = d.EventBufferSize
	}
	return o
}

// Validate rejects option values the watcher cannot run with.
func (o Options) Validate() error {
	if o.DebounceWindow < 0 {
		return fmt.Errorf("debounce window must not be negative, got %s", o.DebounceWindow)
	}
	if o.PollInterval < 0 {
		return fmt.Errorf("poll interval must not be negative, got %s", o.PollInterval)
	}
	if o.EventBufferSize < 0 {
		return fmt.Errorf("event buffer size must not be negative, got %d", o.EventBufferSize)
	}
	return nil
}
