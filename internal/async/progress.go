// Package async provides the background rebuild machinery for the serve
// command: a cancelable job runner and a thread-safe progress tracker whose
// snapshots the HTTP server reports.
package async

import (
	"sync"
	"time"
)

// Status represents the overall state of a background rebuild.
type Status string

const (
	// StatusIndexing indicates the rebuild is in progress.
	StatusIndexing Status = "indexing"
	// StatusReady indicates the rebuild finished and the index is current.
	StatusReady Status = "ready"
	// StatusError indicates the rebuild failed.
	StatusError Status = "error"
)

// Snapshot is an immutable copy of rebuild progress.
type Snapshot struct {
	Status         string  `json:"status"`
	FilesTotal     int     `json:"files_total"`
	FilesIndexed   int     `json:"files_indexed"`
	FilesSkipped   int     `json:"files_skipped"`
	ProgressPct    float64 `json:"progress_pct"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// Progress provides thread-safe tracking of a rebuild. The pipeline's
// progress hook feeds it from worker goroutines while the HTTP stats
// handler reads snapshots.
type Progress struct {
	mu sync.RWMutex

	status       Status
	filesTotal   int
	filesIndexed int
	filesSkipped int
	startTime    time.Time
	errorMessage string
}

// NewProgress creates a tracker initialized to the indexing state.
func NewProgress() *Progress {
	return &Progress{
		status:    StatusIndexing,
		startTime: time.Now(),
	}
}

// SetTotal records how many files the rebuild will visit.
func (p *Progress) SetTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filesTotal = total
}

// Update records the files handled so far.
func (p *Progress) Update(indexed, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filesIndexed = indexed
	p.filesSkipped = skipped
}

// SetError marks the rebuild as failed with a message.
func (p *Progress) SetError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusError
	p.errorMessage = message
}

// SetReady marks the rebuild as complete.
func (p *Progress) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusReady
}

// Status returns the current state.
func (p *Progress) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status
}

// Indexing reports whether the rebuild is still in progress.
func (p *Progress) Indexing() bool {
	return p.Status() == StatusIndexing
}

// Snapshot returns an immutable copy of the current state.
func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var pct float64
	if p.filesTotal > 0 {
		pct = float64(p.filesIndexed+p.filesSkipped) / float64(p.filesTotal) * 100.0
	}

	return Snapshot{
		Status:         string(p.status),
		FilesTotal:     p.filesTotal,
		FilesIndexed:   p.filesIndexed,
		FilesSkipped:   p.filesSkipped,
		ProgressPct:    pct,
		ElapsedSeconds: int(time.Since(p.startTime).Seconds()),
		ErrorMessage:   p.errorMessage,
	}
}
