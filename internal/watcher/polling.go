package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// poller detects changes by rescanning the tree on an interval. It backs
// the watcher on filesystems where fsnotify does not work.
type poller struct {
	interval time.Duration
	prune    func(rel string) bool
	root     string

	mu      sync.Mutex
	seen    map[string]fileStamp
	stopped bool

	events chan FileEvent
	errs   chan error
	stopCh chan struct{}
}

// fileStamp is the change-detection fingerprint of one path.
type fileStamp struct {
	mod  time.Time
	size int64
	dir  bool
}

// newPoller creates a poller. prune, when non-nil, short-circuits scanning
// of excluded directory subtrees.
func newPoller(interval time.Duration, prune func(rel string) bool) *poller {
	return &poller{
		interval: interval,
		prune:    prune,
		seen:     make(map[string]fileStamp),
		events:   make(chan FileEvent, 100),
		errs:     make(chan error, 10),
		stopCh:   make(chan struct{}),
	}
}

// Start scans root on the configured interval until ctx is cancelled or
// Stop is called. The first scan only records a baseline, so files that
// predate the watcher produce no events.
func (p *poller) Start(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve poll root: %w", err)
	}
	p.root = abs

	baseline, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("baseline scan: %w", err)
	}
	p.mu.Lock()
	p.seen = baseline
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.sweep(); err != nil {
				select {
				case p.errs <- err:
				default:
				}
			}
		}
	}
}

// snapshot walks the tree and returns the fingerprint of every live path.
func (p *poller) snapshot() (map[string]fileStamp, error) {
	state := make(map[string]fileStamp)

	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == p.root {
				return err
			}
			return nil
		}

		rel, rerr := filepath.Rel(p.root, path)
		if rerr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() && p.prune != nil && p.prune(rel) {
			return filepath.SkipDir
		}

		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}
		state[rel] = fileStamp{mod: info.ModTime(), size: info.Size(), dir: d.IsDir()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", p.root, err)
	}
	return state, nil
}

// sweep diffs the current tree against the previous scan and emits one
// event per difference.
func (p *poller) sweep() error {
	current, err := p.snapshot()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for rel, stamp := range current {
		prev, ok := p.seen[rel]
		switch {
		case !ok:
			p.emit(FileEvent{Path: rel, Operation: OpCreate, IsDir: stamp.dir, Timestamp: time.Now()})
		case prev.mod != stamp.mod || prev.size != stamp.size:
			p.emit(FileEvent{Path: rel, Operation: OpModify, IsDir: stamp.dir, Timestamp: time.Now()})
		}
	}
	for rel, stamp := range p.seen {
		if _, ok := current[rel]; !ok {
			p.emit(FileEvent{Path: rel, Operation: OpDelete, IsDir: stamp.dir, Timestamp: time.Now()})
		}
	}

	p.seen = current
	return nil
}

// emit sends without blocking. Callers hold p.mu.
func (p *poller) emit(ev FileEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- ev:
	default:
		slog.Warn("poll_event_dropped",
			slog.String("path", ev.Path),
			slog.String("op", ev.Operation.String()))
	}
}

// Stop halts scanning and closes the event channels. Safe to call more
// than once.
func (p *poller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errs)
	return nil
}

// Events returns the raw, undebounced event stream.
func (p *poller) Events() <-chan FileEvent {
	return p.events
}

// Errors returns scan failures.
func (p *poller) Errors() <-chan error {
	return p.errs
}
