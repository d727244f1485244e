package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	trerrors "github.com/trove-dev/trove/internal/errors"
	"github.com/trove-dev/trove/internal/ignore"
)

// Watcher streams debounced file event batches for a directory tree.
// fsnotify is the primary backend; when it cannot be initialized (network
// mounts, exhausted inotify limits) the watcher degrades to interval
// polling.
type Watcher struct {
	opts Options
	root string

	fs       *fsnotify.Watcher
	poll     *poller
	debounce *Debouncer

	mu      sync.RWMutex
	matcher *ignore.Matcher
	stopped bool

	events  chan []FileEvent
	errs    chan error
	stopCh  chan struct{}
	dropped atomic.Uint64
}

// New creates a watcher and picks its backend. Watching starts with Start.
func New(opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, trerrors.Wrap(trerrors.CodeWatchFailed, "invalid watch options", err)
	}

	w := &Watcher{
		opts:     opts,
		debounce: NewDebouncer(opts.DebounceWindow),
		matcher:  ignore.New(),
		events:   make(chan []FileEvent, opts.EventBufferSize),
		errs:     make(chan error, 10),
		stopCh:   make(chan struct{}),
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("fsnotify_unavailable",
			slog.String("error", err.Error()))
		w.poll = newPoller(opts.PollInterval, w.ignoresDir)
		return w, nil
	}
	w.fs = fsw
	return w, nil
}

// Start watches root until ctx is cancelled or Stop is called. It blocks,
// running the event loop of the active backend.
func (w *Watcher) Start(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return trerrors.Wrap(trerrors.CodeWatchFailed, "resolve watch root", err)
	}
	w.root = abs

	w.reloadRules()

	go w.forward(ctx)

	if w.fs != nil {
		return w.runFsnotify(ctx)
	}
	return w.runPolling(ctx)
}

// runFsnotify seeds the recursive watch set and pumps raw notifications
// into the debouncer.
func (w *Watcher) runFsnotify(ctx context.Context) error {
	if err := w.watchTree(w.root, false); err != nil {
		return trerrors.Wrap(trerrors.CodeWatchFailed, "seed watch set", err)
	}

	slog.Info("watcher_started",
		slog.String("root", w.root),
		slog.String("backend", w.Backend()))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// runPolling drives the fallback scanner, filtering its raw events the same
// way the fsnotify path does.
func (w *Watcher) runPolling(ctx context.Context) error {
	slog.Info("watcher_started",
		slog.String("root", w.root),
		slog.String("backend", w.Backend()))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case ev, ok := <-w.poll.Events():
				if !ok {
					return
				}
				w.route(ev)
			case err, ok := <-w.poll.Errors():
				if !ok {
					return
				}
				w.emitError(err)
			}
		}
	}()

	return w.poll.Start(ctx, w.root)
}

// handle converts one fsnotify notification into a debounced event.
func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == "." {
		return
	}
	rel = filepath.ToSlash(rel)

	if w.routeSpecial(rel) {
		return
	}

	isDir := false
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	}

	if w.ignores(rel, isDir) {
		return
	}

	var op Operation
	switch {
	case ev.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			// A tree moved into the root arrives as one Create for its
			// top directory. Watch it and announce the files inside.
			_ = w.watchTree(ev.Name, true)
		}
	case ev.Op&fsnotify.Write != 0:
		op = OpModify
	case ev.Op&fsnotify.Remove != 0:
		op = OpDelete
	case ev.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		// Chmod and unknown bits carry no content change.
		return
	}

	w.debounce.Add(FileEvent{
		Path:      rel,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

// route filters a raw polling event through the same special-file and
// ignore checks as the fsnotify path.
func (w *Watcher) route(ev FileEvent) {
	if w.routeSpecial(ev.Path) {
		return
	}
	if w.ignores(ev.Path, ev.IsDir) {
		return
	}
	w.debounce.Add(ev)
}

// routeSpecial intercepts edits to trove's own control files at the root,
// which the hidden-entry rule would otherwise swallow. Returns true when
// the event was consumed.
func (w *Watcher) routeSpecial(rel string) bool {
	switch rel {
	case ignore.IgnoreFileName:
		w.reloadRules()
		w.debounce.Add(FileEvent{Path: rel, Operation: OpIgnoreChange, Timestamp: time.Now()})
		return true
	case ".trove.yaml", ".trove.yml":
		w.debounce.Add(FileEvent{Path: rel, Operation: OpConfigChange, Timestamp: time.Now()})
		return true
	}
	return false
}

// watchTree adds dir and every non-ignored directory beneath it to the
// fsnotify watch set. With announce set, regular files discovered along the
// way are fed to the debouncer as creates.
func (w *Watcher) watchTree(dir string, announce bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// An unreadable subtree is skipped; an unreadable root is fatal.
			if path == dir {
				return err
			}
			return nil
		}

		rel, rerr := filepath.Rel(w.root, path)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && w.ignoresDir(rel) {
				return filepath.SkipDir
			}
			return w.fs.Add(path)
		}

		if announce && d.Type().IsRegular() && !w.ignores(rel, false) {
			w.debounce.Add(FileEvent{Path: rel, Operation: OpCreate, Timestamp: time.Now()})
		}
		return nil
	})
}

// ignoresDir reports whether a directory subtree is excluded from watching.
func (w *Watcher) ignoresDir(rel string) bool {
	return w.ignores(rel, true)
}

// ignores applies the hidden-entry rule and the ignore rules to a
// root-relative path.
func (w *Watcher) ignores(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	if rel == "" || rel == "." {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.matcher.Match(rel, isDir)
}

// reloadRules rebuilds the ignore matcher from the root ignore file plus
// the configured extra patterns.
func (w *Watcher) reloadRules() {
	m := ignore.Load(w.root, slog.Default())
	for _, p := range w.opts.IgnorePatterns {
		if err := m.AddPattern(p); err != nil {
			slog.Warn("ignore_pattern_rejected",
				slog.String("pattern", p),
				slog.String("error", err.Error()))
		}
	}

	w.mu.Lock()
	w.matcher = m
	w.mu.Unlock()
}

// forward relays debounced batches to the public channel.
func (w *Watcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debounce.Output():
			if !ok {
				return
			}
			if len(batch) == 0 {
				continue
			}
			w.emit(batch)
		}
	}
}

// emit sends without blocking so a stalled consumer degrades to dropped
// batches instead of a wedged watcher. The read lock is held across the
// send so Stop cannot close the channel mid-send.
func (w *Watcher) emit(batch []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.events <- batch:
	default:
		n := w.dropped.Add(1)
		slog.Warn("event_batch_dropped",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped", n))
	}
}

// emitError sends a non-fatal backend error, dropping it when nobody reads.
func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.errs <- err:
	default:
	}
}

// Stop halts watching and closes the event and error channels. Safe to
// call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)

	w.debounce.Stop()
	if w.fs != nil {
		_ = w.fs.Close()
	}
	if w.poll != nil {
		_ = w.poll.Stop()
	}

	close(w.events)
	close(w.errs)
	return nil
}

// Events returns the channel of debounced event batches. Closed by Stop.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns the channel of non-fatal backend errors. Closed by Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Healthy reports whether the watcher is still running.
func (w *Watcher) Healthy() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.stopped
}

// Backend names the active watching mechanism, "fsnotify" or "polling".
func (w *Watcher) Backend() string {
	if w.fs != nil {
		return "fsnotify"
	}
	return "polling"
}

// DroppedBatches counts batches discarded because the consumer fell behind.
func (w *Watcher) DroppedBatches() uint64 {
	return w.dropped.Load()
}
