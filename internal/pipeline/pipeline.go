// Package pipeline drives batch and single-file indexing. A batch run walks
// the directory tree, prunes ignored and hidden subtrees, and fans eligible
// files out to a bounded worker pool. Each worker extracts and analyzes its
// file outside the index lock and commits the result in a short write-lock
// section.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	trerrors "github.com/trove-dev/trove/internal/errors"
	"github.com/trove-dev/trove/internal/extract"
	"github.com/trove-dev/trove/internal/ignore"
	"github.com/trove-dev/trove/internal/index"
)

// Progress is a point-in-time view of a running batch, delivered after each
// file settles. Deliveries arrive from worker goroutines in no particular
// order.
type Progress struct {
	// Path is the file that just settled.
	Path string
	// Indexed counts files committed so far.
	Indexed int
	// Skipped counts files passed over so far (current, unreadable, or
	// failed extraction).
	Skipped int
}

// ProgressFunc receives batch progress. Implementations must be safe for
// concurrent calls.
type ProgressFunc func(Progress)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers overrides the worker count. Values below one fall back to
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMatcher injects an ignore matcher. When unset, IndexDir loads the
// root's ignore file at the start of each run.
func WithMatcher(m *ignore.Matcher) Option {
	return func(p *Pipeline) { p.matcher = m }
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// Pipeline feeds an index from the filesystem.
type Pipeline struct {
	idx      *index.Index
	matcher  *ignore.Matcher
	logger   *slog.Logger
	workers  int
	progress ProgressFunc
}

// New returns a pipeline committing into idx.
func New(idx *index.Index, opts ...Option) *Pipeline {
	p := &Pipeline{idx: idx}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// IndexDir walks root and (re)indexes every eligible file that is new or
// stale, returning the number of documents committed. Per-file failures are
// logged and skipped; only a failure to walk root itself is an error.
//
// Cancellation applies at the submission boundary: once ctx is done no new
// files are dispatched, but files already in flight run to completion and
// their commits count. The partial total is returned alongside ctx's error.
func (p *Pipeline) IndexDir(ctx context.Context, root string) (int, error) {
	absRoot, err := resolveRoot(root)
	if err != nil {
		return 0, err
	}

	matcher := p.matcher
	if matcher == nil {
		matcher = ignore.Load(absRoot, p.logger)
	}

	workers := p.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p.logger.Info("index_walk_started",
		slog.String("root", absRoot),
		slog.Int("workers", workers))

	var indexed, skipped atomic.Int64
	settle := func(path string, committed bool) {
		if committed {
			indexed.Add(1)
		} else {
			skipped.Add(1)
		}
		if p.progress != nil {
			p.progress(Progress{
				Path:    path,
				Indexed: int(indexed.Load()),
				Skipped: int(skipped.Load()),
			})
		}
	}

	var g errgroup.Group
	g.SetLimit(workers)

	walkErr := p.walkEligible(ctx, absRoot, matcher, func(path string) {
		g.Go(func() error {
			settle(path, p.IndexFile(path))
			return nil
		})
	})

	_ = g.Wait()

	total := int(indexed.Load())
	p.logger.Info("index_walk_complete",
		slog.String("root", absRoot),
		slog.Int("indexed", total),
		slog.Int("skipped", int(skipped.Load())))
	return total, walkErr
}

// CountEligible walks root with the batch filters and reports how many files
// a run would dispatch. Progress displays size their bars with it before
// IndexDir streams results.
func (p *Pipeline) CountEligible(ctx context.Context, root string) (int, error) {
	absRoot, err := resolveRoot(root)
	if err != nil {
		return 0, err
	}

	matcher := p.matcher
	if matcher == nil {
		matcher = ignore.Load(absRoot, p.logger)
	}

	count := 0
	err = p.walkEligible(ctx, absRoot, matcher, func(string) { count++ })
	return count, err
}

// walkEligible applies the batch filters while walking root, calling fn for
// every file that survives them. The matcher prunes whole directories so
// ignored and hidden subtrees are never descended.
func (p *Pipeline) walkEligible(ctx context.Context, root string, matcher *ignore.Matcher, fn func(path string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			p.logger.Warn("walk_entry_skipped",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		base := d.Name()

		if d.IsDir() {
			if strings.HasPrefix(base, ".") || matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(base, ".") || matcher.Match(rel, false) {
			return nil
		}
		if !extract.Supported(path) {
			return nil
		}

		fn(path)
		return nil
	})
}

func resolveRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", trerrors.Wrapf(trerrors.CodeWalkFailed, err, "resolve %s", root)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return "", trerrors.Wrapf(trerrors.CodeWalkFailed, err, "stat %s", absRoot)
	}
	if !info.IsDir() {
		return "", trerrors.New(trerrors.CodeWalkFailed, "not a directory: "+absRoot)
	}
	return absRoot, nil
}

// IndexFile runs the per-file chain on one path: stat, staleness probe,
// extract, analyze, commit. Content work happens outside the index lock;
// the probe takes the read side and the commit the write side. It reports
// whether the index was updated. Failures are logged, never returned.
//
// The probe-then-commit window is not atomic: a concurrent run can index
// the same file twice. The second commit fully replaces the first, so the
// race costs duplicate work, not consistency.
func (p *Pipeline) IndexFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		p.logger.Warn("file_skipped",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return false
	}

	if !p.idx.RequiresReindexing(path, info.ModTime()) {
		return false
	}

	text, err := extract.Extract(path)
	if err != nil {
		p.logger.Warn("file_skipped",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return false
	}

	p.idx.AddDocument(path, info.ModTime(), index.Analyze(text))
	p.logger.Debug("file_indexed", slog.String("path", path))
	return true
}

// FileEligible reports whether path, under root, would survive the batch
// walk's filters: inside root, no hidden component, not ignored, and on the
// extraction allowlist. Watch mode applies it to event paths, which arrive
// as leaves without the walk's directory pruning.
func (p *Pipeline) FileEligible(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}

	matcher := p.matcher
	if matcher != nil && matcher.Match(rel, false) {
		return false
	}
	return extract.Supported(path)
}

// Reconcile evicts documents under root whose files no longer exist on
// disk, returning the number removed. Only a definite absence evicts; a
// path that merely fails to stat stays put.
func (p *Pipeline) Reconcile(root string) int {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return 0
	}
	prefix := absRoot + string(filepath.Separator)

	removed := 0
	for _, path := range p.idx.Paths() {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if p.idx.RemoveDocument(path) {
				removed++
				p.logger.Info("document_evicted", slog.String("path", path))
			}
		}
	}
	return removed
}
