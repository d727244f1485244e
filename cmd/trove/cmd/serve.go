package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/trove-dev/trove/internal/async"
	"github.com/trove-dev/trove/internal/ignore"
	"github.com/trove-dev/trove/internal/index"
	"github.com/trove-dev/trove/internal/output"
	"github.com/trove-dev/trove/internal/pipeline"
	"github.com/trove-dev/trove/internal/preflight"
	"github.com/trove-dev/trove/internal/server"
	"github.com/trove-dev/trove/internal/watcher"
)

// snapshotSaveInterval is how often the running index is persisted. Each
// save is preceded by a reconcile pass so deletions the watcher missed do
// not outlive the process.
const snapshotSaveInterval = 5 * time.Minute

func newServeCmd() *cobra.Command {
	var (
		addr            string
		noWatch         bool
		workers         int
		requireSnapshot bool
	)

	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Serve search over HTTP, keeping the index live",
		Long: `Serve ranked search over HTTP while keeping the index current.

Startup loads the snapshot when one exists, then runs a full reindex in
the background; queries work immediately against whatever was loaded. A
filesystem watcher applies changes incrementally as files are created,
edited, and removed. The snapshot is saved periodically and once more on
shutdown. Preflight checks (disk space, write permissions, descriptor
limits) run first and refuse startup on a critical failure.

Endpoints:
  GET /api/search?q=...   ranked results as JSON
  GET /api/stats          index statistics
  GET /healthz            liveness and watcher health
  GET /                   built-in search page`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runServe(ctx, cmd, path, addr, noWatch, workers, requireSnapshot)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address as host:port (overrides config)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable filesystem watching")
	cmd.Flags().IntVar(&workers, "workers", 0, "Indexing worker count (0 means one per CPU)")
	cmd.Flags().BoolVar(&requireSnapshot, "require-snapshot", false, "Refuse to start without an existing snapshot")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, path, addr string, noWatch bool, workers int, requireSnapshot bool) error {
	root, err := targetRoot(path)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	cleanup := initLogging(cfg)
	defer cleanup()

	if addr == "" {
		addr = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	}
	if workers <= 0 {
		workers = cfg.Index.Workers
	}

	// A server that cannot write its snapshot or register watches is worse
	// than one that refuses to start.
	checker := preflight.New(preflight.WithOutput(cmd.ErrOrStderr()), preflight.WithVerbose(true))
	checks := checker.RunAll(ctx, root)
	for _, c := range checks {
		if c.Status != preflight.StatusPass {
			slog.Warn("preflight_check",
				slog.String("name", c.Name),
				slog.String("status", c.Status.String()),
				slog.String("message", c.Message))
		}
	}
	if checker.HasCriticalFailures(checks) {
		checker.PrintResults(checks)
		return fmt.Errorf("preflight checks failed")
	}

	snapPath := filepath.Join(root, index.SnapshotName)
	idx, err := index.LoadSnapshot(snapPath)
	if err != nil {
		if !index.SnapshotMissing(err) {
			return err
		}
		if requireSnapshot {
			return fmt.Errorf("--require-snapshot: %w", err)
		}
		idx = index.New()
	}

	// The shared pipeline serves watcher increments and periodic reconciles.
	// The rebuild job below builds its own so its progress hook stays out of
	// the incremental path. Neither pins an ignore matcher: rules reload on
	// every batch run.
	pl := pipeline.New(idx, pipeline.WithWorkers(workers))

	rebuild := async.NewJob(func(jctx context.Context, pr *async.Progress) error {
		rpl := pipeline.New(idx,
			pipeline.WithWorkers(workers),
			pipeline.WithProgress(func(p pipeline.Progress) {
				pr.Update(p.Indexed, p.Skipped)
			}),
		)
		if total, err := rpl.CountEligible(jctx, root); err == nil {
			pr.SetTotal(total)
		}
		n, err := rpl.IndexDir(jctx, root)
		if err != nil {
			return err
		}
		slog.Info("background_index_complete", slog.Int("indexed", n))
		saveSnapshot(idx, snapPath)
		return nil
	})

	srv := server.New(idx, server.Config{
		Addr:         addr,
		CacheSize:    cfg.Server.CacheSize,
		DefaultLimit: cfg.Search.MaxResults,
		MinScore:     cfg.Search.MinScore,
		Progress:     rebuild.Progress().Snapshot,
	})
	srv.AddHealthCheck("index", func() bool {
		return rebuild.Progress().Status() != async.StatusError
	})

	var w *watcher.Watcher
	if !noWatch {
		w, err = watcher.New(watcher.Options{DebounceWindow: cfg.Watch.DebounceDuration()})
		if err != nil {
			return err
		}
		srv.AddHealthCheck("watcher", w.Healthy)
	}

	out := output.New(cmd.OutOrStdout())
	out.Statusf("🌐", "Serving http://%s (root: %s)", addr, root)
	if w != nil {
		out.Statusf("👀", "Watching for changes (backend: %s)", w.Backend())
	}

	g, gctx := errgroup.WithContext(ctx)

	// HTTP first: queries answer against whatever was loaded while the
	// background reindex catches up.
	g.Go(func() error { return srv.Run(gctx) })

	// A failed rebuild leaves the loaded snapshot serving and flips the
	// index health probe instead of taking the process down.
	g.Go(func() error {
		rebuild.Start(gctx)
		if err := rebuild.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("background_index_failed", slog.String("error", err.Error()))
		}
		return nil
	})

	if w != nil {
		g.Go(func() error {
			err := w.Start(gctx, root)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			consumeEvents(gctx, w, idx, pl, root)
			return nil
		})
		g.Go(func() error {
			drainWatchErrors(gctx, w)
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(snapshotSaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := pl.Reconcile(root); n > 0 {
					slog.Info("reconcile_complete", slog.Int("evicted", n))
				}
				saveSnapshot(idx, snapPath)
			}
		}
	})

	err = g.Wait()

	// Shutdown save captures whatever the watcher applied last.
	saveSnapshot(idx, snapPath)

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// consumeEvents applies debounced watch batches to the index until ctx ends.
func consumeEvents(ctx context.Context, w *watcher.Watcher, idx *index.Index, pl *pipeline.Pipeline, root string) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.Events():
			if !ok {
				return
			}
			applyBatch(ctx, batch, idx, pl, root)
		}
	}
}

// applyBatch routes one event batch into incremental index work.
func applyBatch(ctx context.Context, batch []watcher.FileEvent, idx *index.Index, pl *pipeline.Pipeline, root string) {
	for _, ev := range batch {
		switch ev.Operation {
		case watcher.OpCreate, watcher.OpModify:
			if ev.IsDir {
				// The watcher announces a new directory's files separately.
				continue
			}
			abs := filepath.Join(root, filepath.FromSlash(ev.Path))
			if pl.FileEligible(root, abs) {
				pl.IndexFile(abs)
			}
		case watcher.OpDelete, watcher.OpRename:
			removeSubtree(idx, filepath.Join(root, filepath.FromSlash(ev.Path)))
		case watcher.OpIgnoreChange:
			slog.Info("ignore_rules_changed", slog.String("root", root))
			resyncIndex(ctx, idx, pl, root)
		case watcher.OpConfigChange:
			slog.Info("config_changed",
				slog.String("root", root),
				slog.String("note", "restart to apply"))
		}
	}
}

// removeSubtree evicts abs and anything indexed beneath it. A deleted
// directory reports only itself, never its contents, and deletion events
// cannot be stat'd to tell files from directories.
func removeSubtree(idx *index.Index, abs string) {
	removed := 0
	if idx.RemoveDocument(abs) {
		removed++
	}
	prefix := abs + string(filepath.Separator)
	for _, p := range idx.Paths() {
		if strings.HasPrefix(p, prefix) && idx.RemoveDocument(p) {
			removed++
		}
	}
	if removed > 0 {
		slog.Info("documents_removed",
			slog.String("path", abs),
			slog.Int("count", removed))
	}
}

// resyncIndex reapplies the ignore rules after they change: entries the new
// rules exclude are evicted, then a batch pass picks up anything newly
// included.
func resyncIndex(ctx context.Context, idx *index.Index, pl *pipeline.Pipeline, root string) {
	matcher := ignore.Load(root, slog.Default())
	prefix := root + string(filepath.Separator)
	for _, p := range idx.Paths() {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rel := filepath.ToSlash(strings.TrimPrefix(p, prefix))
		if matcher.Match(rel, false) {
			idx.RemoveDocument(p)
		}
	}
	if _, err := pl.IndexDir(ctx, root); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("resync_failed", slog.String("error", err.Error()))
	}
}

// drainWatchErrors logs watcher errors. Persistent trouble also shows up in
// the health probe.
func drainWatchErrors(ctx context.Context, w *watcher.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			slog.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

// saveSnapshot persists the index, logging failures rather than returning
// them: a periodic save that loses a round is covered by the next one.
func saveSnapshot(idx *index.Index, path string) {
	if err := index.SaveSnapshot(idx, path); err != nil {
		slog.Error("snapshot_save_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	slog.Debug("snapshot_saved", slog.String("path", path))
}
