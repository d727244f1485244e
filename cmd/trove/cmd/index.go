package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/trove-dev/trove/internal/ignore"
	"github.com/trove-dev/trove/internal/index"
	"github.com/trove-dev/trove/internal/output"
	"github.com/trove-dev/trove/internal/pipeline"
	"github.com/trove-dev/trove/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var (
		workers   int
		reconcile bool
		verify    bool
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory and save a snapshot",
		Long: `Index every eligible text file under a directory.

An existing snapshot is loaded first, so only new and modified files are
re-read; the rest are skipped by modification time. The updated snapshot
is written back to ` + index.SnapshotName + ` in the target root.

Progress renders interactively on a terminal and as plain log lines when
output is redirected. --quiet suppresses progress entirely.

--verify cross-checks the built index's internal structures before the
snapshot is written and fails without writing if anything disagrees.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runIndex(ctx, cmd, path, workers, reconcile, verify, quiet)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Indexing worker count (0 means one per CPU)")
	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "Evict index entries whose files no longer exist")
	cmd.Flags().BoolVar(&verify, "verify", false, "Cross-check index structures before saving")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress progress output")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, workers int, reconcile, verify, quiet bool) error {
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

	if workers <= 0 {
		workers = cfg.Index.Workers
	}

	uiOut := cmd.OutOrStdout()
	if quiet {
		uiOut = io.Discard
	}
	renderer := ui.NewRenderer(ui.NewConfig(uiOut, ui.WithForcePlain(quiet), ui.WithRoot(root)))
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("renderer_start_failed", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	// Warm start from the existing snapshot so unchanged files are skipped.
	// A corrupt snapshot is not fatal here: this command's job is to rebuild
	// it.
	idx := index.New()
	snapPath := filepath.Join(root, index.SnapshotName)
	if loaded, loadErr := index.LoadSnapshot(snapPath); loadErr == nil {
		idx = loaded
	} else if !index.SnapshotMissing(loadErr) {
		slog.Warn("snapshot_unreadable",
			slog.String("path", snapPath),
			slog.String("error", loadErr.Error()))
		renderer.AddError(ui.ErrorEvent{File: snapPath, Err: loadErr, IsWarn: true})
	}

	matcher := ignore.Load(root, slog.Default())

	var total int
	pl := pipeline.New(idx,
		pipeline.WithWorkers(workers),
		pipeline.WithMatcher(matcher),
		pipeline.WithProgress(func(pr pipeline.Progress) {
			renderer.UpdateProgress(ui.ProgressEvent{
				Stage:       ui.StageIndexing,
				Current:     pr.Indexed + pr.Skipped,
				Total:       total,
				CurrentFile: pr.Path,
			})
		}),
	)

	renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageScanning,
		Message: "scanning " + root,
	})
	total, err = pl.CountEligible(ctx, root)
	if err != nil {
		return err
	}

	start := time.Now()
	indexed, runErr := pl.IndexDir(ctx, root)
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}

	evicted := 0
	if reconcile {
		evicted = pl.Reconcile(root)
		slog.Info("reconcile_complete", slog.Int("evicted", evicted))
	}

	var verified *index.VerifyResult
	if verify {
		verified = idx.Verify()
		for _, issue := range verified.Inconsistencies {
			slog.Error("index_inconsistent",
				slog.String("type", issue.Type.String()),
				slog.String("path", issue.Path),
				slog.String("term", issue.Term),
				slog.String("details", issue.Details))
		}
		if n := len(verified.Inconsistencies); n > 0 {
			return fmt.Errorf("index verification found %d inconsistencies", n)
		}
	}

	if err := index.SaveSnapshot(idx, snapPath); err != nil {
		renderer.AddError(ui.ErrorEvent{File: snapPath, Err: err})
		return err
	}

	skipped := total - indexed
	if skipped < 0 {
		skipped = 0
	}
	renderer.Complete(ui.CompletionStats{
		Files:    indexed,
		Skipped:  skipped,
		Duration: time.Since(start),
	})
	_ = renderer.Stop()

	if evicted > 0 && !quiet {
		output.New(cmd.OutOrStdout()).Statusf("🧹", "Evicted %d stale entries", evicted)
	}
	if verified != nil && !quiet {
		output.New(cmd.OutOrStdout()).Successf("Verified %d documents (%d terms) in %s",
			verified.Documents, verified.Terms, verified.Duration.Round(time.Millisecond))
	}

	// A canceled run still saved its partial snapshot; surface the
	// interruption to the caller.
	return runErr
}
