package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trove-dev/trove/internal/ignore"
	"github.com/trove-dev/trove/internal/index"
	"github.com/trove-dev/trove/internal/output"
	"github.com/trove-dev/trove/internal/pipeline"
	"github.com/trove-dev/trove/internal/ui"
)

func newTuiCmd() *cobra.Command {
	var (
		limit    int
		minScore float64
	)

	cmd := &cobra.Command{
		Use:   "tui [path]",
		Short: "Search interactively in a full-screen terminal UI",
		Long: `Search interactively in a full-screen terminal UI.

Results update as you type. Arrow keys move the selection, enter prints
the selected path to stdout and exits, esc exits without printing. When
no snapshot exists the directory is indexed first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runTui(ctx, cmd, path, limit, minScore)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum visible results (overrides config)")
	cmd.Flags().Float64Var(&minScore, "min-score", -1, "Minimum score to show (overrides config)")

	return cmd
}

func runTui(ctx context.Context, cmd *cobra.Command, path string, limit int, minScore float64) error {
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

	if limit <= 0 {
		limit = cfg.Search.MaxResults
	}
	if minScore < 0 {
		minScore = cfg.Search.MinScore
	}

	snapPath := filepath.Join(root, index.SnapshotName)
	idx, err := index.LoadSnapshot(snapPath)
	if err != nil {
		if !index.SnapshotMissing(err) {
			return err
		}
		idx, err = buildIndex(ctx, cmd, root, cfg.Index.Workers, snapPath)
		if err != nil {
			return err
		}
	}

	chosen, err := ui.RunSearch(idx, root, limit, minScore, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if chosen != "" {
		fmt.Fprintln(cmd.OutOrStdout(), chosen)
	}
	return nil
}

// buildIndex does a one-shot index of root so the TUI has something to
// search. The snapshot save is best effort; a failure only costs the next
// invocation a rebuild.
func buildIndex(ctx context.Context, cmd *cobra.Command, root string, workers int, snapPath string) (*index.Index, error) {
	out := output.New(cmd.ErrOrStderr())
	out.Statusf("📂", "No snapshot found, indexing %s first...", root)

	idx := index.New()
	matcher := ignore.Load(root, slog.Default())
	pl := pipeline.New(idx,
		pipeline.WithWorkers(workers),
		pipeline.WithMatcher(matcher),
	)
	n, err := pl.IndexDir(ctx, root)
	if err != nil {
		return nil, err
	}
	out.Statusf("", "indexed %d files", n)

	if serr := index.SaveSnapshot(idx, snapPath); serr != nil {
		slog.Warn("snapshot_save_failed",
			slog.String("path", snapPath),
			slog.String("error", serr.Error()))
	}
	return idx, nil
}
