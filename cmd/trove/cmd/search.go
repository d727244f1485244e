package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trove-dev/trove/internal/index"
	"github.com/trove-dev/trove/internal/output"
)

func newSearchCmd() *cobra.Command {
	var (
		limit    int
		minScore float64
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query> [path]",
		Short: "Query an indexed directory",
		Long: `Run a ranked full-text query against a saved snapshot.

The snapshot must exist; run 'trove index' first. Results are ordered by
relevance (term frequency weighted by corpus rarity, with coverage and
exact-phrase boosts) and ties break on path.

Examples:
  trove search "quick fox"
  trove search fox ~/notes --limit 5
  trove search fox --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 1 {
				path = args[1]
			}
			return runSearch(cmd, args[0], path, limit, minScore, asJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (0 means the configured default)")
	cmd.Flags().Float64Var(&minScore, "min-score", -1, "Hide results scoring below this (negative means the configured default)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output results as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, query, path string, limit int, minScore float64, asJSON bool) error {
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
		if index.SnapshotMissing(err) {
			hint := "trove index"
			if path != "" {
				hint += " " + path
			}
			return fmt.Errorf("no index found at %s. Run '%s' first", root, hint)
		}
		return err
	}

	start := time.Now()
	results := idx.Query(query)
	slog.Info("search_complete",
		slog.String("query", query),
		slog.Int("results", len(results)),
		slog.Duration("took", time.Since(start)))

	// Results arrive sorted by score, so the first one below the threshold
	// ends the listing.
	visible := make([]index.Result, 0, limit)
	for _, r := range results {
		if r.Score < minScore {
			break
		}
		visible = append(visible, r)
		if len(visible) == limit {
			break
		}
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(visible)
	}

	out := output.New(cmd.OutOrStdout())
	if len(visible) == 0 {
		out.Statusf("", "No results found for %q", query)
		return nil
	}

	out.Statusf("🔍", "Found %d results for %q:", len(visible), query)
	out.Newline()
	for i, r := range visible {
		out.Statusf("", "%d. %s (score: %.4f)", i+1, displayPath(root, r.Path), r.Score)
	}
	return nil
}

// displayPath shortens path for terminal listing when it sits under root.
func displayPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
