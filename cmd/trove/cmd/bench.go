package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/trove-dev/trove/internal/ignore"
	"github.com/trove-dev/trove/internal/index"
	"github.com/trove-dev/trove/internal/pipeline"
	"github.com/trove-dev/trove/internal/profiling"
	"github.com/trove-dev/trove/internal/ui"
)

const (
	benchWarmupRuns = 3
	benchQueryRuns  = 20
)

// defaultBenchQueries mixes common single terms, a multi-term query, and a
// phrase so all ranking paths get timed.
var defaultBenchQueries = []string{
	"error",
	"config",
	"search index",
	"\"not found\"",
}

type benchOptions struct {
	queries     []string
	window      time.Duration
	workers     int
	asJSON      bool
	cpuProfile  string
	heapProfile string
}

func newBenchCmd() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench [path]",
		Short: "Measure indexing and query performance",
		Long: `Measure indexing and query performance on a directory.

The directory is indexed from scratch into memory (the snapshot on disk
is not touched), then each query is timed individually, then queries run
round-robin for the window to measure sustained throughput.

--cpu-profile captures a pprof CPU profile spanning the whole run;
--heap-profile writes a heap snapshot after it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runBench(ctx, cmd, path, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.queries, "queries", nil, "Queries to time (default: a built-in mix)")
	cmd.Flags().DurationVar(&opts.window, "window", 5*time.Second, "Duration of the sustained-throughput phase")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Indexing worker count (0 means one per CPU)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Emit the report as JSON")
	cmd.Flags().StringVar(&opts.cpuProfile, "cpu-profile", "", "Write a CPU profile to this path")
	cmd.Flags().StringVar(&opts.heapProfile, "heap-profile", "", "Write a heap profile to this path")

	return cmd
}

func runBench(ctx context.Context, cmd *cobra.Command, path string, opts benchOptions) error {
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

	if opts.workers <= 0 {
		opts.workers = cfg.Index.Workers
	}
	queries := opts.queries
	if len(queries) == 0 {
		queries = defaultBenchQueries
	}

	prof := profiling.NewProfiler()
	if opts.cpuProfile != "" {
		stop, err := prof.StartCPU(opts.cpuProfile)
		if err != nil {
			return err
		}
		defer stop()
	}

	idx := index.New()
	matcher := ignore.Load(root, slog.Default())
	pl := pipeline.New(idx,
		pipeline.WithWorkers(opts.workers),
		pipeline.WithMatcher(matcher),
	)

	start := time.Now()
	files, err := pl.IndexDir(ctx, root)
	if err != nil {
		return err
	}
	indexDur := time.Since(start)

	report := ui.BenchReport{
		Root:      root,
		Files:     files,
		IndexMS:   float64(indexDur.Microseconds()) / 1000,
		HeapBytes: profiling.MemStats().HeapAlloc,
	}
	if indexDur > 0 {
		report.FilesPerSec = float64(files) / indexDur.Seconds()
	}

	report.Queries = timeQueries(ctx, idx, queries)
	var totalMS float64
	for _, q := range report.Queries {
		totalMS += q.AvgMS
	}
	if len(report.Queries) > 0 {
		report.AvgQueryMS = totalMS / float64(len(report.Queries))
	}

	report.QPS, report.QPSWindowS = sustainedQPS(ctx, idx, queries, opts.window)

	if opts.heapProfile != "" {
		if err := prof.WriteHeap(opts.heapProfile); err != nil {
			return err
		}
	}

	renderer := ui.NewBenchRenderer(cmd.OutOrStdout(), benchNoColor(cmd))
	if opts.asJSON {
		return renderer.RenderJSON(report)
	}
	return renderer.Render(report)
}

// timeQueries measures each query's average latency over repeated runs,
// after a short warmup that fills caches and page tables.
func timeQueries(ctx context.Context, idx *index.Index, queries []string) []ui.QueryTiming {
	timings := make([]ui.QueryTiming, 0, len(queries))
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		for i := 0; i < benchWarmupRuns; i++ {
			idx.Query(q)
		}
		start := time.Now()
		for i := 0; i < benchQueryRuns; i++ {
			idx.Query(q)
		}
		elapsed := time.Since(start)

		hits := 0
		for _, r := range idx.Query(q) {
			if r.Score > 0 {
				hits++
			}
		}
		timings = append(timings, ui.QueryTiming{
			Query:   q,
			AvgMS:   float64(elapsed.Microseconds()) / 1000 / benchQueryRuns,
			Results: hits,
		})
	}
	return timings
}

// sustainedQPS runs the queries round-robin for the window and reports
// completed queries per second alongside the actual elapsed window.
func sustainedQPS(ctx context.Context, idx *index.Index, queries []string, window time.Duration) (float64, float64) {
	if window <= 0 || len(queries) == 0 {
		return 0, 0
	}

	var count int
	start := time.Now()
	deadline := start.Add(window)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		idx.Query(queries[count%len(queries)])
		count++
	}
	elapsed := time.Since(start)
	if elapsed <= 0 {
		return 0, 0
	}
	return float64(count) / elapsed.Seconds(), elapsed.Seconds()
}

func benchNoColor(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return true
	}
	return !isatty.IsTerminal(f.Fd())
}
