// Package server exposes one index over HTTP: a JSON search API, index
// statistics, a health probe, and a small embedded search page.
package server

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/trove-dev/trove/internal/async"
	trerrors "github.com/trove-dev/trove/internal/errors"
	"github.com/trove-dev/trove/internal/index"
	"github.com/trove-dev/trove/internal/telemetry"
)

//go:embed web/index.html
var homePage []byte

// DefaultCacheSize bounds the query cache when Config leaves it zero.
const DefaultCacheSize = 512

// Config carries the listener address and the query defaults applied when
// a request omits the corresponding parameter.
type Config struct {
	// Addr is the host:port to listen on.
	Addr string
	// CacheSize is the number of query results kept in the LRU cache.
	CacheSize int
	// DefaultLimit caps result counts when the request has no limit param.
	DefaultLimit int
	// MinScore hides results scoring below it unless the request overrides.
	MinScore float64
	// Progress, when set, reports the background rebuild in /api/stats.
	Progress func() async.Snapshot
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Server serves search traffic for one index.
type Server struct {
	idx     *index.Index
	cfg     Config
	logger  *slog.Logger
	cache   *lru.Cache[cacheKey, []index.Result]
	metrics *telemetry.Metrics
	started time.Time

	hits   atomic.Uint64
	misses atomic.Uint64

	mu     sync.RWMutex
	checks map[string]func() bool
}

// cacheKey pins cached results to one index generation, so any mutation
// invalidates by key mismatch instead of eviction.
type cacheKey struct {
	generation uint64
	query      string
	limit      int
}

// New creates a server around idx.
func New(idx *index.Index, cfg Config) *Server {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cache, _ := lru.New[cacheKey, []index.Result](cfg.CacheSize)
	return &Server{
		idx:     idx,
		cfg:     cfg,
		logger:  cfg.Logger,
		cache:   cache,
		metrics: telemetry.New(),
		started: time.Now(),
		checks:  map[string]func() bool{},
	}
}

// AddHealthCheck registers a named probe reported by /healthz. A probe
// returning false turns the endpoint 503.
func (s *Server) AddHealthCheck(name string, probe func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = probe
}

// Handler returns the route table. Exposed so tests can drive the server
// without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /{$}", s.handleHome)
	return mux
}

// Run serves until ctx is cancelled, then drains in-flight requests before
// returning.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.logger.Info("server_started", slog.String("addr", s.cfg.Addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return trerrors.Wrap(trerrors.CodeServerFailed, "drain connections", err)
		}
		s.logger.Info("server_stopped", slog.String("addr", s.cfg.Addr))
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return trerrors.Wrap(trerrors.CodeServerFailed, "listen on "+s.cfg.Addr, err)
		}
		return nil
	}
}
