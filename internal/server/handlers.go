package server

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/trove-dev/trove/internal/async"
	trerrors "github.com/trove-dev/trove/internal/errors"
	"github.com/trove-dev/trove/internal/index"
	"github.com/trove-dev/trove/internal/telemetry"
)

// SearchResponse is the /api/search payload.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []index.Result `json:"results"`
	Count   int            `json:"count"`
	TookMS  float64        `json:"took_ms"`
}

// StatsResponse is the /api/stats payload. Indexing appears only when the
// server was started with a background rebuild.
type StatsResponse struct {
	index.Summary
	UptimeSeconds int64               `json:"uptime_seconds"`
	Cache         CacheStats          `json:"cache"`
	Queries       *telemetry.Snapshot `json:"queries"`
	Indexing      *async.Snapshot     `json:"indexing,omitempty"`
}

// CacheStats reports query cache effectiveness.
type CacheStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// errorBody is the envelope every non-2xx response carries.
type errorBody struct {
	Error string        `json:"error"`
	Code  trerrors.Code `json:"code"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeError(w, http.StatusBadRequest, trerrors.CodeQueryInvalid, "query parameter 'q' is required")
		return
	}

	limit := s.cfg.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, trerrors.CodeQueryInvalid, "limit must be a positive integer")
			return
		}
		limit = n
	}

	minScore := s.cfg.MinScore
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || f < 0 {
			s.writeError(w, http.StatusBadRequest, trerrors.CodeQueryInvalid, "min_score must be a non-negative number")
			return
		}
		minScore = f
	}

	results, hit := s.cachedQuery(q, limit)

	visible := make([]index.Result, 0, len(results))
	for _, res := range results {
		if res.Score >= minScore {
			visible = append(visible, res)
		}
	}

	took := float64(time.Since(start).Microseconds()) / 1000

	s.metrics.Record(telemetry.QueryEvent{
		Query:       q,
		ResultCount: len(visible),
		CacheHit:    hit,
		Latency:     time.Since(start),
		Timestamp:   start,
	})

	s.logger.Debug("search_served",
		slog.String("query", q),
		slog.Int("count", len(visible)),
		slog.Bool("cache_hit", hit),
		slog.Float64("took_ms", took))

	s.writeJSON(w, http.StatusOK, SearchResponse{
		Query:   q,
		Results: visible,
		Count:   len(visible),
		TookMS:  took,
	})
}

// cachedQuery returns the top results for q, serving from cache while the
// index generation still matches.
func (s *Server) cachedQuery(q string, limit int) ([]index.Result, bool) {
	key := cacheKey{generation: s.idx.Stats().Generation, query: q, limit: limit}

	if cached, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return cached, true
	}

	results := s.idx.Query(q)
	if len(results) > limit {
		results = results[:limit]
	}
	s.cache.Add(key, results)
	s.misses.Add(1)
	return results, false
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Summary:       s.idx.Stats(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Cache: CacheStats{
			Entries: s.cache.Len(),
			Hits:    s.hits.Load(),
			Misses:  s.misses.Load(),
		},
		Queries: s.metrics.Snapshot(),
	}
	if s.cfg.Progress != nil {
		snap := s.cfg.Progress()
		resp.Indexing = &snap
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	var failing []string
	for name, probe := range s.checks {
		if !probe() {
			failing = append(failing, name)
		}
	}
	s.mu.RUnlock()

	if len(failing) > 0 {
		sort.Strings(failing)
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "degraded",
			"failing": failing,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(homePage)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response_write_failed", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code trerrors.Code, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg, Code: code})
}
