package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trove-dev/trove/internal/async"
	trerrors "github.com/trove-dev/trove/internal/errors"
	"github.com/trove-dev/trove/internal/index"
)

// seedIndex builds a small corpus with a known ranking for "fox": fox.md
// is saturated with the term, animals.md mentions it once, cats.md not at
// all.
func seedIndex(t *testing.T) *index.Index {
	t.Helper()

	idx := index.New()
	now := time.Now()
	idx.AddDocument("/docs/animals.md", now, index.Analyze("the quick brown fox jumps over the lazy dog"))
	idx.AddDocument("/docs/fox.md", now, index.Analyze("fox fox fox"))
	idx.AddDocument("/docs/cats.md", now, index.Analyze("cats sleep all day"))
	return idx
}

func newTestServer(t *testing.T, idx *index.Index) *Server {
	t.Helper()
	return New(idx, Config{Addr: "127.0.0.1:0"})
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

// ===== /api/search =====

func TestServer_Search_RanksByScore(t *testing.T) {
	s := newTestServer(t, seedIndex(t))
	h := s.Handler()

	rec := doGet(t, h, "/api/search?q=fox")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	decodeBody(t, rec, &resp)

	assert.Equal(t, "fox", resp.Query)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "/docs/fox.md", resp.Results[0].Path)
	assert.Equal(t, "/docs/animals.md", resp.Results[1].Path)
	assert.Greater(t, resp.Results[0].Score, resp.Results[1].Score)
	assert.GreaterOrEqual(t, resp.TookMS, 0.0)
}

func TestServer_Search_MissingQueryIsRejected(t *testing.T) {
	s := newTestServer(t, seedIndex(t))

	for _, target := range []string{"/api/search", "/api/search?q=", "/api/search?q=%20%20"} {
		rec := doGet(t, s.Handler(), target)
		require.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)

		var body errorBody
		decodeBody(t, rec, &body)
		assert.Equal(t, trerrors.CodeQueryInvalid, body.Code)
		assert.NotEmpty(t, body.Error)
	}
}

func TestServer_Search_InvalidParamsAreRejected(t *testing.T) {
	s := newTestServer(t, seedIndex(t))

	for _, target := range []string{
		"/api/search?q=fox&limit=0",
		"/api/search?q=fox&limit=-3",
		"/api/search?q=fox&limit=abc",
		"/api/search?q=fox&min_score=-1",
		"/api/search?q=fox&min_score=abc",
	} {
		rec := doGet(t, s.Handler(), target)
		require.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)

		var body errorBody
		decodeBody(t, rec, &body)
		assert.Equal(t, trerrors.CodeQueryInvalid, body.Code, "target %s", target)
	}
}

func TestServer_Search_LimitCapsResults(t *testing.T) {
	idx := index.New()
	now := time.Now()
	idx.AddDocument("/a.md", now, index.Analyze("pad filler"))
	idx.AddDocument("/b.md", now, index.Analyze("pad filler"))
	idx.AddDocument("/c.md", now, index.Analyze("pad filler"))

	s := newTestServer(t, idx)
	rec := doGet(t, s.Handler(), "/api/search?q=pad&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	decodeBody(t, rec, &resp)

	require.Equal(t, 2, resp.Count)
	// Equal scores fall back to path order, so the cap is deterministic.
	assert.Equal(t, "/a.md", resp.Results[0].Path)
	assert.Equal(t, "/b.md", resp.Results[1].Path)
}

func TestServer_Search_MinScoreHidesWeakMatches(t *testing.T) {
	s := newTestServer(t, seedIndex(t))

	rec := doGet(t, s.Handler(), "/api/search?q=fox&min_score=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	decodeBody(t, rec, &resp)
	assert.Zero(t, resp.Count)
	assert.Empty(t, resp.Results)
	// The results field stays an array even when empty.
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestServer_Search_NoTokenQueryReturnsEmpty(t *testing.T) {
	s := newTestServer(t, seedIndex(t))

	rec := doGet(t, s.Handler(), "/api/search?q=%21%21%21")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	decodeBody(t, rec, &resp)
	assert.Zero(t, resp.Count)
}

// ===== query cache =====

func TestServer_Search_RepeatQueryHitsCache(t *testing.T) {
	s := newTestServer(t, seedIndex(t))
	h := s.Handler()

	doGet(t, h, "/api/search?q=fox")
	doGet(t, h, "/api/search?q=fox")

	rec := doGet(t, h, "/api/stats")
	var stats StatsResponse
	decodeBody(t, rec, &stats)

	assert.Equal(t, uint64(1), stats.Cache.Hits)
	assert.Equal(t, uint64(1), stats.Cache.Misses)
	assert.Equal(t, 1, stats.Cache.Entries)
}

func TestServer_Search_DifferentLimitIsSeparateCacheEntry(t *testing.T) {
	s := newTestServer(t, seedIndex(t))
	h := s.Handler()

	doGet(t, h, "/api/search?q=fox&limit=1")
	doGet(t, h, "/api/search?q=fox&limit=2")

	rec := doGet(t, h, "/api/stats")
	var stats StatsResponse
	decodeBody(t, rec, &stats)

	assert.Equal(t, uint64(0), stats.Cache.Hits)
	assert.Equal(t, uint64(2), stats.Cache.Misses)
}

func TestServer_Search_IndexMutationInvalidatesCache(t *testing.T) {
	idx := seedIndex(t)
	s := newTestServer(t, idx)
	h := s.Handler()

	first := doGet(t, h, "/api/search?q=fox")
	require.Equal(t, http.StatusOK, first.Code)

	// A new document bumps the generation, so the cached entry no longer
	// matches.
	idx.AddDocument("/docs/new-fox.md", time.Now(), index.Analyze("fox fox fox fox"))

	rec := doGet(t, h, "/api/search?q=fox")
	var resp SearchResponse
	decodeBody(t, rec, &resp)

	paths := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		paths = append(paths, r.Path)
	}
	assert.Contains(t, paths, "/docs/new-fox.md")

	recStats := doGet(t, h, "/api/stats")
	var stats StatsResponse
	decodeBody(t, recStats, &stats)
	assert.Equal(t, uint64(2), stats.Cache.Misses)
	assert.Equal(t, uint64(0), stats.Cache.Hits)
}

// ===== /api/stats =====

func TestServer_Stats_ReportsCorpusSize(t *testing.T) {
	idx := seedIndex(t)
	s := newTestServer(t, idx)

	rec := doGet(t, s.Handler(), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	decodeBody(t, rec, &stats)

	assert.Equal(t, 3, stats.Documents)
	assert.Positive(t, stats.Terms)
	assert.Equal(t, idx.Stats().Generation, stats.Generation)
	assert.GreaterOrEqual(t, stats.UptimeSeconds, int64(0))
	assert.Nil(t, stats.Indexing, "no rebuild was configured")
}

func TestServer_Stats_TracksQueryTelemetry(t *testing.T) {
	// Given: a server that has answered hits, a repeat, and a miss
	s := New(seedIndex(t), Config{Addr: "127.0.0.1:0", MinScore: 0.001})
	h := s.Handler()
	doGet(t, h, "/api/search?q=fox")
	doGet(t, h, "/api/search?q=fox")
	doGet(t, h, "/api/search?q=xylophone")

	rec := doGet(t, h, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	decodeBody(t, rec, &stats)

	// Then: the query section reflects all three
	require.NotNil(t, stats.Queries)
	assert.Equal(t, int64(3), stats.Queries.TotalQueries)
	assert.Equal(t, int64(1), stats.Queries.CacheHits)
	assert.Equal(t, int64(1), stats.Queries.ZeroResultCount)
	assert.Contains(t, stats.Queries.ZeroResultQueries, "xylophone")
	assert.Equal(t, int64(1), stats.Queries.ExactRepeatCount)
	assert.Equal(t, int64(2), stats.Queries.UniqueQueryCount)
}

func TestServer_Stats_ReportsRebuildProgress(t *testing.T) {
	// Given: a server wired to a rebuild tracker
	pr := async.NewProgress()
	pr.SetTotal(10)
	pr.Update(4, 2)
	s := New(seedIndex(t), Config{Addr: "127.0.0.1:0", Progress: pr.Snapshot})

	rec := doGet(t, s.Handler(), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	decodeBody(t, rec, &stats)

	// Then: the indexing section mirrors the tracker
	require.NotNil(t, stats.Indexing)
	assert.Equal(t, string(async.StatusIndexing), stats.Indexing.Status)
	assert.Equal(t, 10, stats.Indexing.FilesTotal)
	assert.Equal(t, 4, stats.Indexing.FilesIndexed)
	assert.Equal(t, 2, stats.Indexing.FilesSkipped)
}

// ===== /healthz =====

func TestServer_Healthz_OK(t *testing.T) {
	s := newTestServer(t, seedIndex(t))

	rec := doGet(t, s.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServer_Healthz_DegradedWhenProbeFails(t *testing.T) {
	s := newTestServer(t, seedIndex(t))
	s.AddHealthCheck("watcher", func() bool { return false })
	s.AddHealthCheck("index", func() bool { return true })

	rec := doGet(t, s.Handler(), "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status  string   `json:"status"`
		Failing []string `json:"failing"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, []string{"watcher"}, body.Failing)
}

// ===== embedded page and routing =====

func TestServer_Home_ServesEmbeddedPage(t *testing.T) {
	s := newTestServer(t, seedIndex(t))

	rec := doGet(t, s.Handler(), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>trove</title>")
}

func TestServer_UnknownPathIs404(t *testing.T) {
	s := newTestServer(t, seedIndex(t))

	rec := doGet(t, s.Handler(), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ===== lifecycle =====

func TestServer_Run_StopsOnContextCancel(t *testing.T) {
	s := newTestServer(t, index.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestServer_Run_ListenFailure(t *testing.T) {
	s := New(index.New(), Config{Addr: "127.0.0.1:-1"})

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, trerrors.CodeServerFailed, trerrors.GetCode(err))
}
