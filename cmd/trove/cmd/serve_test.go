package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trove-dev/trove/internal/index"
	"github.com/trove-dev/trove/internal/server"
)

// freeAddr reserves an ephemeral port and releases it for the command under
// test to claim.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// searchHits polls /api/search until the query returns results or the
// deadline passes.
func searchHits(t *testing.T, addr, query string, deadline time.Duration) bool {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		resp, err := http.Get("http://" + addr + "/api/search?q=" + query)
		if err == nil {
			var payload server.SearchResponse
			decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
			_ = resp.Body.Close()
			if decodeErr == nil && payload.Count > 0 {
				return true
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

func TestServeCmd_IndexesAndServesSearch(t *testing.T) {
	// Given: a corpus and a free port
	tmpDir := t.TempDir()
	writeCorpus(t, tmpDir)
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"serve", tmpDir, "--addr", addr, "--no-watch"})

	// When: serving in the background
	errCh := make(chan error, 1)
	go func() { errCh <- rootCmd.ExecuteContext(ctx) }()

	// Then: the corpus becomes searchable once the background index lands
	require.True(t, searchHits(t, addr, "pipelines", 10*time.Second),
		"server should answer searches after the background index completes")

	// And: cancellation shuts down cleanly and leaves a snapshot behind
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}

	assert.Contains(t, buf.String(), "Serving http://"+addr)
	assert.FileExists(t, filepath.Join(tmpDir, index.SnapshotName))
}

func TestServeCmd_WatcherPicksUpNewFiles(t *testing.T) {
	// Given: a served corpus with watching enabled
	tmpDir := t.TempDir()
	writeCorpus(t, tmpDir)
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rootCmd := NewRootCmd()
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"serve", tmpDir, "--addr", addr})

	errCh := make(chan error, 1)
	go func() { errCh <- rootCmd.ExecuteContext(ctx) }()

	require.True(t, searchHits(t, addr, "pipelines", 10*time.Second),
		"server should come up before the file is added")

	// When: a new file appears while serving
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "delta.txt"),
		[]byte("zephyr database transactions"), 0o644))

	// Then: the watcher makes it searchable without a restart
	assert.True(t, searchHits(t, addr, "zephyr", 15*time.Second),
		"new file should become searchable via the watcher")

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}

	// And: the shutdown snapshot includes the new file
	idx, err := index.LoadSnapshot(filepath.Join(tmpDir, index.SnapshotName))
	require.NoError(t, err)
	found := false
	for _, p := range idx.Paths() {
		if filepath.Base(p) == "delta.txt" {
			found = true
		}
	}
	assert.True(t, found, "snapshot should contain the file added while serving")
}

func TestServeCmd_RequireSnapshot_FailsWithoutOne(t *testing.T) {
	// Given: a directory with no snapshot
	tmpDir := t.TempDir()

	// When: serving with --require-snapshot
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"serve", tmpDir, "--require-snapshot", "--addr", "127.0.0.1:0"})

	err := rootCmd.Execute()

	// Then: it refuses to start
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--require-snapshot")
}

func TestServeCmd_PreflightBlocksUnwritableRoot(t *testing.T) {
	// Given: a read-only project root (skip when running as root)
	if os.Getuid() == 0 {
		t.Skip("Skipping read-only test when running as root")
	}
	tmpDir := t.TempDir()
	readOnly := filepath.Join(tmpDir, "frozen")
	require.NoError(t, os.Mkdir(readOnly, 0o555))
	defer func() { _ = os.Chmod(readOnly, 0o755) }()

	// When: serving from it
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"serve", readOnly, "--addr", "127.0.0.1:0", "--no-watch"})

	err := rootCmd.Execute()

	// Then: preflight refuses to start and names the failed check
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preflight")
	assert.Contains(t, buf.String(), "[FAIL] write_permissions")
}

func TestServeCmd_Flags(t *testing.T) {
	// Given: the serve command
	rootCmd := NewRootCmd()
	serveCmd, _, err := rootCmd.Find([]string{"serve"})
	require.NoError(t, err)
	require.NotNil(t, serveCmd)

	// Then: lifecycle flags exist with their defaults
	addrFlag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, "", addrFlag.DefValue)

	noWatchFlag := serveCmd.Flags().Lookup("no-watch")
	require.NotNil(t, noWatchFlag)
	assert.Equal(t, "false", noWatchFlag.DefValue)

	workersFlag := serveCmd.Flags().Lookup("workers")
	require.NotNil(t, workersFlag)
	assert.Equal(t, "0", workersFlag.DefValue)

	requireFlag := serveCmd.Flags().Lookup("require-snapshot")
	require.NotNil(t, requireFlag)
	assert.Equal(t, "false", requireFlag.DefValue)
}
