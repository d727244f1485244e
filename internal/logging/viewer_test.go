package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func writeLogFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trove.log")
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing log file: %v", err)
	}
	return path
}

func TestViewer_Tail_ReturnsLastN(t *testing.T) {
	path := writeLogFile(t,
		`{"time":"2026-08-21T10:00:01Z","level":"INFO","msg":"one"}`,
		`{"time":"2026-08-21T10:00:02Z","level":"INFO","msg":"two"}`,
		`{"time":"2026-08-21T10:00:03Z","level":"INFO","msg":"three"}`,
	)

	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})
	entries, err := v.Tail(path, 2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Msg != "two" || entries[1].Msg != "three" {
		t.Errorf("expected the last two lines in order, got %q then %q",
			entries[0].Msg, entries[1].Msg)
	}
}

func TestViewer_Tail_MissingFile(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})
	if _, err := v.Tail(filepath.Join(t.TempDir(), "absent.log"), 10); err == nil {
		t.Error("expected an error for a missing log file")
	}
}

func TestViewer_Tail_LevelFilter(t *testing.T) {
	path := writeLogFile(t,
		`{"time":"2026-08-21T10:00:01Z","level":"DEBUG","msg":"noise"}`,
		`{"time":"2026-08-21T10:00:02Z","level":"WARN","msg":"watch out"}`,
		`{"time":"2026-08-21T10:00:03Z","level":"ERROR","msg":"broken"}`,
	)

	v := NewViewer(ViewerConfig{Level: "warn"}, &bytes.Buffer{})
	entries, err := v.Tail(path, 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at or above warn, got %d", len(entries))
	}
	if entries[0].Msg != "watch out" || entries[1].Msg != "broken" {
		t.Errorf("wrong entries survived the filter: %+v", entries)
	}
}

func TestViewer_Tail_PatternFilter(t *testing.T) {
	path := writeLogFile(t,
		`{"time":"2026-08-21T10:00:01Z","level":"INFO","msg":"search served","query":"fox"}`,
		`{"time":"2026-08-21T10:00:02Z","level":"INFO","msg":"snapshot_saved"}`,
	)

	v := NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`snapshot`)}, &bytes.Buffer{})
	entries, err := v.Tail(path, 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	if len(entries) != 1 || entries[0].Msg != "snapshot_saved" {
		t.Errorf("pattern filter failed: %+v", entries)
	}
}

func TestViewer_ParseLine_InvalidJSONPassesThrough(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	entry := v.parseLine("plain text line")
	if entry.IsValid {
		t.Error("plain text should not parse as valid JSON")
	}
	if got := v.FormatEntry(entry); got != "plain text line" {
		t.Errorf("invalid lines should format as-is, got %q", got)
	}
}

func TestViewer_FormatEntry_SortsAttributes(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	entry := v.parseLine(`{"time":"2026-08-21T10:00:01Z","level":"INFO","msg":"indexed","path":"a.txt","count":3}`)
	got := v.FormatEntry(entry)

	if !strings.Contains(got, "INFO") || !strings.Contains(got, "indexed") {
		t.Fatalf("formatted entry missing level or message: %q", got)
	}
	if !strings.Contains(got, "count=3 path=a.txt") {
		t.Errorf("attributes should print in key order, got %q", got)
	}
}

func TestViewer_FormatEntry_ColorsByLevel(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})

	entry := v.parseLine(`{"time":"2026-08-21T10:00:01Z","level":"ERROR","msg":"broken"}`)
	got := v.FormatEntry(entry)

	if !strings.Contains(got, "\033[31m") {
		t.Errorf("error entries should color red, got %q", got)
	}
}

func TestViewer_Print_WritesEveryEntry(t *testing.T) {
	path := writeLogFile(t,
		`{"time":"2026-08-21T10:00:01Z","level":"INFO","msg":"one"}`,
		`{"time":"2026-08-21T10:00:02Z","level":"INFO","msg":"two"}`,
	)

	out := &bytes.Buffer{}
	v := NewViewer(ViewerConfig{NoColor: true}, out)
	entries, err := v.Tail(path, 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	v.Print(entries)

	if got := strings.Count(out.String(), "\n"); got != 2 {
		t.Errorf("expected 2 printed lines, got %d: %q", got, out.String())
	}
}

func TestViewer_Follow_ReportsNewLines(t *testing.T) {
	path := writeLogFile(t,
		`{"time":"2026-08-21T10:00:01Z","level":"INFO","msg":"old"}`,
	)

	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries := make(chan LogEntry, 10)
	errCh := make(chan error, 1)
	go func() { errCh <- v.Follow(ctx, path, entries) }()

	// Give the follower time to seek to the end before appending.
	time.Sleep(200 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString(`{"time":"2026-08-21T10:00:02Z","level":"INFO","msg":"fresh"}` + "\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	select {
	case entry := <-entries:
		if entry.Msg != "fresh" {
			t.Errorf("expected the appended line, got %q", entry.Msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the appended line")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Follow returned error: %v", err)
	}
}
