package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_CountedProgressLine(t *testing.T) {
	// Given: a plain renderer over a buffer
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	// When: the first counted event arrives
	r.UpdateProgress(ProgressEvent{
		Stage:       StageIndexing,
		Current:     50,
		Total:       100,
		CurrentFile: "docs/guide.md",
	})

	// Then: one line with the stage tag, the count, and the file
	assert.Equal(t, "[INDEX] 50/100 docs/guide.md\n", buf.String())
}

func TestPlainRenderer_ThrottlesBetweenMilestones(t *testing.T) {
	// Given: a renderer past its first counted event
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))
	r.UpdateProgress(ProgressEvent{Stage: StageIndexing, Current: 1, Total: 250})

	// When: noisy intermediate events arrive
	for _, current := range []int{2, 3, 57, 99, 100, 101, 250} {
		r.UpdateProgress(ProgressEvent{Stage: StageIndexing, Current: current, Total: 250})
	}

	// Then: only the first event, the round hundred, and the final event print
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "1/250")
	assert.Contains(t, lines[1], "100/250")
	assert.Contains(t, lines[2], "250/250")
}

func TestPlainRenderer_MessageBypassesThrottle(t *testing.T) {
	// Given: a renderer mid-stage
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))
	r.UpdateProgress(ProgressEvent{Stage: StageScanning, Current: 1, Total: 1000})

	// When: an event carries a message
	r.UpdateProgress(ProgressEvent{Stage: StageScanning, Message: "scanning /srv/docs"})

	// Then: the message prints regardless of the counter
	assert.Contains(t, buf.String(), "[SCAN] scanning /srv/docs")
}

func TestPlainRenderer_NeverEmitsANSI(t *testing.T) {
	// Given: a renderer fed every stage plus errors and a summary
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	for _, stage := range []Stage{StageScanning, StageIndexing, StageComplete} {
		r.UpdateProgress(ProgressEvent{Stage: stage, Current: 50, Total: 100, Message: "working"})
	}
	r.AddError(ErrorEvent{File: "a.md", Err: errors.New("boom")})
	r.Complete(CompletionStats{Files: 3, Duration: time.Second})

	// Then: nothing in the output is an escape sequence
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainRenderer_AddError(t *testing.T) {
	tests := []struct {
		name  string
		event ErrorEvent
		want  string
	}{
		{
			name:  "error with file",
			event: ErrorEvent{File: "broken.pdf", Err: errors.New("malformed xref table")},
			want:  "ERROR: broken.pdf: malformed xref table\n",
		},
		{
			name:  "warning with file",
			event: ErrorEvent{File: "huge.xml", Err: errors.New("file size exceeds limit"), IsWarn: true},
			want:  "WARN: huge.xml: file size exceeds limit\n",
		},
		{
			name:  "error without file",
			event: ErrorEvent{Err: errors.New("snapshot save failed")},
			want:  "ERROR: snapshot save failed\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewPlainRenderer(NewConfig(&buf)).AddError(tt.event)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPlainRenderer_CompleteSummary(t *testing.T) {
	// Given: a clean run
	var buf bytes.Buffer
	NewPlainRenderer(NewConfig(&buf)).Complete(CompletionStats{
		Files:    100,
		Duration: 5 * time.Second,
	})

	// Then: a bare summary without skip or error suffixes
	assert.Equal(t, "Indexed 100 files in 5s\n", buf.String())

	// When: the run had skips and problems
	buf.Reset()
	NewPlainRenderer(NewConfig(&buf)).Complete(CompletionStats{
		Files:    95,
		Skipped:  12,
		Duration: 10 * time.Second,
		Errors:   3,
		Warnings: 2,
	})

	// Then: both suffixes appear
	out := buf.String()
	assert.Contains(t, out, "Indexed 95 files in 10s")
	assert.Contains(t, out, "(12 up to date or skipped)")
	assert.Contains(t, out, "(3 errors, 2 warnings)")
}

func TestPlainRenderer_StartStopAreNoops(t *testing.T) {
	r := NewPlainRenderer(NewConfig(&bytes.Buffer{}))
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
}

func TestPlainRenderer_ConcurrentEvents(t *testing.T) {
	// Given: events racing in from indexing workers
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.UpdateProgress(ProgressEvent{Stage: StageIndexing, Current: n, Total: 100})
			r.AddError(ErrorEvent{File: "test.md", Err: errors.New("test"), IsWarn: n%2 == 0})
		}(i)
	}
	wg.Wait()

	// Then: no interleaved panic and something was written
	assert.NotEmpty(t, buf.String())
}

func TestRenderer_InterfaceCompliance(t *testing.T) {
	var _ Renderer = (*PlainRenderer)(nil)
	var _ Renderer = (*TUIRenderer)(nil)
}
