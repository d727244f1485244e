package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTUIRenderer_ReturnsErrorForNonTTY(t *testing.T) {
	// Given: a non-TTY buffer
	buf := &bytes.Buffer{}
	cfg := NewConfig(buf)

	// When: creating the TUI renderer
	r, err := NewTUIRenderer(cfg)

	// Then: returns an error so NewRenderer can fall back
	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestIndexingModel_InitialView(t *testing.T) {
	// Given: a fresh model
	model := newIndexingModel(NewTracker(), "")

	// When: rendering the initial view
	view := model.View()

	// Then: the stage row is present
	assert.Contains(t, view, "Scan")
	assert.Contains(t, view, "Index")
}

func TestIndexingModel_HeaderShowsRoot(t *testing.T) {
	// Given: a model for a named directory
	model := newIndexingModel(NewTracker(), "/srv/docs")

	// When: rendering
	view := model.View()

	// Then: the directory appears in the header
	assert.Contains(t, view, "/srv/docs")
}

func TestIndexingModel_ProgressDisplay(t *testing.T) {
	// Given: a model with counted progress
	tracker := NewTracker()
	tracker.SetStage(StageIndexing, 100)
	tracker.Update(50, "docs/guide.md")

	model := newIndexingModel(tracker, "")

	// When: rendering
	view := model.View()

	// Then: the counts are shown
	assert.Contains(t, view, "50")
	assert.Contains(t, view, "100")
	assert.Contains(t, view, "files")
}

func TestIndexingModel_UnknownTotalShowsStage(t *testing.T) {
	// Given: a model still scanning (no total yet)
	tracker := NewTracker()
	tracker.SetStage(StageScanning, 0)

	model := newIndexingModel(tracker, "")

	// When: rendering
	view := model.View()

	// Then: the stage name stands in for the bar
	assert.Contains(t, view, "Scanning...")
}

func TestIndexingModel_FileDisplay(t *testing.T) {
	// Given: a model with a current file
	tracker := NewTracker()
	tracker.SetStage(StageIndexing, 100)
	tracker.Update(1, "docs/notes/january.md")

	model := newIndexingModel(tracker, "")

	// When: rendering
	view := model.View()

	// Then: the path is shown (possibly truncated)
	assert.Contains(t, view, "january.md")
}

func TestIndexingModel_ErrorCountsInStatusBar(t *testing.T) {
	// Given: a model with problems recorded
	tracker := NewTracker()
	tracker.AddError(ErrorEvent{File: "broken.pdf", Err: assert.AnError})
	tracker.AddError(ErrorEvent{File: "odd.xml", Err: assert.AnError, IsWarn: true})

	model := newIndexingModel(tracker, "")

	// When: rendering
	view := model.View()

	// Then: both counts appear
	assert.Contains(t, view, "1 errors")
	assert.Contains(t, view, "1 warnings")
}

func TestIndexingModel_CompletionState(t *testing.T) {
	// Given: a completed model
	tracker := NewTracker()
	tracker.SetStage(StageComplete, 0)

	model := newIndexingModel(tracker, "")
	model.complete = true
	model.stats = CompletionStats{
		Files:    100,
		Skipped:  5,
		Duration: 3 * time.Second,
	}

	// When: rendering
	view := model.View()

	// Then: the summary shows
	assert.Contains(t, view, "complete")
	assert.Contains(t, view, "100")
}

func TestIndexingModel_QuitView(t *testing.T) {
	model := newIndexingModel(NewTracker(), "")
	model.quitting = true

	assert.Equal(t, "Cancelled.\n", model.View())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{340 * time.Millisecond, "340ms"},
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m 30s"},
		{2 * time.Minute, "2m"},
		{65 * time.Minute, "1h 5m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}

func TestTruncatePath_Short(t *testing.T) {
	assert.Equal(t, "docs/guide.md", truncatePath("docs/guide.md", 50))
}

func TestTruncatePath_Long(t *testing.T) {
	// Given: a long path
	path := "docs/projects/very/deeply/nested/directory/file.md"

	// When: truncating to 30 chars
	result := truncatePath(path, 30)

	// Then: truncated with ellipsis, filename kept
	assert.LessOrEqual(t, len(result), 30)
	assert.Contains(t, result, "...")
	assert.Contains(t, result, "file.md")
}

func TestTruncatePath_Empty(t *testing.T) {
	assert.Equal(t, "", truncatePath("", 50))
}
