package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_SingleEventPassesThrough(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: one event is added
	d.Add(FileEvent{Path: "notes.md", Operation: OpCreate, Timestamp: time.Now()})

	// Then: it is emitted after the window
	select {
	case batch := <-d.Output():
		require.Len(t, batch, 1)
		assert.Equal(t, "notes.md", batch[0].Path)
		assert.Equal(t, OpCreate, batch[0].Operation)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_WriteStormBecomesOneModify(t *testing.T) {
	// Given: a debouncer with a window longer than the gaps in the storm
	d := NewDebouncer(100 * time.Millisecond)
	defer d.Stop()

	// When: the same file is written five times in quick succession
	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "draft.txt", Operation: OpModify, Timestamp: time.Now()})
		time.Sleep(10 * time.Millisecond)
	}

	// Then: a single modify comes out
	select {
	case batch := <-d.Output():
		require.Len(t, batch, 1)
		assert.Equal(t, "draft.txt", batch[0].Path)
		assert.Equal(t, OpModify, batch[0].Operation)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_CreateThenModifyStaysCreate(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: a create is followed by a modify inside the window
	d.Add(FileEvent{Path: "new.md", Operation: OpCreate, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "new.md", Operation: OpModify, Timestamp: time.Now()})

	// Then: the file is still reported as created
	select {
	case batch := <-d.Output():
		require.Len(t, batch, 1)
		assert.Equal(t, OpCreate, batch[0].Operation)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_CreateThenDeleteCancelsOut(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: a file appears and vanishes inside the window
	d.Add(FileEvent{Path: "scratch.tmp", Operation: OpCreate, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "scratch.tmp", Operation: OpDelete, Timestamp: time.Now()})

	// Then: nothing is emitted
	select {
	case batch := <-d.Output():
		assert.Empty(t, batch)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDebouncer_ModifyThenDeleteKeepsDelete(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: a modify is followed by a delete
	d.Add(FileEvent{Path: "old.md", Operation: OpModify, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "old.md", Operation: OpDelete, Timestamp: time.Now()})

	// Then: only the delete survives
	select {
	case batch := <-d.Output():
		require.Len(t, batch, 1)
		assert.Equal(t, OpDelete, batch[0].Operation)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_DeleteThenCreateBecomesModify(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: a delete is followed by a create, as atomic-save editors do
	d.Add(FileEvent{Path: "saved.md", Operation: OpDelete, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "saved.md", Operation: OpCreate, Timestamp: time.Now()})

	// Then: the replacement is reported as a modify
	select {
	case batch := <-d.Output():
		require.Len(t, batch, 1)
		assert.Equal(t, OpModify, batch[0].Operation)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_PathsCoalesceIndependently(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: three different files change
	d.Add(FileEvent{Path: "a.md", Operation: OpCreate, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "b.md", Operation: OpModify, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "c.md", Operation: OpDelete, Timestamp: time.Now()})

	// Then: all three survive with their own operations
	select {
	case batch := <-d.Output():
		require.Len(t, batch, 3)

		ops := make(map[string]Operation, len(batch))
		for _, ev := range batch {
			ops[ev.Path] = ev.Operation
		}
		assert.Equal(t, OpCreate, ops["a.md"])
		assert.Equal(t, OpModify, ops["b.md"])
		assert.Equal(t, OpDelete, ops["c.md"])
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for debounced events")
	}
}

func TestDebouncer_StopClosesOutput(t *testing.T) {
	// Given: a debouncer
	d := NewDebouncer(50 * time.Millisecond)

	// When: stopped
	d.Stop()

	// Then: the output channel is closed and later adds are no-ops
	_, ok := <-d.Output()
	assert.False(t, ok, "output should be closed")

	d.Add(FileEvent{Path: "late.md", Operation: OpCreate, Timestamp: time.Now()})
	d.Stop()
}
