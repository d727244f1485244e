package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer folds the event bursts editors and git produce into one event
// per path. Coalescing is keyed on the first operation of the burst and the
// newest arrival:
//
//	CREATE + MODIFY -> CREATE  (still a brand-new file)
//	CREATE + DELETE -> dropped (the file was never observable)
//	MODIFY + DELETE -> DELETE
//	DELETE + CREATE -> MODIFY  (replaced in place)
//
// A batch is emitted once a full window passes with no new arrivals.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	timer   *time.Timer
	stopped bool

	out chan []FileEvent
}

// pendingEvent remembers the first operation seen for a path so later
// arrivals coalesce against the start of the burst, not the middle.
type pendingEvent struct {
	first Operation
	event FileEvent
}

// NewDebouncer returns a debouncer that emits batches on Output after a
// window of quiet.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		out:     make(chan []FileEvent, 10),
	}
}

// Add records an event, coalescing it with any pending event for the same
// path, and restarts the quiet-period timer.
func (d *Debouncer) Add(ev FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if p, ok := d.pending[ev.Path]; ok {
		merged, keep := coalesce(p.first, p.event, ev)
		if keep {
			p.event = merged
		} else {
			delete(d.pending, ev.Path)
		}
	} else {
		d.pending[ev.Path] = &pendingEvent{first: ev.Operation, event: ev}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// coalesce folds a newly observed event into the pending one. keep is false
// when the pair cancels out.
func coalesce(first Operation, pending, next FileEvent) (merged FileEvent, keep bool) {
	switch first {
	case OpCreate:
		switch next.Operation {
		case OpModify:
			return pending, true
		case OpDelete:
			return FileEvent{}, false
		}
	case OpDelete:
		if next.Operation == OpCreate {
			next.Operation = OpModify
			return next, true
		}
	}
	return next, true
}

// flush hands all pending events to the output channel as one batch.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, p := range d.pending {
		batch = append(batch, p.event)
	}
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.out <- batch:
	default:
		slog.Warn("debounce_batch_dropped",
			slog.Int("batch_size", len(batch)))
	}
}

// Output returns the batch channel. It is closed by Stop.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.out
}

// Stop discards pending events and closes the output channel. Safe to call
// more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.out)
}
