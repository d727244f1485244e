package async

import (
	"context"
	"sync"
)

// RunFunc is the unit of work a Job executes. It receives the job's
// progress tracker and should feed it as it goes.
type RunFunc func(ctx context.Context, pr *Progress) error

// Job runs one RunFunc in a background goroutine. serve uses it for the
// startup rebuild so the HTTP server can answer immediately while the index
// catches up.
type Job struct {
	fn       RunFunc
	progress *Progress

	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	running bool
	err     error
}

// NewJob creates a job that executes fn once started.
func NewJob(fn RunFunc) *Job {
	return &Job{
		fn:       fn,
		progress: NewProgress(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Progress returns the job's progress tracker.
func (j *Job) Progress() *Progress {
	return j.progress
}

// Running reports whether the job is currently executing.
func (j *Job) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// Start begins execution in a background goroutine and returns immediately.
// A job runs at most once; later calls are no-ops. Use Wait to block until
// completion.
func (j *Job) Start(ctx context.Context) {
	j.mu.Lock()
	if j.started {
		j.mu.Unlock()
		return
	}
	j.started = true
	j.running = true
	j.mu.Unlock()

	go j.run(ctx)
}

func (j *Job) run(ctx context.Context) {
	defer close(j.doneCh)
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	// Merge the parent context with the stop channel.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-j.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := j.fn(ctx, j.progress); err != nil {
		j.progress.SetError(err.Error())
		j.mu.Lock()
		j.err = err
		j.mu.Unlock()
		return
	}
	j.progress.SetReady()
}

// Stop cancels the job and waits for it to finish. Stopping a job that was
// never started returns immediately.
func (j *Job) Stop() {
	j.mu.Lock()
	if !j.started {
		j.mu.Unlock()
		return
	}
	if !j.stopped {
		j.stopped = true
		close(j.stopCh)
	}
	j.mu.Unlock()

	<-j.doneCh
}

// Wait blocks until a started job completes and returns its error.
func (j *Job) Wait() error {
	<-j.doneCh
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}
