package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	// Given: a run function
	job := NewJob(func(ctx context.Context, pr *Progress) error { return nil })

	// Then: the job is initialized but not running
	require.NotNil(t, job)
	assert.NotNil(t, job.Progress())
	assert.False(t, job.Running())
}

func TestJob_Start_RunsInBackground(t *testing.T) {
	// Given: a job that blocks until released
	release := make(chan struct{})
	job := NewJob(func(ctx context.Context, pr *Progress) error {
		<-release
		return nil
	})

	// When: starting it
	job.Start(context.Background())

	// Then: it reports running until the function returns
	assert.True(t, job.Running())
	close(release)
	require.NoError(t, job.Wait())
	assert.False(t, job.Running())
	assert.Equal(t, StatusReady, job.Progress().Status())
}

func TestJob_Start_RunsAtMostOnce(t *testing.T) {
	// Given: a job counting its executions
	var runs atomic.Int32
	job := NewJob(func(ctx context.Context, pr *Progress) error {
		runs.Add(1)
		return nil
	})

	// When: starting repeatedly, including after completion
	job.Start(context.Background())
	job.Start(context.Background())
	require.NoError(t, job.Wait())
	job.Start(context.Background())

	// Then: the function ran exactly once
	assert.Equal(t, int32(1), runs.Load())
}

func TestJob_FailureRecordsError(t *testing.T) {
	// Given: a job whose function fails
	boom := errors.New("walk failed")
	job := NewJob(func(ctx context.Context, pr *Progress) error { return boom })

	// When: running it to completion
	job.Start(context.Background())
	err := job.Wait()

	// Then: the error surfaces through Wait and the tracker
	require.ErrorIs(t, err, boom)
	snap := job.Progress().Snapshot()
	assert.Equal(t, string(StatusError), snap.Status)
	assert.Equal(t, "walk failed", snap.ErrorMessage)
}

func TestJob_Stop_CancelsContext(t *testing.T) {
	// Given: a job that runs until canceled
	started := make(chan struct{})
	job := NewJob(func(ctx context.Context, pr *Progress) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	job.Start(context.Background())
	<-started

	// When: stopping it
	job.Stop()

	// Then: the function saw cancellation; a second Stop is harmless
	require.ErrorIs(t, job.Wait(), context.Canceled)
	job.Stop()
}

func TestJob_Stop_BeforeStart(t *testing.T) {
	job := NewJob(func(ctx context.Context, pr *Progress) error { return nil })

	// Stopping a never-started job must not block or panic.
	job.Stop()
	assert.False(t, job.Running())
}

func TestJob_ParentCancellationPropagates(t *testing.T) {
	// Given: a started job under a cancelable parent
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	job := NewJob(func(ctx context.Context, pr *Progress) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	job.Start(ctx)
	<-started

	// When: the parent is canceled
	cancel()

	// Then: the job winds down with the context error
	assert.ErrorIs(t, job.Wait(), context.Canceled)
}

func TestJob_ProgressFlowsToSnapshot(t *testing.T) {
	// Given: a job that feeds its tracker
	job := NewJob(func(ctx context.Context, pr *Progress) error {
		pr.SetTotal(10)
		pr.Update(7, 3)
		return nil
	})

	// When: running it to completion
	job.Start(context.Background())
	require.NoError(t, job.Wait())

	// Then: the final snapshot carries the counts
	snap := job.Progress().Snapshot()
	assert.Equal(t, string(StatusReady), snap.Status)
	assert.Equal(t, 10, snap.FilesTotal)
	assert.Equal(t, 7, snap.FilesIndexed)
	assert.Equal(t, 3, snap.FilesSkipped)
	assert.InDelta(t, 100.0, snap.ProgressPct, 0.01)
}
