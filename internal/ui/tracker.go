package ui

import (
	"sync"
	"time"
)

// speedSampleWindow is the minimum gap between speed samples. Sampling
// slower than the event rate keeps the files/sec figure from jittering.
const speedSampleWindow = 500 * time.Millisecond

// etaSmoothingFactor weights new ETA estimates against the previous one.
const etaSmoothingFactor = 0.3

// Tracker accumulates progress state across a run. It is safe for
// concurrent use.
type Tracker struct {
	mu          sync.RWMutex
	stage       Stage
	current     int
	total       int
	currentFile string
	startTime   time.Time
	stageStart  time.Time
	errors      []ErrorEvent
	warnings    []ErrorEvent

	lastETA time.Duration

	lastCurrent int
	lastSample  time.Time
	speed       float64
	avgSpeed    float64
	peakSpeed   float64
	samples     int
}

// SpeedStats carries the files/sec metrics for display.
type SpeedStats struct {
	Current float64
	Avg     float64
	Peak    float64
}

// TrackerStats is a snapshot of the tracker.
type TrackerStats struct {
	Stage       Stage
	Current     int
	Total       int
	Progress    float64
	ETA         time.Duration
	CurrentFile string
	ErrorCount  int
	WarnCount   int
	Speed       SpeedStats
}

// NewTracker creates a tracker starting in the scanning stage.
func NewTracker() *Tracker {
	now := time.Now()
	return &Tracker{
		stage:      StageScanning,
		startTime:  now,
		stageStart: now,
		lastSample: now,
	}
}

// SetStage transitions to a new stage, resetting per-stage counters.
func (tr *Tracker) SetStage(stage Stage, total int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.stage = stage
	tr.total = total
	tr.current = 0
	tr.currentFile = ""
	tr.stageStart = time.Now()
	tr.lastETA = 0

	tr.lastCurrent = 0
	tr.lastSample = time.Now()
	tr.speed = 0
	tr.avgSpeed = 0
	tr.peakSpeed = 0
	tr.samples = 0
}

// Update records progress within the current stage.
func (tr *Tracker) Update(current int, file string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.current = current
	if file != "" {
		tr.currentFile = file
	}

	now := time.Now()
	elapsed := now.Sub(tr.lastSample)
	if elapsed < speedSampleWindow {
		return
	}

	if delta := current - tr.lastCurrent; delta > 0 {
		speed := float64(delta) / elapsed.Seconds()
		tr.speed = speed

		tr.samples++
		if tr.samples == 1 {
			tr.avgSpeed = speed
		} else {
			tr.avgSpeed = 0.2*speed + 0.8*tr.avgSpeed
		}
		if speed > tr.peakSpeed {
			tr.peakSpeed = speed
		}
	}

	tr.lastCurrent = current
	tr.lastSample = now
}

// AddError records an error or warning.
func (tr *Tracker) AddError(event ErrorEvent) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if event.IsWarn {
		tr.warnings = append(tr.warnings, event)
	} else {
		tr.errors = append(tr.errors, event)
	}
}

// Progress returns completion as a fraction in [0, 1].
func (tr *Tracker) Progress() float64 {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	if tr.total == 0 {
		return 0
	}
	progress := float64(tr.current) / float64(tr.total)
	if progress > 1 {
		return 1
	}
	return progress
}

// ETA estimates the remaining stage time. It takes the write lock because
// the smoothing state advances with each estimate.
func (tr *Tracker) ETA() time.Duration {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	return tr.calculateETA()
}

// Elapsed returns time since the tracker was created.
func (tr *Tracker) Elapsed() time.Duration {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	return time.Since(tr.startTime)
}

// Stats returns a snapshot. It takes the write lock because calculateETA
// advances the smoothing state.
func (tr *Tracker) Stats() TrackerStats {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	progress := 0.0
	if tr.total > 0 {
		progress = float64(tr.current) / float64(tr.total)
		if progress > 1 {
			progress = 1
		}
	}

	return TrackerStats{
		Stage:       tr.stage,
		Current:     tr.current,
		Total:       tr.total,
		Progress:    progress,
		ETA:         tr.calculateETA(),
		CurrentFile: tr.currentFile,
		ErrorCount:  len(tr.errors),
		WarnCount:   len(tr.warnings),
		Speed: SpeedStats{
			Current: tr.speed,
			Avg:     tr.avgSpeed,
			Peak:    tr.peakSpeed,
		},
	}
}

// calculateETA extrapolates remaining time from stage progress, smoothing
// estimates exponentially so the display does not flap. Callers hold tr.mu.
func (tr *Tracker) calculateETA() time.Duration {
	if tr.current == 0 || tr.total == 0 {
		return 0
	}

	elapsed := time.Since(tr.stageStart)
	progress := float64(tr.current) / float64(tr.total)
	if progress <= 0 || progress >= 1 {
		return 0
	}

	totalEstimate := time.Duration(float64(elapsed) / progress)
	remaining := totalEstimate - elapsed
	if remaining < 0 {
		return 0
	}

	if tr.lastETA == 0 {
		tr.lastETA = remaining
		return remaining
	}

	smoothed := time.Duration(
		etaSmoothingFactor*float64(remaining) +
			(1-etaSmoothingFactor)*float64(tr.lastETA),
	)
	tr.lastETA = smoothed
	return smoothed
}

// Errors returns the recorded errors.
func (tr *Tracker) Errors() []ErrorEvent {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make([]ErrorEvent, len(tr.errors))
	copy(out, tr.errors)
	return out
}

// Warnings returns the recorded warnings.
func (tr *Tracker) Warnings() []ErrorEvent {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make([]ErrorEvent, len(tr.warnings))
	copy(out, tr.warnings)
	return out
}

// Speed returns the current speed metrics.
func (tr *Tracker) Speed() SpeedStats {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	return SpeedStats{
		Current: tr.speed,
		Avg:     tr.avgSpeed,
		Peak:    tr.peakSpeed,
	}
}
