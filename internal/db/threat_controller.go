package db

import (
	"context"
	"log"
	"sync"
	"time"
)

// ThreatController manages when the threat worker runs. It can be paused,
// resumed and triggered manually from the API.
type ThreatController struct {
	worker        *ThreatWorker
	enabled       bool
	mu            sync.RWMutex
	manualTrigger chan struct{}

	// Status tracking
	lastRunAt    time.Time
	lastRunError error
	runCount     int64
	currentRun   *ThreatRunInfo
	lastRun      *ThreatRunInfo
}

// ThreatRunInfo captures details about a single run.
type ThreatRunInfo struct {
	RunID      string         `json:"run_id,omitempty"`
	Trigger    string         `json:"trigger,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Vessels    int            `json:"vessels,omitempty"`
	Gliders    int            `json:"gliders,omitempty"`
	Appended   int64          `json:"appended,omitempty"`
	TierCounts map[string]int `json:"tier_counts,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ThreatStatus represents the current state of the threat worker.
type ThreatStatus struct {
	Enabled      bool           `json:"enabled"`
	Interval     string         `json:"interval"`
	LastRunAt    time.Time      `json:"last_run_at"`
	LastRunError string         `json:"last_run_error,omitempty"`
	RunCount     int64          `json:"run_count"`
	IsHealthy    bool           `json:"is_healthy"`
	CurrentRun   *ThreatRunInfo `json:"current_run,omitempty"`
	LastRun      *ThreatRunInfo `json:"last_run,omitempty"`
}

// NewThreatController creates a new controller for the threat worker.
func NewThreatController(worker *ThreatWorker) *ThreatController {
	return &ThreatController{
		worker:  worker,
		enabled: true, // Default to enabled on boot
		// Buffered channel of size 1 to coalesce multiple rapid trigger requests.
		manualTrigger: make(chan struct{}, 1),
	}
}

// Worker returns the controlled worker.
func (tc *ThreatController) Worker() *ThreatWorker {
	return tc.worker
}

// IsEnabled returns whether the worker is currently enabled.
func (tc *ThreatController) IsEnabled() bool {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.enabled
}

// SetEnabled sets whether the worker should run.
// If enabling, it also triggers an immediate run.
func (tc *ThreatController) SetEnabled(enabled bool) {
	tc.mu.Lock()
	tc.enabled = enabled
	tc.mu.Unlock()

	if enabled {
		tc.TriggerManualRun()
	}
}

// TriggerManualRun requests a run. It never blocks and reports whether the
// request was queued; a request already pending absorbs this one.
func (tc *ThreatController) TriggerManualRun() bool {
	select {
	case tc.manualTrigger <- struct{}{}:
		return true
	default:
		log.Printf("Threat worker manual trigger skipped (already pending)")
		return false
	}
}

// GetStatus returns the current status of the worker.
func (tc *ThreatController) GetStatus() ThreatStatus {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	status := ThreatStatus{
		Enabled:   tc.enabled,
		Interval:  tc.worker.Interval.String(),
		LastRunAt: tc.lastRunAt,
		RunCount:  tc.runCount,
		IsHealthy: true,
	}

	if tc.lastRunError != nil {
		status.LastRunError = tc.lastRunError.Error()
		status.IsHealthy = false
	}
	if tc.currentRun != nil {
		runCopy := *tc.currentRun
		status.CurrentRun = &runCopy
	}
	if tc.lastRun != nil {
		runCopy := *tc.lastRun
		status.LastRun = &runCopy
	}

	// Consider unhealthy if enabled but hasn't run in 2x the interval
	if tc.enabled && !tc.lastRunAt.IsZero() {
		if tc.worker.Clock.Since(tc.lastRunAt) > tc.worker.Interval*2 {
			status.IsHealthy = false
		}
	}

	return status
}

func (tc *ThreatController) startRun(trigger string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentRun = &ThreatRunInfo{
		Trigger:   trigger,
		StartedAt: tc.worker.Clock.Now(),
	}
}

func (tc *ThreatController) finishRun(sum *RunSummary, err error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	now := tc.worker.Clock.Now()
	if tc.currentRun == nil {
		tc.currentRun = &ThreatRunInfo{
			Trigger:   "unknown",
			StartedAt: now,
		}
	}
	run := tc.currentRun
	run.FinishedAt = now
	run.DurationMs = now.Sub(run.StartedAt).Milliseconds()
	if sum != nil {
		run.RunID = sum.ID
		run.Vessels = sum.Vessels
		run.Gliders = sum.Gliders
		run.Appended = sum.Appended
		run.TierCounts = sum.TierCounts
	}
	if err != nil {
		run.Error = err.Error()
	}

	tc.lastRun = run
	tc.currentRun = nil

	tc.lastRunAt = now
	tc.lastRunError = err
	tc.runCount++
}

func (tc *ThreatController) runWorker(ctx context.Context, trigger string) {
	tc.startRun(trigger)
	sum, err := tc.worker.Execute(ctx, trigger)
	tc.finishRun(sum, err)
	if err != nil {
		log.Printf("Threat worker %s run error: %v", trigger, err)
	}
}

// Run starts the worker loop. This should be called in a goroutine.
// It runs periodically based on the worker's Interval, but only when enabled,
// and responds to manual triggers.
func (tc *ThreatController) Run(ctx context.Context) error {
	ticker := tc.worker.Clock.NewTicker(tc.worker.Interval)
	defer ticker.Stop()
	log.Printf("Threat worker loop started: enabled=%t interval=%s since=%s", tc.IsEnabled(), tc.worker.Interval, tc.worker.Since)

	// Run once immediately on startup if enabled
	if tc.IsEnabled() {
		tc.runWorker(ctx, "initial")
	}

	for {
		select {
		case <-ticker.C():
			if tc.IsEnabled() {
				tc.runWorker(ctx, "periodic")
			} else {
				log.Printf("Threat worker skipped (disabled): run_count=%d", tc.GetStatus().RunCount)
			}
		case <-tc.manualTrigger:
			if tc.IsEnabled() {
				log.Printf("Threat worker manual run triggered")
				tc.runWorker(ctx, "manual")
			} else {
				log.Printf("Threat worker manual run skipped (disabled)")
			}
		case <-ctx.Done():
			log.Printf("Threat worker terminated")
			return ctx.Err()
		}
	}
}
