package db

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eervaisa/FMI-Gliders/internal/config"
	"github.com/eervaisa/FMI-Gliders/internal/gliders"
	"github.com/eervaisa/FMI-Gliders/internal/monitoring"
	"github.com/eervaisa/FMI-Gliders/internal/threat"
	"github.com/eervaisa/FMI-Gliders/internal/timeutil"
)

// GliderSource supplies the glider snapshot for a run.
type GliderSource interface {
	Load() ([]gliders.Glider, error)
}

// Publisher forwards newly persisted records to subscribers.
type Publisher interface {
	Publish(ctx context.Context, records []threat.Record) (int, error)
}

// ThreatWorker runs the threat engine over the latest vessel reports and the
// glider snapshot, and persists the actionable records. Runs are serialized;
// concurrent callers wait for the running one to finish.
type ThreatWorker struct {
	DB        *DB
	Engine    *threat.Engine
	Gliders   GliderSource
	Publisher Publisher                // optional
	Metrics   *monitoring.RunCollector // optional
	Clock     timeutil.Clock

	Interval          time.Duration // how often the controller runs the worker
	Since             time.Duration // vessels reported within this window take part
	PathHistory       time.Duration // observed track attached to each vessel
	LocationRetention time.Duration // older location rows are deleted; 0 keeps all

	mu   sync.Mutex
	last *RunSummary
}

// RunSummary describes one completed run.
type RunSummary struct {
	RunRecord
	Pruned     int64          `json:"locations_pruned"`
	Published  int            `json:"published"`
	TierCounts map[string]int `json:"tier_counts"`
	Result     *threat.Result `json:"-"`
}

// NewThreatWorker returns a worker with the default schedule.
func NewThreatWorker(db *DB, engine *threat.Engine, gs GliderSource) *ThreatWorker {
	return &ThreatWorker{
		DB:                db,
		Engine:            engine,
		Gliders:           gs,
		Clock:             timeutil.RealClock{},
		Interval:          10 * time.Minute,
		Since:             time.Hour,
		PathHistory:       3 * time.Hour,
		LocationRetention: 14 * 24 * time.Hour,
	}
}

// NewConfiguredWorker builds the engine and schedule from cfg.
func NewConfiguredWorker(db *DB, cfg *config.EngineConfig, gs GliderSource) *ThreatWorker {
	w := NewThreatWorker(db, threat.NewEngine(cfg.EngineOptions()), gs)
	w.Interval = cfg.GetRunInterval()
	w.Since = cfg.GetSince()
	w.PathHistory = cfg.GetPathHistory()
	w.LocationRetention = cfg.GetLocationRetention()
	return w
}

// RunOnce performs a single run.
func (w *ThreatWorker) RunOnce(ctx context.Context) error {
	_, err := w.Execute(ctx, "once")
	return err
}

// LastRun returns the summary of the most recent successful run, or nil.
func (w *ThreatWorker) LastRun() *RunSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Execute loads the snapshot, classifies it and appends the resulting
// records. A persistence error fails the whole run and leaves the threat
// table untouched.
func (w *ThreatWorker) Execute(ctx context.Context, trigger string) (*RunSummary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.Clock.Now().UTC()
	sum := &RunSummary{
		RunRecord: RunRecord{
			ID:        uuid.NewString(),
			Trigger:   trigger,
			StartedAt: now,
		},
	}
	if err := w.DB.StartRun(ctx, sum.ID, trigger, now); err != nil {
		return nil, err
	}

	err := w.execute(ctx, now, sum)
	sum.FinishedAt = w.Clock.Now().UTC()
	if err != nil {
		sum.Error = err.Error()
	}
	if ferr := w.DB.FinishRun(ctx, sum.RunRecord); ferr != nil {
		log.Printf("Threat worker: %v", ferr)
	}
	w.Metrics.ObserveRun(sum.FinishedAt.Sub(sum.StartedAt), err)
	if err != nil {
		return sum, fmt.Errorf("run %s: %w", sum.ID, err)
	}

	log.Printf("Threat worker: run %s (%s) vessels=%d gliders=%d rejected=%d tiers=%v appended=%d deduplicated=%d pruned=%d took=%s",
		sum.ID, trigger, sum.Vessels, sum.Gliders, sum.Rejected, sum.TierCounts,
		sum.Appended, sum.Deduplicated, sum.Pruned, sum.FinishedAt.Sub(sum.StartedAt))
	w.last = sum
	return sum, nil
}

func (w *ThreatWorker) execute(ctx context.Context, now time.Time, sum *RunSummary) error {
	if w.LocationRetention > 0 {
		pruned, err := w.DB.DeleteLocationsBefore(ctx, now.Add(-w.LocationRetention))
		if err != nil {
			return err
		}
		sum.Pruned = pruned
		w.Metrics.AddPruned(pruned)
	}

	vessels, err := w.DB.LatestVessels(ctx, now.Add(-w.Since), now.Add(-w.PathHistory))
	if err != nil {
		return fmt.Errorf("failed to load vessels: %w", err)
	}
	gs, err := w.Gliders.Load()
	if err != nil {
		return fmt.Errorf("failed to load gliders: %w", err)
	}

	res := w.Engine.Run(vessels, gs)
	sum.Result = res
	sum.Vessels = len(res.Vessels)
	sum.Gliders = len(res.Gliders)
	sum.Rejected = len(res.Rejected)
	sum.Records = len(res.Records)
	sum.TierCounts = tierLabels(res.TierCounts())

	counts := make(map[int]int)
	for tier, n := range res.TierCounts() {
		counts[int(tier)] = n
	}
	w.Metrics.SetTierCounts(counts)
	for _, r := range res.Rejected {
		w.Metrics.AddRejected(r.Kind, 1)
	}

	appended, err := w.DB.AppendThreats(ctx, res.Records)
	if err != nil {
		return fmt.Errorf("failed to persist threats: %w", err)
	}
	sum.Appended = appended.Appended
	sum.Deduplicated = appended.Deduplicated
	w.Metrics.AddRecords(appended.Appended, appended.Deduplicated)

	// Alerts are best effort: the history table is the record of truth.
	if w.Publisher != nil && len(res.Records) > 0 {
		n, err := w.Publisher.Publish(ctx, res.Records)
		if err != nil {
			log.Printf("Threat worker: publish failed after %d of %d records: %v", n, len(res.Records), err)
		}
		sum.Published = n
		w.Metrics.IncAlerts(n)
	}
	return nil
}

func tierLabels(counts map[threat.Tier]int) map[string]int {
	out := make(map[string]int, len(counts))
	for t, n := range counts {
		out[t.String()] = n
	}
	return out
}
