package monitoring

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunCollector exposes threat run metrics.
type RunCollector struct {
	gatherer prometheus.Gatherer

	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	VesselsByTier     *prometheus.GaugeVec
	RejectedTotal     *prometheus.CounterVec
	RecordsAppended   prometheus.Counter
	RecordsDuplicated prometheus.Counter
	AlertsPublished   prometheus.Counter
	LocationsPruned   prometheus.Counter
}

// NewRunCollector registers run metrics against reg, or the default
// registerer when reg is nil. Registering twice returns the existing
// collectors.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glider_threat_runs_total",
		Help: "Threat classification runs by outcome.",
	}, []string{"result"}), "glider_threat_runs_total")
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "glider_threat_run_duration_seconds",
		Help:    "Duration of a threat classification run including persistence.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}), "glider_threat_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	byTier, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "glider_threat_vessels",
		Help: "Vessels per worst tier in the most recent run.",
	}, []string{"tier"}), "glider_threat_vessels")
	if err != nil {
		return nil, err
	}

	rejected, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glider_threat_rejected_total",
		Help: "Input records rejected for invalid coordinates.",
	}, []string{"kind"}), "glider_threat_rejected_total")
	if err != nil {
		return nil, err
	}

	appended, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glider_threat_records_appended_total",
		Help: "Threat records appended to history before deduplication.",
	}), "glider_threat_records_appended_total")
	if err != nil {
		return nil, err
	}

	duplicated, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glider_threat_records_deduplicated_total",
		Help: "Duplicate threat records removed from history.",
	}), "glider_threat_records_deduplicated_total")
	if err != nil {
		return nil, err
	}

	alerts, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glider_threat_alerts_published_total",
		Help: "Threat records published to the alert stream.",
	}), "glider_threat_alerts_published_total")
	if err != nil {
		return nil, err
	}

	pruned, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glider_vessel_locations_pruned_total",
		Help: "Vessel location rows removed by retention.",
	}), "glider_vessel_locations_pruned_total")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:          gatherer,
		RunsTotal:         runs,
		RunDuration:       duration,
		VesselsByTier:     byTier,
		RejectedTotal:     rejected,
		RecordsAppended:   appended,
		RecordsDuplicated: duplicated,
		AlertsPublished:   alerts,
		LocationsPruned:   pruned,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *RunCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveRun records one run's outcome and duration.
func (c *RunCollector) ObserveRun(d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.RunsTotal.WithLabelValues(result).Inc()
	c.RunDuration.Observe(d.Seconds())
}

// SetTierCounts replaces the per-tier vessel gauges.
func (c *RunCollector) SetTierCounts(counts map[int]int) {
	if c == nil {
		return
	}
	c.VesselsByTier.Reset()
	for tier, n := range counts {
		c.VesselsByTier.WithLabelValues(strconv.Itoa(tier)).Set(float64(n))
	}
}

// AddRejected counts rejected input records of the given kind.
func (c *RunCollector) AddRejected(kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.RejectedTotal.WithLabelValues(kind).Add(float64(n))
}

// AddRecords counts appended and deduplicated history rows.
func (c *RunCollector) AddRecords(appended, duplicated int64) {
	if c == nil {
		return
	}
	if appended > 0 {
		c.RecordsAppended.Add(float64(appended))
	}
	if duplicated > 0 {
		c.RecordsDuplicated.Add(float64(duplicated))
	}
}

// IncAlerts counts published alerts.
func (c *RunCollector) IncAlerts(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.AlertsPublished.Add(float64(n))
}

// AddPruned counts location rows removed by retention.
func (c *RunCollector) AddPruned(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.LocationsPruned.Add(float64(n))
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
