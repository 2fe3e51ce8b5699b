package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eervaisa/FMI-Gliders/internal/predict"
	"github.com/eervaisa/FMI-Gliders/internal/threat"
)

// DefaultConfigPath is the path to the engine defaults file shipped with the
// service.
const DefaultConfigPath = "config/engine.defaults.json"

// Defaults used when a field is omitted.
const (
	DefaultProximityKm       = 10.0
	DefaultHorizonMinutes    = 60
	DefaultStepMinutes       = 1
	DefaultMaxStepRotation   = 90.0
	DefaultRunInterval       = 10 * time.Minute
	DefaultSince             = time.Hour
	DefaultRecencyCutoff     = 15 * time.Minute
	DefaultPathHistory       = 3 * time.Hour
	DefaultLocationRetention = 14 * 24 * time.Hour
)

// DefaultAllowList holds the research and support vessels that always
// classify as allow-listed.
var DefaultAllowList = []int64{230145000, 230149210}

// EngineConfig configures the threat engine and its worker. Pointer fields
// distinguish "not set" from zero; Get* methods supply defaults.
type EngineConfig struct {
	// Classification
	AllowList       []int64  `json:"allow_list,omitempty"`
	ProximityKm     *float64 `json:"proximity_km,omitempty"`
	HorizonMinutes  *int     `json:"horizon_minutes,omitempty"`
	StepMinutes     *int     `json:"step_minutes,omitempty"`
	MaxStepRotation *float64 `json:"max_step_rotation_deg,omitempty"`

	// Worker scheduling, duration strings like "10m"
	RunInterval *string `json:"run_interval,omitempty"`
	Since       *string `json:"since,omitempty"`

	// History
	RecencyCutoff     *string `json:"recency_cutoff,omitempty"`
	PathHistory       *string `json:"path_history,omitempty"`
	LocationRetention *string `json:"location_retention,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultEngineConfig returns a config with every field set to its default.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		AllowList:         append([]int64(nil), DefaultAllowList...),
		ProximityKm:       ptrFloat64(DefaultProximityKm),
		HorizonMinutes:    ptrInt(DefaultHorizonMinutes),
		StepMinutes:       ptrInt(DefaultStepMinutes),
		MaxStepRotation:   ptrFloat64(DefaultMaxStepRotation),
		RunInterval:       ptrString(DefaultRunInterval.String()),
		Since:             ptrString(DefaultSince.String()),
		RecencyCutoff:     ptrString(DefaultRecencyCutoff.String()),
		PathHistory:       ptrString(DefaultPathHistory.String()),
		LocationRetention: ptrString(DefaultLocationRetention.String()),
	}
}

// LoadEngineConfig loads an EngineConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the file fall back to defaults through the Get* methods.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &EngineConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *EngineConfig) Validate() error {
	if c.ProximityKm != nil && *c.ProximityKm <= 0 {
		return fmt.Errorf("proximity_km must be positive, got %f", *c.ProximityKm)
	}
	if c.StepMinutes != nil && *c.StepMinutes <= 0 {
		return fmt.Errorf("step_minutes must be positive, got %d", *c.StepMinutes)
	}
	if c.HorizonMinutes != nil && *c.HorizonMinutes < c.GetStepMinutes() {
		return fmt.Errorf("horizon_minutes must be at least step_minutes (%d), got %d", c.GetStepMinutes(), *c.HorizonMinutes)
	}
	if c.MaxStepRotation != nil && *c.MaxStepRotation <= 0 {
		return fmt.Errorf("max_step_rotation_deg must be positive, got %f", *c.MaxStepRotation)
	}
	for _, mmsi := range c.AllowList {
		if mmsi <= 0 {
			return fmt.Errorf("allow_list entries must be positive MMSIs, got %d", mmsi)
		}
	}

	durations := []struct {
		name string
		v    *string
	}{
		{"run_interval", c.RunInterval},
		{"since", c.Since},
		{"recency_cutoff", c.RecencyCutoff},
		{"path_history", c.PathHistory},
		{"location_retention", c.LocationRetention},
	}
	for _, d := range durations {
		if d.v == nil || *d.v == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.v, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, *d.v)
		}
	}
	return nil
}

// GetAllowList returns the allow-list or the default one.
func (c *EngineConfig) GetAllowList() []int64 {
	if c.AllowList == nil {
		return append([]int64(nil), DefaultAllowList...)
	}
	return c.AllowList
}

// GetProximityKm returns the proximity threshold or the default.
func (c *EngineConfig) GetProximityKm() float64 {
	if c.ProximityKm == nil {
		return DefaultProximityKm
	}
	return *c.ProximityKm
}

// GetHorizonMinutes returns the prediction horizon or the default.
func (c *EngineConfig) GetHorizonMinutes() int {
	if c.HorizonMinutes == nil {
		return DefaultHorizonMinutes
	}
	return *c.HorizonMinutes
}

// GetStepMinutes returns the prediction step or the default.
func (c *EngineConfig) GetStepMinutes() int {
	if c.StepMinutes == nil {
		return DefaultStepMinutes
	}
	return *c.StepMinutes
}

// GetMaxStepRotation returns the rotation cutoff or the default.
func (c *EngineConfig) GetMaxStepRotation() float64 {
	if c.MaxStepRotation == nil {
		return DefaultMaxStepRotation
	}
	return *c.MaxStepRotation
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetRunInterval returns how often the worker runs.
func (c *EngineConfig) GetRunInterval() time.Duration {
	return durationOr(c.RunInterval, DefaultRunInterval)
}

// GetSince returns how far back the worker reads vessel locations.
func (c *EngineConfig) GetSince() time.Duration {
	return durationOr(c.Since, DefaultSince)
}

// GetRecencyCutoff returns the window for "recent threat" queries.
func (c *EngineConfig) GetRecencyCutoff() time.Duration {
	return durationOr(c.RecencyCutoff, DefaultRecencyCutoff)
}

// GetPathHistory returns how much observed track is attached to each vessel.
func (c *EngineConfig) GetPathHistory() time.Duration {
	return durationOr(c.PathHistory, DefaultPathHistory)
}

// GetLocationRetention returns how long vessel locations are kept.
func (c *EngineConfig) GetLocationRetention() time.Duration {
	return durationOr(c.LocationRetention, DefaultLocationRetention)
}

// EngineOptions translates the config into threat engine options.
func (c *EngineConfig) EngineOptions() threat.EngineOptions {
	return threat.EngineOptions{
		Predictor: &predict.Predictor{
			HorizonMinutes:  c.GetHorizonMinutes(),
			StepMinutes:     c.GetStepMinutes(),
			MaxStepRotation: c.GetMaxStepRotation(),
		},
		ProximityKm: c.GetProximityKm(),
		AllowList:   c.GetAllowList(),
	}
}
