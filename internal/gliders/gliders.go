// Package gliders loads glider snapshots written by the telemetry parser:
// current_positions.json holds each glider's fixes and glider_waypoints.json
// its latest waypoint plan.
package gliders

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"math"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/eervaisa/FMI-Gliders/internal/fsutil"
	"github.com/eervaisa/FMI-Gliders/internal/geo"
	"github.com/eervaisa/FMI-Gliders/internal/monitoring"
)

// Default snapshot file names.
const (
	PositionsFile = "current_positions.json"
	WaypointsFile = "glider_waypoints.json"
)

// TimeLayout is the fix timestamp format.
const TimeLayout = "2006-01-02T15:04:05Z"

// ErrMalformedEntry marks a glider whose snapshot entry could not be decoded.
var ErrMalformedEntry = errors.New("malformed snapshot entry")

// Glider is the state of one glider at the start of a run.
type Glider struct {
	Name      string      `json:"name"`
	Position  geo.Point   `json:"position"`
	UpdatedAt time.Time   `json:"updated_at"`
	Track     []geo.Point `json:"track,omitempty"`

	// Route is the planned waypoint line. A glider without a plan has its
	// current position as the single waypoint.
	Route []geo.Point `json:"route"`

	// RouteRegions are the named regions the route passes through.
	RouteRegions []string `json:"route_regions,omitempty"`

	// Err is set when the glider's entry in the snapshot files is unusable.
	// Such a glider carries no position and fails Validate.
	Err error `json:"-"`
}

// Validate rejects gliders with unusable positions or waypoints.
func (g Glider) Validate() error {
	if g.Err != nil {
		return fmt.Errorf("glider %s: %w", g.Name, g.Err)
	}
	if err := g.Position.Validate(); err != nil {
		return fmt.Errorf("glider %s: %w", g.Name, err)
	}
	for i, p := range g.Route {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("glider %s waypoint %d: %w", g.Name, i, err)
		}
	}
	return nil
}

// NormalizeName upper-cases the first letter and lower-cases the rest.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + strings.ToLower(name[size:])
}

// Fix is one reported glider position.
type Fix struct {
	Time     time.Time
	Position geo.Point
	Sensors  map[string]float64
}

type fixJSON struct {
	Datetime string `json:"datetime"`
	Location struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"location"`
	Sensors map[string]float64 `json:"sensors,omitempty"`
}

// UnmarshalJSON decodes a fix. Missing coordinates decode as NaN so the
// engine can reject the glider rather than place it at 0,0.
func (f *Fix) UnmarshalJSON(data []byte) error {
	var raw fixJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := time.Parse(TimeLayout, raw.Datetime)
	if err != nil {
		return fmt.Errorf("parse fix datetime %q: %w", raw.Datetime, err)
	}
	f.Time = t
	f.Position = geo.Point{Lat: orNaN(raw.Location.Latitude), Lon: orNaN(raw.Location.Longitude)}
	f.Sensors = raw.Sensors
	return nil
}

// MarshalJSON encodes a fix in the telemetry parser's layout.
func (f Fix) MarshalJSON() ([]byte, error) {
	var raw fixJSON
	raw.Datetime = f.Time.UTC().Format(TimeLayout)
	lat, lon := f.Position.Lat, f.Position.Lon
	raw.Location.Latitude = &lat
	raw.Location.Longitude = &lon
	raw.Sensors = f.Sensors
	return json.Marshal(raw)
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// Store reads and rewrites the snapshot files.
type Store struct {
	FS            fsutil.FileSystem
	PositionsPath string
	WaypointsPath string
}

// NewStore returns a store over the OS filesystem.
func NewStore(positionsPath, waypointsPath string) *Store {
	return &Store{
		FS:            fsutil.OSFileSystem{},
		PositionsPath: positionsPath,
		WaypointsPath: waypointsPath,
	}
}

// Positions returns the fixes per glider as stored, keyed by raw name.
func (s *Store) Positions() (map[string][]Fix, error) {
	out := map[string][]Fix{}
	if err := s.readJSON(s.PositionsPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Waypoints returns the planned route per glider, keyed by raw name.
func (s *Store) Waypoints() (map[string][]geo.Point, error) {
	raw, err := s.entries(s.WaypointsPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]geo.Point, len(raw))
	for name, data := range raw {
		route, err := decodeRoute(data)
		if err != nil {
			return nil, fmt.Errorf("glider %s: %w", name, err)
		}
		out[name] = route
	}
	return out, nil
}

func decodeFixes(data json.RawMessage) ([]Fix, error) {
	var fixes []Fix
	if err := json.Unmarshal(data, &fixes); err != nil {
		return nil, fmt.Errorf("%w: positions: %v", ErrMalformedEntry, err)
	}
	return fixes, nil
}

// decodeRoute decodes a plan stored as [longitude, latitude] pairs.
func decodeRoute(data json.RawMessage) ([]geo.Point, error) {
	var pairs [][]float64
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("%w: waypoints: %v", ErrMalformedEntry, err)
	}
	pts := make([]geo.Point, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: waypoint %d: expected [lon, lat], got %v", ErrMalformedEntry, i, pair)
		}
		pts = append(pts, geo.Point{Lat: pair[1], Lon: pair[0]})
	}
	return pts, nil
}

// entries splits a snapshot file into its per-glider values so one bad
// entry does not spoil the others.
func (s *Store) entries(path string) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	if err := s.readJSON(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// readJSON decodes path into v. A missing file leaves v untouched.
func (s *Store) readJSON(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := s.FS.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (s *Store) writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.FS.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Load assembles the glider batch, sorted by name. Entries whose names
// normalise to the same glider are merged. Each glider's position is its
// latest fix; its track holds all fixes oldest first. Gliders without fixes
// are skipped. A glider whose entry cannot be decoded is returned with Err
// set so the engine rejects it alone.
func (s *Store) Load() ([]Glider, error) {
	positions, err := s.entries(s.PositionsPath)
	if err != nil {
		return nil, err
	}
	waypoints, err := s.entries(s.WaypointsPath)
	if err != nil {
		return nil, err
	}

	fixes := map[string][]Fix{}
	broken := map[string]error{}
	for _, rawName := range slices.Sorted(maps.Keys(positions)) {
		name := NormalizeName(rawName)
		decoded, err := decodeFixes(positions[rawName])
		if err != nil {
			broken[name] = err
			continue
		}
		fixes[name] = append(fixes[name], decoded...)
	}

	names := slices.Sorted(maps.Keys(fixes))
	for name := range broken {
		if _, ok := fixes[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	gliders := make([]Glider, 0, len(names))
	for _, name := range names {
		if err := broken[name]; err != nil {
			gliders = append(gliders, invalidGlider(name, err))
			continue
		}
		if len(fixes[name]) == 0 {
			continue
		}
		route, err := s.route(waypoints, name)
		if err != nil {
			gliders = append(gliders, invalidGlider(name, err))
			continue
		}
		g := newGlider(name, fixes[name])
		if len(route) > 0 {
			g.Route = route
		}
		gliders = append(gliders, g)
	}
	return gliders, nil
}

func newGlider(name string, fixes []Fix) Glider {
	sorted := slices.Clone(fixes)
	slices.SortStableFunc(sorted, func(a, b Fix) int { return a.Time.Compare(b.Time) })
	// The same fix listed under two spellings of the name counts once.
	sorted = slices.CompactFunc(sorted, func(a, b Fix) bool {
		return a.Time.Equal(b.Time) && a.Position == b.Position
	})
	latest := sorted[len(sorted)-1]

	g := Glider{
		Name:      name,
		Position:  latest.Position,
		UpdatedAt: latest.Time,
		Route:     []geo.Point{latest.Position},
	}
	for _, f := range sorted {
		g.Track = append(g.Track, f.Position)
	}
	return g
}

func invalidGlider(name string, err error) Glider {
	monitoring.Logf("Glider snapshot: unusable entry for %s: %v", name, err)
	nan := geo.Point{Lat: math.NaN(), Lon: math.NaN()}
	return Glider{Name: name, Position: nan, Err: err}
}

// route returns the waypoint plan for name. Differing plans under several
// spellings of the name are an error.
func (s *Store) route(waypoints map[string]json.RawMessage, name string) ([]geo.Point, error) {
	var route []geo.Point
	for _, key := range matchingKeys(waypoints, name) {
		pts, err := decodeRoute(waypoints[key])
		if err != nil {
			return nil, err
		}
		if len(pts) == 0 {
			continue
		}
		if route != nil && !slices.Equal(route, pts) {
			return nil, fmt.Errorf("%w: conflicting waypoint plans", ErrMalformedEntry)
		}
		route = pts
	}
	return route, nil
}

// PruneFixesBefore drops the named glider's fixes at or before t, so a new
// mission does not inherit the previous one's track. Other gliders' entries
// are written back as stored.
func (s *Store) PruneFixesBefore(name string, t time.Time) (int, error) {
	raw, err := s.entries(s.PositionsPath)
	if err != nil {
		return 0, err
	}
	keys := matchingKeys(raw, name)
	if len(keys) == 0 {
		return 0, nil
	}
	removed := 0
	for _, key := range keys {
		fixes, err := decodeFixes(raw[key])
		if err != nil {
			return 0, fmt.Errorf("glider %s: %w", key, err)
		}
		kept := []Fix{}
		for _, f := range fixes {
			if f.Time.After(t) {
				kept = append(kept, f)
			} else {
				removed++
			}
		}
		data, err := json.Marshal(kept)
		if err != nil {
			return 0, err
		}
		raw[key] = data
	}
	return removed, s.writeJSON(s.PositionsPath, raw)
}

// RemoveWaypoints drops the named glider's waypoint plan.
func (s *Store) RemoveWaypoints(name string) (bool, error) {
	raw, err := s.entries(s.WaypointsPath)
	if err != nil {
		return false, err
	}
	keys := matchingKeys(raw, name)
	if len(keys) == 0 {
		return false, nil
	}
	for _, key := range keys {
		delete(raw, key)
	}
	return true, s.writeJSON(s.WaypointsPath, raw)
}

// matchingKeys returns the raw keys of m that normalise to name, sorted.
func matchingKeys[V any](m map[string]V, name string) []string {
	want := NormalizeName(name)
	var keys []string
	for k := range m {
		if NormalizeName(k) == want {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
