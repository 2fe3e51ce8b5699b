// Package regions assigns positions to named Baltic sea areas.
package regions

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/eervaisa/FMI-Gliders/internal/geo"
)

// Region names.
const (
	BalticSea         = "Baltic Sea"
	BothnianBay       = "Bothnian Bay"
	BothnianSea       = "Bothnian Sea"
	ArchipelagoSea    = "Archipelago Sea"
	GulfOfFinland     = "Gulf of Finland"
	SaimaaAndLaatokka = "Saimaa and Laatokka"
)

// DefaultRegion is assigned to positions outside every polygon.
const DefaultRegion = BalticSea

// ErrMissingCoordinate is returned when a position cannot be classified.
var ErrMissingCoordinate = errors.New("missing coordinate")

// Region is a named polygon. Rings are (longitude, latitude) ordered.
type Region struct {
	Name    string
	Polygon orb.Polygon
}

// ring builds a closed ring from (lon, lat) pairs.
func ring(coords ...[2]float64) orb.Ring {
	r := make(orb.Ring, 0, len(coords)+1)
	for _, c := range coords {
		r = append(r, orb.Point{c[0], c[1]})
	}
	return append(r, r[0])
}

// Baltic returns the sub-basin polygons in evaluation order. Later entries
// override earlier ones where they overlap.
func Baltic() []Region {
	return []Region{
		{BothnianBay, orb.Polygon{ring(
			[2]float64{22, 66}, [2]float64{25.6, 65.9}, [2]float64{26, 65}, [2]float64{22.5, 63.1}, [2]float64{19.7, 63.6},
		)}},
		{BothnianSea, orb.Polygon{ring(
			[2]float64{16.6, 63}, [2]float64{16.6, 60.5}, [2]float64{18, 60.5}, [2]float64{21.5, 60.7}, [2]float64{22.5, 63.1}, [2]float64{19.7, 63.6},
		)}},
		{ArchipelagoSea, orb.Polygon{ring(
			[2]float64{18, 60.5}, [2]float64{21.5, 60.7}, [2]float64{23, 60.5}, [2]float64{23, 60}, [2]float64{21.8, 59.4}, [2]float64{18.6, 59.7},
		)}},
		{GulfOfFinland, orb.Polygon{ring(
			[2]float64{23, 60}, [2]float64{21.8, 59.4}, [2]float64{23.5, 58.8}, [2]float64{30.8, 59.5}, [2]float64{29.5, 61},
		)}},
		{SaimaaAndLaatokka, orb.Polygon{ring(
			[2]float64{30.8, 59.5}, [2]float64{29.5, 61}, [2]float64{26, 61}, [2]float64{26, 63.5}, [2]float64{31, 63.5}, [2]float64{34, 60},
		)}},
	}
}

// Classifier assigns points to the last matching region.
type Classifier struct {
	regions  []Region
	fallback string
}

// NewClassifier returns a classifier over regions, evaluated in order.
func NewClassifier(regions []Region, fallback string) *Classifier {
	return &Classifier{regions: regions, fallback: fallback}
}

// NewBalticClassifier returns the classifier for the monitored area.
func NewBalticClassifier() *Classifier {
	return NewClassifier(Baltic(), DefaultRegion)
}

// Classify returns the name of the last region whose polygon contains p,
// boundary included, or the fallback name.
func (c *Classifier) Classify(p geo.Point) (string, error) {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return "", fmt.Errorf("classify %v: %w", p, ErrMissingCoordinate)
	}
	pt := orb.Point{p.Lon, p.Lat}
	name := c.fallback
	for _, r := range c.regions {
		if planar.PolygonContains(r.Polygon, pt) {
			name = r.Name
		}
	}
	return name, nil
}

// ClassifyAll returns the distinct regions of pts in first-seen order.
func (c *Classifier) ClassifyAll(pts []geo.Point) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range pts {
		name, err := c.Classify(p)
		if err != nil {
			return nil, err
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

// Names returns the region names in evaluation order followed by the fallback.
func (c *Classifier) Names() []string {
	out := make([]string, 0, len(c.regions)+1)
	for _, r := range c.regions {
		out = append(out, r.Name)
	}
	return append(out, c.fallback)
}
