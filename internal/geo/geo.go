// Package geo provides the spherical geodesy used by the path predictor and
// the threat cascade.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// Earth radii in kilometres. Distances and projections use different values;
// stored threat history was produced with these exact constants.
const (
	DistanceEarthRadiusKm   = 6373.0
	ProjectionEarthRadiusKm = 6371.0
)

// ErrInvalidCoordinate is returned for NaN, infinite or out-of-range positions.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Point is a geographic position in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether p is a usable WGS84 position.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: (%v, %v) out of range", ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("%.5f/%.5f", p.Lat, p.Lon)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// DistanceKm returns the haversine great-circle distance between p1 and p2.
func DistanceKm(p1, p2 Point) float64 {
	lat1, lon1 := radians(p1.Lat), radians(p1.Lon)
	lat2, lon2 := radians(p2.Lat), radians(p2.Lon)
	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return DistanceEarthRadiusKm * c
}

// Project returns the point reached from start after travelling distanceKm
// along the great circle with the given initial bearing (degrees).
func Project(start Point, bearingDeg, distanceKm float64) Point {
	brng := radians(bearingDeg)
	lat1, lon1 := radians(start.Lat), radians(start.Lon)
	d := distanceKm / ProjectionEarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(math.Sin(brng)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))

	return Point{Lat: degrees(lat2), Lon: degrees(lon2)}
}
