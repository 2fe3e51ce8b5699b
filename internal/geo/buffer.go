package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"gonum.org/v1/gonum/spatial/r2"
)

// planar converts geographic points to Web Mercator metres.
func planar(pts []Point) []r2.Vec {
	out := make([]r2.Vec, len(pts))
	for i, p := range pts {
		m := project.WGS84.ToMercator(orb.Point{p.Lon, p.Lat})
		out[i] = r2.Vec{X: m[0], Y: m[1]}
	}
	return out
}

// mercatorScale is the Web Mercator scale factor at the given latitude.
// A ground distance d spans d*mercatorScale projected metres.
func mercatorScale(latDeg float64) float64 {
	return 1 / math.Cos(radians(latDeg))
}

// BufferIntersects reports whether the polyline path, thickened by radiusM
// metres, touches the target line (or point, for a single-element target).
// Both geometries are compared in a Mercator frame with the buffer scaled
// to the latitude of the first path point. A non-positive radius never
// intersects.
func BufferIntersects(path []Point, radiusM float64, target []Point) bool {
	if radiusM <= 0 || len(path) == 0 || len(target) == 0 {
		return false
	}
	r := radiusM * mercatorScale(path[0].Lat)

	a := planar(path)
	b := planar(target)
	for _, sa := range segments(a) {
		for _, sb := range segments(b) {
			if segmentDistance(sa[0], sa[1], sb[0], sb[1]) <= r {
				return true
			}
		}
	}
	return false
}

// segments splits a polyline into segments. A single point becomes a
// zero-length segment.
func segments(pts []r2.Vec) [][2]r2.Vec {
	if len(pts) == 1 {
		return [][2]r2.Vec{{pts[0], pts[0]}}
	}
	out := make([][2]r2.Vec, 0, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		out = append(out, [2]r2.Vec{pts[i-1], pts[i]})
	}
	return out
}

// pointSegmentDistance is the distance from p to the closed segment ab.
func pointSegmentDistance(p, a, b r2.Vec) float64 {
	d := r2.Sub(b, a)
	l2 := r2.Dot(d, d)
	if l2 == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := r2.Dot(r2.Sub(p, a), d) / l2
	t = math.Max(0, math.Min(1, t))
	closest := r2.Add(a, r2.Scale(t, d))
	return r2.Norm(r2.Sub(p, closest))
}

// orientation is the sign of the turn a->b->c.
func orientation(a, b, c r2.Vec) float64 {
	return r2.Cross(r2.Sub(b, a), r2.Sub(c, a))
}

func segmentsCross(p1, p2, q1, q2 r2.Vec) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// segmentDistance is the minimum distance between segments p1p2 and q1q2.
func segmentDistance(p1, p2, q1, q2 r2.Vec) float64 {
	if segmentsCross(p1, p2, q1, q2) {
		return 0
	}
	return math.Min(
		math.Min(pointSegmentDistance(p1, q1, q2), pointSegmentDistance(p2, q1, q2)),
		math.Min(pointSegmentDistance(q1, p1, p2), pointSegmentDistance(q2, p1, p2)),
	)
}
