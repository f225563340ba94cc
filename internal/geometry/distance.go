package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// ShapeDistance returns the shortest distance between any points or edges of
// the two shapes. Polygons are measured edge to edge; a shape nested inside
// a polygon therefore has a positive distance and containment is reported
// separately.
func ShapeDistance(a, b Shape) float64 {
	best := math.Inf(1)
	for _, sa := range segments(a) {
		for _, sb := range segments(b) {
			d := segmentDistance(sa, sb)
			if d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}

type segment struct {
	start geom.Coord
	end   geom.Coord
}

func (s segment) degenerate() bool {
	return s.start[0] == s.end[0] && s.start[1] == s.end[1]
}

func segments(s Shape) []segment {
	if len(s.Coords) == 1 {
		return []segment{{start: s.Coords[0], end: s.Coords[0]}}
	}
	out := make([]segment, 0, len(s.Coords)-1)
	for i := 1; i < len(s.Coords); i++ {
		out = append(out, segment{start: s.Coords[i-1], end: s.Coords[i]})
	}
	return out
}

func segmentDistance(a, b segment) float64 {
	switch {
	case a.degenerate() && b.degenerate():
		return math.Hypot(a.start[0]-b.start[0], a.start[1]-b.start[1])
	case a.degenerate():
		return xy.DistanceFromPointToLine(a.start, b.start, b.end)
	case b.degenerate():
		return xy.DistanceFromPointToLine(b.start, a.start, a.end)
	default:
		return xy.DistanceFromLineToLine(a.start, a.end, b.start, b.end)
	}
}

// Contains reports whether every vertex of inner lies inside or on the ring
// of the polygon outer.
func Contains(outer, inner Shape) bool {
	if outer.Kind != KindPolygon {
		return false
	}
	ring := outer.ring()
	for _, c := range inner.Coords {
		if !xy.IsPointInRing(geom.XY, c, ring) {
			return false
		}
	}
	return true
}
