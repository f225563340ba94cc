// Package geometry turns drawing entities into spatial facts: areas,
// inter-layer distances, containment and per-layer summaries.
package geometry

import (
	"fmt"
	"math"
	"sort"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/twpayne/go-geom"
)

// Kind is the derived geometry type of a parsed entity.
type Kind string

const (
	KindLine    Kind = "line"
	KindPolygon Kind = "polygon"
)

// Shape is one parsed geometry. For polygons the ring is closed, the last
// coordinate repeats the first.
type Shape struct {
	Kind   Kind
	Layer  string
	Coords []geom.Coord
}

// Area returns the absolute polygon area, zero for line-like shapes.
func (s Shape) Area() float64 {
	if s.Kind != KindPolygon {
		return 0
	}
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{s.Coords})
	return math.Abs(poly.Area())
}

// Length returns the total length of the shape's edges.
func (s Shape) Length() float64 {
	if len(s.Coords) < 2 {
		return 0
	}
	return geom.NewLineString(geom.XY).MustSetCoords(s.Coords).Length()
}

// ring returns the flat coordinate slice of a polygon ring.
func (s Shape) ring() []float64 {
	flat := make([]float64, 0, len(s.Coords)*2)
	for _, c := range s.Coords {
		flat = append(flat, c[0], c[1])
	}
	return flat
}

// LayerIndex groups shapes by case-sensitive layer name. Duplicates are kept.
type LayerIndex map[string][]Shape

// Names returns the layer names in sorted order.
func (idx LayerIndex) Names() []string {
	names := make([]string, 0, len(idx))
	for name := range idx {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of shapes across all layers.
func (idx LayerIndex) Count() int {
	n := 0
	for _, shapes := range idx {
		n += len(shapes)
	}
	return n
}

// Parse converts entities into a LayerIndex. Entities that cannot become a
// geometry are skipped and reported as warnings.
func Parse(entities []domain.DrawingEntity) (LayerIndex, []domain.ParseWarning) {
	idx := make(LayerIndex)
	var warnings []domain.ParseWarning

	for i, entity := range entities {
		shape, reason := parseEntity(entity)
		if reason != "" {
			layer := ""
			if entity != nil {
				layer = entity.EntityLayer()
			}
			warnings = append(warnings, domain.ParseWarning{Index: i, Layer: layer, Reason: reason})
			continue
		}
		idx[shape.Layer] = append(idx[shape.Layer], shape)
	}

	return idx, warnings
}

func parseEntity(entity domain.DrawingEntity) (Shape, string) {
	switch e := entity.(type) {
	case domain.Line:
		if !finite(e.Start) || !finite(e.End) {
			return Shape{}, "non-finite coordinate"
		}
		return Shape{
			Kind:   KindLine,
			Layer:  e.Layer,
			Coords: []geom.Coord{toCoord(e.Start), toCoord(e.End)},
		}, ""
	case domain.Polyline:
		return parsePolyline(e)
	case domain.UnknownEntity:
		if e.Reason != "" {
			return Shape{}, e.Reason
		}
		return Shape{}, fmt.Sprintf("unknown entity type %q", e.Type)
	case nil:
		return Shape{}, "missing entity"
	default:
		return Shape{}, fmt.Sprintf("unsupported entity %T", entity)
	}
}

func parsePolyline(p domain.Polyline) (Shape, string) {
	if len(p.Points) < 2 {
		return Shape{}, "polyline has fewer than 2 points"
	}
	for _, pt := range p.Points {
		if !finite(pt) {
			return Shape{}, "non-finite coordinate"
		}
	}

	coords := make([]geom.Coord, 0, len(p.Points)+1)
	for _, pt := range p.Points {
		coords = append(coords, toCoord(pt))
	}

	if !p.Closed {
		return Shape{Kind: KindLine, Layer: p.Layer, Coords: coords}, ""
	}

	if distinctPoints(p.Points) < 3 {
		return Shape{}, "closed polyline has fewer than 3 distinct points"
	}
	first, last := coords[0], coords[len(coords)-1]
	if first[0] != last[0] || first[1] != last[1] {
		coords = append(coords, geom.Coord{first[0], first[1]})
	}
	return Shape{Kind: KindPolygon, Layer: p.Layer, Coords: coords}, ""
}

func distinctPoints(points []domain.Point2D) int {
	seen := make(map[domain.Point2D]struct{}, len(points))
	for _, pt := range points {
		seen[pt] = struct{}{}
	}
	return len(seen)
}

func finite(p domain.Point2D) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

func toCoord(p domain.Point2D) geom.Coord {
	return geom.Coord{p.X, p.Y}
}
