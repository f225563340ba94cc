package geometry

import (
	"math"

	"github.com/cloo-solutions/plancheck/internal/domain"
)

// DefaultBoundaryLayer is the layer name treated as the plot boundary.
const DefaultBoundaryLayer = "Plot Boundary"

// Config controls the geometry engine.
type Config struct {
	// BoundaryLayers lists accepted boundary layer names in priority order.
	BoundaryLayers []string
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{BoundaryLayers: []string{DefaultBoundaryLayer}}
}

// LayerArea is the polygon area of one layer.
type LayerArea struct {
	Layer    string   `json:"layer"`
	Area     float64  `json:"area"`
	Polygons int      `json:"polygons"`
	Boundary bool     `json:"boundary,omitempty"`
	Coverage *float64 `json:"coverage_pct,omitempty"`
}

// LayerDistance summarises all cross-layer shape distances for a layer pair.
type LayerDistance struct {
	LayerA string  `json:"layer_a"`
	LayerB string  `json:"layer_b"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Pairs  int     `json:"pairs"`
}

// Containment records whether a polygon layer lies inside the boundary.
type Containment struct {
	Layer    string `json:"layer"`
	Boundary string `json:"boundary"`
	Inside   bool   `json:"inside"`
}

// LayerSummary is the per-layer breakdown.
type LayerSummary struct {
	Layer    string  `json:"layer"`
	Polygons int     `json:"polygons"`
	Lines    int     `json:"lines"`
	Area     float64 `json:"area"`
	Length   float64 `json:"length"`
}

// Facts is the structured result consumed by the reasoning step.
type Facts struct {
	LayerCount    int                   `json:"layer_count"`
	EntityCount   int                   `json:"entity_count"`
	PolygonCount  int                   `json:"polygon_count"`
	LineCount     int                   `json:"line_count"`
	BoundaryLayer string                `json:"boundary_layer,omitempty"`
	BoundaryArea  float64               `json:"boundary_area,omitempty"`
	Areas         []LayerArea           `json:"areas,omitempty"`
	Distances     []LayerDistance       `json:"distances,omitempty"`
	Containment   []Containment         `json:"containment,omitempty"`
	Layers        []LayerSummary        `json:"layers,omitempty"`
	Warnings      []domain.ParseWarning `json:"warnings,omitempty"`
}

// Empty reports whether no geometry was found.
func (f *Facts) Empty() bool {
	return f.EntityCount == 0
}

// Coverage returns a layer's percentage of the boundary area when known.
func (f *Facts) Coverage(layer string) (float64, bool) {
	for _, a := range f.Areas {
		if a.Layer == layer && a.Coverage != nil {
			return *a.Coverage, true
		}
	}
	return 0, false
}

// Distance returns the distance summary for an unordered layer pair.
func (f *Facts) Distance(a, b string) (LayerDistance, bool) {
	for _, d := range f.Distances {
		if (d.LayerA == a && d.LayerB == b) || (d.LayerA == b && d.LayerB == a) {
			return d, true
		}
	}
	return LayerDistance{}, false
}

// Report is the output of Analyze.
type Report struct {
	Text  string
	Facts Facts
}

// Engine analyses drawings. It is stateless and safe for concurrent use.
type Engine struct {
	boundaryLayers []string
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	layers := cfg.BoundaryLayers
	if len(layers) == 0 {
		layers = DefaultConfig().BoundaryLayers
	}
	return &Engine{boundaryLayers: append([]string(nil), layers...)}
}

// Analyze parses the entities and computes areas, distances, containment and
// the layer summary. The result is deterministic for identical input.
func (e *Engine) Analyze(entities []domain.DrawingEntity, question string) *Report {
	idx, warnings := Parse(entities)

	facts := Facts{Warnings: warnings}
	if idx.Count() > 0 {
		e.summarise(idx, &facts)
		e.analyzeAreas(idx, &facts)
		e.analyzeDistances(idx, &facts)
		e.analyzeContainment(idx, &facts)
	}

	return &Report{
		Text:  render(question, &facts),
		Facts: facts,
	}
}

func (e *Engine) isBoundary(layer string) bool {
	for _, b := range e.boundaryLayers {
		if b == layer {
			return true
		}
	}
	return false
}

// boundary picks the first configured boundary layer that has polygons.
func (e *Engine) boundary(idx LayerIndex) (string, []Shape) {
	for _, name := range e.boundaryLayers {
		var polys []Shape
		for _, s := range idx[name] {
			if s.Kind == KindPolygon {
				polys = append(polys, s)
			}
		}
		if len(polys) > 0 {
			return name, polys
		}
	}
	return "", nil
}

func (e *Engine) summarise(idx LayerIndex, facts *Facts) {
	names := idx.Names()
	facts.LayerCount = len(names)
	for _, name := range names {
		summary := LayerSummary{Layer: name}
		for _, s := range idx[name] {
			switch s.Kind {
			case KindPolygon:
				summary.Polygons++
				summary.Area += s.Area()
			case KindLine:
				summary.Lines++
				summary.Length += s.Length()
			}
		}
		facts.EntityCount += summary.Polygons + summary.Lines
		facts.PolygonCount += summary.Polygons
		facts.LineCount += summary.Lines
		facts.Layers = append(facts.Layers, summary)
	}
}

func (e *Engine) analyzeAreas(idx LayerIndex, facts *Facts) {
	boundaryName, boundaryPolys := e.boundary(idx)
	var boundaryArea float64
	for _, s := range boundaryPolys {
		boundaryArea += s.Area()
	}
	if boundaryName != "" {
		facts.BoundaryLayer = boundaryName
		facts.BoundaryArea = boundaryArea
	}

	for _, summary := range facts.Layers {
		if summary.Polygons == 0 {
			continue
		}
		area := LayerArea{
			Layer:    summary.Layer,
			Area:     summary.Area,
			Polygons: summary.Polygons,
			Boundary: e.isBoundary(summary.Layer),
		}
		if !area.Boundary && boundaryArea > 0 {
			pct := area.Area / boundaryArea * 100
			area.Coverage = &pct
		}
		facts.Areas = append(facts.Areas, area)
	}
}

func (e *Engine) analyzeDistances(idx LayerIndex, facts *Facts) {
	names := idx.Names()
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			as, bs := idx[names[i]], idx[names[j]]
			if len(as) == 0 || len(bs) == 0 {
				continue
			}
			ld := LayerDistance{LayerA: names[i], LayerB: names[j], Min: math.Inf(1), Max: math.Inf(-1)}
			var sum float64
			for _, a := range as {
				for _, b := range bs {
					d := ShapeDistance(a, b)
					ld.Min = math.Min(ld.Min, d)
					ld.Max = math.Max(ld.Max, d)
					sum += d
					ld.Pairs++
				}
			}
			ld.Mean = sum / float64(ld.Pairs)
			facts.Distances = append(facts.Distances, ld)
		}
	}
}

func (e *Engine) analyzeContainment(idx LayerIndex, facts *Facts) {
	boundaryName, boundaryPolys := e.boundary(idx)
	if boundaryName == "" {
		return
	}
	for _, name := range idx.Names() {
		if e.isBoundary(name) {
			continue
		}
		var polys []Shape
		for _, s := range idx[name] {
			if s.Kind == KindPolygon {
				polys = append(polys, s)
			}
		}
		if len(polys) == 0 {
			continue
		}
		inside := true
		for _, p := range polys {
			if !containedByAny(boundaryPolys, p) {
				inside = false
				break
			}
		}
		facts.Containment = append(facts.Containment, Containment{Layer: name, Boundary: boundaryName, Inside: inside})
	}
}

func containedByAny(outers []Shape, inner Shape) bool {
	for _, o := range outers {
		if Contains(o, inner) {
			return true
		}
	}
	return false
}
