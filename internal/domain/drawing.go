package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntityType is the wire tag of a drawing entity.
type EntityType string

const (
	EntityTypeLine     EntityType = "LINE"
	EntityTypePolyline EntityType = "POLYLINE"
)

// DefaultLayer is assigned to entities that arrive without a layer name.
const DefaultLayer = "Unknown"

// Point2D is a CAD coordinate. On the wire it is a two element array.
type Point2D struct {
	X float64
	Y float64
}

// UnmarshalJSON accepts either [x, y] or {"x": .., "y": ..}.
func (p *Point2D) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("point must have exactly 2 coordinates, got %d", len(pair))
		}
		p.X, p.Y = pair[0], pair[1]
		return nil
	}

	var obj struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid point: %w", err)
	}
	if obj.X == nil || obj.Y == nil {
		return fmt.Errorf("point requires both x and y")
	}
	p.X, p.Y = *obj.X, *obj.Y
	return nil
}

// MarshalJSON encodes the point as [x, y].
func (p Point2D) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// DrawingEntity is a parsed drawing primitive: Line, Polyline or UnknownEntity.
type DrawingEntity interface {
	EntityLayer() string
	drawingEntity()
}

// Line is a straight segment between two points.
type Line struct {
	Layer string
	Start Point2D
	End   Point2D
}

// Polyline is an ordered point sequence, optionally closed into a ring.
type Polyline struct {
	Layer  string
	Points []Point2D
	Closed bool
}

// UnknownEntity keeps entities that could not be typed so the geometry
// engine can report them instead of silently dropping them.
type UnknownEntity struct {
	Type   string
	Layer  string
	Reason string
}

func (l Line) EntityLayer() string          { return l.Layer }
func (p Polyline) EntityLayer() string      { return p.Layer }
func (u UnknownEntity) EntityLayer() string { return u.Layer }

func (Line) drawingEntity()          {}
func (Polyline) drawingEntity()      {}
func (UnknownEntity) drawingEntity() {}

// EntityPayload is the wire shape of one drawing entity.
type EntityPayload struct {
	Type   string    `json:"type" validate:"required,max=64"`
	Layer  string    `json:"layer" validate:"max=256"`
	Start  *Point2D  `json:"start,omitempty"`
	End    *Point2D  `json:"end,omitempty"`
	Points []Point2D `json:"points,omitempty" validate:"max=100000"`
	Closed bool      `json:"closed,omitempty"`
}

// ToEntity converts the payload into its typed variant. Missing fields on a
// known type produce an entity the geometry engine will reject with a warning.
func (p EntityPayload) ToEntity() DrawingEntity {
	layer := p.Layer
	if layer == "" {
		layer = DefaultLayer
	}

	switch EntityType(strings.ToUpper(strings.TrimSpace(p.Type))) {
	case EntityTypeLine:
		if p.Start == nil || p.End == nil {
			return UnknownEntity{Type: p.Type, Layer: layer, Reason: "line requires start and end"}
		}
		return Line{Layer: layer, Start: *p.Start, End: *p.End}
	case EntityTypePolyline:
		points := make([]Point2D, len(p.Points))
		copy(points, p.Points)
		return Polyline{Layer: layer, Points: points, Closed: p.Closed}
	default:
		return UnknownEntity{Type: p.Type, Layer: layer}
	}
}

// EntitiesFromPayloads converts wire payloads preserving their order.
func EntitiesFromPayloads(payloads []EntityPayload) []DrawingEntity {
	entities := make([]DrawingEntity, 0, len(payloads))
	for _, p := range payloads {
		entities = append(entities, p.ToEntity())
	}
	return entities
}

// DecodeDrawing parses a JSON array of entities.
func DecodeDrawing(data []byte) ([]DrawingEntity, error) {
	var payloads []EntityPayload
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidDrawing.Message, err)
	}
	return EntitiesFromPayloads(payloads), nil
}

// ParseWarning records a drawing entity that was skipped during analysis.
type ParseWarning struct {
	Index  int
	Layer  string
	Reason string
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("entity %d (layer %q): %s", w.Index, w.Layer, w.Reason)
}
