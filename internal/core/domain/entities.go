package domain

import (
	"time"
)

// UnclassifiedType is the feature type of a way without any classifying tag.
const UnclassifiedType = "none"

// Tag is a single key/value attribute of a way.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Point is a node of the source graph.
type Point struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CanvasXY is a position on the output canvas; y grows downward.
type CanvasXY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointIndex maps point ids to their resolved canvas positions.
type PointIndex map[int64]CanvasXY

// Way is an ordered list of point references plus its tags, kept in source order.
type Way struct {
	ID   int64   `json:"id"`
	Refs []int64 `json:"refs"`
	Tags []Tag   `json:"tags,omitempty"`
}

// Feature is a way resolved onto the canvas.
type Feature struct {
	WayID  int64      `json:"way_id"`
	Coords []CanvasXY `json:"coords"`
	Path   string     `json:"path"`
	Type   string     `json:"type"`
}

// Layer collects every feature of one type.
type Layer struct {
	Name     string    `json:"name"`
	ID       string    `json:"id"`
	Color    string    `json:"color"`
	Features []Feature `json:"features"`
}

// Graph is a decoded source extract. Bounds is nil when the source carries
// no bounding metadata. Sources lists the inputs of a merged graph and is
// empty for a single extract.
type Graph struct {
	Source  string   `json:"source"`
	Sources []string `json:"sources,omitempty"`
	Bounds  *Box     `json:"bounds,omitempty"`
	Points  []Point  `json:"points"`
	Ways    []Way    `json:"ways"`
}

// LayerStat is the per-layer part of a RenderSummary.
type LayerStat struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Features int    `json:"features"`
}

// RenderSummary describes a finished conversion.
type RenderSummary struct {
	Source       string      `json:"source"`
	OutputName   string      `json:"output_name"`
	Bounds       Box         `json:"bounds"`
	Canvas       Canvas      `json:"canvas"`
	Layers       []LayerStat `json:"layers"`
	Points       int         `json:"points"`
	Ways         int         `json:"ways"`
	WidthMeters  float64     `json:"width_meters"`
	HeightMeters float64     `json:"height_meters"`
}

// RenderRecord is a stored render.
type RenderRecord struct {
	ID        string        `json:"id"`
	Summary   RenderSummary `json:"summary"`
	SVG       []byte        `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
}

// RenderRequest asks an asynchronous worker to fetch and render an area.
type RenderRequest struct {
	ID          string    `json:"id"`
	Box         Box       `json:"box"`
	Keys        []string  `json:"keys,omitempty"`
	Name        string    `json:"name,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// RenderCompleted is published once a requested render has been stored.
type RenderCompleted struct {
	RequestID string        `json:"request_id"`
	RenderID  string        `json:"render_id"`
	Summary   RenderSummary `json:"summary"`
	Error     string        `json:"error,omitempty"`
}
