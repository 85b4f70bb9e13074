package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/samirrijal/osm2svg/internal/pkg/geospatial"
)

// MaxCanvasDimension is the size, in canvas units, of the longer output axis.
const MaxCanvasDimension = 1200.0

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceTo returns the great-circle distance to q in meters.
func (p GeoPoint) DistanceTo(q GeoPoint) float64 {
	return geospatial.Distance(p.Lat, p.Lon, q.Lat, q.Lon)
}

// Box is a raw geographic extent in degrees, either supplied by a caller,
// read from a source file or inferred from its points.
type Box struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// Bound converts the box to an orb.Bound (x = lon, y = lat).
func (b Box) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.LonMin, b.LatMin},
		Max: orb.Point{b.LonMax, b.LatMax},
	}
}

// BoxFromBound converts an orb.Bound (x = lon, y = lat) back into a Box.
func BoxFromBound(bd orb.Bound) Box {
	return Box{
		LatMin: bd.Min.Lat(),
		LatMax: bd.Max.Lat(),
		LonMin: bd.Min.Lon(),
		LonMax: bd.Max.Lon(),
	}
}

// String renders the box in the "lat_min,lat_max,lon_min,lon_max" form
// accepted by ParseBox.
func (b Box) String() string {
	return fmt.Sprintf("%s,%s,%s,%s",
		strconv.FormatFloat(b.LatMin, 'f', -1, 64),
		strconv.FormatFloat(b.LatMax, 'f', -1, 64),
		strconv.FormatFloat(b.LonMin, 'f', -1, 64),
		strconv.FormatFloat(b.LonMax, 'f', -1, 64),
	)
}

// ParseBox parses "lat_min,lat_max,lon_min,lon_max".
// Only the syntax is checked here; NewGeoBounds enforces the invariants.
func ParseBox(s string) (Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Box{}, &MalformedBoundsError{Field: "bounds", Reason: "expected lat_min,lat_max,lon_min,lon_max"}
	}
	fields := []string{"lat_min", "lat_max", "lon_min", "lon_max"}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Box{}, &MalformedBoundsError{Field: fields[i], Reason: "not a number", Err: err}
		}
		vals[i] = v
	}
	return Box{LatMin: vals[0], LatMax: vals[1], LonMin: vals[2], LonMax: vals[3]}, nil
}

// Canvas is the size of the output drawing.
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GeoBounds is a validated extent together with its projected extent and the
// canvas it maps onto. Build it with NewGeoBounds; it is never modified after
// construction and is passed explicitly to every resolver.
type GeoBounds struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`

	LatRange float64 `json:"lat_range"`
	LonRange float64 `json:"lon_range"`

	MerMin   float64 `json:"mer_min"`
	MerMax   float64 `json:"mer_max"`
	MerRange float64 `json:"mer_range"`

	Canvas Canvas `json:"canvas"`
}

// NewGeoBounds validates box and derives the projected extent and canvas size.
//
// A LatMax below LatMin is treated as a wraparound artifact and shifted by
// 360 degrees before any other check. Equal minimum and maximum on either
// axis, or a zero projected range, yield a DegenerateRangeError.
func NewGeoBounds(box Box) (GeoBounds, error) {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"lat_min", box.LatMin},
		{"lat_max", box.LatMax},
		{"lon_min", box.LonMin},
		{"lon_max", box.LonMax},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return GeoBounds{}, &MalformedBoundsError{Field: f.name, Reason: "not finite"}
		}
	}

	if box.LatMax < box.LatMin {
		box.LatMax += 360.0
	}
	if box.LonMax < box.LonMin {
		return GeoBounds{}, &MalformedBoundsError{Field: "lon_max", Reason: "lon_max is below lon_min"}
	}
	if box.LatMax == box.LatMin {
		return GeoBounds{}, &DegenerateRangeError{Axis: "lat", Min: box.LatMin, Max: box.LatMax}
	}
	if box.LonMax == box.LonMin {
		return GeoBounds{}, &DegenerateRangeError{Axis: "lon", Min: box.LonMin, Max: box.LonMax}
	}

	merMin, err := geospatial.ProjectLatitude(box.LatMin)
	if err != nil {
		return GeoBounds{}, &ProjectionDomainError{Lat: box.LatMin, Field: "lat_min", Err: err}
	}
	merMax, err := geospatial.ProjectLatitude(box.LatMax)
	if err != nil {
		return GeoBounds{}, &ProjectionDomainError{Lat: box.LatMax, Field: "lat_max", Err: err}
	}

	b := GeoBounds{
		LatMin:   box.LatMin,
		LatMax:   box.LatMax,
		LonMin:   box.LonMin,
		LonMax:   box.LonMax,
		LatRange: box.LatMax - box.LatMin,
		LonRange: box.LonMax - box.LonMin,
		MerMin:   merMin,
		MerMax:   merMax,
		MerRange: merMax - merMin,
	}
	if b.MerRange <= 0 {
		return GeoBounds{}, &DegenerateRangeError{Axis: "mer", Min: merMin, Max: merMax}
	}

	if b.MerRange > b.LonRange {
		b.Canvas = Canvas{
			Width:  MaxCanvasDimension * b.LonRange / b.MerRange,
			Height: MaxCanvasDimension,
		}
	} else {
		b.Canvas = Canvas{
			Width:  MaxCanvasDimension,
			Height: MaxCanvasDimension * b.MerRange / b.LonRange,
		}
	}
	return b, nil
}

// Box returns the geographic part of the bounds.
func (b GeoBounds) Box() Box {
	return Box{LatMin: b.LatMin, LatMax: b.LatMax, LonMin: b.LonMin, LonMax: b.LonMax}
}

// Corners returns the south-west and north-east corners of the bounds.
func (b GeoBounds) Corners() (sw, ne GeoPoint) {
	return GeoPoint{Lat: b.LatMin, Lon: b.LonMin}, GeoPoint{Lat: b.LatMax, Lon: b.LonMax}
}

// Extent returns the width and height of the bounds in meters, measured
// along the southern and western edges.
func (b GeoBounds) Extent() (widthMeters, heightMeters float64) {
	sw, ne := b.Corners()
	widthMeters = sw.DistanceTo(GeoPoint{Lat: sw.Lat, Lon: ne.Lon})
	heightMeters = sw.DistanceTo(GeoPoint{Lat: ne.Lat, Lon: sw.Lon})
	return widthMeters, heightMeters
}
