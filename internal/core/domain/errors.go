package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conversion pipeline. The typed errors below unwrap
// to one of these so callers can use errors.Is.
var (
	ErrMalformedBounds     = errors.New("malformed bounds")
	ErrDegenerateRange     = errors.New("degenerate range")
	ErrProjectionDomain    = errors.New("latitude outside projection domain")
	ErrUnresolvedReference = errors.New("unresolved point reference")
	ErrUnsupportedSource   = errors.New("unsupported source")
	ErrRenderNotFound      = errors.New("render not found")
)

// MalformedBoundsError reports a missing, non-finite or inverted bounds field.
type MalformedBoundsError struct {
	Field  string // lat_min, lat_max, lon_min, lon_max or bounds
	Reason string
	Err    error
}

func (e *MalformedBoundsError) Error() string {
	return fmt.Sprintf("malformed bounds: %s: %s", e.Field, e.Reason)
}

func (e *MalformedBoundsError) Unwrap() error {
	if e.Err != nil {
		return errors.Join(ErrMalformedBounds, e.Err)
	}
	return ErrMalformedBounds
}

// DegenerateRangeError reports a zero-width geographic or projected range.
type DegenerateRangeError struct {
	Axis     string // lat, lon or mer
	Min, Max float64
}

func (e *DegenerateRangeError) Error() string {
	return fmt.Sprintf("degenerate %s range: min %v, max %v", e.Axis, e.Min, e.Max)
}

func (e *DegenerateRangeError) Unwrap() error {
	return ErrDegenerateRange
}

// ProjectionDomainError reports a latitude at or beyond ±90°. Exactly one of
// Field (a bounds field) or PointID identifies the offending record.
type ProjectionDomainError struct {
	Lat     float64
	Field   string
	PointID int64
	Err     error
}

func (e *ProjectionDomainError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("cannot project %s=%v: latitude must be inside (-90, 90)", e.Field, e.Lat)
	}
	return fmt.Sprintf("cannot project point %d (lat %v): latitude must be inside (-90, 90)", e.PointID, e.Lat)
}

func (e *ProjectionDomainError) Unwrap() error {
	if e.Err != nil {
		return errors.Join(ErrProjectionDomain, e.Err)
	}
	return ErrProjectionDomain
}

// UnresolvedReferenceError reports a way referencing a point id absent from
// the point index.
type UnresolvedReferenceError struct {
	WayID   int64
	PointID int64
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("way %d references unknown point %d", e.WayID, e.PointID)
}

func (e *UnresolvedReferenceError) Unwrap() error {
	return ErrUnresolvedReference
}

// Pipeline stages, as reported by StageError.
const (
	StageDecode    = "decode"
	StageMerge     = "merge"
	StageBounds    = "bounds"
	StagePoints    = "points"
	StageWays      = "ways"
	StageCompose   = "compose"
	StageSerialize = "serialize"
)

// StageError tags a conversion failure with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded in err, or "" if err carries none.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// IsInputError reports whether err was caused by bad input data rather than
// an infrastructure failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMalformedBounds) ||
		errors.Is(err, ErrDegenerateRange) ||
		errors.Is(err, ErrProjectionDomain) ||
		errors.Is(err, ErrUnresolvedReference) ||
		errors.Is(err, ErrUnsupportedSource)
}
