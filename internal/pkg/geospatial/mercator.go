package geospatial

import (
	"errors"
	"fmt"
	"math"
)

// ErrLatitudeOutOfRange is returned for latitudes the Mercator transform cannot map.
var ErrLatitudeOutOfRange = errors.New("latitude outside (-90, 90)")

// ProjectLatitude applies the Mercator transform y = ln(tan(π/4 + φ/2)) to a
// latitude in degrees and returns y expressed in degrees again, so projected
// latitude and raw longitude share one angular scale.
//
// The logarithm diverges at the poles: inputs at or beyond ±90°, NaN and
// infinities are rejected instead of producing a non-finite result.
func ProjectLatitude(lat float64) (float64, error) {
	if math.IsNaN(lat) || lat <= -90 || lat >= 90 {
		return 0, fmt.Errorf("project %v: %w", lat, ErrLatitudeOutOfRange)
	}
	y := ToDeg(math.Log(math.Tan(math.Pi/4 + ToRad(lat)/2)))
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, fmt.Errorf("project %v: %w", lat, ErrLatitudeOutOfRange)
	}
	return y, nil
}
