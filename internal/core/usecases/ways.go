package usecases

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// classifyingKeys are the tag keys that give a way its feature type.
var classifyingKeys = map[string]struct{}{
	"highway":          {},
	"railway":          {},
	"waterway":         {},
	"aeroway":          {},
	"aerialway":        {},
	"admin_level":      {},
	"boundary":         {},
	"route":            {},
	"power":            {},
	"barrier":          {},
	"natural":          {},
	"landuse":          {},
	"leisure":          {},
	"amenity":          {},
	"building":         {},
	"man_made":         {},
	"place":            {},
	"public_transport": {},
}

// IsClassifyingKey reports whether key can determine a feature type.
func IsClassifyingKey(key string) bool {
	_, ok := classifyingKeys[key]
	return ok
}

// ClassifyingKeys returns the classifying keys in sorted order.
func ClassifyingKeys() []string {
	keys := make([]string, 0, len(classifyingKeys))
	for k := range classifyingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Classify returns "key=value" for the first tag, in source order, whose key
// is a classifying key. Without one it returns domain.UnclassifiedType and
// false.
func Classify(tags []domain.Tag) (string, bool) {
	for _, t := range tags {
		if IsClassifyingKey(t.Key) {
			return t.Key + "=" + t.Value, true
		}
	}
	return domain.UnclassifiedType, false
}

// BuildPath renders coords as an SVG path: a move to the first coordinate
// and a line to each following one. No coordinates give an empty path.
func BuildPath(coords []domain.CanvasXY) string {
	if len(coords) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(coords) * 20)
	for i, c := range coords {
		if i == 0 {
			sb.WriteString("M ")
		} else {
			sb.WriteString(" L ")
		}
		sb.WriteString(FormatCoord(c.X))
		sb.WriteByte(',')
		sb.WriteString(FormatCoord(c.Y))
	}
	return sb.String()
}

// FormatCoord rounds v to 3 decimals and drops trailing zeros.
func FormatCoord(v float64) string {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		r = 0 // -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// ResolveWay looks up every reference of w in idx and builds its feature.
func ResolveWay(w domain.Way, idx domain.PointIndex) (domain.Feature, error) {
	coords := make([]domain.CanvasXY, 0, len(w.Refs))
	for _, ref := range w.Refs {
		xy, ok := idx[ref]
		if !ok {
			return domain.Feature{}, &domain.UnresolvedReferenceError{WayID: w.ID, PointID: ref}
		}
		coords = append(coords, xy)
	}
	typ, _ := Classify(w.Tags)
	return domain.Feature{
		WayID:  w.ID,
		Coords: coords,
		Path:   BuildPath(coords),
		Type:   typ,
	}, nil
}

// ResolveWays resolves ways in order, stopping at the first failure.
func ResolveWays(ways []domain.Way, idx domain.PointIndex) ([]domain.Feature, error) {
	features := make([]domain.Feature, 0, len(ways))
	for _, w := range ways {
		f, err := ResolveWay(w, idx)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}
