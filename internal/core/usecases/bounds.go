package usecases

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// ResolveBounds returns the bounds of g. An explicit box on the graph wins;
// otherwise the extent is inferred from its points.
func ResolveBounds(g *domain.Graph) (domain.GeoBounds, error) {
	if g.Bounds != nil {
		return domain.NewGeoBounds(*g.Bounds)
	}
	box, err := InferBox(g.Points)
	if err != nil {
		return domain.GeoBounds{}, err
	}
	return domain.NewGeoBounds(box)
}

// InferBox computes the min/max extent of points in a single scan.
func InferBox(points []domain.Point) (domain.Box, error) {
	if len(points) == 0 {
		return domain.Box{}, &domain.MalformedBoundsError{Field: "bounds", Reason: "no bounds given and no points to infer them from"}
	}

	var bound orb.Bound
	for i, p := range points {
		if !finite(p.Lat) || !finite(p.Lon) {
			return domain.Box{}, &domain.MalformedBoundsError{
				Field:  "bounds",
				Reason: fmt.Sprintf("point %d has a non-finite coordinate", p.ID),
			}
		}
		pt := orb.Point{p.Lon, p.Lat}
		if i == 0 {
			bound = orb.Bound{Min: pt, Max: pt}
			continue
		}
		bound = bound.Extend(pt)
	}
	return domain.BoxFromBound(bound), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
