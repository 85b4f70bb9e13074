package usecases

import (
	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/pkg/geospatial"
)

// ResolvePoint places p on the canvas described by b. Longitude maps
// linearly; latitude is projected and flipped so north is up.
func ResolvePoint(p domain.Point, b domain.GeoBounds) (domain.CanvasXY, error) {
	mer, err := geospatial.ProjectLatitude(p.Lat)
	if err != nil {
		return domain.CanvasXY{}, &domain.ProjectionDomainError{Lat: p.Lat, PointID: p.ID, Err: err}
	}
	return domain.CanvasXY{
		X: (p.Lon - b.LonMin) / b.LonRange * b.Canvas.Width,
		Y: b.Canvas.Height - (mer-b.MerMin)/b.MerRange*b.Canvas.Height,
	}, nil
}

// ResolvePoints resolves every point once and indexes the result by id.
// When ids repeat, the last point wins.
func ResolvePoints(points []domain.Point, b domain.GeoBounds) (domain.PointIndex, error) {
	idx := make(domain.PointIndex, len(points))
	for _, p := range points {
		xy, err := ResolvePoint(p, b)
		if err != nil {
			return nil, err
		}
		idx[p.ID] = xy
	}
	return idx, nil
}
