package usecases_test

import (
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
)

func TestResolveBounds_ExplicitBoxWins(t *testing.T) {
	box := domain.Box{LatMin: 43.2, LatMax: 43.3, LonMin: -3.0, LonMax: -2.9}
	g := &domain.Graph{
		Bounds: &box,
		Points: []domain.Point{{ID: 1, Lat: 10, Lon: 10}, {ID: 2, Lat: 11, Lon: 12}},
	}
	b, err := usecases.ResolveBounds(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Box() != box {
		t.Errorf("expected explicit box %+v, got %+v", box, b.Box())
	}
}

func TestResolveBounds_InferredFromPoints(t *testing.T) {
	g := &domain.Graph{
		Points: []domain.Point{
			{ID: 1, Lat: 43.26, Lon: -2.93},
			{ID: 2, Lat: 43.21, Lon: -2.99},
			{ID: 3, Lat: 43.30, Lon: -2.90},
			{ID: 4, Lat: 43.25, Lon: -2.95},
		},
	}
	b, err := usecases.ResolveBounds(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.Box{LatMin: 43.21, LatMax: 43.30, LonMin: -2.99, LonMax: -2.90}
	if b.Box() != want {
		t.Errorf("expected %+v, got %+v", want, b.Box())
	}
}

func TestResolveBounds_Errors(t *testing.T) {
	tests := []struct {
		name     string
		graph    *domain.Graph
		sentinel error
	}{
		{"no points no box", &domain.Graph{}, domain.ErrMalformedBounds},
		{"single point", &domain.Graph{Points: []domain.Point{{ID: 1, Lat: 5, Lon: 5}}}, domain.ErrDegenerateRange},
		{
			"horizontal extract",
			&domain.Graph{Points: []domain.Point{{ID: 1, Lat: 5, Lon: 5}, {ID: 2, Lat: 5, Lon: 6}}},
			domain.ErrDegenerateRange,
		},
		{
			"vertical extract",
			&domain.Graph{Points: []domain.Point{{ID: 1, Lat: 5, Lon: 5}, {ID: 2, Lat: 6, Lon: 5}}},
			domain.ErrDegenerateRange,
		},
		{
			"non-finite point",
			&domain.Graph{Points: []domain.Point{{ID: 1, Lat: 5, Lon: 5}, {ID: 2, Lat: math.NaN(), Lon: 6}}},
			domain.ErrMalformedBounds,
		},
		{
			"point at pole",
			&domain.Graph{Points: []domain.Point{{ID: 1, Lat: 5, Lon: 5}, {ID: 2, Lat: 90, Lon: 6}}},
			domain.ErrProjectionDomain,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := usecases.ResolveBounds(tt.graph)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}
