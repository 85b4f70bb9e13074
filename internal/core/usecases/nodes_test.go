package usecases_test

import (
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
)

func mustBounds(t *testing.T, box domain.Box) domain.GeoBounds {
	t.Helper()
	b, err := domain.NewGeoBounds(box)
	if err != nil {
		t.Fatalf("bounds %v: %v", box, err)
	}
	return b
}

var moscow = domain.Box{LatMin: 54.2557, LatMax: 56.9611, LonMin: 35.1435, LonMax: 40.2035}

func TestResolvePoint_Corners(t *testing.T) {
	b := mustBounds(t, moscow)

	sw, err := usecases.ResolvePoint(domain.Point{ID: 1, Lat: moscow.LatMin, Lon: moscow.LonMin}, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sw.X != 0 || sw.Y != b.Canvas.Height {
		t.Errorf("south-west corner: expected (0, %v), got (%v, %v)", b.Canvas.Height, sw.X, sw.Y)
	}

	ne, err := usecases.ResolvePoint(domain.Point{ID: 2, Lat: moscow.LatMax, Lon: moscow.LonMax}, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ne.X != b.Canvas.Width || ne.Y != 0 {
		t.Errorf("north-east corner: expected (%v, 0), got (%v, %v)", b.Canvas.Width, ne.X, ne.Y)
	}
}

func TestResolvePoint_Moscow(t *testing.T) {
	b := mustBounds(t, moscow)
	xy, err := usecases.ResolvePoint(domain.Point{ID: 3, Lat: 55.6089, Lon: 37.6716}, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, h := b.Canvas.Width, b.Canvas.Height
	if xy.X <= 0 || xy.X >= w || xy.Y <= 0 || xy.Y >= h {
		t.Fatalf("expected point strictly inside canvas, got (%v, %v)", xy.X, xy.Y)
	}
	if math.Abs(xy.X-w/2) >= math.Min(xy.X, w-xy.X) {
		t.Errorf("x=%v is not closer to the centre than to an edge (width %v)", xy.X, w)
	}
	if math.Abs(xy.Y-h/2) >= math.Min(xy.Y, h-xy.Y) {
		t.Errorf("y=%v is not closer to the centre than to an edge (height %v)", xy.Y, h)
	}
	if math.Abs(xy.X-599.549) > 1e-2 || math.Abs(xy.Y-577.810) > 1e-2 {
		t.Errorf("expected ≈(599.549, 577.810), got (%v, %v)", xy.X, xy.Y)
	}
}

func TestResolvePoint_InsideBoundsStaysOnCanvas(t *testing.T) {
	boxes := []domain.Box{
		moscow,
		{LatMin: -60, LatMax: 70, LonMin: -170, LonMax: 170},
		{LatMin: 43.2, LatMax: 43.3, LonMin: -3.0, LonMax: -2.9},
	}
	for _, box := range boxes {
		t.Run(box.String(), func(t *testing.T) {
			b := mustBounds(t, box)
			const steps = 25
			for i := 1; i < steps; i++ {
				for j := 1; j < steps; j++ {
					p := domain.Point{
						ID:  int64(i*steps + j),
						Lat: box.LatMin + (box.LatMax-box.LatMin)*float64(i)/steps,
						Lon: box.LonMin + (box.LonMax-box.LonMin)*float64(j)/steps,
					}
					xy, err := usecases.ResolvePoint(p, b)
					if err != nil {
						t.Fatalf("point %d: %v", p.ID, err)
					}
					if xy.X < 0 || xy.X > b.Canvas.Width || xy.Y < 0 || xy.Y > b.Canvas.Height {
						t.Fatalf("point %d (%v, %v) resolved off canvas to (%v, %v)", p.ID, p.Lat, p.Lon, xy.X, xy.Y)
					}
				}
			}
		})
	}
}

func TestResolvePoint_NorthIsUp(t *testing.T) {
	b := mustBounds(t, moscow)
	south, _ := usecases.ResolvePoint(domain.Point{Lat: 55, Lon: 37}, b)
	north, _ := usecases.ResolvePoint(domain.Point{Lat: 56, Lon: 37}, b)
	if north.Y >= south.Y {
		t.Errorf("expected northern point above southern one, got y %v >= %v", north.Y, south.Y)
	}
}

func TestResolvePoint_ProjectionDomain(t *testing.T) {
	b := mustBounds(t, moscow)
	_, err := usecases.ResolvePoint(domain.Point{ID: 77, Lat: 90, Lon: 37}, b)
	var pe *domain.ProjectionDomainError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProjectionDomainError, got %v", err)
	}
	if pe.PointID != 77 {
		t.Errorf("expected point id 77, got %d", pe.PointID)
	}
}

func TestResolvePoints_LastWriteWins(t *testing.T) {
	b := mustBounds(t, moscow)
	idx, err := usecases.ResolvePoints([]domain.Point{
		{ID: 1, Lat: moscow.LatMin, Lon: moscow.LonMin},
		{ID: 2, Lat: 55.5, Lon: 37.5},
		{ID: 1, Lat: moscow.LatMax, Lon: moscow.LonMax},
	}, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(idx))
	}
	if idx[1].X != b.Canvas.Width || idx[1].Y != 0 {
		t.Errorf("expected later point 1 to win, got %+v", idx[1])
	}
}
