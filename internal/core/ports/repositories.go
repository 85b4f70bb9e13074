package ports

import (
	"context"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// RenderRepository persists finished renders.
type RenderRepository interface {
	Save(ctx context.Context, rec *domain.RenderRecord) error
	GetByID(ctx context.Context, id string) (*domain.RenderRecord, error)
	// List returns renders newest first, without their SVG payload.
	List(ctx context.Context, limit, offset int) ([]domain.RenderRecord, error)
	Count(ctx context.Context) (int, error)
}
