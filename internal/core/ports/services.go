package ports

import (
	"context"
	"io"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// SourceDecoder turns a serialized extract into an attribute graph.
type SourceDecoder interface {
	Decode(r io.Reader, source string) (*domain.Graph, error)
}

// SourceFetcher retrieves an extract for a bounding box and returns the path
// it was written to. Implementations skip the download when the file exists.
type SourceFetcher interface {
	Fetch(ctx context.Context, box domain.Box, keys []string) (string, error)
}

// DocumentEncoder serializes a composed document.
type DocumentEncoder interface {
	Encode(doc *domain.Document) ([]byte, error)
}

// EventPublisher publishes render events to a message broker.
type EventPublisher interface {
	PublishRenderRequest(ctx context.Context, req *domain.RenderRequest) error
	PublishRenderCompleted(ctx context.Context, ev *domain.RenderCompleted) error
}

// EventSubscriber subscribes to render events from a message broker.
type EventSubscriber interface {
	SubscribeRenderRequests(ctx context.Context, handler func(ctx context.Context, req *domain.RenderRequest) error) error
	SubscribeRenderCompleted(ctx context.Context, handler func(ctx context.Context, ev *domain.RenderCompleted) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
