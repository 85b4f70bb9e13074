package usecases_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// --- Mock SourceDecoder ---

type mockDecoder struct {
	decodeFn func(r io.Reader, source string) (*domain.Graph, error)
	calls    int
}

func (m *mockDecoder) Decode(r io.Reader, source string) (*domain.Graph, error) {
	m.calls++
	if m.decodeFn != nil {
		return m.decodeFn(r, source)
	}
	g := moscowGraph()
	g.Source = source
	return g, nil
}

// --- Mock DocumentEncoder ---

type mockEncoder struct {
	encodeFn func(doc *domain.Document) ([]byte, error)
}

func (m *mockEncoder) Encode(doc *domain.Document) ([]byte, error) {
	if m.encodeFn != nil {
		return m.encodeFn(doc)
	}
	return []byte("<svg/>"), nil
}

// --- Mock RenderRepository ---

type mockRenderRepo struct {
	mu      sync.Mutex
	saved   []domain.RenderRecord
	saveErr error
	listFn  func(ctx context.Context, limit, offset int) ([]domain.RenderRecord, error)
	getFn   func(ctx context.Context, id string) (*domain.RenderRecord, error)
}

func (m *mockRenderRepo) Save(ctx context.Context, rec *domain.RenderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, *rec)
	return nil
}

func (m *mockRenderRepo) GetByID(ctx context.Context, id string) (*domain.RenderRecord, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrRenderNotFound
}

func (m *mockRenderRepo) List(ctx context.Context, limit, offset int) ([]domain.RenderRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return m.saved, nil
}

func (m *mockRenderRepo) Count(ctx context.Context) (int, error) {
	return len(m.saved), nil
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttlSeconds
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	requests  []*domain.RenderRequest
	completed []*domain.RenderCompleted
}

func (m *mockPublisher) PublishRenderRequest(ctx context.Context, req *domain.RenderRequest) error {
	m.requests = append(m.requests, req)
	return nil
}

func (m *mockPublisher) PublishRenderCompleted(ctx context.Context, ev *domain.RenderCompleted) error {
	m.completed = append(m.completed, ev)
	return nil
}

// --- Mock SourceFetcher ---

type mockFetcher struct {
	fetchFn func(ctx context.Context, box domain.Box, keys []string) (string, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, box domain.Box, keys []string) (string, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, box, keys)
	}
	return "", errors.New("not implemented")
}
