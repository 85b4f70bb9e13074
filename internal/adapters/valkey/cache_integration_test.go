//go:build integration
// +build integration

package valkey_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/samirrijal/osm2svg/internal/adapters/valkey"
	"github.com/samirrijal/osm2svg/internal/pkg/config"
)

func TestCache_RoundTrip(t *testing.T) {
	cfg, err := config.Load("osm2svg-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	c, err := valkey.New(cfg.Valkey.Addr, "osm2svg-test:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	key := "render:" + uuid.NewString()
	if _, err := c.Get(ctx, key); !errors.Is(err, valkey.ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	payload := []byte{0x00, 0xff, '<', 's', 'v', 'g', '>'}
	if err := c.Set(ctx, key, payload, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("expected %q, got %q", payload, got)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, key); !errors.Is(err, valkey.ErrMiss) {
		t.Errorf("expected miss after delete, got %v", err)
	}
}
