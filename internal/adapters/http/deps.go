package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/osm2svg/internal/adapters/postgres"
	"github.com/samirrijal/osm2svg/internal/adapters/valkey"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers. Only Renders is
// required; the rest switch features off when nil.
type Dependencies struct {
	Renders   *usecases.RenderService
	Areas     *usecases.AreaService
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
	RateLimit int // requests per minute per IP, 0 for the default
	Version   string
}
