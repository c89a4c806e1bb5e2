package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/navfence/internal/adapters/postgres"
	"github.com/samirrijal/navfence/internal/adapters/valkey"
	"github.com/samirrijal/navfence/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers. Everything except
// Zones may be nil.
type Dependencies struct {
	Zones     *usecases.ZoneService
	Publisher *usecases.BoundaryPublisher
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
