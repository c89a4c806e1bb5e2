package ports

import (
	"context"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// BoundarySink delivers boundary records to the external channel.
// Framing and encoding are the implementation's concern.
type BoundarySink interface {
	PublishBoundary(ctx context.Context, channel string, rec *domain.BoundaryRecord) error
}

// BoundaryObserver is told about every completed publish cycle, including
// cycles that emitted nothing. Implementations must not block.
type BoundaryObserver interface {
	ObserveBatch(ctx context.Context, batch *domain.BoundaryBatch)
}

// CacheService provides a simple key/value cache.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
