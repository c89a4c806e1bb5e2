package ports

import (
	"context"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// ZoneRepository persists the zone set between process runs.
// Order of the returned slice is registry insertion order.
type ZoneRepository interface {
	List(ctx context.Context) ([]domain.Zone, error)
	ReplaceAll(ctx context.Context, zones []domain.Zone) error
}
