package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/navfence/internal/core/domain"
	"github.com/samirrijal/navfence/internal/core/ports"
	"github.com/samirrijal/navfence/internal/core/usecases"
)

// CheckpointKey records when the zone set was last written to the store.
const CheckpointKey = "navfence:zones:checkpoint"

// CheckpointActivities holds the activity implementations for the checkpoint
// workflow.
type CheckpointActivities struct {
	Cache ports.CacheService
	Zones ports.ZoneRepository
}

// LoadSnapshot reads the zone set mirrored into the cache by the service.
// A missing snapshot is not an error: ok is false and the run is skipped.
func (a *CheckpointActivities) LoadSnapshot(ctx context.Context) (SnapshotResult, error) {
	data, err := a.Cache.Get(ctx, usecases.ZoneSnapshotKey)
	if err != nil {
		slog.InfoContext(ctx, "no zone snapshot cached", "error", err)
		return SnapshotResult{}, nil
	}
	var zones []domain.Zone
	if err := json.Unmarshal(data, &zones); err != nil {
		return SnapshotResult{}, fmt.Errorf("decode zone snapshot: %w", err)
	}
	return SnapshotResult{Zones: zones, Found: true}, nil
}

// LoadStored returns the zone set currently in the store.
func (a *CheckpointActivities) LoadStored(ctx context.Context) ([]domain.Zone, error) {
	zones, err := a.Zones.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored zones: %w", err)
	}
	return zones, nil
}

// SaveZones replaces the stored zone set.
func (a *CheckpointActivities) SaveZones(ctx context.Context, zones []domain.Zone) error {
	if err := a.Zones.ReplaceAll(ctx, zones); err != nil {
		return fmt.Errorf("replace stored zones: %w", err)
	}
	return nil
}

// MarkCheckpoint records the checkpoint time in the cache.
func (a *CheckpointActivities) MarkCheckpoint(ctx context.Context, at time.Time, count int) error {
	data, err := json.Marshal(map[string]interface{}{"at": at, "zones": count})
	if err != nil {
		return err
	}
	return a.Cache.Set(ctx, CheckpointKey, data, 0)
}
