package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samirrijal/navfence/internal/core/domain"
	"github.com/samirrijal/navfence/internal/core/ports"
	"github.com/samirrijal/navfence/internal/pkg/geospatial"
	"github.com/samirrijal/navfence/internal/pkg/metrics"
)

// Cache keys shared with the checkpoint worker.
const (
	ZoneSnapshotKey = "navfence:zones:snapshot"
	LatestBoundsKey = "navfence:bounds:latest"
)

const (
	snapshotTTLSeconds = 24 * 3600
	boundsTTLSeconds   = 60
)

// ZoneService is the mutation and query surface used by the HTTP API and the
// remote command subscriber. It records metrics, mirrors the zone set into
// the cache, and persists it through the repository on request.
type ZoneService struct {
	registry *ZoneRegistry
	repo     ports.ZoneRepository
	cache    ports.CacheService
	style    domain.ZoneStyle

	latest  atomic.Pointer[domain.BoundaryBatch]
	writing atomic.Bool // a latest-bounds cache write is in flight
}

// NewZoneService creates a new ZoneService. repo and cache may be nil.
func NewZoneService(registry *ZoneRegistry, repo ports.ZoneRepository, cache ports.CacheService, style domain.ZoneStyle) *ZoneService {
	s := &ZoneService{registry: registry, repo: repo, cache: cache, style: style}
	s.refreshGauges()
	return s
}

// Registry exposes the underlying registry for the publisher.
func (s *ZoneService) Registry() *ZoneRegistry { return s.registry }

// Style returns the presentation attributes for zone rendering.
func (s *ZoneService) Style() domain.ZoneStyle { return s.style }

// Load replaces the registry contents with the persisted zone set.
func (s *ZoneService) Load(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	zones, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("load zones: %w", err)
	}
	s.registry.Replace(zones)
	s.afterMutation(ctx, "load", nil)
	return len(zones), nil
}

// Save writes the current zone set to the repository.
func (s *ZoneService) Save(ctx context.Context) error {
	if s.repo == nil {
		return fmt.Errorf("save zones: no repository configured")
	}
	if err := s.repo.ReplaceAll(ctx, s.registry.Snapshot()); err != nil {
		return fmt.Errorf("save zones: %w", err)
	}
	return nil
}

// Replace swaps the whole zone set, e.g. from a seed file. The set is
// rejected as a whole if any zone has a non-finite point.
func (s *ZoneService) Replace(ctx context.Context, zones []domain.Zone) error {
	for _, z := range zones {
		if err := domain.CheckPoints(z.Points); err != nil {
			err = fmt.Errorf("zone %q: %w", z.Name, err)
			s.afterMutation(ctx, "replace", err)
			return err
		}
	}
	s.registry.Replace(zones)
	s.afterMutation(ctx, "replace", nil)
	return nil
}

// Add creates a new active zone. Non-finite points are rejected with
// domain.ErrInvalidPoint.
func (s *ZoneService) Add(ctx context.Context, name string, points []domain.Vec3) (domain.ZoneHandle, error) {
	if err := domain.CheckPoints(points); err != nil {
		s.afterMutation(ctx, "add", err)
		return domain.ZoneHandle{}, err
	}
	h := s.registry.Add(name, points)
	s.afterMutation(ctx, "add", nil)
	return h, nil
}

// RemoveAt deletes the zone at index.
func (s *ZoneService) RemoveAt(ctx context.Context, index int) error {
	err := s.registry.RemoveAt(index)
	s.afterMutation(ctx, "remove", err)
	return err
}

// ToggleAt flips the active flag of the zone at index.
func (s *ZoneService) ToggleAt(ctx context.Context, index int) error {
	err := s.registry.ToggleAt(index)
	s.afterMutation(ctx, "toggle", err)
	return err
}

// RenameAt renames the zone at index.
func (s *ZoneService) RenameAt(ctx context.Context, index int, name string) error {
	err := s.registry.RenameAt(index, name)
	s.afterMutation(ctx, "rename", err)
	return err
}

// SetPointsAt replaces the polygon of the zone at index.
func (s *ZoneService) SetPointsAt(ctx context.Context, index int, points []domain.Vec3) error {
	err := s.registry.SetPointsAt(index, points)
	s.afterMutation(ctx, "set_points", err)
	return err
}

// AppendPointAt adds one vertex to the zone at index.
func (s *ZoneService) AppendPointAt(ctx context.Context, index int, p domain.Vec3) error {
	err := s.registry.AppendPointAt(index, p)
	s.afterMutation(ctx, "append_point", err)
	return err
}

// RemovePointAt deletes one vertex of the zone at index.
func (s *ZoneService) RemovePointAt(ctx context.Context, index, pointIndex int) error {
	err := s.registry.RemovePointAt(index, pointIndex)
	s.afterMutation(ctx, "remove_point", err)
	return err
}

// Remove deletes the zone named by h.
func (s *ZoneService) Remove(ctx context.Context, h domain.ZoneHandle) error {
	err := s.registry.Remove(h)
	s.afterMutation(ctx, "remove", err)
	return err
}

// Toggle flips the active flag of the zone named by h.
func (s *ZoneService) Toggle(ctx context.Context, h domain.ZoneHandle) error {
	err := s.registry.Toggle(h)
	s.afterMutation(ctx, "toggle", err)
	return err
}

// Rename renames the zone named by h.
func (s *ZoneService) Rename(ctx context.Context, h domain.ZoneHandle, name string) error {
	err := s.registry.Rename(h, name)
	s.afterMutation(ctx, "rename", err)
	return err
}

// SetPoints replaces the polygon of the zone named by h.
func (s *ZoneService) SetPoints(ctx context.Context, h domain.ZoneHandle, points []domain.Vec3) error {
	err := s.registry.SetPoints(h, points)
	s.afterMutation(ctx, "set_points", err)
	return err
}

// List returns every zone in insertion order.
func (s *ZoneService) List() []domain.Zone {
	return s.registry.Snapshot()
}

// At returns the zone at index.
func (s *ZoneService) At(index int) (domain.Zone, error) {
	return s.registry.At(index)
}

// ActiveValid returns the zones the publisher would emit right now.
func (s *ZoneService) ActiveValid() []domain.Zone {
	var out []domain.Zone
	for z := range s.registry.ListActiveValid() {
		out = append(out, z)
	}
	return out
}

// Breaches returns the publishable zones whose ground-plane polygon contains p.
func (s *ZoneService) Breaches(p domain.Vec3) []domain.Zone {
	var out []domain.Zone
	for z := range s.registry.ListActiveValid() {
		if geospatial.ContainsXZ(z.Points, p) {
			out = append(out, z)
		}
	}
	return out
}

// ObserveBatch records the most recent publish cycle, empty or not, and
// mirrors it to the cache for other instances and dashboards. The cache write
// runs in the background so the tick loop never waits on valkey.
func (s *ZoneService) ObserveBatch(ctx context.Context, batch *domain.BoundaryBatch) {
	s.latest.Store(batch)
	if s.cache == nil {
		return
	}
	if !s.writing.CompareAndSwap(false, true) {
		return // the running writer picks up the newer batch
	}
	go s.writeLatest(context.WithoutCancel(ctx))
}

// writeLatest keeps writing until the cached batch is the newest one observed.
func (s *ZoneService) writeLatest(ctx context.Context) {
	for {
		batch := s.latest.Load()
		s.cacheLatest(ctx, batch)
		s.writing.Store(false)
		if s.latest.Load() == batch || !s.writing.CompareAndSwap(false, true) {
			return
		}
	}
}

func (s *ZoneService) cacheLatest(ctx context.Context, batch *domain.BoundaryBatch) {
	data, err := json.Marshal(batch)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	if err := s.cache.Set(ctx, LatestBoundsKey, data, boundsTTLSeconds); err != nil {
		slog.Debug("cache latest bounds failed", "error", err)
	}
}

// LatestBounds returns the last publish cycle, falling back to the cache when
// this process has not published yet. ok is false when neither has one. A
// cycle with no active valid zones yields a batch with no records.
func (s *ZoneService) LatestBounds(ctx context.Context) (batch *domain.BoundaryBatch, ok bool) {
	if b := s.latest.Load(); b != nil {
		metrics.CacheHits.WithLabelValues("bounds_latest").Inc()
		return b, true
	}
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, LatestBoundsKey)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("bounds_latest").Inc()
		return nil, false
	}
	var cached domain.BoundaryBatch
	if err := json.Unmarshal(data, &cached); err != nil {
		metrics.CacheMisses.WithLabelValues("bounds_latest").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("bounds_latest").Inc()
	return &cached, true
}

func (s *ZoneService) afterMutation(ctx context.Context, op string, err error) {
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrInvalidPoint):
		result = "invalid_argument"
	case err != nil:
		result = "failed_precondition"
	}
	metrics.ZoneMutations.WithLabelValues(op, result).Inc()
	if err != nil {
		return
	}
	s.refreshGauges()
	s.cacheSnapshot(ctx)
}

func (s *ZoneService) refreshGauges() {
	metrics.SetZoneCounts(s.registry.Counts())
}

func (s *ZoneService) cacheSnapshot(ctx context.Context) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(s.registry.Snapshot())
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, ZoneSnapshotKey, data, snapshotTTLSeconds); err != nil {
		slog.Warn("cache zone snapshot failed", "error", err)
	}
}
