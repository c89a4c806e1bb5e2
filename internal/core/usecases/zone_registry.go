package usecases

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// ZoneRegistry is the authoritative, insertion-ordered store of geofence zones.
// It is safe for concurrent use: mutations take the write lock and reads work
// on a snapshot copied under the read lock.
type ZoneRegistry struct {
	mu    sync.RWMutex
	zones []domain.Zone
}

// NewZoneRegistry creates an empty registry.
func NewZoneRegistry() *ZoneRegistry {
	return &ZoneRegistry{}
}

// Add appends a new active zone and returns its handle. The point slice is
// copied. Add never fails: a zone with fewer than three points is stored but
// is not publishable until it grows. Callers outside the core go through
// ZoneService.Add, which rejects non-finite points first.
func (r *ZoneRegistry) Add(name string, points []domain.Vec3) domain.ZoneHandle {
	z := domain.Zone{
		Handle: domain.NewZoneHandle(),
		Name:   name,
		Points: slices.Clone(points),
		Active: true,
	}

	r.mu.Lock()
	r.zones = append(r.zones, z)
	r.mu.Unlock()

	return z.Handle
}

// Len returns the number of zones, valid or not.
func (r *ZoneRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.zones)
}

// RemoveAt deletes the zone at index, shifting later zones down by one.
func (r *ZoneRegistry) RemoveAt(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkIndex(index); err != nil {
		return err
	}
	r.zones = slices.Delete(r.zones, index, index+1)
	return nil
}

// ToggleAt flips the active flag of the zone at index.
func (r *ZoneRegistry) ToggleAt(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkIndex(index); err != nil {
		return err
	}
	r.zones[index].Active = !r.zones[index].Active
	return nil
}

// RenameAt replaces the display name of the zone at index.
func (r *ZoneRegistry) RenameAt(index int, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkIndex(index); err != nil {
		return err
	}
	r.zones[index].Name = name
	return nil
}

// SetPointsAt replaces the polygon of the zone at index with a copy of points.
func (r *ZoneRegistry) SetPointsAt(index int, points []domain.Vec3) error {
	if err := domain.CheckPoints(points); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkIndex(index); err != nil {
		return err
	}
	r.zones[index].Points = slices.Clone(points)
	return nil
}

// AppendPointAt adds one vertex to the end of the polygon at index.
func (r *ZoneRegistry) AppendPointAt(index int, p domain.Vec3) error {
	if !p.Finite() {
		return fmt.Errorf("point %+v: %w", p, domain.ErrInvalidPoint)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkIndex(index); err != nil {
		return err
	}
	r.zones[index].Points = append(r.zones[index].Points, p)
	return nil
}

// RemovePointAt deletes vertex pointIndex from the polygon at index.
func (r *ZoneRegistry) RemovePointAt(index, pointIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkIndex(index); err != nil {
		return err
	}
	pts := r.zones[index].Points
	if pointIndex < 0 || pointIndex >= len(pts) {
		return fmt.Errorf("point %d of zone %d (has %d): %w", pointIndex, index, len(pts), domain.ErrIndexOutOfRange)
	}
	r.zones[index].Points = slices.Delete(slices.Clone(pts), pointIndex, pointIndex+1)
	return nil
}

// At returns a copy of the zone at index.
func (r *ZoneRegistry) At(index int) (domain.Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkIndex(index); err != nil {
		return domain.Zone{}, err
	}
	return r.zones[index].Clone(), nil
}

// IndexOf returns the current position of the zone named by h.
func (r *ZoneRegistry) IndexOf(h domain.ZoneHandle) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(h)
}

// Get returns a copy of the zone named by h.
func (r *ZoneRegistry) Get(h domain.ZoneHandle) (domain.Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, err := r.indexOf(h)
	if err != nil {
		return domain.Zone{}, err
	}
	return r.zones[i].Clone(), nil
}

// Remove deletes the zone named by h.
func (r *ZoneRegistry) Remove(h domain.ZoneHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, err := r.indexOf(h)
	if err != nil {
		return err
	}
	r.zones = slices.Delete(r.zones, i, i+1)
	return nil
}

// Toggle flips the active flag of the zone named by h.
func (r *ZoneRegistry) Toggle(h domain.ZoneHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, err := r.indexOf(h)
	if err != nil {
		return err
	}
	r.zones[i].Active = !r.zones[i].Active
	return nil
}

// Rename replaces the display name of the zone named by h.
func (r *ZoneRegistry) Rename(h domain.ZoneHandle, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, err := r.indexOf(h)
	if err != nil {
		return err
	}
	r.zones[i].Name = name
	return nil
}

// SetPoints replaces the polygon of the zone named by h.
func (r *ZoneRegistry) SetPoints(h domain.ZoneHandle, points []domain.Vec3) error {
	if err := domain.CheckPoints(points); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i, err := r.indexOf(h)
	if err != nil {
		return err
	}
	r.zones[i].Points = slices.Clone(points)
	return nil
}

// Snapshot returns a deep copy of every zone in insertion order.
func (r *ZoneRegistry) Snapshot() []domain.Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Zone, len(r.zones))
	for i, z := range r.zones {
		out[i] = z.Clone()
	}
	return out
}

// Replace swaps the whole zone set, keeping the given order. Zones without a
// handle are assigned one.
func (r *ZoneRegistry) Replace(zones []domain.Zone) {
	next := make([]domain.Zone, len(zones))
	for i, z := range zones {
		next[i] = z.Clone()
		if next[i].Handle.IsZero() {
			next[i].Handle = domain.NewZoneHandle()
		}
	}

	r.mu.Lock()
	r.zones = next
	r.mu.Unlock()
}

// ListActiveValid returns the zones that are both active and valid, in
// insertion order. The filter is evaluated afresh each time the sequence is
// ranged over, against the registry state at that moment, so the same
// sequence value may be iterated repeatedly.
func (r *ZoneRegistry) ListActiveValid() iter.Seq[domain.Zone] {
	return func(yield func(domain.Zone) bool) {
		r.mu.RLock()
		snap := make([]domain.Zone, 0, len(r.zones))
		for _, z := range r.zones {
			if z.Publishable() {
				snap = append(snap, z.Clone())
			}
		}
		r.mu.RUnlock()

		for _, z := range snap {
			if !yield(z) {
				return
			}
		}
	}
}

// Counts returns the total number of zones and how many are publishable.
func (r *ZoneRegistry) Counts() (total, publishable int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, z := range r.zones {
		if z.Publishable() {
			publishable++
		}
	}
	return len(r.zones), publishable
}

func (r *ZoneRegistry) checkIndex(index int) error {
	if index < 0 || index >= len(r.zones) {
		return fmt.Errorf("index %d (have %d zones): %w", index, len(r.zones), domain.ErrIndexOutOfRange)
	}
	return nil
}

func (r *ZoneRegistry) indexOf(h domain.ZoneHandle) (int, error) {
	i := slices.IndexFunc(r.zones, func(z domain.Zone) bool { return z.Handle == h })
	if i < 0 {
		return -1, fmt.Errorf("handle %s: %w", h, domain.ErrZoneNotFound)
	}
	return i, nil
}
