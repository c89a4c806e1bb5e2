package domain

import (
	"slices"

	"github.com/google/uuid"
)

// MinZonePoints is the smallest number of points that makes a zone publishable.
const MinZonePoints = 3

// ZoneHandle identifies a zone for the lifetime of the registry. Handles are
// never reused, so a stale handle fails lookup instead of hitting another zone.
type ZoneHandle uuid.UUID

// NewZoneHandle returns a fresh random handle.
func NewZoneHandle() ZoneHandle { return ZoneHandle(uuid.New()) }

// ParseZoneHandle parses the canonical string form of a handle.
func ParseZoneHandle(s string) (ZoneHandle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ZoneHandle{}, err
	}
	return ZoneHandle(id), nil
}

func (h ZoneHandle) String() string { return uuid.UUID(h).String() }

// IsZero reports whether h is the zero handle.
func (h ZoneHandle) IsZero() bool { return h == ZoneHandle{} }

func (h ZoneHandle) MarshalText() ([]byte, error) { return uuid.UUID(h).MarshalText() }

func (h *ZoneHandle) UnmarshalText(b []byte) error { return (*uuid.UUID)(h).UnmarshalText(b) }

// Zone is a named no-go polygon in the visualization frame.
type Zone struct {
	Handle ZoneHandle `json:"handle"`
	Name   string     `json:"name"`
	Points []Vec3     `json:"points"`
	Active bool       `json:"active"`
}

// Valid reports whether the zone has enough points to form a polygon.
func (z Zone) Valid() bool { return len(z.Points) >= MinZonePoints }

// Publishable reports whether the zone should be broadcast.
func (z Zone) Publishable() bool { return z.Active && z.Valid() }

// Clone returns a deep copy of z.
func (z Zone) Clone() Zone {
	z.Points = slices.Clone(z.Points)
	return z
}
