package domain

import "errors"

var (
	// ErrIndexOutOfRange is returned by index-addressed operations when the
	// index is outside [0, count). Registry state is left unchanged.
	ErrIndexOutOfRange = errors.New("zone index out of range")

	// ErrZoneNotFound is returned when a handle does not name a live zone.
	ErrZoneNotFound = errors.New("zone not found")

	// ErrInvalidRate is returned for a non-positive or non-finite publish rate.
	ErrInvalidRate = errors.New("publish rate must be positive")

	// ErrInvalidPoint is returned for NaN or infinite coordinates.
	ErrInvalidPoint = errors.New("zone point coordinates must be finite")
)
