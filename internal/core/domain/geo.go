package domain

import (
	"fmt"
	"math"
)

// Vec3 is a point in 3D space. Which convention the axes follow depends on
// where the value came from: zones store visualization-frame points (Y up),
// boundary records carry consumer-frame points (Z up).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite reports whether every coordinate is a finite number.
func (v Vec3) Finite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// CheckPoints returns ErrInvalidPoint naming the first non-finite vertex.
func CheckPoints(points []Vec3) error {
	for i, p := range points {
		if !p.Finite() {
			return fmt.Errorf("point %d %+v: %w", i, p, ErrInvalidPoint)
		}
	}
	return nil
}

// ZoneStyle holds presentation-only attributes for zone rendering.
// Nothing in the registry or publisher reads it.
type ZoneStyle struct {
	Height float64 `json:"height"`
	Color  string  `json:"color"`
}
