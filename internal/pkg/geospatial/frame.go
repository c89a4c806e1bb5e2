package geospatial

import "github.com/samirrijal/navfence/internal/core/domain"

// ToConsumerFrame maps a visualization-frame point (Y up, left-handed) to the
// navigation consumer's frame (Z up, right-handed).
func ToConsumerFrame(p domain.Vec3) domain.Vec3 {
	return domain.Vec3{X: p.X, Y: -p.Z, Z: p.Y}
}

// ToVisualizationFrame is the inverse of ToConsumerFrame.
func ToVisualizationFrame(p domain.Vec3) domain.Vec3 {
	return domain.Vec3{X: p.X, Y: p.Z, Z: -p.Y}
}

// ConvertPoints applies ToConsumerFrame to every point, preserving order.
func ConvertPoints(points []domain.Vec3) []domain.Vec3 {
	out := make([]domain.Vec3, len(points))
	for i, p := range points {
		out[i] = ToConsumerFrame(p)
	}
	return out
}
