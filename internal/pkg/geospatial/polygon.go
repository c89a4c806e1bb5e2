package geospatial

import (
	"math"

	"github.com/samirrijal/navfence/internal/core/domain"
)

// Zones lie on the visualization ground plane, so polygon math uses X and Z
// and ignores height.

// AreaXZ returns the unsigned shoelace area of the polygon projected onto the
// ground plane. Fewer than three points yields 0.
func AreaXZ(points []domain.Vec3) float64 {
	n := len(points)
	if n < domain.MinZonePoints {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a, b := points[i], points[(i+1)%n]
		sum += a.X*b.Z - b.X*a.Z
	}
	return math.Abs(sum) / 2
}

// ContainsXZ reports whether p lies inside the ground-plane polygon using the
// even-odd rule. Points exactly on an edge may fall either way.
func ContainsXZ(points []domain.Vec3, p domain.Vec3) bool {
	n := len(points)
	if n < domain.MinZonePoints {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := points[i], points[j]
		if (a.Z > p.Z) != (b.Z > p.Z) &&
			p.X < (b.X-a.X)*(p.Z-a.Z)/(b.Z-a.Z)+a.X {
			inside = !inside
		}
	}
	return inside
}
