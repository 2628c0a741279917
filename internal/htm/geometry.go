package htm

import (
	"github.com/emer/emergent/evec"
	"github.com/goki/mat32"
)

func gridPosition(index, width int) evec.Vec2i {
	return evec.Vec2i{X: index % width, Y: index / width}
}

func toVec2(p evec.Vec2i) mat32.Vec2 {
	return mat32.Vec2{X: float32(p.X), Y: float32(p.Y)}
}

// scaleToRegion maps an input-space grid position onto region coordinates,
// aligning the centres of both grids.
func scaleToRegion(p evec.Vec2i, inputW, inputH, regionW, regionH int) mat32.Vec2 {
	sx := float32(regionW) / float32(inputW)
	sy := float32(regionH) / float32(inputH)
	return mat32.Vec2{
		X: (float32(p.X)+0.5)*sx - 0.5,
		Y: (float32(p.Y)+0.5)*sy - 0.5,
	}
}

// withinRadius reports whether b lies inside a circle of radius r around a.
// Radii below 1 mean no restriction.
func withinRadius(a, b mat32.Vec2, r float64) bool {
	if r < 1 {
		return true
	}
	return float64(a.DistToSquared(b)) <= r*r
}

// neighborsWithinRadius returns the indices of every position inside the
// circle, center included.
func neighborsWithinRadius(positions []mat32.Vec2, center mat32.Vec2, r float64) []int {
	out := make([]int, 0, len(positions))
	for i, p := range positions {
		if withinRadius(center, p, r) {
			out = append(out, i)
		}
	}
	return out
}
