package scape

import (
	"fmt"
	"math/rand"
)

// NoiseScape draws every bit independently with probability Density. The
// pattern for a tick depends only on the seed and the tick.
type NoiseScape struct {
	width   int
	height  int
	density float64
	seed    int64
}

func NewNoiseScape(width, height int, density float64, seed int64) (*NoiseScape, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("noise: dimensions must be > 0, got %dx%d", width, height)
	}
	if density < 0 || density > 1 {
		return nil, fmt.Errorf("noise: density must be within [0,1], got %f", density)
	}
	return &NoiseScape{width: width, height: height, density: density, seed: seed}, nil
}

func (s *NoiseScape) Name() string {
	return "noise"
}

func (s *NoiseScape) Width() int {
	return s.width
}

func (s *NoiseScape) Height() int {
	return s.height
}

func (s *NoiseScape) Density() float64 {
	return s.density
}

func (s *NoiseScape) Pattern(tick int) []bool {
	rng := rand.New(rand.NewSource(s.seed*1_000_003 + int64(tick)))
	bits := make([]bool, s.width*s.height)
	for i := range bits {
		bits[i] = rng.Float64() < s.density
	}
	return bits
}
