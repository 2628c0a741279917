package scape

import (
	"fmt"

	"htmsim/internal/scapeid"
)

// Options tune the built-in scapes. Zero values select defaults.
type Options struct {
	Seed       int64
	Density    float64
	Blocks     int
	Horizontal bool
}

const (
	defaultNoiseDensity = 0.1
	defaultBlocks       = 4
)

// Names lists the built-in scapes in canonical form.
func Names() []string {
	return []string{"alternating", "moving-bar", "noise", "sequence"}
}

// New builds a built-in scape by name. Aliases are resolved with
// scapeid.Normalize.
func New(name string, width, height int, opts Options) (Scape, error) {
	switch canonical := scapeid.Normalize(name); canonical {
	case "alternating":
		return NewAlternatingScape(width, height)
	case "moving-bar":
		return NewMovingBarScape(width, height, opts.Horizontal)
	case "noise":
		density := opts.Density
		if density == 0 {
			density = defaultNoiseDensity
		}
		return NewNoiseScape(width, height, density, opts.Seed)
	case "sequence":
		blocks := opts.Blocks
		if blocks == 0 {
			blocks = defaultBlocks
		}
		return NewBlockSequenceScape(width, height, blocks)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScape, name)
	}
}
