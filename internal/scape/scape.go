package scape

import "errors"

var (
	ErrUnknownScape = errors.New("unknown scape")
	ErrEmptyScape   = errors.New("scape has no patterns")
)

// Scape is a sensory environment: a deterministic stream of bit patterns
// sized for one input space.
type Scape interface {
	Name() string
	Width() int
	Height() int
	// Pattern returns a fresh row-major pattern for tick, counted from 0.
	Pattern(tick int) []bool
}

// PeriodicScape is implemented by scapes that repeat. Period is the number
// of distinct ticks before the stream starts over.
type PeriodicScape interface {
	Scape
	Period() int
}
