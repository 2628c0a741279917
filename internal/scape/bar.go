package scape

import "fmt"

// MovingBarScape sweeps a one bit wide vertical bar from left to right, or a
// horizontal bar from top to bottom.
type MovingBarScape struct {
	width      int
	height     int
	horizontal bool
}

func NewMovingBarScape(width, height int, horizontal bool) (*MovingBarScape, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("moving bar: dimensions must be > 0, got %dx%d", width, height)
	}
	return &MovingBarScape{width: width, height: height, horizontal: horizontal}, nil
}

func (s *MovingBarScape) Name() string {
	return "moving-bar"
}

func (s *MovingBarScape) Width() int {
	return s.width
}

func (s *MovingBarScape) Height() int {
	return s.height
}

func (s *MovingBarScape) Period() int {
	if s.horizontal {
		return s.height
	}
	return s.width
}

func (s *MovingBarScape) Pattern(tick int) []bool {
	pos := tick % s.Period()
	if pos < 0 {
		pos += s.Period()
	}
	bits := make([]bool, s.width*s.height)
	if s.horizontal {
		for x := 0; x < s.width; x++ {
			bits[pos*s.width+x] = true
		}
		return bits
	}
	for y := 0; y < s.height; y++ {
		bits[y*s.width+pos] = true
	}
	return bits
}
