package htm

import (
	"fmt"
	"strings"

	"github.com/emer/emergent/evec"
)

// InputSpace is the sensory bit grid a region reads from.
type InputSpace struct {
	width  int
	height int
	bits   []bool
}

func NewInputSpace(width, height int) *InputSpace {
	return &InputSpace{
		width:  width,
		height: height,
		bits:   make([]bool, width*height),
	}
}

func (s *InputSpace) Width() int {
	return s.width
}

func (s *InputSpace) Height() int {
	return s.height
}

func (s *InputSpace) Len() int {
	return len(s.bits)
}

func (s *InputSpace) Position(i int) evec.Vec2i {
	return gridPosition(i, s.width)
}

func (s *InputSpace) Bit(i int) bool {
	return s.bits[i]
}

func (s *InputSpace) At(x, y int) bool {
	return s.bits[y*s.width+x]
}

func (s *InputSpace) Set(x, y int, v bool) {
	s.bits[y*s.width+x] = v
}

func (s *InputSpace) SetIndex(i int, v bool) {
	s.bits[i] = v
}

func (s *InputSpace) Clear() {
	for i := range s.bits {
		s.bits[i] = false
	}
}

// Load copies a full pattern, row-major.
func (s *InputSpace) Load(pattern []bool) error {
	if len(pattern) != len(s.bits) {
		return fmt.Errorf("%w: got %d bits, want %d", ErrPatternSize, len(pattern), len(s.bits))
	}
	copy(s.bits, pattern)
	return nil
}

func (s *InputSpace) LoadString(pattern string) error {
	bits, err := ParsePattern(pattern)
	if err != nil {
		return err
	}
	return s.Load(bits)
}

// Bits returns a copy of the current pattern.
func (s *InputSpace) Bits() []bool {
	return append([]bool(nil), s.bits...)
}

func (s *InputSpace) String() string {
	return FormatPattern(s.bits)
}

// ParsePattern reads one '1' or '0' per bit. Whitespace is ignored so rows
// may be written on separate lines.
func ParsePattern(pattern string) ([]bool, error) {
	bits := make([]bool, 0, len(pattern))
	for i, r := range pattern {
		switch r {
		case '1':
			bits = append(bits, true)
		case '0':
			bits = append(bits, false)
		case ' ', '\t', '\n', '\r':
		default:
			return nil, fmt.Errorf("invalid pattern character %q at %d", r, i)
		}
	}
	return bits, nil
}

func FormatPattern(bits []bool) string {
	var b strings.Builder
	b.Grow(len(bits))
	for _, on := range bits {
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
