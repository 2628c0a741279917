package htm

import "github.com/emer/emergent/evec"

// CellID is the stable index of a cell in its region's flat cell list.
type CellID int

func clampPermanence(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

type permanence struct {
	value float64
}

func (p *permanence) Permanence() float64 {
	return p.value
}

// SetPermanence stores p clamped to [0,1].
func (p *permanence) SetPermanence(v float64) {
	p.value = clampPermanence(v)
}

func (p *permanence) adjust(delta float64) {
	p.value = clampPermanence(p.value + delta)
}

// ProximalSynapse connects a column to one input bit.
type ProximalSynapse struct {
	permanence
	input    int
	position evec.Vec2i
	distance float64
}

func (s *ProximalSynapse) Input() int {
	return s.input
}

func (s *ProximalSynapse) InputPosition() evec.Vec2i {
	return s.position
}

// Distance from the owning column, in region units.
func (s *ProximalSynapse) Distance() float64 {
	return s.distance
}

func (s *ProximalSynapse) Connected(threshold float64) bool {
	return s.value >= threshold
}

// DistalSynapse connects a segment to the cell it listens to.
type DistalSynapse struct {
	permanence
	origin CellID
}

func (s *DistalSynapse) Origin() CellID {
	return s.origin
}

func (s *DistalSynapse) Connected(threshold float64) bool {
	return s.value >= threshold
}
