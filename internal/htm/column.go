package htm

import "github.com/emer/emergent/evec"

type Column struct {
	index     int
	position  evec.Vec2i
	firstCell CellID
	cells     []*Cell
	proximal  []*ProximalSynapse

	params    ColumnParams
	connected float64

	overlap     float64
	boost       float64
	active      bool
	activeDuty  dutyCycle
	overlapDuty dutyCycle
}

func newColumn(index int, position evec.Vec2i, cells []*Cell, params ColumnParams, connected float64, window int) *Column {
	return &Column{
		index:       index,
		position:    position,
		firstCell:   cells[0].id,
		cells:       cells,
		params:      params,
		connected:   connected,
		boost:       1.0,
		activeDuty:  newDutyCycle(window),
		overlapDuty: newDutyCycle(window),
	}
}

func (c *Column) Index() int {
	return c.index
}

func (c *Column) Position() evec.Vec2i {
	return c.position
}

func (c *Column) Cells() []*Cell {
	return c.cells
}

func (c *Column) Cell(i int) *Cell {
	return c.cells[i]
}

func (c *Column) Overlap() float64 {
	return c.overlap
}

func (c *Column) Boost() float64 {
	return c.boost
}

func (c *Column) IsActive() bool {
	return c.active
}

func (c *Column) ActiveDutyCycle() float64 {
	return c.activeDuty.value()
}

func (c *Column) OverlapDutyCycle() float64 {
	return c.overlapDuty.value()
}

// ProximalSynapses returns every potential synapse of the column.
func (c *Column) ProximalSynapses() []*ProximalSynapse {
	return c.proximal
}

func (c *Column) ConnectedSynapses() []*ProximalSynapse {
	var out []*ProximalSynapse
	for _, syn := range c.proximal {
		if syn.Connected(c.connected) {
			out = append(out, syn)
		}
	}
	return out
}

// receptiveFieldSize is the largest distance to a connected synapse.
func (c *Column) receptiveFieldSize() float64 {
	size := 0.0
	for _, syn := range c.proximal {
		if syn.Connected(c.connected) && syn.distance > size {
			size = syn.distance
		}
	}
	return size
}

func (c *Column) computeOverlap(input *InputSpace) {
	count := 0
	for _, syn := range c.proximal {
		if syn.Connected(c.connected) && input.Bit(syn.input) {
			count++
		}
	}
	if count < c.params.MinimalOverlap {
		c.overlap = 0
		return
	}
	c.overlap = float64(count) * c.boost
}

// setActive records this tick's activity and refreshes both duty cycles.
func (c *Column) setActive(active bool) {
	c.active = active
	c.activeDuty.push(active)
	c.overlapDuty.push(c.overlap > 0)
}

func (c *Column) adaptPermanences(input *InputSpace, inc, dec float64) {
	for _, syn := range c.proximal {
		if input.Bit(syn.input) {
			syn.adjust(inc)
		} else {
			syn.adjust(-dec)
		}
	}
}

func (c *Column) increasePermanences(delta float64) {
	for _, syn := range c.proximal {
		syn.adjust(delta)
	}
}

func (c *Column) updateBoost(minDuty float64) {
	if c.ActiveDutyCycle() < minDuty {
		c.boost += c.params.BoostRate
		return
	}
	c.boost = 1.0
}
