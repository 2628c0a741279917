package htm

// SegmentUpdate is a proposed change to one segment of a cell, or a request
// for a new segment when Target is nil. It waits in the cell's pending list
// until the next learning phase.
type SegmentUpdate struct {
	target      *Segment
	tick        int
	sequence    bool
	predictedBy []*Segment
	active      []*DistalSynapse
	newOrigins  []CellID
}

func (u *SegmentUpdate) Target() *Segment {
	return u.target
}

// Tick is the region tick the update was queued on.
func (u *SegmentUpdate) Tick() int {
	return u.tick
}

func (u *SegmentUpdate) IsSequence() bool {
	return u.sequence
}

func (u *SegmentUpdate) PredictedBy() []*Segment {
	return u.predictedBy
}

// Depth is the prediction chain depth the update belongs to.
func (u *SegmentUpdate) Depth() int {
	return len(u.predictedBy) + 1
}

// Active lists existing synapses of the target proposed for reinforcement.
func (u *SegmentUpdate) Active() []*DistalSynapse {
	return u.active
}

// NewOrigins lists cells proposed as origins of new synapses.
func (u *SegmentUpdate) NewOrigins() []CellID {
	return u.newOrigins
}

func (u *SegmentUpdate) empty() bool {
	return u.target == nil && len(u.newOrigins) == 0
}

func (u *SegmentUpdate) contains(origin CellID) bool {
	for _, syn := range u.active {
		if syn.origin == origin {
			return true
		}
	}
	for _, id := range u.newOrigins {
		if id == origin {
			return true
		}
	}
	return false
}
