package htm

import "fmt"

// Segment is a distal dendrite segment. It holds at most one synapse per
// origin cell.
type Segment struct {
	id       int
	cell     CellID
	sequence bool
	synapses []*DistalSynapse
	byOrigin map[CellID]*DistalSynapse
	// predictedBy is never longer than maxChain.
	predictedBy []*Segment
	maxChain    int
	maxSynapses int
}

func newSegment(id int, cell CellID, sequence bool, maxSteps, maxSynapses int) *Segment {
	return &Segment{
		id:          id,
		cell:        cell,
		sequence:    sequence,
		byOrigin:    make(map[CellID]*DistalSynapse),
		maxChain:    maxSteps - 1,
		maxSynapses: maxSynapses,
	}
}

func (s *Segment) ID() int {
	return s.id
}

func (s *Segment) Cell() CellID {
	return s.cell
}

func (s *Segment) IsSequence() bool {
	return s.sequence
}

// Synapses returns the segment's synapses in insertion order. The slice is
// shared; callers must not modify it.
func (s *Segment) Synapses() []*DistalSynapse {
	return s.synapses
}

func (s *Segment) Synapse(origin CellID) (*DistalSynapse, bool) {
	syn, ok := s.byOrigin[origin]
	return syn, ok
}

// AddSynapse attaches a synapse from origin. It returns false without
// changing the segment when origin is already present or the segment is full.
func (s *Segment) AddSynapse(origin CellID, perm float64) (*DistalSynapse, bool) {
	if _, ok := s.byOrigin[origin]; ok {
		return nil, false
	}
	if s.maxSynapses > 0 && len(s.synapses) >= s.maxSynapses {
		return nil, false
	}
	syn := &DistalSynapse{origin: origin}
	syn.SetPermanence(perm)
	s.synapses = append(s.synapses, syn)
	s.byOrigin[origin] = syn
	return syn, true
}

func (s *Segment) PredictedBy() []*Segment {
	return s.predictedBy
}

// PredictedInStep is how many ticks ahead an activation of this segment
// predicts its cell to become active.
func (s *Segment) PredictedInStep() int {
	return len(s.predictedBy) + 1
}

func (s *Segment) SetPredictedBy(chain []*Segment) error {
	if s.sequence && len(chain) > 0 {
		return fmt.Errorf("%w: cell=%d segment=%d", ErrSequenceChain, s.cell, s.id)
	}
	if len(chain) > s.maxChain {
		return fmt.Errorf("%w: depth=%d max=%d", ErrChainTooLong, len(chain)+1, s.maxChain+1)
	}
	s.predictedBy = append(s.predictedBy[:0], chain...)
	return nil
}

// activity counts synapses whose origin satisfies on. When connectedOnly is
// set, synapses below threshold are ignored.
func (s *Segment) activity(on func(CellID) bool, threshold float64, connectedOnly bool) int {
	n := 0
	for _, syn := range s.synapses {
		if connectedOnly && !syn.Connected(threshold) {
			continue
		}
		if on(syn.origin) {
			n++
		}
	}
	return n
}

func (s *Segment) activeSynapses(on func(CellID) bool) []*DistalSynapse {
	var out []*DistalSynapse
	for _, syn := range s.synapses {
		if on(syn.origin) {
			out = append(out, syn)
		}
	}
	return out
}
