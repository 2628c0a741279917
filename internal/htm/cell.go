package htm

// State selects which per-cell flag a segment's synapses are matched against.
type State int

const (
	ActiveState State = iota
	LearnState
)

func (s State) String() string {
	switch s {
	case ActiveState:
		return "active"
	case LearnState:
		return "learn"
	default:
		return "unknown"
	}
}

const notPredicted = -1

// wrongPredictionFactor scales PermanenceDec for updates discarded after a
// prediction that did not come closer.
const wrongPredictionFactor = 4

type Cell struct {
	id     CellID
	column int
	index  int

	active    history[bool]
	learn     history[bool]
	predicted history[int]

	segments []*Segment
	pending  []*SegmentUpdate
}

func newCell(id CellID, column, index, timeSteps int) *Cell {
	return &Cell{
		id:        id,
		column:    column,
		index:     index,
		active:    newHistory(timeSteps, false),
		learn:     newHistory(timeSteps, false),
		predicted: newHistory(timeSteps, notPredicted),
	}
}

func (c *Cell) ID() CellID {
	return c.id
}

func (c *Cell) Column() int {
	return c.column
}

// Index is the cell's slot within its column.
func (c *Cell) Index() int {
	return c.index
}

func (c *Cell) TimeSteps() int {
	return c.active.depth()
}

func (c *Cell) IsActive(t int) bool {
	return c.active.inRange(t) && c.active.at(t)
}

func (c *Cell) IsLearning(t int) bool {
	return c.learn.inRange(t) && c.learn.at(t)
}

// PredictedInStep returns how many ticks ahead the cell was predicted at
// offset t, or -1.
func (c *Cell) PredictedInStep(t int) int {
	if !c.predicted.inRange(t) {
		return notPredicted
	}
	return c.predicted.at(t)
}

func (c *Cell) IsPredictive(t int) bool {
	return c.PredictedInStep(t) != notPredicted
}

func (c *Cell) is(state State, t int) bool {
	if state == LearnState {
		return c.IsLearning(t)
	}
	return c.IsActive(t)
}

func (c *Cell) Segments() []*Segment {
	return c.segments
}

func (c *Cell) PendingUpdates() []*SegmentUpdate {
	return c.pending
}

func (c *Cell) setActive(v bool) {
	c.active.set(Now, v)
}

func (c *Cell) setLearning(v bool) {
	c.learn.set(Now, v)
}

func (c *Cell) setPredictedInStep(step int) {
	c.predicted.set(Now, step)
}

func (c *Cell) nextTimeStep() {
	c.active.advance(false)
	c.learn.advance(false)
	c.predicted.advance(notPredicted)
}

func (c *Cell) queue(u *SegmentUpdate) {
	if u == nil || u.empty() {
		return
	}
	c.pending = append(c.pending, u)
}

func (c *Cell) addSegment(sequence bool, chain []*Segment, p learnParams) *Segment {
	seg := newSegment(len(c.segments), c.id, sequence, p.maxSteps, p.maxSynapses)
	if !sequence {
		seg.predictedBy = append([]*Segment(nil), chain...)
	}
	c.segments = append(c.segments, seg)
	return seg
}

// learnParams carries what the update rules need from the region config.
type learnParams struct {
	inc            float64
	dec            float64
	initial        float64
	cellsPerColumn int
	maxSteps       int
	maxSynapses    int
}

func (p learnParams) columnOf(id CellID) int {
	return int(id) / p.cellsPerColumn
}

// applyPositive reinforces the synapses named by u and weakens the rest of
// the segment, except synapses sharing a column with one named by u.
func (c *Cell) applyPositive(u *SegmentUpdate, p learnParams) bool {
	seg := u.target
	if seg == nil {
		if len(u.newOrigins) == 0 {
			return false
		}
		seg = c.addSegment(u.sequence, u.predictedBy, p)
	}

	columns := make(map[int]bool, len(u.active)+len(u.newOrigins))
	for _, syn := range u.active {
		columns[p.columnOf(syn.origin)] = true
	}
	for _, id := range u.newOrigins {
		columns[p.columnOf(id)] = true
	}

	for _, syn := range seg.synapses {
		switch {
		case u.contains(syn.origin):
			syn.adjust(p.inc)
		case columns[p.columnOf(syn.origin)]:
		default:
			syn.adjust(-p.dec)
		}
	}
	for _, id := range u.newOrigins {
		seg.AddSynapse(id, p.initial)
	}
	return true
}

func (c *Cell) applyNegative(u *SegmentUpdate, p learnParams) bool {
	if u.target == nil || len(u.active) == 0 {
		return false
	}
	for _, syn := range u.active {
		syn.adjust(-p.dec)
	}
	return true
}

// penalizeWrongPrediction walks the pending list from newest to oldest and
// discards every update whose depth is within step, weakening its synapses.
// Deeper updates stay queued in their original order.
func (c *Cell) penalizeWrongPrediction(step int, p learnParams) bool {
	changed := false
	kept := make([]*SegmentUpdate, 0, len(c.pending))
	for i := len(c.pending) - 1; i >= 0; i-- {
		u := c.pending[i]
		if u.Depth() > step {
			kept = append(kept, u)
			continue
		}
		for _, syn := range u.active {
			syn.adjust(-wrongPredictionFactor * p.dec)
		}
		changed = changed || len(u.active) > 0
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	c.pending = kept
	return changed
}

func (c *Cell) clearPending() {
	c.pending = nil
}
