package htm

func (tp *TemporalPooler) stateAt(state State, t int) func(CellID) bool {
	cells := tp.region.cells
	return func(id CellID) bool {
		return cells[id].is(state, t)
	}
}

// segmentActivity counts connected synapses whose origin is in state at t.
func (tp *TemporalPooler) segmentActivity(seg *Segment, t int, state State) int {
	return seg.activity(tp.stateAt(state, t), tp.region.cfg.Synapse.ConnectedPermanence, true)
}

func (tp *TemporalPooler) segmentActive(seg *Segment, t int, state State) bool {
	return tp.segmentActivity(seg, t, state) >= tp.region.cfg.Cell.ActivationThreshold
}

// activeSegment picks among the cell's segments active at t, preferring
// sequence segments and then the most active one. It returns nil when no
// segment reaches the activation threshold.
func (tp *TemporalPooler) activeSegment(cell *Cell, t int, state State) *Segment {
	var best *Segment
	bestCount := 0
	for _, seg := range cell.segments {
		n := tp.segmentActivity(seg, t, state)
		if n < tp.region.cfg.Cell.ActivationThreshold {
			continue
		}
		switch {
		case best == nil:
		case seg.sequence && !best.sequence:
		case seg.sequence == best.sequence && n > bestCount:
		default:
			continue
		}
		best = seg
		bestCount = n
	}
	return best
}

// bestMatchingSegment finds the segment with the most synapses from cells
// active at t, connected or not. The count must exceed MinThreshold.
func (tp *TemporalPooler) bestMatchingSegment(cell *Cell, t int) (*Segment, int) {
	var best *Segment
	bestCount := tp.region.cfg.Cell.MinThreshold
	active := tp.stateAt(ActiveState, t)
	for _, seg := range cell.segments {
		if n := seg.activity(active, 0, false); n > bestCount {
			best = seg
			bestCount = n
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestCount
}

// bestMatchingCell returns the cell of column holding the best matching
// segment at t. Cells already learning at t are skipped. Without any match
// it falls back to the first remaining cell with the fewest segments and a
// nil segment.
func (tp *TemporalPooler) bestMatchingCell(col *Column, t int) (*Cell, *Segment) {
	var (
		bestCell  *Cell
		bestSeg   *Segment
		bestCount int
		fallback  *Cell
	)
	for _, cell := range col.cells {
		if cell.IsLearning(t) {
			continue
		}
		if fallback == nil || len(cell.segments) < len(fallback.segments) {
			fallback = cell
		}
		seg, n := tp.bestMatchingSegment(cell, t)
		if seg != nil && (bestSeg == nil || n > bestCount) {
			bestCell, bestSeg, bestCount = cell, seg, n
		}
	}
	if bestSeg != nil {
		return bestCell, bestSeg
	}
	if fallback == nil {
		fallback = col.cells[0]
	}
	return fallback, nil
}
