package htm

import "fmt"

// TemporalPooler turns active columns into active, learning and predictive
// cells and applies distal learning.
type TemporalPooler struct {
	region *Region
}

// Execute runs phases 1 to 3 on the current NOW slot. Callers advance the
// cell histories with Region.NextTimeStep beforehand.
func (tp *TemporalPooler) Execute() Report {
	predicted := 0
	for _, col := range tp.region.columns {
		if !col.active {
			continue
		}
		if tp.activateColumn(col) {
			predicted++
		}
	}
	tp.computePredictions()
	changed := tp.applyUpdates()
	return tp.region.report(predicted, changed)
}

// activateColumn is phase 1 for one active column. It reports whether the
// column's activity was predicted by a sequence segment.
func (tp *TemporalPooler) activateColumn(col *Column) bool {
	if !col.active {
		panic(fmt.Sprintf("htm: temporal phase 1 on inactive column %d", col.index))
	}
	r := tp.region

	predicted := false
	learnChosen := false
	for _, cell := range col.cells {
		if !cell.IsPredictive(Before) {
			continue
		}
		seg := tp.activeSegment(cell, Before, ActiveState)
		if seg == nil || !seg.sequence {
			continue
		}
		predicted = true
		cell.setActive(true)
		if !learnChosen && tp.segmentActive(seg, Before, LearnState) {
			learnChosen = true
			cell.setLearning(true)
		}
	}

	if !predicted {
		for _, cell := range col.cells {
			cell.setActive(true)
		}
	}

	if r.cfg.TemporalLearning && !learnChosen {
		cell, seg := tp.bestMatchingCell(col, Before)
		cell.setLearning(true)
		u := tp.segmentUpdate(cell, seg, Before, true)
		u.sequence = true
		cell.queue(u)
	}
	return predicted
}

// computePredictions is phase 2.
func (tp *TemporalPooler) computePredictions() {
	r := tp.region
	for _, cell := range r.cells {
		if cell.IsLearning(Now) {
			continue
		}
		for _, seg := range cell.segments {
			if !tp.segmentActive(seg, Now, ActiveState) {
				continue
			}
			if seg.sequence && !tp.segmentActive(seg, Now, LearnState) {
				continue
			}

			step := seg.PredictedInStep()
			if current := cell.PredictedInStep(Now); current == notPredicted || step < current {
				cell.setPredictedInStep(step)
			}
			if !r.cfg.TemporalLearning {
				continue
			}

			reinforce := tp.segmentUpdate(cell, seg, Now, false)
			reinforce.predictedBy = append([]*Segment(nil), seg.predictedBy...)
			cell.queue(reinforce)

			if step+1 > r.cfg.MaxPredictionSteps {
				continue
			}
			prev, _ := tp.bestMatchingSegment(cell, Before)
			extend := tp.segmentUpdate(cell, prev, Before, true)
			extend.predictedBy = append([]*Segment{seg}, seg.predictedBy...)
			cell.queue(extend)
		}
	}
}

// applyUpdates is phase 3. It returns the cells whose segments changed.
// A cell's pending updates are dropped only after the learning or lapsed
// prediction branch applies them; every other cell keeps its queue.
func (tp *TemporalPooler) applyUpdates() []CellID {
	r := tp.region
	if !r.cfg.TemporalLearning {
		return nil
	}
	p := r.learnParams()

	var changed []CellID
	for _, cell := range r.cells {
		if len(cell.pending) == 0 {
			continue
		}
		mutated := false
		switch {
		case cell.IsLearning(Now):
			for _, u := range cell.pending {
				if cell.applyPositive(u, p) {
					mutated = true
				}
			}
			cell.clearPending()
		case cell.IsPredictive(Before) && !cell.IsPredictive(Now):
			for _, u := range cell.pending {
				if cell.applyNegative(u, p) {
					mutated = true
				}
			}
			cell.clearPending()
		case cell.IsPredictive(Before) && cell.PredictedInStep(Now) >= cell.PredictedInStep(Before):
			mutated = cell.penalizeWrongPrediction(cell.PredictedInStep(Before), p)
		}
		if mutated {
			changed = append(changed, cell.id)
		}
	}
	return changed
}

// segmentUpdate proposes reinforcing the synapses of seg whose origin was
// active at t. With newSynapses it also proposes synapses from cells
// learning at t, up to NewSynapseCount in total.
func (tp *TemporalPooler) segmentUpdate(cell *Cell, seg *Segment, t int, newSynapses bool) *SegmentUpdate {
	r := tp.region
	u := &SegmentUpdate{target: seg, tick: r.tick}
	if seg != nil {
		u.active = seg.activeSynapses(tp.stateAt(ActiveState, t))
	}
	if !newSynapses {
		return u
	}

	n := r.cfg.Cell.NewSynapseCount - len(u.active)
	if limit := r.cfg.Cell.AmountOfSynapses; limit > 0 {
		room := limit
		if seg != nil {
			room -= len(seg.synapses)
		}
		if room < n {
			n = room
		}
	}
	if n > 0 {
		u.newOrigins = tp.sampleLearningCells(cell, seg, t, n)
	}
	return u
}

// sampleLearningCells draws up to n distinct cells that were learning at t
// in columns within LearningRadius of cell, skipping cell itself and
// origins seg already has.
func (tp *TemporalPooler) sampleLearningCells(cell *Cell, seg *Segment, t, n int) []CellID {
	r := tp.region
	var candidates []CellID
	for _, ci := range r.learningNeighbors[cell.column] {
		for _, other := range r.columns[ci].cells {
			if other.id == cell.id || !other.IsLearning(t) {
				continue
			}
			if seg != nil {
				if _, ok := seg.byOrigin[other.id]; ok {
					continue
				}
			}
			candidates = append(candidates, other.id)
		}
	}
	r.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}
