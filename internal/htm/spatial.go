package htm

import "golang.org/x/exp/slices"

const (
	minDutyCycleFraction = 0.01
	permanenceBoostRatio = 0.1
)

// SpatialPooler turns input activity into a sparse set of active columns.
type SpatialPooler struct {
	region *Region
}

func (sp *SpatialPooler) Execute() {
	r := sp.region
	if r.cfg.SkipSpatial {
		sp.copyInput()
		return
	}
	sp.computeOverlap()
	sp.inhibit()
	if r.cfg.SpatialLearning {
		sp.learn()
	}
}

// copyInput activates column i exactly when input bit i is on.
func (sp *SpatialPooler) copyInput() {
	r := sp.region
	for i, col := range r.columns {
		if r.input.Bit(i) {
			col.overlap = 1
		} else {
			col.overlap = 0
		}
		col.setActive(r.input.Bit(i))
	}
}

func (sp *SpatialPooler) computeOverlap() {
	r := sp.region
	for _, col := range r.columns {
		col.computeOverlap(r.input)
	}
}

func (sp *SpatialPooler) inhibit() {
	r := sp.region
	r.inhibitionRadius = sp.averageReceptiveFieldSize()
	for i, col := range r.columns {
		var overlaps []float64
		for _, n := range r.Neighbors(i) {
			overlaps = append(overlaps, r.columns[n].overlap)
		}
		minLocalActivity := KthScore(overlaps, r.cfg.Column.DesiredLocalActivity)
		col.setActive(col.overlap > 0 && col.overlap >= minLocalActivity)
	}
}

func (sp *SpatialPooler) learn() {
	r := sp.region
	inc := r.cfg.Synapse.PermanenceInc
	dec := r.cfg.Synapse.PermanenceDec
	for _, col := range r.columns {
		if col.active {
			col.adaptPermanences(r.input, inc, dec)
		}
	}
	for i, col := range r.columns {
		minDuty := minDutyCycleFraction * sp.maxDutyCycle(r.Neighbors(i))
		if col.OverlapDutyCycle() < minDuty {
			col.increasePermanences(permanenceBoostRatio * r.cfg.Synapse.ConnectedPermanence)
		}
		col.updateBoost(minDuty)
	}
}

// averageReceptiveFieldSize is the mean, over all columns, of the distance
// to the furthest connected proximal synapse.
func (sp *SpatialPooler) averageReceptiveFieldSize() float64 {
	r := sp.region
	if len(r.columns) == 0 {
		return 0
	}
	total := 0.0
	for _, col := range r.columns {
		total += col.receptiveFieldSize()
	}
	return total / float64(len(r.columns))
}

func (sp *SpatialPooler) maxDutyCycle(neighbors []int) float64 {
	best := 0.0
	for _, n := range neighbors {
		if d := sp.region.columns[n].ActiveDutyCycle(); d > best {
			best = d
		}
	}
	return best
}

// KthScore returns the k-th highest score (1-based). k is clamped to the
// number of scores; an empty list scores 0.
func KthScore(scores []float64, k int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := append([]float64(nil), scores...)
	slices.SortFunc(sorted, func(a, b float64) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		default:
			return 0
		}
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	if k < 1 {
		k = 1
	}
	return sorted[k-1]
}
