package htm

import (
	"math"
	"testing"
)

func TestKthScore(t *testing.T) {
	scores := []float64{1, 5, 2, 5, 5}
	if got := KthScore(scores, 3); got != 5 {
		t.Fatalf("k=3: got %f", got)
	}
	if got := KthScore(scores, 4); got != 2 {
		t.Fatalf("k=4: got %f", got)
	}
	if got := KthScore(scores, 10); got != 1 {
		t.Fatalf("k beyond length should clamp to the lowest score, got %f", got)
	}
	if got := KthScore(nil, 3); got != 0 {
		t.Fatalf("empty scores: got %f", got)
	}
	if scores[0] != 1 || scores[1] != 5 {
		t.Fatal("KthScore reordered its argument")
	}
}

func lineConfig(columns int) Config {
	cfg := DefaultConfig()
	cfg.RegionWidth, cfg.RegionHeight = columns, 1
	cfg.InputWidth, cfg.InputHeight = columns, 1
	cfg.CellsPerColumn = 2
	cfg.Column = ColumnParams{MinimalOverlap: 1, DesiredLocalActivity: 3, BoostRate: 0.5}
	cfg.Synapse.InitialSpread = 0
	return cfg
}

func TestInhibitionKeepsDesiredLocalActivity(t *testing.T) {
	region, err := NewRegion(lineConfig(5))
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	// No connected synapses leaves an inhibition radius of 0, so every column
	// competes with every other one.
	for _, col := range region.Columns() {
		for _, syn := range col.ProximalSynapses() {
			syn.SetPermanence(0)
		}
	}
	for i, overlap := range []float64{5, 5, 5, 2, 1} {
		region.Column(i).overlap = overlap
	}
	region.SpatialPooler().inhibit()

	if region.InhibitionRadius() != 0 {
		t.Fatalf("expected inhibition radius 0, got %f", region.InhibitionRadius())
	}
	active := region.ActiveColumns()
	if len(active) != 3 || active[0] != 0 || active[1] != 1 || active[2] != 2 {
		t.Fatalf("unexpected active columns: %v", active)
	}
}

func TestInhibitionNeverActivatesZeroOverlap(t *testing.T) {
	region, err := NewRegion(lineConfig(4))
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	for _, col := range region.Columns() {
		for _, syn := range col.ProximalSynapses() {
			syn.SetPermanence(0)
		}
	}
	region.Column(0).overlap = 3
	region.SpatialPooler().inhibit()
	active := region.ActiveColumns()
	if len(active) != 1 || active[0] != 0 {
		t.Fatalf("expected only column 0 active, got %v", active)
	}
}

func TestOverlapRespectsMinimalOverlapAndBoost(t *testing.T) {
	cfg := lineConfig(2)
	cfg.Column.MinimalOverlap = 2
	region, err := NewRegion(cfg)
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	col := region.Column(0)
	if len(col.ProximalSynapses()) != 2 {
		t.Fatalf("expected both input bits wired, got %d", len(col.ProximalSynapses()))
	}

	if err := region.Input().Load([]bool{true, false}); err != nil {
		t.Fatalf("load: %v", err)
	}
	col.computeOverlap(region.Input())
	if col.Overlap() != 0 {
		t.Fatalf("overlap below minimum should be 0, got %f", col.Overlap())
	}

	col.boost = 1.5
	if err := region.Input().Load([]bool{true, true}); err != nil {
		t.Fatalf("load: %v", err)
	}
	col.computeOverlap(region.Input())
	if col.Overlap() != 3 {
		t.Fatalf("expected boosted overlap 3, got %f", col.Overlap())
	}
}

func TestSpatialLearningAdaptsPermanences(t *testing.T) {
	cfg := lineConfig(1)
	cfg.InputWidth = 2
	cfg.Column.DesiredLocalActivity = 1
	cfg.TemporalLearning = false
	cfg.Synapse.PermanenceInc = 0.05
	cfg.Synapse.PermanenceDec = 0.02
	region, err := NewRegion(cfg)
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	if _, err := region.Step([]bool{true, false}); err != nil {
		t.Fatalf("step: %v", err)
	}
	syns := region.Column(0).ProximalSynapses()
	if !approx(syns[0].Permanence(), 0.25) || !approx(syns[1].Permanence(), 0.18) {
		t.Fatalf("unexpected permanences: %f %f", syns[0].Permanence(), syns[1].Permanence())
	}
	if region.Column(0).Boost() != 1 {
		t.Fatalf("active column should keep boost 1, got %f", region.Column(0).Boost())
	}
}

func TestStarvedColumnGetsBoosted(t *testing.T) {
	cfg := lineConfig(2)
	cfg.Column.DesiredLocalActivity = 1
	cfg.TemporalLearning = false
	region, err := NewRegion(cfg)
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	for _, syn := range region.Column(0).ProximalSynapses() {
		syn.SetPermanence(1)
	}
	for _, syn := range region.Column(1).ProximalSynapses() {
		syn.SetPermanence(0)
	}
	if _, err := region.Step([]bool{true, true}); err != nil {
		t.Fatalf("step: %v", err)
	}

	if active := region.ActiveColumns(); len(active) != 1 || active[0] != 0 {
		t.Fatalf("expected column 0 to win, got %v", active)
	}
	starved := region.Column(1)
	if !approx(starved.Boost(), 1.5) {
		t.Fatalf("expected boost 1.5, got %f", starved.Boost())
	}
	want := 0.1 * cfg.Synapse.ConnectedPermanence
	for _, syn := range starved.ProximalSynapses() {
		if !approx(syn.Permanence(), want) {
			t.Fatalf("expected permanence bumped to %f, got %f", want, syn.Permanence())
		}
	}
	if region.Column(0).Boost() != 1 {
		t.Fatalf("winning column boost: %f", region.Column(0).Boost())
	}
}

func TestSkipSpatialCopiesInput(t *testing.T) {
	cfg := lineConfig(3)
	cfg.SkipSpatial = true
	region, err := NewRegion(cfg)
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	if n := len(region.Column(0).ProximalSynapses()); n != 0 {
		t.Fatalf("skip spatial should not wire proximal synapses, got %d", n)
	}
	if _, err := region.Step([]bool{true, false, true}); err != nil {
		t.Fatalf("step: %v", err)
	}
	active := region.ActiveColumns()
	if len(active) != 2 || active[0] != 0 || active[1] != 2 {
		t.Fatalf("expected columns 0 and 2, got %v", active)
	}
}

func TestProximalWiringStaysInsideInputRadius(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RegionWidth, cfg.RegionHeight = 4, 4
	cfg.InputWidth, cfg.InputHeight = 8, 8
	cfg.InputRadius = 1.5
	region, err := NewRegion(cfg)
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	for _, col := range region.Columns() {
		syns := col.ProximalSynapses()
		if len(syns) == 0 || len(syns) >= region.Input().Len() {
			t.Fatalf("column %d: expected a partial receptive field, got %d synapses", col.Index(), len(syns))
		}
		for _, syn := range syns {
			if syn.Distance() > cfg.InputRadius+1e-6 {
				t.Fatalf("column %d: synapse at distance %f beyond radius", col.Index(), syn.Distance())
			}
			spread := math.Abs(syn.Permanence() - cfg.Synapse.ConnectedPermanence)
			if spread > cfg.Synapse.InitialSpread+1e-9 {
				t.Fatalf("initial permanence %f outside spread", syn.Permanence())
			}
		}
	}
}

func TestRegionIsDeterministicForSeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RegionWidth, cfg.RegionHeight = 4, 4
	cfg.InputWidth, cfg.InputHeight = 8, 8
	a, err := NewRegion(cfg)
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	b, err := NewRegion(cfg)
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	for i := 0; i < 30; i++ {
		pattern := make([]bool, a.Input().Len())
		for j := range pattern {
			pattern[j] = (j+i)%5 == 0 || (j*i)%7 == 1
		}
		ra, err := a.Step(pattern)
		if err != nil {
			t.Fatalf("step a: %v", err)
		}
		rb, err := b.Step(pattern)
		if err != nil {
			t.Fatalf("step b: %v", err)
		}
		if len(ra.ActiveCells) != len(rb.ActiveCells) || len(ra.ChangedCells) != len(rb.ChangedCells) {
			t.Fatalf("tick %d diverged", i+1)
		}
	}
	sa, na := a.Counts()
	sb, nb := b.Counts()
	if sa != sb || na != nb {
		t.Fatalf("segment/synapse counts diverged: %d/%d vs %d/%d", sa, na, sb, nb)
	}
}
