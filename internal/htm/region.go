package htm

import (
	"math/rand"

	"github.com/goki/mat32"
)

// Geometry is the part of a region's configuration a recording needs to
// reproduce the same layout.
type Geometry struct {
	RegionWidth  int     `json:"region_width"`
	RegionHeight int     `json:"region_height"`
	InputWidth   int     `json:"input_width"`
	InputHeight  int     `json:"input_height"`
	InputRadius  float64 `json:"input_radius"`
}

// Region is a grid of columns bound to one input space. A Region is not
// safe for concurrent use; callers serialise ticks.
type Region struct {
	cfg   Config
	input *InputSpace

	columns   []*Column
	cells     []*Cell
	positions []mat32.Vec2
	// learningNeighbors is fixed at construction since LearningRadius is.
	learningNeighbors [][]int

	inhibitionRadius float64
	tick             int
	rng              *rand.Rand

	sp *SpatialPooler
	tp *TemporalPooler
}

func NewRegion(cfg Config) (*Region, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Region{
		cfg:   cfg,
		input: NewInputSpace(cfg.InputWidth, cfg.InputHeight),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}

	n := cfg.RegionWidth * cfg.RegionHeight
	r.columns = make([]*Column, 0, n)
	r.cells = make([]*Cell, 0, n*cfg.CellsPerColumn)
	r.positions = make([]mat32.Vec2, 0, n)
	for i := 0; i < n; i++ {
		pos := gridPosition(i, cfg.RegionWidth)
		cells := make([]*Cell, cfg.CellsPerColumn)
		for j := range cells {
			cells[j] = newCell(CellID(len(r.cells)), i, j, cfg.Cell.TimeSteps)
			r.cells = append(r.cells, cells[j])
		}
		col := newColumn(i, pos, cells, cfg.Column, cfg.Synapse.ConnectedPermanence, cfg.DutyCycleWindow)
		r.columns = append(r.columns, col)
		r.positions = append(r.positions, toVec2(pos))
	}

	if !cfg.SkipSpatial {
		r.wireProximal()
	}

	r.learningNeighbors = make([][]int, n)
	for i := range r.columns {
		r.learningNeighbors[i] = neighborsWithinRadius(r.positions, r.positions[i], cfg.LearningRadius)
	}

	r.sp = &SpatialPooler{region: r}
	r.tp = &TemporalPooler{region: r}
	return r, nil
}

// wireProximal gives every column a potential synapse to each input bit
// inside InputRadius, with permanences spread around the connected
// threshold.
func (r *Region) wireProximal() {
	inputPositions := make([]mat32.Vec2, r.input.Len())
	for b := range inputPositions {
		inputPositions[b] = scaleToRegion(r.input.Position(b), r.cfg.InputWidth, r.cfg.InputHeight, r.cfg.RegionWidth, r.cfg.RegionHeight)
	}
	connected := r.cfg.Synapse.ConnectedPermanence
	spread := r.cfg.Synapse.InitialSpread
	for i, col := range r.columns {
		center := r.positions[i]
		for b, p := range inputPositions {
			if !withinRadius(center, p, r.cfg.InputRadius) {
				continue
			}
			syn := &ProximalSynapse{
				input:    b,
				position: r.input.Position(b),
				distance: float64(center.DistTo(p)),
			}
			syn.SetPermanence(connected + (r.rng.Float64()*2-1)*spread)
			col.proximal = append(col.proximal, syn)
		}
	}
}

func (r *Region) Config() Config {
	return r.cfg
}

func (r *Region) Geometry() Geometry {
	return Geometry{
		RegionWidth:  r.cfg.RegionWidth,
		RegionHeight: r.cfg.RegionHeight,
		InputWidth:   r.cfg.InputWidth,
		InputHeight:  r.cfg.InputHeight,
		InputRadius:  r.cfg.InputRadius,
	}
}

func (r *Region) Input() *InputSpace {
	return r.input
}

func (r *Region) Columns() []*Column {
	return r.columns
}

func (r *Region) Column(i int) *Column {
	return r.columns[i]
}

func (r *Region) Cells() []*Cell {
	return r.cells
}

func (r *Region) Cell(id CellID) *Cell {
	return r.cells[id]
}

func (r *Region) SpatialPooler() *SpatialPooler {
	return r.sp
}

func (r *Region) TemporalPooler() *TemporalPooler {
	return r.tp
}

// Tick counts NextTimeStep calls.
func (r *Region) Tick() int {
	return r.tick
}

// InhibitionRadius is the value computed by the last inhibition phase.
func (r *Region) InhibitionRadius() float64 {
	return r.inhibitionRadius
}

// Neighbors returns the columns competing with column i under the current
// inhibition radius, i included.
func (r *Region) Neighbors(i int) []int {
	return r.NeighborsWithin(i, r.inhibitionRadius)
}

func (r *Region) NeighborsWithin(i int, radius float64) []int {
	return neighborsWithinRadius(r.positions, r.positions[i], radius)
}

func (r *Region) ActiveColumns() []int {
	var out []int
	for _, col := range r.columns {
		if col.active {
			out = append(out, col.index)
		}
	}
	return out
}

// NextTimeStep pushes fresh NOW entries into every cell history.
func (r *Region) NextTimeStep() {
	for _, cell := range r.cells {
		cell.nextTimeStep()
	}
	r.tick++
}

// Step runs one complete tick on pattern.
func (r *Region) Step(pattern []bool) (Report, error) {
	if err := r.input.Load(pattern); err != nil {
		return Report{}, err
	}
	r.NextTimeStep()
	r.sp.Execute()
	return r.tp.Execute(), nil
}

// Counts returns the number of segments and distal synapses in the region.
func (r *Region) Counts() (segments, synapses int) {
	for _, cell := range r.cells {
		segments += len(cell.segments)
		for _, seg := range cell.segments {
			synapses += len(seg.synapses)
		}
	}
	return segments, synapses
}

func (r *Region) learnParams() learnParams {
	return learnParams{
		inc:            r.cfg.Synapse.PermanenceInc,
		dec:            r.cfg.Synapse.PermanenceDec,
		initial:        r.cfg.Synapse.InitialPermanence,
		cellsPerColumn: r.cfg.CellsPerColumn,
		maxSteps:       r.cfg.MaxPredictionSteps,
		maxSynapses:    r.cfg.Cell.AmountOfSynapses,
	}
}
