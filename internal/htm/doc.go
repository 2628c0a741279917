// Package htm implements a cortical learning region: an input bit grid, a
// grid of columns with proximal synapses, cells with distal segments, and
// the spatial and temporal pooling algorithms that run on them once per
// tick.
//
// A tick is NextTimeStep, loading the input, SpatialPooler.Execute and
// TemporalPooler.Execute, in that order; Region.Step does all four. Cells
// keep a short history of their state where offset Now (0) is the current
// tick and Before (1) the previous one.
package htm
