package htm

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidConfig         = errors.New("invalid region config")
	ErrInputRadiusTooLarge   = errors.New("input radius exceeds region diagonal")
	ErrSkipSpatialDimensions = errors.New("skip spatial requires matching input and region dimensions")
	ErrSequenceChain         = errors.New("sequence segment cannot be predicted by other segments")
	ErrChainTooLong          = errors.New("prediction chain exceeds max prediction steps")
	ErrPatternSize           = errors.New("pattern size does not match input space")
)

// SynapseParams are shared by every proximal and distal synapse of a region.
type SynapseParams struct {
	ConnectedPermanence float64 `json:"connected_permanence"`
	PermanenceInc       float64 `json:"permanence_inc"`
	PermanenceDec       float64 `json:"permanence_dec"`
	// InitialPermanence is assigned to distal synapses created by learning.
	InitialPermanence float64 `json:"initial_permanence"`
	// InitialSpread is the half-width of the random interval around
	// ConnectedPermanence used for the initial proximal wiring.
	InitialSpread float64 `json:"initial_spread"`
}

type ColumnParams struct {
	MinimalOverlap       int     `json:"minimal_overlap"`
	DesiredLocalActivity int     `json:"desired_local_activity"`
	BoostRate            float64 `json:"boost_rate"`
}

type CellParams struct {
	NewSynapseCount     int `json:"new_synapse_count"`
	ActivationThreshold int `json:"activation_threshold"`
	MinThreshold        int `json:"min_threshold"`
	// AmountOfSynapses caps the synapses a single segment may hold. Zero
	// leaves segments unbounded.
	AmountOfSynapses int `json:"amount_of_synapses"`
	TimeSteps        int `json:"time_steps"`
}

// Config is fixed for the lifetime of a Region.
type Config struct {
	RegionWidth      int     `json:"region_width"`
	RegionHeight     int     `json:"region_height"`
	InputWidth       int     `json:"input_width"`
	InputHeight      int     `json:"input_height"`
	InputRadius      float64 `json:"input_radius"`
	LearningRadius   float64 `json:"learning_radius"`
	CellsPerColumn   int     `json:"cells_per_column"`
	SkipSpatial      bool    `json:"skip_spatial"`
	SpatialLearning  bool    `json:"spatial_learning"`
	TemporalLearning bool    `json:"temporal_learning"`

	// MaxPredictionSteps bounds the depth of predictedBy chains, and so the
	// furthest step a segment may predict.
	MaxPredictionSteps int `json:"max_prediction_steps"`
	// DutyCycleWindow is the number of past ticks averaged by duty cycles.
	DutyCycleWindow int   `json:"duty_cycle_window"`
	Seed            int64 `json:"seed"`

	Column  ColumnParams  `json:"column"`
	Cell    CellParams    `json:"cell"`
	Synapse SynapseParams `json:"synapse"`
}

func DefaultConfig() Config {
	return Config{
		RegionWidth:        8,
		RegionHeight:       8,
		InputWidth:         16,
		InputHeight:        16,
		InputRadius:        0,
		LearningRadius:     0,
		CellsPerColumn:     3,
		SpatialLearning:    true,
		TemporalLearning:   true,
		MaxPredictionSteps: 10,
		DutyCycleWindow:    1000,
		Seed:               1,
		Column: ColumnParams{
			MinimalOverlap:       2,
			DesiredLocalActivity: 3,
			BoostRate:            0.01,
		},
		Cell: CellParams{
			NewSynapseCount:     5,
			ActivationThreshold: 3,
			MinThreshold:        1,
			AmountOfSynapses:    32,
			TimeSteps:           10,
		},
		Synapse: SynapseParams{
			ConnectedPermanence: 0.2,
			PermanenceInc:       0.015,
			PermanenceDec:       0.005,
			InitialPermanence:   0.2,
			InitialSpread:       0.1,
		},
	}
}

// MaxDiagonal is the largest radius that still means something on the
// region grid.
func (c Config) MaxDiagonal() float64 {
	return math.Hypot(float64(c.RegionWidth), float64(c.RegionHeight))
}

func (c Config) Validate() error {
	if c.RegionWidth <= 0 || c.RegionHeight <= 0 {
		return fmt.Errorf("%w: region dimensions must be > 0, got %dx%d", ErrInvalidConfig, c.RegionWidth, c.RegionHeight)
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("%w: input dimensions must be > 0, got %dx%d", ErrInvalidConfig, c.InputWidth, c.InputHeight)
	}
	if c.InputRadius > c.MaxDiagonal() {
		return fmt.Errorf("%w: radius=%.3f diagonal=%.3f", ErrInputRadiusTooLarge, c.InputRadius, c.MaxDiagonal())
	}
	if c.SkipSpatial && (c.InputWidth != c.RegionWidth || c.InputHeight != c.RegionHeight) {
		return fmt.Errorf("%w: input=%dx%d region=%dx%d", ErrSkipSpatialDimensions, c.InputWidth, c.InputHeight, c.RegionWidth, c.RegionHeight)
	}
	if c.CellsPerColumn <= 0 {
		return fmt.Errorf("%w: cells per column must be > 0", ErrInvalidConfig)
	}
	if c.Cell.TimeSteps < 2 {
		return fmt.Errorf("%w: time steps must be >= 2, got %d", ErrInvalidConfig, c.Cell.TimeSteps)
	}
	if c.MaxPredictionSteps < 1 {
		return fmt.Errorf("%w: max prediction steps must be >= 1", ErrInvalidConfig)
	}
	if c.DutyCycleWindow < 1 {
		return fmt.Errorf("%w: duty cycle window must be >= 1", ErrInvalidConfig)
	}
	if c.Column.DesiredLocalActivity < 1 {
		return fmt.Errorf("%w: desired local activity must be >= 1", ErrInvalidConfig)
	}
	if c.Column.MinimalOverlap < 0 || c.Column.BoostRate < 0 {
		return fmt.Errorf("%w: minimal overlap and boost rate must be >= 0", ErrInvalidConfig)
	}
	if c.Cell.NewSynapseCount < 0 || c.Cell.ActivationThreshold < 0 || c.Cell.MinThreshold < 0 || c.Cell.AmountOfSynapses < 0 {
		return fmt.Errorf("%w: cell thresholds must be >= 0", ErrInvalidConfig)
	}
	for name, v := range map[string]float64{
		"connected_permanence": c.Synapse.ConnectedPermanence,
		"permanence_inc":       c.Synapse.PermanenceInc,
		"permanence_dec":       c.Synapse.PermanenceDec,
		"initial_permanence":   c.Synapse.InitialPermanence,
		"initial_spread":       c.Synapse.InitialSpread,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %f", ErrInvalidConfig, name, v)
		}
	}
	return nil
}
