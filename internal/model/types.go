package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RegionGeometry is the layout a recording or run was made against.
type RegionGeometry struct {
	RegionWidth  int     `json:"region_width"`
	RegionHeight int     `json:"region_height"`
	InputWidth   int     `json:"input_width"`
	InputHeight  int     `json:"input_height"`
	InputRadius  float64 `json:"input_radius"`
}

// Recording is a named sequence of input patterns, each a row-major string
// of '1' and '0'.
type Recording struct {
	VersionedRecord
	Name     string         `json:"name"`
	Geometry RegionGeometry `json:"geometry"`
	Patterns []string       `json:"patterns"`
}

type RunRecord struct {
	VersionedRecord
	ID       string         `json:"id"`
	Scape    string         `json:"scape"`
	Seed     int64          `json:"seed"`
	Ticks    int            `json:"ticks"`
	Geometry RegionGeometry `json:"geometry"`

	CellsPerColumn int `json:"cells_per_column"`
	Segments       int `json:"segments"`
	Synapses       int `json:"synapses"`

	MeanPredictionRate  float64 `json:"mean_prediction_rate"`
	FinalPredictionRate float64 `json:"final_prediction_rate"`
	// CreatedAt is RFC3339, UTC.
	CreatedAt string `json:"created_at"`
}

type TickStats struct {
	Tick             int     `json:"tick"`
	ActiveColumns    int     `json:"active_columns"`
	PredictedColumns int     `json:"predicted_columns"`
	BurstingColumns  int     `json:"bursting_columns"`
	ActiveCells      int     `json:"active_cells"`
	LearningCells    int     `json:"learning_cells"`
	PredictiveCells  int     `json:"predictive_cells"`
	ChangedCells     int     `json:"changed_cells"`
	Segments         int     `json:"segments"`
	Synapses         int     `json:"synapses"`
	InhibitionRadius float64 `json:"inhibition_radius"`
	PredictionRate   float64 `json:"prediction_rate"`
}
