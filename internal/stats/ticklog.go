package stats

import (
	"bytes"
	"fmt"
	"io"

	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"

	"htmsim/internal/htm"
	"htmsim/internal/model"
)

// tickColumns is the column order of the tick log.
var tickColumns = []string{
	"Tick",
	"ActiveColumns",
	"PredictedColumns",
	"BurstingColumns",
	"ActiveCells",
	"LearningCells",
	"PredictiveCells",
	"ChangedCells",
	"Segments",
	"Synapses",
	"InhibitionRadius",
	"PredictionRate",
}

// TickLog accumulates one row per tick in an etable.Table.
type TickLog struct {
	table *etable.Table
}

func NewTickLog() *TickLog {
	dt := &etable.Table{}
	dt.SetMetaData("name", "TickLog")
	dt.SetMetaData("desc", "Record of region activity per tick")
	dt.SetMetaData("read-only", "true")
	dt.SetMetaData("precision", "8")
	sch := etable.Schema{}
	for _, name := range tickColumns {
		kind := etensor.INT64
		if name == "InhibitionRadius" || name == "PredictionRate" {
			kind = etensor.FLOAT64
		}
		sch = append(sch, etable.Column{Name: name, Type: kind, CellShape: nil, DimNames: nil})
	}
	dt.SetFromSchema(sch, 0)
	return &TickLog{table: dt}
}

// TickStatsFromReport condenses a tick report. segments and synapses are the
// region totals after the tick.
func TickStatsFromReport(rep htm.Report, segments, synapses int) model.TickStats {
	return model.TickStats{
		Tick:             rep.Tick,
		ActiveColumns:    len(rep.ActiveColumns),
		PredictedColumns: rep.PredictedColumns,
		BurstingColumns:  rep.BurstingColumns,
		ActiveCells:      len(rep.ActiveCells),
		LearningCells:    len(rep.LearningCells),
		PredictiveCells:  len(rep.PredictiveCells),
		ChangedCells:     len(rep.ChangedCells),
		Segments:         segments,
		Synapses:         synapses,
		InhibitionRadius: rep.InhibitionRadius,
		PredictionRate:   rep.PredictionRate(),
	}
}

func (l *TickLog) Append(s model.TickStats) {
	dt := l.table
	row := dt.Rows
	dt.SetNumRows(row + 1)
	for i, v := range tickValues(s) {
		dt.SetCellFloat(tickColumns[i], row, v)
	}
}

func (l *TickLog) Rows() int {
	return l.table.Rows
}

// Table exposes the underlying table for analysis.
func (l *TickLog) Table() *etable.Table {
	return l.table
}

// Stats reads every row back.
func (l *TickLog) Stats() []model.TickStats {
	dt := l.table
	out := make([]model.TickStats, dt.Rows)
	for row := range out {
		values := make([]float64, len(tickColumns))
		for i, name := range tickColumns {
			values[i] = dt.CellFloat(name, row)
		}
		out[row] = tickStatsFromValues(values)
	}
	return out
}

// WriteTSV writes a header line followed by one line per tick.
func (l *TickLog) WriteTSV(w io.Writer) error {
	var buf bytes.Buffer
	dt := l.table
	if _, err := dt.WriteCSVHeaders(&buf, etable.Tab); err != nil {
		return fmt.Errorf("write tick log header: %w", err)
	}
	for row := 0; row < dt.Rows; row++ {
		if err := dt.WriteCSVRow(&buf, row, etable.Tab); err != nil {
			return fmt.Errorf("write tick log row %d: %w", row, err)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadTickTSV parses the output of WriteTSV into a fresh table. Every tick
// column must be present.
func ReadTickTSV(r io.Reader) ([]model.TickStats, error) {
	dt := &etable.Table{}
	if err := dt.ReadCSV(r, etable.Tab); err != nil {
		return nil, fmt.Errorf("read tick log: %w", err)
	}
	if dt.NumCols() == 0 {
		return []model.TickStats{}, nil
	}
	for _, name := range tickColumns {
		if _, err := dt.ColIdxTry(name); err != nil {
			return nil, fmt.Errorf("tick log: %w", err)
		}
	}
	return (&TickLog{table: dt}).Stats(), nil
}

func tickValues(s model.TickStats) []float64 {
	return []float64{
		float64(s.Tick),
		float64(s.ActiveColumns),
		float64(s.PredictedColumns),
		float64(s.BurstingColumns),
		float64(s.ActiveCells),
		float64(s.LearningCells),
		float64(s.PredictiveCells),
		float64(s.ChangedCells),
		float64(s.Segments),
		float64(s.Synapses),
		s.InhibitionRadius,
		s.PredictionRate,
	}
}

func tickStatsFromValues(v []float64) model.TickStats {
	return model.TickStats{
		Tick:             int(v[0]),
		ActiveColumns:    int(v[1]),
		PredictedColumns: int(v[2]),
		BurstingColumns:  int(v[3]),
		ActiveCells:      int(v[4]),
		LearningCells:    int(v[5]),
		PredictiveCells:  int(v[6]),
		ChangedCells:     int(v[7]),
		Segments:         int(v[8]),
		Synapses:         int(v[9]),
		InhibitionRadius: v[10],
		PredictionRate:   v[11],
	}
}

// Summary aggregates a tick history.
type Summary struct {
	Ticks               int     `json:"ticks"`
	MeanPredictionRate  float64 `json:"mean_prediction_rate"`
	FinalPredictionRate float64 `json:"final_prediction_rate"`
	MeanActiveColumns   float64 `json:"mean_active_columns"`
	PeakSegments        int     `json:"peak_segments"`
	PeakSynapses        int     `json:"peak_synapses"`
}

func Summarize(history []model.TickStats) Summary {
	s := Summary{Ticks: len(history)}
	if len(history) == 0 {
		return s
	}
	for _, t := range history {
		s.MeanPredictionRate += t.PredictionRate
		s.MeanActiveColumns += float64(t.ActiveColumns)
		if t.Segments > s.PeakSegments {
			s.PeakSegments = t.Segments
		}
		if t.Synapses > s.PeakSynapses {
			s.PeakSynapses = t.Synapses
		}
	}
	n := float64(len(history))
	s.MeanPredictionRate /= n
	s.MeanActiveColumns /= n
	s.FinalPredictionRate = history[len(history)-1].PredictionRate
	return s
}
