package htm

// Report summarises one tick. ChangedCells lists the cells whose segments
// were created or modified by the learning phase.
type Report struct {
	Tick             int
	ActiveColumns    []int
	PredictedColumns int
	BurstingColumns  int
	ActiveCells      []CellID
	LearningCells    []CellID
	PredictiveCells  []CellID
	ChangedCells     []CellID
	InhibitionRadius float64
}

// PredictionRate is the fraction of active columns whose activity had been
// predicted one tick earlier.
func (r Report) PredictionRate() float64 {
	if len(r.ActiveColumns) == 0 {
		return 0
	}
	return float64(r.PredictedColumns) / float64(len(r.ActiveColumns))
}

func (r *Region) report(predicted int, changed []CellID) Report {
	rep := Report{
		Tick:             r.tick,
		ActiveColumns:    r.ActiveColumns(),
		PredictedColumns: predicted,
		ChangedCells:     changed,
		InhibitionRadius: r.inhibitionRadius,
	}
	rep.BurstingColumns = len(rep.ActiveColumns) - predicted
	for _, cell := range r.cells {
		if cell.IsActive(Now) {
			rep.ActiveCells = append(rep.ActiveCells, cell.id)
		}
		if cell.IsLearning(Now) {
			rep.LearningCells = append(rep.LearningCells, cell.id)
		}
		if cell.IsPredictive(Now) {
			rep.PredictiveCells = append(rep.PredictiveCells, cell.id)
		}
	}
	return rep
}
