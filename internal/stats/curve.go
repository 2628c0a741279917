package stats

import "htmsim/internal/model"

type CurvePoint struct {
	Tick  int     `json:"tick"`
	Value float64 `json:"value"`
}

// AverageCurve averages several per-tick series, bucketed into windows of
// window ticks. Series may differ in length; each point only averages the
// series that reach it.
func AverageCurve(series [][]float64, window int) []CurvePoint {
	if window <= 0 {
		window = 1
	}
	longest := 0
	for _, s := range series {
		if len(s) > longest {
			longest = len(s)
		}
	}
	points := make([]CurvePoint, 0, longest/window+1)
	for start := 0; start < longest; start += window {
		sum, n := 0.0, 0
		for _, s := range series {
			for i := start; i < start+window && i < len(s); i++ {
				sum += s[i]
				n++
			}
		}
		if n == 0 {
			continue
		}
		points = append(points, CurvePoint{Tick: start + window, Value: sum / float64(n)})
	}
	return points
}

// PeakCurve reports the maximum of each series, one point per series.
func PeakCurve(series [][]float64) []CurvePoint {
	points := make([]CurvePoint, 0, len(series))
	for i, s := range series {
		if len(s) == 0 {
			continue
		}
		peak := s[0]
		for _, v := range s[1:] {
			if v > peak {
				peak = v
			}
		}
		points = append(points, CurvePoint{Tick: i, Value: peak})
	}
	return points
}

// PredictionRates extracts the prediction-rate series of a tick history.
func PredictionRates(history []model.TickStats) []float64 {
	out := make([]float64, len(history))
	for i, t := range history {
		out[i] = t.PredictionRate
	}
	return out
}
