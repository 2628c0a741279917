package dataextract

import (
	"cmp"
	"fmt"
	"math"

	"github.com/emer/emergent/popcode"
	"golang.org/x/exp/slices"
)

type ScalarEncoding struct {
	// Size is the number of input bits per pattern.
	Size int
	// ActiveBits is the number of on bits in each pattern.
	ActiveBits int
	// Min and Max bound the encoded range. When Min >= Max the range of the
	// series itself is used. Values outside the range are clamped.
	Min float64
	Max float64
}

// EncodeScalars population-codes each value over Size units with a gaussian
// bump and keeps the ActiveBits most active units as '1' bits. Nearby values
// share bits, so the region sees them as overlapping inputs.
func EncodeScalars(values []float64, enc ScalarEncoding) ([]string, error) {
	if enc.Size <= 0 {
		return nil, fmt.Errorf("encoding size must be > 0")
	}
	if enc.ActiveBits <= 0 || enc.ActiveBits > enc.Size {
		return nil, fmt.Errorf("active bits must be in [1,%d], got %d", enc.Size, enc.ActiveBits)
	}
	if len(values) == 0 {
		return []string{}, nil
	}

	lo, hi := enc.Min, enc.Max
	if lo >= hi {
		lo, hi = seriesRange(values)
	}

	var pc popcode.OneD
	pc.Defaults()
	pc.SetRange(0, 1, float32(enc.ActiveBits)/float32(enc.Size))

	acts := make([]float32, enc.Size)
	order := make([]int, enc.Size)
	out := make([]string, 0, len(values))
	for i, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("value %d is not finite", i)
		}
		if enc.Size == 1 {
			out = append(out, "1")
			continue
		}
		scaled := 0.0
		if hi > lo {
			scaled = (math.Max(lo, math.Min(hi, value)) - lo) / (hi - lo)
		}
		pc.Encode(&acts, float32(scaled), enc.Size, popcode.Set)
		out = append(out, topUnits(acts, order, enc.ActiveBits))
	}
	return out, nil
}

// topUnits renders the k most active units as a bit string. Ties go to the
// lower unit index.
func topUnits(acts []float32, order []int, k int) string {
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(acts[b], acts[a])
	})
	bits := make([]byte, len(acts))
	for i := range bits {
		bits[i] = '0'
	}
	for _, unit := range order[:k] {
		bits[unit] = '1'
	}
	return string(bits)
}
