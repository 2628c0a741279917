package dataextract

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

type SeriesOptions struct {
	HasHeader        bool
	ValueColumnName  string
	ValueColumnIndex int
	Normalize        string
}

// ExtractSeries reads one numeric column of a CSV stream. Blank rows are
// skipped. With a header and no column name, a negative index selects the
// last non-empty header column.
func ExtractSeries(in io.Reader, opts SeriesOptions) ([]float64, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	valueIdx := opts.ValueColumnIndex
	row := 0
	if opts.HasHeader {
		header, err := reader.Read()
		if err == io.EOF {
			return []float64{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read series header: %w", err)
		}
		row++
		if strings.TrimSpace(opts.ValueColumnName) != "" {
			idx, err := columnIndexByName(header, opts.ValueColumnName)
			if err != nil {
				return nil, err
			}
			valueIdx = idx
		} else if valueIdx < 0 {
			valueIdx = lastNonEmptyColumn(header)
		}
	}
	if valueIdx < 0 {
		valueIdx = 0
	}

	values := make([]float64, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read series row %d: %w", row+1, err)
		}
		row++
		if blankRecord(record) {
			continue
		}
		if valueIdx >= len(record) {
			return nil, fmt.Errorf("series row %d missing value column index %d", row, valueIdx)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(record[valueIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse series value row %d: %w", row, err)
		}
		values = append(values, value)
	}

	return NormalizeSeries(values, opts.Normalize)
}

// NormalizeSeries returns a normalized copy of values. Supported modes are
// "none" (or empty), "minmax" and "zscore".
func NormalizeSeries(values []float64, mode string) ([]float64, error) {
	out := append([]float64(nil), values...)
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "none":
		return out, nil
	case "minmax":
		return normalizeMinMax(out), nil
	case "zscore":
		return normalizeZScore(out), nil
	default:
		return nil, fmt.Errorf("unsupported series normalization mode: %s", mode)
	}
}

func normalizeMinMax(values []float64) []float64 {
	if len(values) == 0 {
		return values
	}
	minValue, maxValue := seriesRange(values)
	rangeValue := maxValue - minValue
	if rangeValue == 0 {
		for i := range values {
			values[i] = 0
		}
		return values
	}
	for i := range values {
		values[i] = (values[i] - minValue) / rangeValue
	}
	return values
}

func normalizeZScore(values []float64) []float64 {
	if len(values) == 0 {
		return values
	}
	mean := 0.0
	for _, value := range values {
		mean += value
	}
	mean /= float64(len(values))

	sumSq := 0.0
	for _, value := range values {
		diff := value - mean
		sumSq += diff * diff
	}
	std := math.Sqrt(sumSq / float64(len(values)))
	if std == 0 {
		for i := range values {
			values[i] = 0
		}
		return values
	}
	for i := range values {
		values[i] = (values[i] - mean) / std
	}
	return values
}

func seriesRange(values []float64) (float64, float64) {
	minValue := values[0]
	maxValue := values[0]
	for _, value := range values[1:] {
		if value < minValue {
			minValue = value
		}
		if value > maxValue {
			maxValue = value
		}
	}
	return minValue, maxValue
}

func columnIndexByName(header []string, name string) (int, error) {
	want := strings.TrimSpace(strings.ToLower(name))
	for i, field := range header {
		if strings.ToLower(strings.TrimSpace(field)) == want {
			return i, nil
		}
	}
	return -1, fmt.Errorf("csv column not found: %s", name)
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func lastNonEmptyColumn(record []string) int {
	for i := len(record) - 1; i >= 0; i-- {
		if strings.TrimSpace(record[i]) != "" {
			return i
		}
	}
	return 0
}
