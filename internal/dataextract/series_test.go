package dataextract

import (
	"math"
	"strings"
	"testing"
)

func TestExtractSeriesByHeaderName(t *testing.T) {
	in := strings.NewReader("t,close,volume\n0,1.01,10\n\n1,1.02,11\n")
	values, err := ExtractSeries(in, SeriesOptions{
		HasHeader:        true,
		ValueColumnName:  "Close",
		ValueColumnIndex: -1,
	})
	if err != nil {
		t.Fatalf("extract series: %v", err)
	}
	if len(values) != 2 || values[0] != 1.01 || values[1] != 1.02 {
		t.Fatalf("unexpected series: %v", values)
	}
}

func TestExtractSeriesDefaultsToLastHeaderColumn(t *testing.T) {
	in := strings.NewReader("t,value,\n0,3,\n1,4,\n")
	values, err := ExtractSeries(in, SeriesOptions{HasHeader: true, ValueColumnIndex: -1})
	if err != nil {
		t.Fatalf("extract series: %v", err)
	}
	if len(values) != 2 || values[0] != 3 || values[1] != 4 {
		t.Fatalf("unexpected series: %v", values)
	}
}

func TestExtractSeriesNormalize(t *testing.T) {
	values, err := ExtractSeries(strings.NewReader("close\n10\n20\n30\n"), SeriesOptions{
		HasHeader:       true,
		ValueColumnName: "close",
		Normalize:       "minmax",
	})
	if err != nil {
		t.Fatalf("minmax: %v", err)
	}
	if values[0] != 0 || values[1] != 0.5 || values[2] != 1 {
		t.Fatalf("unexpected minmax values: %v", values)
	}

	values, err = ExtractSeries(strings.NewReader("close\n10\n20\n30\n"), SeriesOptions{
		HasHeader:       true,
		ValueColumnName: "close",
		Normalize:       "zscore",
	})
	if err != nil {
		t.Fatalf("zscore: %v", err)
	}
	if math.Abs(values[0]+1.224744871391589) > 1e-12 || values[1] != 0 || math.Abs(values[2]-1.224744871391589) > 1e-12 {
		t.Fatalf("unexpected zscore values: %v", values)
	}
}

func TestExtractSeriesErrors(t *testing.T) {
	if _, err := ExtractSeries(strings.NewReader("a,b\n1,2\n"), SeriesOptions{HasHeader: true, ValueColumnName: "c"}); err == nil {
		t.Fatal("expected missing column error")
	}
	if _, err := ExtractSeries(strings.NewReader("1\nx\n"), SeriesOptions{}); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := ExtractSeries(strings.NewReader("1,2\n3\n"), SeriesOptions{ValueColumnIndex: 1}); err == nil {
		t.Fatal("expected short row error")
	}
	if _, err := NormalizeSeries([]float64{1}, "log"); err == nil {
		t.Fatal("expected unsupported normalization error")
	}
}

func TestEncodeScalars(t *testing.T) {
	patterns, err := EncodeScalars([]float64{0, 3, 7, 20}, ScalarEncoding{Size: 8, ActiveBits: 3, Min: 0, Max: 7})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []string{"11100000", "00111000", "00000111", "00000111"}
	for i := range want {
		if patterns[i] != want[i] {
			t.Fatalf("pattern %d: got %s want %s", i, patterns[i], want[i])
		}
	}
}

func TestEncodeScalarsUsesSeriesRange(t *testing.T) {
	patterns, err := EncodeScalars([]float64{2, 4}, ScalarEncoding{Size: 4, ActiveBits: 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if patterns[0] != "1100" || patterns[1] != "0011" {
		t.Fatalf("unexpected patterns: %v", patterns)
	}

	flat, err := EncodeScalars([]float64{7, 7}, ScalarEncoding{Size: 4, ActiveBits: 2})
	if err != nil {
		t.Fatalf("encode flat: %v", err)
	}
	if flat[0] != "1100" || flat[1] != "1100" {
		t.Fatalf("flat series should sit in the first bucket: %v", flat)
	}
}

func TestEncodeScalarsNeighboursOverlap(t *testing.T) {
	patterns, err := EncodeScalars([]float64{0, 1, 3, 9}, ScalarEncoding{Size: 10, ActiveBits: 4, Min: 0, Max: 9})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	overlap := func(a, b string) int {
		n := 0
		for i := range a {
			if a[i] == '1' && b[i] == '1' {
				n++
			}
		}
		return n
	}
	for i, p := range patterns {
		if got := strings.Count(p, "1"); got != 4 {
			t.Fatalf("pattern %d has %d on bits: %s", i, got, p)
		}
	}
	if overlap(patterns[0], patterns[1]) <= overlap(patterns[0], patterns[2]) {
		t.Fatalf("closer values should share more bits: %v", patterns)
	}
	if overlap(patterns[0], patterns[3]) != 0 {
		t.Fatalf("range ends should not overlap: %v", patterns)
	}

	single, err := EncodeScalars([]float64{5}, ScalarEncoding{Size: 1, ActiveBits: 1})
	if err != nil || single[0] != "1" {
		t.Fatalf("single unit encoding: %v %v", single, err)
	}
}

func TestEncodeScalarsRejectsBadEncoding(t *testing.T) {
	if _, err := EncodeScalars([]float64{1}, ScalarEncoding{Size: 0, ActiveBits: 1}); err == nil {
		t.Fatal("expected size error")
	}
	if _, err := EncodeScalars([]float64{1}, ScalarEncoding{Size: 4, ActiveBits: 5}); err == nil {
		t.Fatal("expected active bits error")
	}
	if _, err := EncodeScalars([]float64{math.NaN()}, ScalarEncoding{Size: 4, ActiveBits: 1}); err == nil {
		t.Fatal("expected non-finite error")
	}
}
