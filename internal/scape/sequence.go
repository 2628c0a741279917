package scape

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"htmsim/internal/htm"
	"htmsim/internal/model"
)

// SequenceScape cycles through a fixed list of patterns.
type SequenceScape struct {
	name     string
	width    int
	height   int
	patterns [][]bool
}

func NewSequenceScape(name string, width, height int, patterns [][]bool) (*SequenceScape, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("scape %s: dimensions must be > 0, got %dx%d", name, width, height)
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("scape %s: %w", name, ErrEmptyScape)
	}
	copied := make([][]bool, len(patterns))
	for i, p := range patterns {
		if len(p) != width*height {
			return nil, fmt.Errorf("scape %s pattern %d: %w: got %d bits, want %d", name, i, htm.ErrPatternSize, len(p), width*height)
		}
		copied[i] = append([]bool(nil), p...)
	}
	return &SequenceScape{name: name, width: width, height: height, patterns: copied}, nil
}

// NewSequenceScapeFromStrings parses each pattern with htm.ParsePattern.
func NewSequenceScapeFromStrings(name string, width, height int, patterns []string) (*SequenceScape, error) {
	parsed := make([][]bool, 0, len(patterns))
	for i, p := range patterns {
		bits, err := htm.ParsePattern(p)
		if err != nil {
			return nil, fmt.Errorf("scape %s pattern %d: %w", name, i, err)
		}
		parsed = append(parsed, bits)
	}
	return NewSequenceScape(name, width, height, parsed)
}

// FromRecording replays a stored recording.
func FromRecording(recording model.Recording) (*SequenceScape, error) {
	return NewSequenceScapeFromStrings(recording.Name, recording.Geometry.InputWidth, recording.Geometry.InputHeight, recording.Patterns)
}

// LoadSequenceFile reads one pattern per line. Blank lines and lines
// starting with '#' are skipped.
func LoadSequenceFile(path string, width, height int) (*SequenceScape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sequence file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sequence file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewSequenceScapeFromStrings(name, width, height, patterns)
}

func (s *SequenceScape) Name() string {
	return s.name
}

func (s *SequenceScape) Width() int {
	return s.width
}

func (s *SequenceScape) Height() int {
	return s.height
}

func (s *SequenceScape) Period() int {
	return len(s.patterns)
}

func (s *SequenceScape) Pattern(tick int) []bool {
	i := tick % len(s.patterns)
	if i < 0 {
		i += len(s.patterns)
	}
	return append([]bool(nil), s.patterns[i]...)
}

// Strings returns every pattern formatted with htm.FormatPattern.
func (s *SequenceScape) Strings() []string {
	out := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		out[i] = htm.FormatPattern(p)
	}
	return out
}

// NewAlternatingScape switches between the left and right halves of the
// input on every tick.
func NewAlternatingScape(width, height int) (*SequenceScape, error) {
	if width < 2 {
		return nil, fmt.Errorf("alternating scape needs width >= 2, got %d", width)
	}
	a := make([]bool, width*height)
	b := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				a[y*width+x] = true
			} else {
				b[y*width+x] = true
			}
		}
	}
	return NewSequenceScape("alternating", width, height, [][]bool{a, b})
}

// NewBlockSequenceScape splits the input into n equal runs of bits, in
// row-major order, and lights them one after another.
func NewBlockSequenceScape(width, height, n int) (*SequenceScape, error) {
	size := width * height
	if n <= 0 || n > size {
		return nil, fmt.Errorf("block sequence needs 1..%d blocks, got %d", size, n)
	}
	block := size / n
	patterns := make([][]bool, n)
	for i := range patterns {
		patterns[i] = make([]bool, size)
		for b := i * block; b < (i+1)*block; b++ {
			patterns[i][b] = true
		}
	}
	return NewSequenceScape("sequence", width, height, patterns)
}
