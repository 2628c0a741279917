package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"htmsim/internal/htm"
)

// resolveView decides whether the column view is printed. auto only prints
// to a terminal.
func resolveView(mode string) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		fd := os.Stdout.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd), nil
	default:
		return false, fmt.Errorf("unknown view mode: %s", mode)
	}
}

// renderColumns draws the region one character per column:
//
//	X  active, every cell bursting
//	o  active through a prediction
//	+  predictive for the next tick
//	.  idle
func renderColumns(rep htm.Report, geom htm.Geometry, cellsPerColumn int) string {
	columns := geom.RegionWidth * geom.RegionHeight
	if columns <= 0 || cellsPerColumn <= 0 {
		return ""
	}
	active := make([]bool, columns)
	for _, c := range rep.ActiveColumns {
		if c >= 0 && c < columns {
			active[c] = true
		}
	}
	activeCells := make([]int, columns)
	for _, id := range rep.ActiveCells {
		if c := int(id) / cellsPerColumn; c < columns {
			activeCells[c]++
		}
	}
	predictive := make([]bool, columns)
	for _, id := range rep.PredictiveCells {
		if c := int(id) / cellsPerColumn; c < columns {
			predictive[c] = true
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "tick=%d active=%d predicted=%d bursting=%d\n", rep.Tick, len(rep.ActiveColumns), rep.PredictedColumns, rep.BurstingColumns)
	for y := 0; y < geom.RegionHeight; y++ {
		for x := 0; x < geom.RegionWidth; x++ {
			i := y*geom.RegionWidth + x
			switch {
			case active[i] && activeCells[i] >= cellsPerColumn:
				b.WriteByte('X')
			case active[i]:
				b.WriteByte('o')
			case predictive[i]:
				b.WriteByte('+')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
