package utils

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// PadRight pads s with spaces so its terminal display width reaches width.
func PadRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// PadLeft is PadRight for right-aligned columns.
func PadLeft(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return strings.Repeat(" ", width-sw) + s
}

// Table renders rows as space separated columns. The first row is taken as
// the header; columns listed in rightAlign are padded on the left.
func Table(rows [][]string, rightAlign ...int) []string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	right := map[int]bool{}
	for _, c := range rightAlign {
		right[c] = true
	}

	lines := make([]string, len(rows))
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if right[i] {
				cells[i] = PadLeft(cell, widths[i])
			} else {
				cells[i] = PadRight(cell, widths[i])
			}
		}
		lines[r] = strings.TrimRight(strings.Join(cells, "  "), " ")
	}
	return lines
}
