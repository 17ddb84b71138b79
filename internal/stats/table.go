package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const columnGap = "  "

// FormatTable aligns rows under headers; rightAlignCols selects numeric columns.
// Widths are measured in terminal cells so wide runes line up.
func FormatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	return formatTable(headers, rows, rightAlignCols)
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	all := rows
	if len(headers) > 0 {
		all = append([][]string{headers}, rows...)
	}
	widths := columnWidths(all)
	if len(widths) == 0 {
		return nil
	}
	lines := make([]string, len(all))
	for i, row := range all {
		cells := make([]string, len(widths))
		for col, width := range widths {
			var cell string
			if col < len(row) {
				cell = row[col]
			}
			if rightAlignCols[col] {
				cells[col] = runewidth.FillLeft(cell, width)
			} else {
				cells[col] = runewidth.FillRight(cell, width)
			}
		}
		lines[i] = strings.TrimRight(strings.Join(cells, columnGap), " ")
	}
	return lines
}

// columnWidths returns the widest cell per column across ragged rows.
func columnWidths(rows [][]string) []int {
	var widths []int
	for _, row := range rows {
		for col, cell := range row {
			if col == len(widths) {
				widths = append(widths, 0)
			}
			if w := runewidth.StringWidth(cell); w > widths[col] {
				widths[col] = w
			}
		}
	}
	return widths
}
