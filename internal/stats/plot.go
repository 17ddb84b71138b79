package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/verte-zerg/attendr/internal/model"
)

// Series is one subject curve on the trend chart.
type Series struct {
	Name   string
	Points []model.TrendPoint
}

const (
	defaultPlotHeight = 10
	minPlotWidth      = 10
	fallbackWidth     = 80
	axisLabelWidth    = 4
	axisSeparator     = " │ "
	scaleNote         = "Running attendance, 0-100% scale."
	thresholdLabel    = "75% line"
	colorReset        = "\x1b[0m"
	thresholdColor    = "\x1b[31m"
)

// dash patterns cycle per curve so curves stay apart without color.
var dashes = []struct {
	name    string
	period  int
	visible int
}{
	{"solid", 1, 1},
	{"dashed", 6, 3},
	{"dotted", 4, 1},
	{"dashdot", 8, 3},
}

var curveColors = []string{"\x1b[36m", "\x1b[35m", "\x1b[33m", "\x1b[32m", "\x1b[34m"}

// RenderTrend plots the running percentage of the given subjects against
// the 75% threshold. totalWidth <= 0 uses the terminal width.
func RenderTrend(w io.Writer, report Report, subjects []string, window, totalWidth, height int, useColor bool) error {
	series := make([]Series, 0, len(subjects))
	for _, sub := range subjects {
		points := lastPoints(report.Trend[sub], window)
		if len(points) == 0 {
			continue
		}
		series = append(series, Series{Name: sub, Points: points})
	}
	if len(series) == 0 {
		_, err := fmt.Fprintln(w, "No conducted classes yet.")
		return err
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeries(w, "Attendance Trend", series, width, height, useColor)
}

// PlotSeries draws the curves on a braille canvas with a dashed 75% rule.
// width <= 0 uses the terminal width; colors are used when forced or when
// w is a terminal, unless NO_COLOR is set.
func PlotSeries(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	if len(series) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	canvases := make([]*canvas, len(series))
	for i, s := range series {
		c := newCanvas(width, height)
		c.curve(resample(percentages(s.Points), width), dashes[i%len(dashes)].period, dashes[i%len(dashes)].visible)
		canvases[i] = c
	}
	ruleRow := percentRow(attendanceThreshold*100, height*4) / 4

	useColor := colorEnabled(w, forceColor)
	var b strings.Builder
	if title != "" {
		b.WriteString(title + "\n")
	}
	b.WriteString(scaleNote + "\n")
	for _, s := range series {
		b.WriteString(curveSummary(s) + "\n")
	}
	labels := axisLabels(height)
	for y := 0; y < height; y++ {
		fmt.Fprintf(&b, "%*s%s", axisLabelWidth, labels[y], axisSeparator)
		for x := 0; x < width; x++ {
			b.WriteString(cellAt(canvases, x, y, y == ruleRow, useColor))
		}
		b.WriteString("\n")
	}
	b.WriteString(dateAxis(series, width) + "\n")
	b.WriteString(legend(series, useColor) + "\n\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	width := totalWidth - axisLabelWidth - utf8.RuneCountInString(axisSeparator)
	if width < minPlotWidth {
		return minPlotWidth
	}
	return width
}

func lastPoints(points []model.TrendPoint, window int) []model.TrendPoint {
	if window > 0 && len(points) > window {
		return points[len(points)-window:]
	}
	return points
}

func percentages(points []model.TrendPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Percentage
	}
	return values
}

func curveSummary(s Series) string {
	now := s.Points[len(s.Points)-1].Percentage
	low := now
	for _, p := range s.Points {
		low = math.Min(low, p.Percentage)
	}
	line := fmt.Sprintf("%s: now=%.2f%% low=%.2f%%", s.Name, now, low)
	if now < attendanceThreshold*100 {
		line += " (below 75%)"
	}
	return line
}

func cellAt(canvases []*canvas, x, y int, onRule, useColor bool) string {
	var mask uint8
	owner := -1
	for i, c := range canvases {
		if m := c.cells[y][x]; m != 0 {
			if owner < 0 {
				owner = i
			}
			mask |= m
		}
	}
	switch {
	case owner >= 0:
		ch := string(rune(0x2800 + int(mask)))
		if useColor {
			return curveColors[owner%len(curveColors)] + ch + colorReset
		}
		return ch
	case onRule && x%2 == 0:
		if useColor {
			return thresholdColor + "╌" + colorReset
		}
		return "╌"
	default:
		return " "
	}
}

func axisLabels(height int) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = "100%"
	if height > 2 {
		labels[height/2] = "50%"
	}
	if height > 1 {
		labels[height-1] = "0%"
	}
	return labels
}

// dateAxis labels the first and last day of the longest curve.
func dateAxis(series []Series, width int) string {
	longest := series[0].Points
	for _, s := range series[1:] {
		if len(s.Points) > len(longest) {
			longest = s.Points
		}
	}
	first := longest[0].Date.Format(model.DateLayout)
	last := longest[len(longest)-1].Date.Format(model.DateLayout)
	pad := strings.Repeat(" ", axisLabelWidth+utf8.RuneCountInString(axisSeparator))
	if len(longest) == 1 || width < len(first)+len(last)+1 {
		return pad + first
	}
	return pad + first + strings.Repeat(" ", width-len(first)-len(last)) + last
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series)+1)
	for i, s := range series {
		label := fmt.Sprintf("⠁ %s (%s)", s.Name, dashes[i%len(dashes)].name)
		if useColor {
			label = curveColors[i%len(curveColors)] + label + colorReset
		}
		parts = append(parts, label)
	}
	rule := "╌ " + thresholdLabel
	if useColor {
		rule = thresholdColor + rule + colorReset
	}
	return "Legend: " + strings.Join(append(parts, rule), "  ")
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}

func colorEnabled(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// resample stretches or averages values to exactly width columns.
func resample(values []float64, width int) []float64 {
	n := len(values)
	if n == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	switch {
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[n-1]
		}
	case n > width:
		for i := range out {
			lo, hi := i*n/width, (i+1)*n/width
			if hi <= lo {
				hi = lo + 1
			}
			var sum float64
			for _, v := range values[lo:hi] {
				sum += v
			}
			out[i] = sum / float64(hi-lo)
		}
	default:
		step := float64(n-1) / float64(width-1)
		for i := range out {
			pos := float64(i) * step
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx] + (values[idx+1]-values[idx])*frac
		}
	}
	return out
}

// percentRow maps a 0-100 value to a dot row, 0 being the top.
func percentRow(pct float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	pct = math.Max(0, math.Min(100, pct))
	return int(math.Round((1 - pct/100) * float64(rows-1)))
}

// canvas is a grid of braille cells, each two dots wide and four tall.
type canvas struct {
	cells [][]uint8
}

func newCanvas(width, height int) *canvas {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return &canvas{cells: cells}
}

// dotBits is indexed by [dot row][dot column].
var dotBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

func (c *canvas) set(x, y int) {
	cy, cx := y/4, x/2
	if x < 0 || y < 0 || cy >= len(c.cells) || cx >= len(c.cells[cy]) {
		return
	}
	c.cells[cy][cx] |= dotBits[y%4][x%2]
}

// curve joins consecutive values with straight segments, plotting only the
// dots whose x falls in the visible part of the dash period.
func (c *canvas) curve(values []float64, period, visible int) {
	rows := len(c.cells) * 4
	plot := func(x, y int) {
		if period <= 1 || x%period < visible {
			c.set(x, y)
		}
	}
	for i, v := range values {
		x, y := i*2, percentRow(v, rows)
		if i == 0 {
			plot(x, y)
			continue
		}
		segment(2*(i-1), percentRow(values[i-1], rows), x, y, plot)
	}
}

// segment walks the integer points between two dots (Bresenham).
func segment(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
