package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/attendr/internal/model"
)

func points(t *testing.T, start string, values ...float64) []model.TrendPoint {
	t.Helper()
	day := mustDate(t, start)
	out := make([]model.TrendPoint, len(values))
	for i, v := range values {
		out[i] = model.TrendPoint{Date: day.AddDate(0, 0, 7*i), Percentage: v}
	}
	return out
}

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Points: points(t, "2024-01-01", 100, 80, 75, 70, 72)},
		{Name: "B", Points: points(t, "2024-01-02", 0, 50, 66.67, 75, 80)},
	}, 30, 4, false)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Test Plot", scaleNote, "A: now=72.00% low=70.00% (below 75%)", "B: now=80.00% low=0.00%\n", "Legend:", thresholdLabel, "2024-01-01", "2024-01-29"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color codes without a terminal")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// title, note, two summaries, four rows, date axis, legend
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d:\n%s", len(lines), out)
	}
}

func TestPlotSeriesColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "", []Series{{Name: "A", Points: points(t, "2024-01-01", 50)}}, 10, 3, true); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if !strings.Contains(buf.String(), colorReset) {
		t.Fatalf("expected forced color output: %q", buf.String())
	}
}

func TestResample(t *testing.T) {
	if got := resample([]float64{0, 100}, 5); got[0] != 0 || got[2] != 50 || got[4] != 100 {
		t.Fatalf("unexpected stretch: %v", got)
	}
	if got := resample([]float64{10, 20, 30, 40}, 2); got[0] != 15 || got[1] != 35 {
		t.Fatalf("unexpected average: %v", got)
	}
	if got := resample([]float64{42}, 3); got[0] != 42 || got[2] != 42 {
		t.Fatalf("unexpected single value: %v", got)
	}
	if resample(nil, 3) != nil || resample([]float64{1}, 0) != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestCanvasCurveStaysInBounds(t *testing.T) {
	c := newCanvas(4, 2)
	c.curve([]float64{100, 0, 120, -5}, 1, 1)
	if c.cells[0][0]&dotBits[0][0] == 0 {
		t.Fatalf("expected top-left dot for 100%%")
	}
	if c.cells[1][1]&dotBits[3][0] == 0 {
		t.Fatalf("expected bottom dot for 0%%")
	}
}

func TestRenderTrendAddsThreshold(t *testing.T) {
	data := semesterFixture()
	report := NewReport(data, mustDate(t, "2024-01-15"))

	var buf bytes.Buffer
	if err := RenderTrend(&buf, report, []string{"Math", "Physics"}, 0, 60, 6, false); err != nil {
		t.Fatalf("RenderTrend failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Attendance Trend", "Math: now=", "Physics: now=", thresholdLabel} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output: %s", want, out)
		}
	}
	if strings.Contains(out, thresholdLabel+": now=") {
		t.Fatalf("threshold line must not get a summary row")
	}
}

func TestRenderTrendWithoutHistory(t *testing.T) {
	report := NewReport(singleMonday(), mustDate(t, "2023-12-01"))
	var buf bytes.Buffer
	if err := RenderTrend(&buf, report, []string{"Math"}, 0, 60, 6, false); err != nil {
		t.Fatalf("RenderTrend failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No conducted classes yet." {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestPlotWidthLeavesRoomForAxis(t *testing.T) {
	// The label column plus " │ " takes seven columns.
	cases := map[int]int{80: 73, 17: 10, 12: minPlotWidth, 0: minPlotWidth}
	for total, want := range cases {
		if got := PlotWidthFor(total); got != want {
			t.Fatalf("PlotWidthFor(%d)=%d want %d", total, got, want)
		}
	}
}

func TestAxisLabels(t *testing.T) {
	labels := axisLabels(5)
	if labels[0] != "100%" || labels[2] != "50%" || labels[4] != "0%" || labels[1] != "" {
		t.Fatalf("unexpected labels: %q", labels)
	}
}
