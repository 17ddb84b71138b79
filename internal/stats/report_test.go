package stats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/verte-zerg/attendr/internal/model"
)

type staticSource struct {
	data model.Data
	err  error
}

func (s staticSource) Load(context.Context) (model.Data, error) {
	return s.data, s.err
}

func TestBuildReport(t *testing.T) {
	cfg := model.ReportConfig{Today: mustDate(t, "2024-01-15")}
	report, err := BuildReport(context.Background(), staticSource{data: semesterFixture()}, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Subjects) != 4 || report.Subjects[0] != "Math" {
		t.Fatalf("unexpected subjects: %v", report.Subjects)
	}
	if len(report.Stats) != 4 || len(report.Trend) != 4 {
		t.Fatalf("expected stats and trend for every subject")
	}
	totals := report.Totals()
	sum := 0
	for _, s := range report.Stats {
		sum += s.TotalConducted
	}
	if totals.TotalConducted != sum || totals.Present+totals.Absent != totals.TotalConducted {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestBuildReportPropagatesLoadError(t *testing.T) {
	_, err := BuildReport(context.Background(), staticSource{err: errors.New("boom")}, model.ReportConfig{})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestRenderReport(t *testing.T) {
	data := singleMonday()
	data.Attendance = model.Attendance{
		"2024-01-01": {0: {Status: statusPtr(model.StatusAbsent)}},
	}
	report := NewReport(data, mustDate(t, "2024-01-01"))

	var buf bytes.Buffer
	if err := RenderReport(&buf, report, true, 0); err != nil {
		t.Fatalf("render report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Attendance as of 2024-01-01", "Safe Leaves", "Trend", "0.00%", "Below 75%: Math (+3)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderReportWithoutSubjects(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, NewReport(model.Data{}, mustDate(t, "2024-01-01")), false, 0); err != nil {
		t.Fatalf("render report: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No subjects configured." {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestRenderDay(t *testing.T) {
	plan := ResolveDay(semesterFixture(), mustDate(t, "2024-01-10"), mustDate(t, "2024-01-15"))
	var buf bytes.Buffer
	if err := RenderDay(&buf, plan); err != nil {
		t.Fatalf("render day: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"2024-01-10 (Wednesday) - not counted: holiday", model.SlotTimes[0], "Physics"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
