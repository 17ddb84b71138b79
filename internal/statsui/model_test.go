package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/attendr/internal/model"
)

type staticSource struct {
	data model.Data
	err  error
}

func (s staticSource) Load(context.Context) (model.Data, error) {
	return s.data, s.err
}

func fixture() model.Data {
	absent := model.StatusAbsent
	return model.Data{
		Settings: model.Settings{
			SemesterStart:   "2024-01-01",
			LastWorkingDate: "2024-01-31",
			Subjects:        []string{"Math", "Physics"},
			Timetable: model.Timetable{
				"Monday":  {0: "Math", 1: "Physics"},
				"Tuesday": {0: "Physics"},
			},
		},
		Attendance: model.Attendance{
			"2024-01-01": {0: {Status: &absent}},
			"2024-01-08": {0: {Status: &absent}},
		},
	}
}

func newTestModel(t *testing.T, src staticSource) *Model {
	t.Helper()
	m := NewModel(src, model.ReportConfig{Today: time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModelSelectsSubjectsAtRisk(t *testing.T) {
	m := newTestModel(t, staticSource{data: fixture()})
	if m.errMsg != "" {
		t.Fatalf("unexpected error: %s", m.errMsg)
	}
	if len(m.trendSelection) != 2 || m.trendSelection[0] != "Math" {
		t.Fatalf("expected Math first, got %v", m.trendSelection)
	}
	view := m.View()
	if !strings.Contains(view, "Overview") || !strings.Contains(view, "Today: 2024-01-16") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestOverviewContent(t *testing.T) {
	m := newTestModel(t, staticSource{data: fixture()})
	content := renderOverview(m.report, 100)
	for _, want := range []string{"Overall", "Math", "Physics", "Math needs"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in overview:\n%s", want, content)
		}
	}
}

func TestDayNavigation(t *testing.T) {
	m := newTestModel(t, staticSource{data: fixture()})
	m.Update(keyMsg("]"))
	if got := m.day.Format(model.DateLayout); got != "2024-01-17" {
		t.Fatalf("expected next day, got %s", got)
	}
	m.Update(keyMsg("["))
	m.Update(keyMsg("["))
	if got := m.day.Format(model.DateLayout); got != "2024-01-15" {
		t.Fatalf("expected previous day, got %s", got)
	}
	content := renderDay(m.report, m.day)
	if !strings.Contains(content, "2024-01-15 (Monday)") || !strings.Contains(content, "Physics") {
		t.Fatalf("unexpected day view:\n%s", content)
	}
	m.Update(keyMsg("t"))
	if !m.day.Equal(m.cfg.Today) {
		t.Fatalf("expected day reset to today, got %s", m.day)
	}
}

func TestTrendWindowKeys(t *testing.T) {
	m := newTestModel(t, staticSource{data: fixture()})
	m.Update(keyMsg("="))
	if m.cfg.TrendWindow != 5 {
		t.Fatalf("expected window 5, got %d", m.cfg.TrendWindow)
	}
	m.Update(keyMsg("="))
	m.Update(keyMsg("-"))
	m.Update(keyMsg("-"))
	if m.cfg.TrendWindow != 0 {
		t.Fatalf("expected whole-semester window, got %d", m.cfg.TrendWindow)
	}
}

func TestSettingsForm(t *testing.T) {
	m := newTestModel(t, staticSource{data: fixture()})
	m.Update(keyMsg("/"))
	if !m.form.open {
		t.Fatalf("expected settings form to open")
	}
	m.form.inputs[fieldToday].SetValue("2024-01-02")
	m.form.inputs[fieldWindow].SetValue("10")
	m.form.inputs[fieldCurves].SetValue("1")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.form.open {
		t.Fatalf("expected settings form to close, error %q", m.form.err)
	}
	if got := m.cfg.Today.Format(model.DateLayout); got != "2024-01-02" {
		t.Fatalf("unexpected today %s", got)
	}
	if m.cfg.TrendWindow != 10 || m.cfg.TrendTop != 1 || len(m.trendSelection) != 1 {
		t.Fatalf("unexpected config %+v selection %v", m.cfg, m.trendSelection)
	}
	if got := m.report.Stats["Math"].TotalConducted; got != 1 {
		t.Fatalf("expected report recomputed as of new today, got %d conducted", got)
	}

	m.form.start(m.cfg)
	m.form.inputs[fieldToday].SetValue("02/01/2024")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.form.open || m.form.err == "" {
		t.Fatalf("expected invalid date to keep the form open")
	}
}

func TestApplySubjectInput(t *testing.T) {
	m := newTestModel(t, staticSource{data: fixture()})
	m.subjectInput.SetValue("Physics, Physics")
	if err := m.applySubjectInput(); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !m.trendSelectionCustom || len(m.trendSelection) != 1 || m.trendSelection[0] != "Physics" {
		t.Fatalf("unexpected selection %v", m.trendSelection)
	}
	m.subjectInput.SetValue("Biology")
	if err := m.applySubjectInput(); err == nil {
		t.Fatalf("expected unknown subject error")
	}
	m.subjectInput.SetValue("")
	if err := m.applySubjectInput(); err != nil || m.trendSelectionCustom {
		t.Fatalf("expected fallback to subjects at risk, got %v %v", m.trendSelection, err)
	}
}

func TestLoadError(t *testing.T) {
	m := newTestModel(t, staticSource{err: errors.New("database locked")})
	if m.errMsg == "" {
		t.Fatalf("expected error message")
	}
	if !strings.Contains(m.View(), "database locked") {
		t.Fatalf("expected error in footer:\n%s", m.View())
	}
}

func TestTrendWindowSteps(t *testing.T) {
	cases := []struct{ in, next, prev int }{
		{in: 0, next: 5, prev: 0},
		{in: 3, next: 5, prev: 0},
		{in: 5, next: 10, prev: 0},
		{in: 12, next: 15, prev: 10},
		{in: 20, next: 25, prev: 15},
	}
	for _, c := range cases {
		if got := nextTrendWindow(c.in); got != c.next {
			t.Fatalf("nextTrendWindow(%d)=%d want %d", c.in, got, c.next)
		}
		if got := prevTrendWindow(c.in); got != c.prev {
			t.Fatalf("prevTrendWindow(%d)=%d want %d", c.in, got, c.prev)
		}
	}
}

func TestHelpLinePerTab(t *testing.T) {
	keys := defaultKeyMap()
	if got := helpLine(keys.helpFor(tabDay)); got != "Nav: left/right  Day: [/]  Back to today: t  Settings: /  Quit: q" {
		t.Fatalf("unexpected day help %q", got)
	}
	if got := helpLine(keys.helpFor(tabTrend)); !strings.Contains(got, "Edit subjects: enter") {
		t.Fatalf("expected subject editing in trend help, got %q", got)
	}
}

func TestQuitIgnoredWhileEditing(t *testing.T) {
	m := newTestModel(t, staticSource{data: fixture()})
	if _, cmd := m.Update(keyMsg("q")); cmd == nil {
		t.Fatalf("expected quit command")
	}
	m.form.start(m.cfg)
	m.Update(keyMsg("q"))
	if !m.form.open || m.form.inputs[fieldToday].Value() != "2024-01-16q" {
		t.Fatalf("expected q to be typed into the form, got %q", m.form.inputs[fieldToday].Value())
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Fatalf("expected ctrl+c to quit from the form")
	}
}

func TestFitLines(t *testing.T) {
	got := fitLines("ab\ncdef\nx", 3, 2)
	if got != "ab \ncdef" {
		t.Fatalf("unexpected fit %q", got)
	}
	if truncateLine("attendance", 7) != "atte..." {
		t.Fatalf("unexpected truncation %q", truncateLine("attendance", 7))
	}
}
