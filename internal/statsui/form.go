package statsui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/attendr/internal/model"
	"github.com/verte-zerg/attendr/internal/stats"
)

const (
	fieldToday = iota
	fieldWindow
	fieldCurves
)

// settingsForm edits the reference day and the trend options.
type settingsForm struct {
	open   bool
	inputs []textinput.Model
	focus  int
	err    string
}

func newSettingsForm() settingsForm {
	return settingsForm{inputs: []textinput.Model{
		fieldToday:  newInput("Today (YYYY-MM-DD): "),
		fieldWindow: newInput("Trend window: "),
		fieldCurves: newInput("Trend curves: "),
	}}
}

func newInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// start opens the form prefilled from cfg. A zero window shows as empty.
func (f *settingsForm) start(cfg model.ReportConfig) tea.Cmd {
	f.open = true
	f.err = ""
	f.inputs[fieldToday].SetValue(cfg.Today.Format(model.DateLayout))
	window := ""
	if cfg.TrendWindow > 0 {
		window = strconv.Itoa(cfg.TrendWindow)
	}
	f.inputs[fieldWindow].SetValue(window)
	f.inputs[fieldCurves].SetValue(strconv.Itoa(cfg.TrendTop))
	return f.focusField(fieldToday)
}

func (f *settingsForm) close() {
	f.open = false
	f.err = ""
}

func (f *settingsForm) focusField(idx int) tea.Cmd {
	n := len(f.inputs)
	f.focus = (idx%n + n) % n
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == f.focus {
			cmd = f.inputs[i].Focus()
			continue
		}
		f.inputs[i].Blur()
	}
	return cmd
}

func (f *settingsForm) setWidth(width int) {
	for i := range f.inputs {
		f.inputs[i].Width = max(10, width-lipgloss.Width(f.inputs[i].Prompt)-2)
	}
}

// update routes a key to the focused field. submitted reports an Enter;
// the caller decides whether the values are acceptable.
func (f *settingsForm) update(msg tea.KeyMsg) (submitted bool, cmd tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		f.close()
		return false, nil
	case tea.KeyEnter:
		return true, nil
	case tea.KeyTab:
		return false, f.focusField(f.focus + 1)
	case tea.KeyShiftTab:
		return false, f.focusField(f.focus - 1)
	}
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return false, cmd
}

// apply returns cfg with the form values; empty fields keep the current day
// and curve count and reset the window to the whole semester.
func (f settingsForm) apply(cfg model.ReportConfig) (model.ReportConfig, error) {
	if v := f.value(fieldToday); v != "" {
		today, err := stats.ParseDate(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid today date (expected YYYY-MM-DD)")
		}
		cfg.Today = today
	}
	cfg.TrendWindow = 0
	if v := f.value(fieldWindow); v != "" {
		window, err := strconv.Atoi(v)
		if err != nil || window < 0 {
			return cfg, fmt.Errorf("invalid trend window (use 0 or positive integer)")
		}
		cfg.TrendWindow = window
	}
	if v := f.value(fieldCurves); v != "" {
		top, err := strconv.Atoi(v)
		if err != nil || top < 1 {
			return cfg, fmt.Errorf("invalid trend curves (use integer >= 1)")
		}
		cfg.TrendTop = top
	}
	return cfg, nil
}

func (f settingsForm) value(field int) string {
	return strings.TrimSpace(f.inputs[field].Value())
}

func (f settingsForm) view() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range f.inputs {
		lines = append(lines, input.View())
	}
	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}
