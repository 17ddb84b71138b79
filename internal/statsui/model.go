// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/attendr/internal/model"
	"github.com/verte-zerg/attendr/internal/stats"
)

const (
	tabOverview = iota
	tabSubjects
	tabTrend
	tabDay
)

const (
	defaultPlotHeight = 10
	defaultTrendTop   = 3
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0A030"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	source stats.Source
	cfg    model.ReportConfig
	keys   keyMap

	report stats.Report
	errMsg string

	tabs          []string
	activeTab     int
	viewports     []viewport.Model
	subjectTable  table.Model
	subjectLayout tableLayout

	width  int
	height int

	day time.Time

	form settingsForm

	trendSelection       []string
	trendSelectionCustom bool

	subjectInputMode  bool
	subjectInput      textinput.Model
	subjectInputError string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
	colCount int
}

// NewModel constructs a stats UI model.
func NewModel(src stats.Source, cfg model.ReportConfig) *Model {
	if cfg.PlotHeight <= 0 {
		cfg.PlotHeight = defaultPlotHeight
	}
	if cfg.TrendTop <= 0 {
		cfg.TrendTop = defaultTrendTop
	}
	cfg.Today = stats.CivilDay(cfg.Today)
	m := &Model{
		source: src,
		cfg:    cfg,
		keys:   defaultKeyMap(),
		day:    cfg.Today,
		tabs:   []string{"Overview", "Subjects", "Trend", "Day"},
	}
	m.form = newSettingsForm()
	m.initSubjectInput()
	m.initSubjectTable()
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}
	if m.form.open {
		return m.updateForm(msg)
	}
	if m.subjectInputMode {
		return m.updateSubjectInput(msg)
	}
	onSubjects := m.activeTab == tabSubjects
	if onSubjects {
		m.subjectTable.Focus()
	} else {
		m.subjectTable.Blur()
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.PrevTab):
		m.moveTab(-1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.NextTab):
		m.moveTab(1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.WidenWindow):
		m.cfg.TrendWindow = nextTrendWindow(m.cfg.TrendWindow)
		m.renderTabContents()
	case key.Matches(msg, m.keys.NarrowWindow):
		m.cfg.TrendWindow = prevTrendWindow(m.cfg.TrendWindow)
		m.renderTabContents()
	case key.Matches(msg, m.keys.PrevDay):
		m.moveDay(-1)
	case key.Matches(msg, m.keys.NextDay):
		m.moveDay(1)
	case key.Matches(msg, m.keys.Today):
		m.day = m.cfg.Today
		m.renderTabContents()
	case key.Matches(msg, m.keys.Reload):
		m.refreshReport()
	case key.Matches(msg, m.keys.Settings):
		return m, m.form.start(m.cfg)
	case key.Matches(msg, m.keys.Subjects):
		if m.activeTab == tabTrend {
			return m.startSubjectInput()
		}
	case key.Matches(msg, m.keys.Top) && onSubjects:
		m.subjectTable.GotoTop()
	case key.Matches(msg, m.keys.Top):
		m.viewports[m.activeTab].GotoTop()
	case key.Matches(msg, m.keys.Bottom) && onSubjects:
		m.subjectTable.GotoBottom()
	case key.Matches(msg, m.keys.Bottom):
		m.viewports[m.activeTab].GotoBottom()
	case onSubjects:
		var cmd tea.Cmd
		m.subjectTable, cmd = m.subjectTable.Update(msg)
		return m, cmd
	default:
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.subjectInputMode {
		return fitLines(m.renderSubjectModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initSubjectTable() {
	cols, rows := buildSubjectTableData(nil, nil)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(1),
	)
	t.SetStyles(subjectTableStyles())
	m.subjectTable = t
}

func (m *Model) initSubjectInput() {
	m.subjectInput = newInput("Subjects: ")
	m.subjectInput.Placeholder = "Math, Physics"
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.form.open && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setSubjectTableSize(m.width, vpHeight)
	m.form.setWidth(m.width)
	promptWidth := lipgloss.Width(m.subjectInput.Prompt)
	m.subjectInput.Width = max(10, modalInnerWidth(m.width)-promptWidth)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabSubjects {
		m.subjectTable.Focus()
	} else {
		m.subjectTable.Blur()
	}
}

func (m *Model) moveDay(delta int) {
	m.day = m.day.AddDate(0, 0, delta)
	m.renderTabContents()
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	status := padLines(m.renderStatusLine(), m.width)
	return tabs + "\n" + status
}

func (m *Model) renderStatusLine() string {
	settings := m.report.Data.Settings
	semester := "not set"
	if settings.SemesterStart != "" || settings.LastWorkingDate != "" {
		semester = fmt.Sprintf("%s..%s", orDash(settings.SemesterStart), orDash(settings.LastWorkingDate))
	}
	window := "all"
	if m.cfg.TrendWindow > 0 {
		window = strconv.Itoa(m.cfg.TrendWindow)
	}
	summary := fmt.Sprintf("Today: %s  semester=%s  window=%s  curves=%d",
		m.cfg.Today.Format(model.DateLayout), semester, window, m.cfg.TrendTop)
	summary = truncateLine(summary, m.width)
	return headerStyle.Render(summary)
}

func (m *Model) renderHelp() string {
	return headerStyle.Render(helpLine(m.keys.helpFor(m.activeTab)))
}

func (m *Model) renderFormHelp() string {
	return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  quit: ctrl+c")
}

func (m *Model) renderFooter() string {
	if m.form.open {
		return m.renderFormHelp()
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderBody(height int) string {
	if m.form.open {
		return fitLines(m.form.view(), m.width, height)
	}
	if m.activeTab == tabSubjects {
		if len(m.report.Subjects) == 0 {
			return fitLines("No subjects configured.", m.width, height)
		}
		view := tableMutedStyle.Render(m.subjectTable.View())
		return fitLines(view, m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.source, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	if !m.trendSelectionCustom {
		m.trendSelection = stats.SubjectsAtRisk(m.report.Stats, m.cfg.TrendTop)
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	applySubjectTable(m, m.report, width, bodyHeight, true)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, width))
	m.viewports[tabTrend].SetContent(renderTrend(m.report, m.trendSelection, m.cfg.TrendWindow, width, m.cfg.PlotHeight))
	m.viewports[tabDay].SetContent(renderDay(m.report, m.day))
}

func renderOverview(report stats.Report, width int) string {
	if len(report.Subjects) == 0 {
		return "No subjects configured."
	}
	summary := renderSummaryCards(report, width)
	lines := stats.FormatTable(stats.SubjectHeaders, stats.SubjectRows(report.Subjects, report.Stats),
		map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true})
	var atRisk []string
	for _, sub := range report.Subjects {
		if s := report.Stats[sub]; stats.BelowThreshold(s) {
			atRisk = append(atRisk, warnStyle.Render(fmt.Sprintf("%s needs %d more", sub, s.ClassesToAttend)))
		}
	}
	out := summary + "\n\n" + strings.Join(lines, "\n")
	if len(atRisk) > 0 {
		out += "\n\n" + strings.Join(atRisk, "\n")
	}
	return strings.TrimRight(out, "\n")
}

func renderSummaryCards(report stats.Report, width int) string {
	totals := report.Totals()
	below := 0
	for _, sub := range report.Subjects {
		if stats.BelowThreshold(report.Stats[sub]) {
			below++
		}
	}
	cards := []string{
		metricCard("Overall", stats.FormatPercent(totals.Percentage)),
		metricCard("Conducted", fmt.Sprintf("%d / %d", totals.TotalConducted, totals.TotalSemesterSlots)),
		metricCard("Absences", fmt.Sprintf("%d", totals.Absent)),
		metricCard("Safe Leaves", fmt.Sprintf("%d", totals.SafeLeaves)),
		metricCard("Below 75%", fmt.Sprintf("%d of %d", below, len(report.Subjects))),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderTrend(report stats.Report, subjects []string, window, width, height int) string {
	if len(report.Subjects) == 0 {
		return "No subjects configured."
	}
	if len(subjects) == 0 {
		return "No subjects selected. Press Enter to choose subjects."
	}
	header := headerStyle.Render(fmt.Sprintf("Subjects: %s", strings.Join(subjects, ", ")))
	var buf bytes.Buffer
	if err := stats.RenderTrend(&buf, report, subjects, window, width, height, true); err != nil {
		return fmt.Sprintf("Failed to render trend: %v", err)
	}
	return strings.TrimRight(header+"\n"+buf.String(), "\n")
}

func renderDay(report stats.Report, day time.Time) string {
	var buf bytes.Buffer
	if err := stats.RenderDay(&buf, stats.ResolveDay(report.Data, day, report.Today)); err != nil {
		return fmt.Sprintf("Failed to render day: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func applySubjectTable(m *Model, report stats.Report, width, height int, force bool) {
	cols, rows := buildSubjectTableData(report.Subjects, report.Stats)
	viewportHeight := max(1, height-1)
	if !force &&
		m.subjectLayout.width == width &&
		m.subjectLayout.height == viewportHeight &&
		m.subjectLayout.rowCount == len(rows) &&
		m.subjectLayout.colCount == len(cols) {
		return
	}
	m.subjectTable.SetColumns(cols)
	m.subjectTable.SetRows(rows)
	m.subjectLayout.rowCount = len(rows)
	m.subjectLayout.colCount = len(cols)
	m.subjectLayout.width = 0
	m.setSubjectTableSize(width, height)
}

func (m *Model) setSubjectTableSize(width, height int) {
	viewportHeight := max(1, height-1)
	if m.subjectLayout.width == width && m.subjectLayout.height == viewportHeight {
		return
	}
	m.subjectLayout.width = width
	m.subjectLayout.height = viewportHeight
	m.subjectTable.SetWidth(width)
	m.subjectTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustSubjectTableHeight(height)
	if m.subjectLayout.height != viewportHeight {
		m.subjectLayout.height = viewportHeight
		m.subjectTable.SetHeight(viewportHeight)
	}
}

func subjectTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) adjustSubjectTableHeight(bodyHeight int) int {
	target := max(1, bodyHeight)
	height := m.subjectTable.Height()
	viewHeight := lipgloss.Height(m.subjectTable.View())
	if viewHeight == target {
		return height
	}
	height += target - viewHeight
	if height < 1 {
		height = 1
	}
	m.subjectTable.SetHeight(height)
	viewHeight = lipgloss.Height(m.subjectTable.View())
	if viewHeight == target {
		return height
	}
	height += target - viewHeight
	if height < 1 {
		height = 1
	}
	return height
}

func buildSubjectTableData(subjects []string, all map[string]model.SubjectStats) ([]table.Column, []table.Row) {
	columns := make([]table.Column, len(stats.SubjectHeaders))
	for i, title := range stats.SubjectHeaders {
		width := len(title)
		if i == 0 {
			width = 12
			for _, sub := range subjects {
				width = max(width, lipgloss.Width(sub))
			}
		}
		columns[i] = table.Column{Title: title, Width: width}
	}
	cells := stats.SubjectRows(subjects, all)
	rows := make([]table.Row, 0, len(cells))
	for _, cell := range cells {
		rows = append(rows, table.Row(cell))
	}
	return columns, rows
}

func (m *Model) startSubjectInput() (tea.Model, tea.Cmd) {
	m.subjectInputMode = true
	m.subjectInputError = ""
	m.subjectInput.SetValue(strings.Join(m.trendSelection, ", "))
	return m, m.subjectInput.Focus()
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	submitted, cmd := m.form.update(msg)
	if !submitted {
		return m, cmd
	}
	cfg, err := m.form.apply(m.cfg)
	if err != nil {
		m.form.err = err.Error()
		return m, nil
	}
	m.form.close()
	if !cfg.Today.Equal(m.cfg.Today) {
		m.day = cfg.Today
	}
	m.cfg = cfg
	m.refreshReport()
	m.updateLayout()
	return m, nil
}

func (m *Model) updateSubjectInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.subjectInputMode = false
		m.subjectInputError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applySubjectInput(); err != nil {
			m.subjectInputError = err.Error()
			return m, nil
		}
		m.subjectInputMode = false
		m.subjectInputError = ""
		m.renderTabContents()
		return m, nil
	}
	var cmd tea.Cmd
	m.subjectInput, cmd = m.subjectInput.Update(msg)
	return m, cmd
}

// applySubjectInput sets the trend curves from a comma separated list. An
// empty list falls back to the subjects most at risk.
func (m *Model) applySubjectInput() error {
	chosen := parseSubjects(m.subjectInput.Value())
	if len(chosen) == 0 {
		m.trendSelectionCustom = false
		m.trendSelection = stats.SubjectsAtRisk(m.report.Stats, m.cfg.TrendTop)
		return nil
	}
	known := make(map[string]struct{}, len(m.report.Subjects))
	for _, sub := range m.report.Subjects {
		known[sub] = struct{}{}
	}
	for _, sub := range chosen {
		if _, ok := known[sub]; !ok {
			return fmt.Errorf("unknown subject %q", sub)
		}
	}
	m.trendSelectionCustom = true
	m.trendSelection = chosen
	return nil
}

func (m *Model) renderSubjectModal() string {
	title := cardValueStyle.Render("Select Subjects")
	body := []string{
		title,
		m.subjectInput.View(),
		headerStyle.Render("Comma separated. Leave empty for the subjects most at risk."),
		headerStyle.Render("Enter to apply / Esc to cancel"),
	}
	if m.subjectInputError != "" {
		body = append(body, errorStyle.Render(m.subjectInputError))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func parseSubjects(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

func nextTrendWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

// prevTrendWindow steps down by fives; 0 means the whole semester.
func prevTrendWindow(n int) int {
	if n <= 5 {
		return 0
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func modalWidth(width int) int {
	return max(40, min(width-4, 80))
}

// modalInnerWidth subtracts the modal border and horizontal padding.
func modalInnerWidth(width int) int {
	return max(10, modalWidth(width)-6)
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	return strings.Join(padEach(strings.Split(s, "\n"), width), "\n")
}

func padEach(lines []string, width int) []string {
	for i, line := range lines {
		if gap := width - lipgloss.Width(line); gap > 0 {
			lines[i] = line + strings.Repeat(" ", gap)
		}
	}
	return lines
}

// fitLines pads or cuts s to exactly height lines of at least width cells.
func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(padEach(lines, width), "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
