package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/attendr/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// FormatPercent formats a percentage for display.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}

// SubjectRows builds table rows for subjects in the given order.
func SubjectRows(subjects []string, all map[string]model.SubjectStats) [][]string {
	rows := make([][]string, 0, len(subjects))
	for _, sub := range subjects {
		s := all[sub]
		rows = append(rows, []string{
			sub,
			fmt.Sprintf("%d", s.Present),
			fmt.Sprintf("%d", s.Absent),
			fmt.Sprintf("%d", s.TotalConducted),
			fmt.Sprintf("%d", s.TotalSemesterSlots),
			FormatPercent(s.Percentage),
			fmt.Sprintf("%d", s.SafeLeaves),
			fmt.Sprintf("%d", s.ClassesToAttend),
		})
	}
	return rows
}

// SubjectHeaders are the column titles of the subject table.
var SubjectHeaders = []string{"Subject", "Present", "Absent", "Conducted", "Semester", "Attendance", "Safe Leaves", "To Attend"}

// RenderReport prints the per-subject table, with a sparkline column when showTrend is set.
func RenderReport(w io.Writer, report Report, showTrend bool, trendWindow int) error {
	if len(report.Subjects) == 0 {
		_, err := fmt.Fprintln(w, "No subjects configured.")
		return err
	}
	if _, err := fmt.Fprintf(w, "Attendance as of %s\n", report.Today.Format(model.DateLayout)); err != nil {
		return err
	}
	headers := SubjectHeaders
	rows := SubjectRows(report.Subjects, report.Stats)
	if showTrend {
		headers = append(append([]string(nil), headers...), "Trend")
		for i, sub := range report.Subjects {
			rows[i] = append(rows[i], Sparkline(TrendValues(report.Trend[sub], trendWindow)))
		}
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return renderRiskNote(w, report)
}

func renderRiskNote(w io.Writer, report Report) error {
	var below []string
	for _, sub := range report.Subjects {
		if s := report.Stats[sub]; BelowThreshold(s) {
			below = append(below, fmt.Sprintf("%s (+%d)", sub, s.ClassesToAttend))
		}
	}
	if len(below) == 0 {
		_, err := fmt.Fprintln(w, "All subjects at or above 75%.")
		return err
	}
	_, err := fmt.Fprintf(w, "Below 75%%: %s\n", strings.Join(below, ", "))
	return err
}

// RenderDay prints how each slot of a day is counted.
func RenderDay(w io.Writer, plan model.DayPlan) error {
	title := fmt.Sprintf("%s (%s)", plan.Date, plan.Weekday)
	switch {
	case plan.Skipped != "":
		title += " - not counted: " + plan.Skipped
	case plan.Future:
		title += " - upcoming"
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	headers := []string{"Slot", "Time", "Subject", "From", "Status"}
	rows := make([][]string, 0, len(plan.Slots))
	for _, s := range plan.Slots {
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.Index),
			s.Time,
			slotSubjectLabel(plan, s),
			string(s.Source),
			slotStatusLabel(plan, s),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{0: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func slotSubjectLabel(plan model.DayPlan, s model.ResolvedSlot) string {
	switch {
	case s.Subject == "":
		return "-"
	case plan.Skipped != "" || s.Subject == model.FreeSubject || s.Counted:
		return s.Subject
	default:
		return s.Subject + " (unknown)"
	}
}

func slotStatusLabel(plan model.DayPlan, s model.ResolvedSlot) string {
	switch {
	case !s.Counted:
		return "-"
	case plan.Future:
		return "planned"
	default:
		return string(s.Status)
	}
}
