// Package stats contains attendance calculations and reporting.
package stats

import (
	"math"
	"time"

	"github.com/verte-zerg/attendr/internal/model"
)

const (
	// attendanceThreshold is the minimum share of conducted slots to attend.
	attendanceThreshold = 0.75
	maxAbsentRatio      = 1 - attendanceThreshold
)

// Skip reasons reported for days that contribute no slots.
const (
	SkipSunday          = "Sunday"
	SkipHoliday         = "holiday"
	SkipOutsideSemester = "outside semester"
)

type tally struct {
	present   int
	absent    int
	conducted int
	semester  int
}

type slotVisit struct {
	day     time.Time
	subject string
	future  bool
	absent  bool
}

// Calculate aggregates the attendance log into per-subject stats.
// Only the calendar day of today is used. Every configured subject is present
// in the result; a missing, malformed or reversed semester range yields
// all-zero stats.
func Calculate(data model.Data, today time.Time) map[string]model.SubjectStats {
	tallies := make(map[string]*tally, len(data.Settings.Subjects))
	for _, sub := range data.Settings.Subjects {
		tallies[sub] = &tally{}
	}

	if start, end, ok := semesterRange(data.Settings); ok {
		walk(newCalendar(data, today), start, end, func(v slotVisit) {
			t := tallies[v.subject]
			t.semester++
			if v.future {
				return
			}
			t.conducted++
			if v.absent {
				t.absent++
			} else {
				t.present++
			}
		})
	}

	out := make(map[string]model.SubjectStats, len(tallies))
	for sub, t := range tallies {
		out[sub] = derive(*t)
	}
	return out
}

// walk visits every counted slot between start and end inclusive, in order.
func walk(cal *calendar, start, end time.Time, visit func(slotVisit)) {
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if cal.skipReason(day) != "" {
			continue
		}
		future := day.After(cal.today)
		for slot := 0; slot < model.SlotCount; slot++ {
			r := cal.resolve(day, slot)
			if !r.counted {
				continue
			}
			visit(slotVisit{
				day:     day,
				subject: r.subject,
				future:  future,
				absent:  r.absent,
			})
		}
	}
}

func derive(t tally) model.SubjectStats {
	s := model.SubjectStats{
		Present:            t.present,
		Absent:             t.absent,
		TotalConducted:     t.conducted,
		TotalSemesterSlots: t.semester,
		Percentage:         percentage(t.present, t.conducted),
	}
	maxAbsents := int(math.Floor(float64(t.semester) * maxAbsentRatio))
	s.SafeLeaves = max(0, maxAbsents-t.absent)
	// Smallest x with (present+x)/(conducted+x) >= 0.75.
	s.ClassesToAttend = max(0, 3*t.conducted-4*t.present)
	return s
}

// percentage returns present/conducted as a percent rounded to two decimals.
func percentage(present, conducted int) float64 {
	if conducted <= 0 {
		return 0
	}
	return math.Round(float64(present)/float64(conducted)*100*100) / 100
}

// semesterRange parses the semester bounds as civil dates.
func semesterRange(settings model.Settings) (time.Time, time.Time, bool) {
	if settings.SemesterStart == "" || settings.LastWorkingDate == "" {
		return time.Time{}, time.Time{}, false
	}
	start, err := ParseDate(settings.SemesterStart)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := ParseDate(settings.LastWorkingDate)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// ParseDate parses a YYYY-MM-DD string as a civil date at UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(model.DateLayout, value)
}

// CivilDay returns the calendar day of t, in t's own location, at UTC midnight.
func CivilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
