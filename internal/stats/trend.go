package stats

import (
	"time"

	"github.com/verte-zerg/attendr/internal/model"
)

// Trend returns, per subject, the running attendance percentage after each
// past day on which the subject had a conducted slot. The last point of a
// subject matches its Calculate percentage.
func Trend(data model.Data, today time.Time) map[string][]model.TrendPoint {
	out := make(map[string][]model.TrendPoint, len(data.Settings.Subjects))
	running := make(map[string]*tally, len(data.Settings.Subjects))
	for _, sub := range data.Settings.Subjects {
		out[sub] = nil
		running[sub] = &tally{}
	}

	start, end, ok := semesterRange(data.Settings)
	if !ok {
		return out
	}
	walk(newCalendar(data, today), start, end, func(v slotVisit) {
		if v.future {
			return
		}
		t := running[v.subject]
		t.conducted++
		if !v.absent {
			t.present++
		}
		pct := percentage(t.present, t.conducted)
		points := out[v.subject]
		if n := len(points); n > 0 && points[n-1].Date.Equal(v.day) {
			points[n-1].Percentage = pct
		} else {
			points = append(points, model.TrendPoint{Date: v.day, Percentage: pct})
		}
		out[v.subject] = points
	})
	return out
}

// TrendValues extracts the percentages of the last window points.
func TrendValues(points []model.TrendPoint, window int) []float64 {
	if window > 0 && len(points) > window {
		points = points[len(points)-window:]
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Percentage
	}
	return values
}
