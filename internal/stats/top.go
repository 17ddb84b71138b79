package stats

import (
	"sort"

	"github.com/verte-zerg/attendr/internal/model"
)

// SubjectsAtRisk returns up to n subjects with conducted slots, lowest
// percentage first. n <= 0 returns all of them.
func SubjectsAtRisk(all map[string]model.SubjectStats, n int) []string {
	type item struct {
		subject string
		pct     float64
	}
	items := make([]item, 0, len(all))
	for sub, s := range all {
		if s.TotalConducted == 0 {
			continue
		}
		items = append(items, item{subject: sub, pct: s.Percentage})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].pct == items[j].pct {
			return items[i].subject < items[j].subject
		}
		return items[i].pct < items[j].pct
	})
	if n <= 0 || n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].subject)
	}
	return out
}

// BelowThreshold reports whether a subject needs extra classes to reach 75%.
func BelowThreshold(s model.SubjectStats) bool {
	return s.ClassesToAttend > 0
}

// OrderedSubjects returns the configured subject order, without duplicates.
func OrderedSubjects(settings model.Settings) []string {
	seen := make(map[string]struct{}, len(settings.Subjects))
	out := make([]string, 0, len(settings.Subjects))
	for _, sub := range settings.Subjects {
		if _, ok := seen[sub]; ok {
			continue
		}
		seen[sub] = struct{}{}
		out = append(out, sub)
	}
	return out
}
