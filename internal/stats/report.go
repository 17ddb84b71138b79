package stats

import (
	"context"
	"time"

	"github.com/verte-zerg/attendr/internal/model"
)

// Source loads the inputs of a report.
type Source interface {
	Load(ctx context.Context) (model.Data, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Today    time.Time
	Data     model.Data
	Subjects []string
	Stats    map[string]model.SubjectStats
	Trend    map[string][]model.TrendPoint
}

// BuildReport loads the inputs and computes stats and trends as of cfg.Today.
func BuildReport(ctx context.Context, src Source, cfg model.ReportConfig) (Report, error) {
	data, err := src.Load(ctx)
	if err != nil {
		return Report{}, err
	}
	return NewReport(data, cfg.Today), nil
}

// NewReport computes a report from already loaded inputs.
func NewReport(data model.Data, today time.Time) Report {
	return Report{
		Today:    CivilDay(today),
		Data:     data,
		Subjects: OrderedSubjects(data.Settings),
		Stats:    Calculate(data, today),
		Trend:    Trend(data, today),
	}
}

// Totals sums counts over all subjects and derives the overall percentage.
func (r Report) Totals() model.SubjectStats {
	var t tally
	for _, sub := range r.Subjects {
		s := r.Stats[sub]
		t.present += s.Present
		t.absent += s.Absent
		t.conducted += s.TotalConducted
		t.semester += s.TotalSemesterSlots
	}
	return derive(t)
}
