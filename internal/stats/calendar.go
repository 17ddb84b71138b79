package stats

import (
	"time"

	"github.com/verte-zerg/attendr/internal/model"
)

// calendar resolves slots for single days. It only reads the data it wraps.
type calendar struct {
	settings   model.Settings
	attendance model.Attendance
	holidays   map[string]struct{}
	subjects   map[string]struct{}
	today      time.Time
}

type resolution struct {
	subject string
	source  model.SlotSource
	counted bool
	absent  bool
	status  model.Status
}

func newCalendar(data model.Data, today time.Time) *calendar {
	cal := &calendar{
		settings:   data.Settings,
		attendance: data.Attendance,
		holidays:   make(map[string]struct{}, len(data.Holidays)),
		subjects:   make(map[string]struct{}, len(data.Settings.Subjects)),
		today:      CivilDay(today),
	}
	for _, h := range data.Holidays {
		cal.holidays[h] = struct{}{}
	}
	for _, sub := range data.Settings.Subjects {
		cal.subjects[sub] = struct{}{}
	}
	return cal
}

func (c *calendar) skipReason(day time.Time) string {
	if day.Weekday() == time.Sunday {
		return SkipSunday
	}
	if _, ok := c.holidays[day.Format(model.DateLayout)]; ok {
		return SkipHoliday
	}
	return ""
}

// resolve picks the subject for a slot: a set override subject wins, even
// when it is empty or "Free"; otherwise the weekday timetable applies.
func (c *calendar) resolve(day time.Time, slot int) resolution {
	overrides := c.attendance[day.Format(model.DateLayout)]
	defaults := c.settings.Timetable[day.Weekday().String()]

	var r resolution
	override, hasOverride := overrides[slot]
	switch {
	case hasOverride && override.Subject != nil:
		r.subject = *override.Subject
		r.source = model.SourceOverride
	default:
		if sub, ok := defaults[slot]; ok {
			r.subject = sub
			r.source = model.SourceTimetable
		} else {
			r.source = model.SourceNone
		}
	}

	if !c.isSubject(r.subject) {
		return r
	}
	r.counted = true
	r.absent = override.Status != nil && *override.Status == model.StatusAbsent
	if r.absent {
		r.status = model.StatusAbsent
	} else {
		r.status = model.StatusPresent
	}
	return r
}

func (c *calendar) isSubject(subject string) bool {
	if subject == "" || subject == model.FreeSubject {
		return false
	}
	_, ok := c.subjects[subject]
	return ok
}

// ResolveDay explains how each slot of date is counted, using the same
// resolution rules as Calculate.
func ResolveDay(data model.Data, date, today time.Time) model.DayPlan {
	cal := newCalendar(data, today)
	day := CivilDay(date)
	plan := model.DayPlan{
		Date:    day.Format(model.DateLayout),
		Weekday: day.Weekday().String(),
		Future:  day.After(cal.today),
		Slots:   make([]model.ResolvedSlot, 0, model.SlotCount),
	}

	if start, end, ok := semesterRange(data.Settings); !ok || day.Before(start) || day.After(end) {
		plan.Skipped = SkipOutsideSemester
	} else {
		plan.Skipped = cal.skipReason(day)
	}

	for slot := 0; slot < model.SlotCount; slot++ {
		r := cal.resolve(day, slot)
		rs := model.ResolvedSlot{
			Index:   slot,
			Time:    model.SlotTimes[slot],
			Subject: r.subject,
			Source:  r.source,
		}
		if plan.Skipped == "" && r.counted {
			rs.Counted = true
			if !plan.Future {
				rs.Status = r.status
			}
		}
		plan.Slots = append(plan.Slots, rs)
	}
	return plan
}
