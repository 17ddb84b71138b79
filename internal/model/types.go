// Package model defines shared data structures.
package model

import "time"

// SlotCount is the number of teaching slots in a day.
const SlotCount = 4

// FreeSubject marks a slot that has no class.
const FreeSubject = "Free"

// DateLayout is the canonical date string format.
const DateLayout = "2006-01-02"

// SlotTimes holds display labels for the daily slots.
var SlotTimes = [SlotCount]string{
	"8:00 – 10:00",
	"10:00 – 12:00",
	"1:00 – 3:00",
	"3:00 – 5:00",
}

// Status records whether a slot was attended.
type Status string

// Known slot statuses.
const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// Timetable maps a weekday name ("Monday".."Sunday") to slot subjects.
type Timetable map[string]map[int]string

// Settings describes the semester.
type Settings struct {
	SemesterStart   string    `json:"semesterStart"`
	LastWorkingDate string    `json:"lastWorkingDate"`
	Subjects        []string  `json:"subjects"`
	Timetable       Timetable `json:"timetable,omitempty"`
}

// SlotOverride replaces the timetable for one slot of one day.
// A nil field is absent; a non-nil field is set, even when empty.
type SlotOverride struct {
	Subject *string `json:"subject,omitempty"`
	Status  *Status `json:"status,omitempty"`
}

// IsEmpty reports whether neither field is set.
func (o SlotOverride) IsEmpty() bool {
	return o.Subject == nil && o.Status == nil
}

// Attendance maps a date string to per-slot overrides.
type Attendance map[string]map[int]SlotOverride

// Data bundles every input of the aggregator.
type Data struct {
	Settings   Settings   `json:"settings"`
	Holidays   []string   `json:"holidays"`
	Attendance Attendance `json:"attendance"`
}

// SubjectStats holds counts and derived metrics for one subject.
type SubjectStats struct {
	Present            int     `json:"present"`
	Absent             int     `json:"absent"`
	TotalConducted     int     `json:"totalConducted"`
	TotalSemesterSlots int     `json:"totalSemesterSlots"`
	Percentage         float64 `json:"percentage"`
	SafeLeaves         int     `json:"safeLeaves"`
	ClassesToAttend    int     `json:"classesToAttend"`
}

// Holiday is a stored holiday entry.
type Holiday struct {
	Date string
	Note string
}

// SlotSource tells where a resolved slot subject came from.
type SlotSource string

// Slot subject sources.
const (
	SourceNone      SlotSource = "none"
	SourceOverride  SlotSource = "override"
	SourceTimetable SlotSource = "timetable"
)

// ResolvedSlot is the outcome of resolving one slot of a day.
type ResolvedSlot struct {
	Index   int        `json:"index"`
	Time    string     `json:"time"`
	Subject string     `json:"subject"`
	Source  SlotSource `json:"source"`
	Counted bool       `json:"counted"`
	Status  Status     `json:"status,omitempty"`
}

// DayPlan describes how a single day is counted.
type DayPlan struct {
	Date    string         `json:"date"`
	Weekday string         `json:"weekday"`
	Skipped string         `json:"skipped,omitempty"`
	Future  bool           `json:"future"`
	Slots   []ResolvedSlot `json:"slots"`
}

// TrendPoint is a running percentage after a day.
type TrendPoint struct {
	Date       time.Time `json:"date"`
	Percentage float64   `json:"percentage"`
}

// ReportConfig defines options for stats output.
type ReportConfig struct {
	Today       time.Time
	TrendTop    int
	TrendWindow int
	PlotHeight  int
	Color       bool
}
