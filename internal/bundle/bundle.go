// Package bundle reads and writes the JSON data bundle used for import and export.
package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/verte-zerg/attendr/internal/model"
)

var validate = validator.New()

type document struct {
	Settings   settingsDoc                   `json:"settings"`
	Holidays   []string                      `json:"holidays" validate:"dive,datetime=2006-01-02"`
	Attendance map[string]map[string]slotDoc `json:"attendance" validate:"dive,keys,datetime=2006-01-02,endkeys"`
}

type settingsDoc struct {
	SemesterStart   string                  `json:"semesterStart" validate:"omitempty,datetime=2006-01-02"`
	LastWorkingDate string                  `json:"lastWorkingDate" validate:"omitempty,datetime=2006-01-02"`
	Subjects        []string                `json:"subjects" validate:"dive,required,ne=Free"`
	Timetable       map[string]timetableDay `json:"timetable" validate:"dive,keys,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday,endkeys"`
}

// timetableDay accepts either a slot-keyed object or an array.
type timetableDay map[int]string

func (d *timetableDay) UnmarshalJSON(raw []byte) error {
	out := timetableDay{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var row []*string
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return err
		}
		for i, sub := range row {
			if sub != nil && *sub != "" {
				out[i] = *sub
			}
		}
		*d = out
		return nil
	}
	var keyed map[string]*string
	if err := json.Unmarshal(trimmed, &keyed); err != nil {
		return err
	}
	for key, sub := range keyed {
		slot, err := slotIndex(key)
		if err != nil {
			return err
		}
		if sub != nil && *sub != "" {
			out[slot] = *sub
		}
	}
	*d = out
	return nil
}

// slotDoc keeps the difference between a missing field and a null one:
// a null subject is set to the empty string.
type slotDoc struct {
	Subject *string
	Status  *string
}

func (s *slotDoc) UnmarshalJSON(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	if v, ok := fields["subject"]; ok {
		var sub *string
		if err := json.Unmarshal(v, &sub); err != nil {
			return fmt.Errorf("subject: %w", err)
		}
		if sub == nil {
			sub = new(string)
		}
		s.Subject = sub
	}
	if v, ok := fields["status"]; ok {
		var st *string
		if err := json.Unmarshal(v, &st); err != nil {
			return fmt.Errorf("status: %w", err)
		}
		s.Status = st
	}
	return nil
}

// Decode reads and validates a bundle.
func Decode(r io.Reader) (model.Data, error) {
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return model.Data{}, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if err := validate.Struct(doc); err != nil {
		return model.Data{}, fmt.Errorf("invalid bundle: %w", err)
	}
	return doc.toData()
}

func (doc document) toData() (model.Data, error) {
	data := model.Data{
		Settings: model.Settings{
			SemesterStart:   doc.Settings.SemesterStart,
			LastWorkingDate: doc.Settings.LastWorkingDate,
			Subjects:        append([]string(nil), doc.Settings.Subjects...),
		},
		Holidays:   append([]string(nil), doc.Holidays...),
		Attendance: model.Attendance{},
	}
	if len(doc.Settings.Timetable) > 0 {
		data.Settings.Timetable = model.Timetable{}
		for weekday, slots := range doc.Settings.Timetable {
			for slot := range slots {
				if slot < 0 || slot >= model.SlotCount {
					return model.Data{}, fmt.Errorf("invalid bundle: timetable %s has slot %d", weekday, slot)
				}
			}
			data.Settings.Timetable[weekday] = map[int]string(slots)
		}
	}

	for date, slots := range doc.Attendance {
		day := map[int]model.SlotOverride{}
		for key, slot := range slots {
			idx, err := slotIndex(key)
			if err != nil {
				return model.Data{}, fmt.Errorf("invalid bundle: %s: %w", date, err)
			}
			var override model.SlotOverride
			override.Subject = slot.Subject
			if slot.Status != nil {
				if err := validate.Var(*slot.Status, "oneof=Present Absent"); err != nil {
					return model.Data{}, fmt.Errorf("invalid bundle: %s slot %d status %q", date, idx, *slot.Status)
				}
				st := model.Status(*slot.Status)
				override.Status = &st
			}
			if override.IsEmpty() {
				continue
			}
			day[idx] = override
		}
		if len(day) > 0 {
			data.Attendance[date] = day
		}
	}
	return data, nil
}

// Encode writes data as indented JSON. Holidays are sorted and deduplicated.
func Encode(w io.Writer, data model.Data) error {
	out := data
	out.Holidays = normalizeHolidays(data.Holidays)
	if out.Settings.Subjects == nil {
		out.Settings.Subjects = []string{}
	}
	if out.Attendance == nil {
		out.Attendance = model.Attendance{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return nil
}

func normalizeHolidays(dates []string) []string {
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func slotIndex(key string) (int, error) {
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 || idx >= model.SlotCount {
		return 0, fmt.Errorf("slot %q out of range 0-%d", key, model.SlotCount-1)
	}
	return idx, nil
}
