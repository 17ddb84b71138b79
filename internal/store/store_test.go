package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/verte-zerg/attendr/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "attendr.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return s
}

func strPtr(v string) *string { return &v }

func statusPtr(v model.Status) *model.Status { return &v }

func TestHolidays(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.AddHoliday(ctx, "2024-01-26", "Republic Day"); err != nil {
		t.Fatalf("add holiday: %v", err)
	}
	if err := s.AddHoliday(ctx, "2024-01-10", ""); err != nil {
		t.Fatalf("add holiday: %v", err)
	}
	if err := s.AddHoliday(ctx, "2024-01-26", "Republic Day (observed)"); err != nil {
		t.Fatalf("re-add holiday: %v", err)
	}

	got, err := s.ListHolidays(ctx)
	if err != nil {
		t.Fatalf("list holidays: %v", err)
	}
	want := []model.Holiday{
		{Date: "2024-01-10"},
		{Date: "2024-01-26", Note: "Republic Day (observed)"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected holidays: %+v", got)
	}

	removed, err := s.RemoveHoliday(ctx, "2024-01-10")
	if err != nil || !removed {
		t.Fatalf("expected holiday removed, got %v %v", removed, err)
	}
	removed, err = s.RemoveHoliday(ctx, "2024-01-10")
	if err != nil || removed {
		t.Fatalf("expected second remove to report false, got %v %v", removed, err)
	}

	dates, err := s.HolidayDates(ctx)
	if err != nil {
		t.Fatalf("holiday dates: %v", err)
	}
	if !reflect.DeepEqual(dates, []string{"2024-01-26"}) {
		t.Fatalf("unexpected holiday dates: %v", dates)
	}
}

func TestSetOverrideMerges(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.SetOverride(ctx, "2024-01-01", 1, model.SlotOverride{Subject: strPtr("Physics")}); err != nil {
		t.Fatalf("set subject: %v", err)
	}
	if err := s.SetOverride(ctx, "2024-01-01", 1, model.SlotOverride{Status: statusPtr(model.StatusAbsent)}); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := s.SetOverride(ctx, "2024-01-01", 2, model.SlotOverride{Subject: strPtr("")}); err != nil {
		t.Fatalf("set empty subject: %v", err)
	}

	att, err := s.Attendance(ctx)
	if err != nil {
		t.Fatalf("attendance: %v", err)
	}
	slot := att["2024-01-01"][1]
	if slot.Subject == nil || *slot.Subject != "Physics" {
		t.Fatalf("expected subject kept, got %+v", slot)
	}
	if slot.Status == nil || *slot.Status != model.StatusAbsent {
		t.Fatalf("expected status Absent, got %+v", slot)
	}
	empty := att["2024-01-01"][2]
	if empty.Subject == nil || *empty.Subject != "" || empty.Status != nil {
		t.Fatalf("expected present-but-empty subject, got %+v", empty)
	}
}

func TestSetOverrideRejectsSlot(t *testing.T) {
	s := openTestStore(t)
	if err := s.SetOverride(context.Background(), "2024-01-01", 4, model.SlotOverride{Subject: strPtr("Math")}); err == nil {
		t.Fatalf("expected slot range error")
	}
}

func TestClearOverrideAndDay(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for slot := 0; slot < 3; slot++ {
		if err := s.SetOverride(ctx, "2024-01-02", slot, model.SlotOverride{Status: statusPtr(model.StatusPresent)}); err != nil {
			t.Fatalf("set override: %v", err)
		}
	}
	if err := s.SetOverride(ctx, "2024-01-03", 0, model.SlotOverride{Status: statusPtr(model.StatusAbsent)}); err != nil {
		t.Fatalf("set override: %v", err)
	}

	if err := s.ClearOverride(ctx, "2024-01-02", 0); err != nil {
		t.Fatalf("clear override: %v", err)
	}
	att, err := s.Attendance(ctx)
	if err != nil {
		t.Fatalf("attendance: %v", err)
	}
	if len(att["2024-01-02"]) != 2 {
		t.Fatalf("expected 2 slots left, got %+v", att["2024-01-02"])
	}

	if err := s.ClearDay(ctx, "2024-01-02"); err != nil {
		t.Fatalf("clear day: %v", err)
	}
	att, err = s.Attendance(ctx)
	if err != nil {
		t.Fatalf("attendance: %v", err)
	}
	if _, ok := att["2024-01-02"]; ok {
		t.Fatalf("expected day cleared, got %+v", att)
	}
	if len(att["2024-01-03"]) != 1 {
		t.Fatalf("expected other day untouched, got %+v", att)
	}
}

func TestReplaceAll(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.AddHoliday(ctx, "2023-12-25", "old"); err != nil {
		t.Fatalf("add holiday: %v", err)
	}
	if err := s.SetOverride(ctx, "2023-12-20", 0, model.SlotOverride{Subject: strPtr("Old")}); err != nil {
		t.Fatalf("set override: %v", err)
	}

	attendance := model.Attendance{
		"2024-01-01": {
			0: {Subject: strPtr("Math"), Status: statusPtr(model.StatusAbsent)},
			3: {},
		},
	}
	if err := s.ReplaceAll(ctx, []string{"2024-01-10", "2024-01-10"}, attendance); err != nil {
		t.Fatalf("replace all: %v", err)
	}

	data, err := Loader{Store: s, Settings: model.Settings{Subjects: []string{"Math"}}}.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(data.Holidays, []string{"2024-01-10"}) {
		t.Fatalf("unexpected holidays: %v", data.Holidays)
	}
	if len(data.Attendance) != 1 || len(data.Attendance["2024-01-01"]) != 1 {
		t.Fatalf("unexpected attendance: %+v", data.Attendance)
	}
	slot := data.Attendance["2024-01-01"][0]
	if *slot.Subject != "Math" || *slot.Status != model.StatusAbsent {
		t.Fatalf("unexpected slot: %+v", slot)
	}
	if !reflect.DeepEqual(data.Settings.Subjects, []string{"Math"}) {
		t.Fatalf("expected settings passed through, got %+v", data.Settings)
	}
}

func TestReplaceAllRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.AddHoliday(ctx, "2024-01-10", "keep"); err != nil {
		t.Fatalf("add holiday: %v", err)
	}
	bad := model.Attendance{"2024-01-01": {7: {Subject: strPtr("Math")}}}
	if err := s.ReplaceAll(ctx, []string{"2024-02-01"}, bad); err == nil {
		t.Fatalf("expected check constraint failure")
	}
	dates, err := s.HolidayDates(ctx)
	if err != nil {
		t.Fatalf("holiday dates: %v", err)
	}
	if !reflect.DeepEqual(dates, []string{"2024-01-10"}) {
		t.Fatalf("expected rollback to keep holidays, got %v", dates)
	}
}

func TestAddHolidaysIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	batch := []model.Holiday{{Date: "2024-01-26", Note: "Republic Day"}, {Date: "2024-03-25"}}
	if err := s.AddHolidays(ctx, batch); err != nil {
		t.Fatalf("add holidays: %v", err)
	}
	bad := []model.Holiday{{Date: "2024-08-15", Note: "Independence Day"}, {Date: "15/08/2024"}}
	if err := s.AddHolidays(ctx, bad); err == nil {
		t.Fatalf("expected malformed date to be rejected")
	}
	got, err := s.ListHolidays(ctx)
	if err != nil {
		t.Fatalf("list holidays: %v", err)
	}
	if !reflect.DeepEqual(got, batch) {
		t.Fatalf("expected only the first batch, got %+v", got)
	}
}
