// Package config provides configuration helpers and TOML parsing.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/attendr/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Semester  SemesterConfig      `toml:"semester"`
	Timetable map[string][]string `toml:"timetable"`
	Report    ReportConfig        `toml:"report"`
	Server    ServerConfig        `toml:"server"`
	Log       LogConfig           `toml:"log"`
}

// SemesterConfig maps the semester settings.
type SemesterConfig struct {
	Start           *string  `toml:"start"`
	LastWorkingDate *string  `toml:"last-working-date"`
	Subjects        []string `toml:"subjects"`
}

// ReportConfig maps report-related settings.
type ReportConfig struct {
	Today       *string `toml:"today"`
	TrendTop    *int    `toml:"trend-top"`
	TrendWindow *int    `toml:"trend-window"`
	PlotHeight  *int    `toml:"plot-height"`
	Color       *bool   `toml:"color"`
}

// ServerConfig maps HTTP server settings.
type ServerConfig struct {
	Addr *string `toml:"addr"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Settings converts the semester and timetable sections. Empty timetable
// entries are left out.
func (c FileConfig) Settings() model.Settings {
	settings := model.Settings{
		Subjects: append([]string(nil), c.Semester.Subjects...),
	}
	if c.Semester.Start != nil {
		settings.SemesterStart = *c.Semester.Start
	}
	if c.Semester.LastWorkingDate != nil {
		settings.LastWorkingDate = *c.Semester.LastWorkingDate
	}
	if len(c.Timetable) > 0 {
		settings.Timetable = model.Timetable{}
		for weekday, slots := range c.Timetable {
			day := map[int]string{}
			for i, sub := range slots {
				if sub == "" {
					continue
				}
				day[i] = sub
			}
			settings.Timetable[weekday] = day
		}
	}
	return settings
}

// ValidateSettings rejects settings the aggregator would silently ignore.
// Empty semester dates and a reversed range are allowed.
func ValidateSettings(settings model.Settings) error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{name: "start", value: settings.SemesterStart},
		{name: "last-working-date", value: settings.LastWorkingDate},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, field.value); err != nil {
			return fmt.Errorf("invalid semester %s %q (expected YYYY-MM-DD)", field.name, field.value)
		}
	}

	seen := make(map[string]struct{}, len(settings.Subjects))
	for _, sub := range settings.Subjects {
		if sub == "" {
			return fmt.Errorf("subject names must not be empty")
		}
		if sub == model.FreeSubject {
			return fmt.Errorf("%q is reserved for free slots", model.FreeSubject)
		}
		if _, ok := seen[sub]; ok {
			return fmt.Errorf("duplicate subject %q", sub)
		}
		seen[sub] = struct{}{}
	}

	for weekday, slots := range settings.Timetable {
		if !isWeekday(weekday) {
			return fmt.Errorf("unknown timetable weekday %q", weekday)
		}
		for slot := range slots {
			if slot < 0 || slot >= model.SlotCount {
				return fmt.Errorf("timetable %s has slot %d (allowed 0-%d)", weekday, slot, model.SlotCount-1)
			}
		}
	}
	return nil
}

// UnknownTimetableSubjects lists timetable subjects that are neither
// configured nor "Free"; those slots are never counted.
func UnknownTimetableSubjects(settings model.Settings) []string {
	known := make(map[string]struct{}, len(settings.Subjects))
	for _, sub := range settings.Subjects {
		known[sub] = struct{}{}
	}
	unknown := map[string]struct{}{}
	for _, slots := range settings.Timetable {
		for _, sub := range slots {
			if sub == "" || sub == model.FreeSubject {
				continue
			}
			if _, ok := known[sub]; !ok {
				unknown[sub] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(unknown))
	for sub := range unknown {
		out = append(out, sub)
	}
	sort.Strings(out)
	return out
}

// SaveSettings writes settings into the semester and timetable sections of
// the config at path, keeping the other sections. Comments are not preserved.
func SaveSettings(path string, settings model.Settings) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	start := settings.SemesterStart
	end := settings.LastWorkingDate
	cfg.Semester = SemesterConfig{
		Start:           &start,
		LastWorkingDate: &end,
		Subjects:        append([]string(nil), settings.Subjects...),
	}
	cfg.Timetable = timetableSlots(settings.Timetable)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

func timetableSlots(timetable model.Timetable) map[string][]string {
	if len(timetable) == 0 {
		return nil
	}
	out := make(map[string][]string, len(timetable))
	for weekday, slots := range timetable {
		size := 0
		for slot := range slots {
			if slot >= 0 && slot+1 > size {
				size = slot + 1
			}
		}
		row := make([]string, size)
		for slot, sub := range slots {
			if slot >= 0 {
				row[slot] = sub
			}
		}
		out[weekday] = row
	}
	return out
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func isWeekday(name string) bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == name {
			return true
		}
	}
	return false
}
