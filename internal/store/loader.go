package store

import (
	"context"
	"fmt"

	"github.com/verte-zerg/attendr/internal/model"
)

// Loader combines configured settings with stored holidays and attendance.
type Loader struct {
	Store    *Store
	Settings model.Settings
}

// Load reads the current aggregator input.
func (l Loader) Load(ctx context.Context) (model.Data, error) {
	holidays, err := l.Store.HolidayDates(ctx)
	if err != nil {
		return model.Data{}, fmt.Errorf("failed to load holidays: %w", err)
	}
	attendance, err := l.Store.Attendance(ctx)
	if err != nil {
		return model.Data{}, fmt.Errorf("failed to load attendance: %w", err)
	}
	return model.Data{
		Settings:   l.Settings,
		Holidays:   holidays,
		Attendance: attendance,
	}, nil
}
