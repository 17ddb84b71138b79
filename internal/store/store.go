// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verte-zerg/attendr/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for holidays and attendance overrides.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS holidays (
			date TEXT PRIMARY KEY CHECK (date GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]'),
			note TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS attendance (
			date TEXT NOT NULL,
			slot INTEGER NOT NULL CHECK (slot BETWEEN 0 AND 3),
			subject TEXT NULL,
			status TEXT NULL,
			PRIMARY KEY (date, slot)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddHoliday inserts or updates a holiday.
func (s *Store) AddHoliday(ctx context.Context, date, note string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO holidays (date, note) VALUES (?, ?)
		 ON CONFLICT(date) DO UPDATE SET note = excluded.note`,
		date, note)
	if err != nil {
		return fmt.Errorf("failed to add holiday %s: %w", date, err)
	}
	return nil
}

// AddHolidays upserts a batch of holidays in one transaction; on error none
// of them is stored.
func (s *Store) AddHolidays(ctx context.Context, holidays []model.Holiday) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO holidays (date, note) VALUES (?, ?)
		 ON CONFLICT(date) DO UPDATE SET note = excluded.note`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, h := range holidays {
		if _, err = stmt.ExecContext(ctx, h.Date, h.Note); err != nil {
			return fmt.Errorf("failed to add holiday %s: %w", h.Date, err)
		}
	}
	return tx.Commit()
}

// RemoveHoliday deletes a holiday and reports whether it existed.
func (s *Store) RemoveHoliday(ctx context.Context, date string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE date = ?`, date)
	if err != nil {
		return false, fmt.Errorf("failed to remove holiday %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListHolidays returns all holidays ordered by date.
func (s *Store) ListHolidays(ctx context.Context) ([]model.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, note FROM holidays ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.Holiday
	for rows.Next() {
		var h model.Holiday
		if err := rows.Scan(&h.Date, &h.Note); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// HolidayDates returns the holiday dates ordered ascending.
func (s *Store) HolidayDates(ctx context.Context) ([]string, error) {
	holidays, err := s.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(holidays))
	for _, h := range holidays {
		dates = append(dates, h.Date)
	}
	return dates, nil
}

// SetOverride merges an override into the stored slot. Nil fields keep the
// stored value; a slot left with neither field is removed.
func (s *Store) SetOverride(ctx context.Context, date string, slot int, override model.SlotOverride) (err error) {
	if slot < 0 || slot >= model.SlotCount {
		return fmt.Errorf("slot %d out of range 0-%d", slot, model.SlotCount-1)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var subject, status sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT subject, status FROM attendance WHERE date = ? AND slot = ?`, date, slot,
	).Scan(&subject, &status)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read override: %w", err)
	}
	if override.Subject != nil {
		subject = sql.NullString{String: *override.Subject, Valid: true}
	}
	if override.Status != nil {
		status = sql.NullString{String: string(*override.Status), Valid: true}
	}

	if !subject.Valid && !status.Valid {
		_, err = tx.ExecContext(ctx, `DELETE FROM attendance WHERE date = ? AND slot = ?`, date, slot)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attendance (date, slot, subject, status) VALUES (?, ?, ?, ?)
			 ON CONFLICT(date, slot) DO UPDATE SET subject = excluded.subject, status = excluded.status`,
			date, slot, subject, status)
	}
	if err != nil {
		return fmt.Errorf("failed to write override: %w", err)
	}
	return tx.Commit()
}

// ClearOverride removes the override of one slot.
func (s *Store) ClearOverride(ctx context.Context, date string, slot int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM attendance WHERE date = ? AND slot = ?`, date, slot); err != nil {
		return fmt.Errorf("failed to clear override: %w", err)
	}
	return nil
}

// ClearDay removes every override of a day.
func (s *Store) ClearDay(ctx context.Context, date string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM attendance WHERE date = ?`, date); err != nil {
		return fmt.Errorf("failed to clear day: %w", err)
	}
	return nil
}

// Attendance returns all stored overrides.
func (s *Store) Attendance(ctx context.Context) (model.Attendance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, slot, subject, status FROM attendance ORDER BY date, slot`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := model.Attendance{}
	for rows.Next() {
		var date string
		var slot int
		var subject, status sql.NullString
		if err := rows.Scan(&date, &slot, &subject, &status); err != nil {
			return nil, err
		}
		var override model.SlotOverride
		if subject.Valid {
			sub := subject.String
			override.Subject = &sub
		}
		if status.Valid {
			st := model.Status(status.String)
			override.Status = &st
		}
		if _, ok := result[date]; !ok {
			result[date] = map[int]model.SlotOverride{}
		}
		result[date][slot] = override
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ReplaceAll swaps holidays and attendance for the given values in one
// transaction. Holiday notes are dropped.
func (s *Store) ReplaceAll(ctx context.Context, holidays []string, attendance model.Attendance) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	for _, stmt := range []string{`DELETE FROM holidays`, `DELETE FROM attendance`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to reset tables: %w", err)
		}
	}

	holidayStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO holidays (date) VALUES (?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := holidayStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, date := range holidays {
		if _, err = holidayStmt.ExecContext(ctx, date); err != nil {
			return fmt.Errorf("failed to insert holiday %s: %w", date, err)
		}
	}

	slotStmt, err := tx.PrepareContext(ctx, `INSERT INTO attendance (date, slot, subject, status) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := slotStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for date, slots := range attendance {
		for slot, override := range slots {
			if override.IsEmpty() {
				continue
			}
			var subject, status sql.NullString
			if override.Subject != nil {
				subject = sql.NullString{String: *override.Subject, Valid: true}
			}
			if override.Status != nil {
				status = sql.NullString{String: string(*override.Status), Valid: true}
			}
			if _, err = slotStmt.ExecContext(ctx, date, slot, subject, status); err != nil {
				return fmt.Errorf("failed to insert override %s/%d: %w", date, slot, err)
			}
		}
	}

	return tx.Commit()
}
