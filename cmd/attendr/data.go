package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/attendr/internal/bundle"
	"github.com/verte-zerg/attendr/internal/config"
	"github.com/verte-zerg/attendr/internal/holidays"
	"github.com/verte-zerg/attendr/internal/model"
	"github.com/verte-zerg/attendr/internal/stats"
	"github.com/verte-zerg/attendr/internal/store"
)

var (
	markSubject string
	markStatus  string
	markClear   bool

	holidayNote string

	importSettings bool
)

func newMarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mark DATE [SLOT]",
		Short: "Record attendance or a subject change for a slot",
		Long: "Record attendance or a subject change for a slot (0-3).\n" +
			"--subject \"\" marks the slot as having no class; --clear without SLOT clears the whole day.",
		Args: cobra.RangeArgs(1, 2),
		RunE: runMarkCmd,
	}
	cmd.Flags().StringVar(&markSubject, "subject", "", "subject taught in the slot (\"Free\" or \"\" for no class)")
	cmd.Flags().StringVar(&markStatus, "status", "", "Present or Absent")
	cmd.Flags().BoolVar(&markClear, "clear", false, "remove the recorded override")
	return cmd
}

func runMarkCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	date, err := parseDateArg(args[0])
	if err != nil {
		return err
	}
	dateStr := date.Format(model.DateLayout)

	slot := -1
	if len(args) == 2 {
		slot, err = strconv.Atoi(args[1])
		if err != nil || slot < 0 || slot >= model.SlotCount {
			return fmt.Errorf("invalid slot %q (use 0-%d)", args[1], model.SlotCount-1)
		}
	}

	override, err := overrideFromFlags(cmd)
	if err != nil {
		return err
	}
	switch {
	case markClear && !override.IsEmpty():
		return fmt.Errorf("--clear cannot be combined with --subject or --status")
	case !markClear && slot < 0:
		return fmt.Errorf("SLOT is required unless --clear is set")
	case !markClear && override.IsEmpty():
		return fmt.Errorf("nothing to record: set --subject, --status or --clear")
	}

	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer e.closeStore(st)

	ctx := cmd.Context()
	switch {
	case markClear && slot < 0:
		err = st.ClearDay(ctx, dateStr)
	case markClear:
		err = st.ClearOverride(ctx, dateStr, slot)
	default:
		if override.Subject != nil && !knownSlotSubject(e.settings, *override.Subject) {
			e.logger.Warn("subject is not configured; the slot will not be counted", zap.String("subject", *override.Subject))
		}
		err = st.SetOverride(ctx, dateStr, slot, override)
	}
	if err != nil {
		return err
	}

	data, err := store.Loader{Store: st, Settings: e.settings}.Load(ctx)
	if err != nil {
		return err
	}
	if err := stats.RenderDay(cmd.OutOrStdout(), stats.ResolveDay(data, date, e.today)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func overrideFromFlags(cmd *cobra.Command) (model.SlotOverride, error) {
	var override model.SlotOverride
	if cmd.Flags().Changed("subject") {
		subject := markSubject
		override.Subject = &subject
	}
	if cmd.Flags().Changed("status") {
		status := model.Status(markStatus)
		if status != model.StatusPresent && status != model.StatusAbsent {
			return model.SlotOverride{}, fmt.Errorf("invalid --status %q (use %s or %s)", markStatus, model.StatusPresent, model.StatusAbsent)
		}
		override.Status = &status
	}
	return override, nil
}

func knownSlotSubject(settings model.Settings, subject string) bool {
	if subject == "" || subject == model.FreeSubject {
		return true
	}
	for _, sub := range settings.Subjects {
		if sub == subject {
			return true
		}
	}
	return false
}

func newHolidayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holiday",
		Short: "Manage holidays",
	}
	add := &cobra.Command{
		Use:   "add DATE",
		Short: "Add a holiday",
		Args:  cobra.ExactArgs(1),
		RunE:  runHolidayAddCmd,
	}
	add.Flags().StringVar(&holidayNote, "note", "", "description")
	cmd.AddCommand(add)
	cmd.AddCommand(&cobra.Command{
		Use:   "rm DATE",
		Short: "Remove a holiday",
		Args:  cobra.ExactArgs(1),
		RunE:  runHolidayRmCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List holidays",
		Args:  cobra.NoArgs,
		RunE:  runHolidayLsCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Add holidays from a file (one YYYY-MM-DD [note] per line)",
		Args:  cobra.ExactArgs(1),
		RunE:  runHolidayImportCmd,
	})
	return cmd
}

func runHolidayAddCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	date, err := parseDateArg(args[0])
	if err != nil {
		return err
	}
	if date.Weekday() == time.Sunday {
		e.logger.Info("date is a Sunday and is never counted anyway", zap.String("date", args[0]))
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer e.closeStore(st)
	return st.AddHoliday(cmd.Context(), date.Format(model.DateLayout), holidayNote)
}

func runHolidayRmCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	date, err := parseDateArg(args[0])
	if err != nil {
		return err
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer e.closeStore(st)
	removed, err := st.RemoveHoliday(cmd.Context(), date.Format(model.DateLayout))
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("no holiday on %s", date.Format(model.DateLayout))
	}
	return nil
}

func runHolidayLsCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer e.closeStore(st)
	list, err := st.ListHolidays(cmd.Context())
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(list))
	for _, h := range list {
		date, err := stats.ParseDate(h.Date)
		weekday := ""
		if err == nil {
			weekday = date.Weekday().String()
		}
		rows = append(rows, []string{h.Date, weekday, h.Note})
	}
	for _, line := range stats.FormatTable([]string{"Date", "Weekday", "Note"}, rows, nil) {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runHolidayImportCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	list, err := holidays.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to load holidays: %w", err)
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer e.closeStore(st)
	if err := st.AddHolidays(cmd.Context(), list); err != nil {
		return err
	}
	e.logger.Info("holidays imported", zap.Int("count", len(list)), zap.String("file", args[0]))
	return nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace holidays and attendance with a JSON bundle",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().BoolVar(&importSettings, "settings", false, "also write the bundle settings into the config file")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only bundle.
			_ = cerr
		}
	}()
	data, err := bundle.Decode(file)
	if err != nil {
		return err
	}
	if importSettings {
		if err := config.ValidateSettings(data.Settings); err != nil {
			return fmt.Errorf("bundle settings: %w", err)
		}
	}

	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer e.closeStore(st)
	// Settings first: a failed config write leaves the database untouched.
	if importSettings {
		if err := config.SaveSettings(e.configPath, data.Settings); err != nil {
			return err
		}
		e.logger.Info("settings written", zap.String("config", e.configPath))
	}
	if err := st.ReplaceAll(cmd.Context(), data.Holidays, data.Attendance); err != nil {
		if importSettings {
			return fmt.Errorf("settings were written to %s but the data import failed: %w", e.configPath, err)
		}
		return err
	}
	e.logger.Info("bundle imported",
		zap.Int("holidays", len(data.Holidays)),
		zap.Int("days", len(data.Attendance)),
	)
	return nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write settings, holidays and attendance as a JSON bundle",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExportCmd,
	}
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer e.closeStore(st)
	data, err := store.Loader{Store: st, Settings: e.settings}.Load(cmd.Context())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return bundle.Encode(cmd.OutOrStdout(), data)
	}
	return writeBundleFile(args[0], data)
}

func writeBundleFile(path string, data model.Data) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "export-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp export: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if err := bundle.Encode(tmpFile, data); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
