// Package main provides the CLI entrypoint for attendr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/attendr/internal/api"
	"github.com/verte-zerg/attendr/internal/config"
	"github.com/verte-zerg/attendr/internal/logging"
	"github.com/verte-zerg/attendr/internal/model"
	"github.com/verte-zerg/attendr/internal/stats"
	"github.com/verte-zerg/attendr/internal/statsui"
	"github.com/verte-zerg/attendr/internal/store"
)

const (
	defaultTrendTop    = 3
	defaultTrendWindow = 0
	defaultPlotHeight  = 10
	defaultAddr        = "127.0.0.1:8080"
)

var (
	globalToday    string
	globalLogLevel string
	globalConfig   string
	globalDB       string

	reportJSON        bool
	reportTrend       bool
	reportPlot        bool
	reportTrendTop    int
	reportTrendWindow int
	reportPlotHeight  int
	reportColor       bool

	dayJSON bool

	serveAddr string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "attendr",
		Short:         "Semester attendance tracker",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runStatsCmd,
	}

	rootCmd.PersistentFlags().StringVar(&globalToday, "today", "", "reference day (YYYY-MM-DD, default: current date)")
	rootCmd.PersistentFlags().StringVar(&globalLogLevel, "log-level", logging.DefaultLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&globalConfig, "config", "", "config file path (default: XDG config dir)")
	rootCmd.PersistentFlags().StringVar(&globalDB, "db", "", "database path (default: XDG data dir)")

	addTrendFlags(rootCmd)

	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newDayCmd())
	rootCmd.AddCommand(newMarkCmd())
	rootCmd.AddCommand(newHolidayCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func addTrendFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&reportTrendTop, "trend-top", defaultTrendTop, "number of subjects plotted by default")
	cmd.Flags().IntVar(&reportTrendWindow, "trend-window", defaultTrendWindow, "trend points shown per subject (0 = all)")
	cmd.Flags().IntVar(&reportPlotHeight, "plot-height", defaultPlotHeight, "trend plot height in rows")
}

// env carries what every command needs: config, logger and reference day.
type env struct {
	configPath string
	dbPath     string
	file       config.FileConfig
	settings   model.Settings
	logger     *zap.Logger
	today      time.Time
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	configPath := globalConfig
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	applyStringConfig(cmd, "log-level", &globalLogLevel, fileCfg.Log.Level)
	logger, err := logging.New(globalLogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	applyStringConfig(cmd, "today", &globalToday, fileCfg.Report.Today)
	today, err := parseToday(globalToday, time.Now())
	if err != nil {
		return nil, err
	}

	settings := fileCfg.Settings()
	if err := config.ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	if settings.SemesterStart == "" || settings.LastWorkingDate == "" {
		logger.Warn("semester dates are not configured; nothing will be counted", zap.String("config", configPath))
	}
	if unknown := config.UnknownTimetableSubjects(settings); len(unknown) > 0 {
		logger.Warn("timetable uses subjects that are not configured", zap.Strings("subjects", unknown))
	}

	dbPath := globalDB
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	logger.Debug("environment loaded",
		zap.String("config", configPath),
		zap.String("db", dbPath),
		zap.String("today", today.Format(model.DateLayout)),
	)
	return &env{
		configPath: configPath,
		dbPath:     dbPath,
		file:       fileCfg,
		settings:   settings,
		logger:     logger,
		today:      today,
	}, nil
}

func (e *env) openStore() (*store.Store, error) {
	st, err := store.Open(e.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func (e *env) closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		e.logger.Error("failed to close db", zap.Error(cerr))
	}
}

func (e *env) reportConfig(cmd *cobra.Command) model.ReportConfig {
	applyIntConfig(cmd, "trend-top", &reportTrendTop, e.file.Report.TrendTop)
	applyIntConfig(cmd, "trend-window", &reportTrendWindow, e.file.Report.TrendWindow)
	applyIntConfig(cmd, "plot-height", &reportPlotHeight, e.file.Report.PlotHeight)
	if cmd.Flags().Lookup("color") != nil {
		applyBoolConfig(cmd, "color", &reportColor, e.file.Report.Color)
	}
	return model.ReportConfig{
		Today:       e.today,
		TrendTop:    reportTrendTop,
		TrendWindow: reportTrendWindow,
		PlotHeight:  reportPlotHeight,
		Color:       reportColor,
	}
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	cfg := e.reportConfig(cmd)
	if err := validateReportConfig(cfg); err != nil {
		return err
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer e.closeStore(st)

	ui := statsui.NewModel(store.Loader{Store: st, Settings: e.settings}, cfg)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print attendance statistics",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	cmd.Flags().BoolVar(&reportJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&reportTrend, "trend", false, "add a trend sparkline column")
	cmd.Flags().BoolVar(&reportPlot, "plot", false, "plot the running attendance of the subjects most at risk")
	cmd.Flags().BoolVar(&reportColor, "color", false, "force colored plot output")
	addTrendFlags(cmd)
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	cfg := e.reportConfig(cmd)
	if err := validateReportConfig(cfg); err != nil {
		return err
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer e.closeStore(st)

	report, err := stats.BuildReport(cmd.Context(), store.Loader{Store: st, Settings: e.settings}, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	out := cmd.OutOrStdout()
	if reportJSON {
		return writeJSON(out, report.Stats)
	}
	if err := stats.RenderReport(out, report, reportTrend, cfg.TrendWindow); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if reportPlot {
		if _, err := fmt.Fprintln(out, ""); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		subjects := stats.SubjectsAtRisk(report.Stats, cfg.TrendTop)
		if err := stats.RenderTrend(out, report, subjects, cfg.TrendWindow, 0, cfg.PlotHeight, cfg.Color); err != nil {
			return fmt.Errorf("failed to render trend: %w", err)
		}
	}
	return nil
}

func newDayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "day [DATE]",
		Short: "Show how each slot of a day is counted",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDayCmd,
	}
	cmd.Flags().BoolVar(&dayJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func runDayCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	date := e.today
	if len(args) == 1 {
		if date, err = parseDateArg(args[0]); err != nil {
			return err
		}
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
	plan := stats.ResolveDay(data, date, e.today)
	if dayJSON {
		return writeJSON(cmd.OutOrStdout(), plan)
	}
	if err := stats.RenderDay(cmd.OutOrStdout(), plan); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := globalConfig
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve statistics as JSON over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, e.file.Server.Addr)
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer e.closeStore(st)

	// A configured reference day pins every request; otherwise each request uses the clock.
	var now func() time.Time
	if globalToday != "" {
		pinned := e.today
		now = func() time.Time { return pinned }
	}
	server := api.NewServer(store.Loader{Store: st, Settings: e.settings}, e.logger, now)
	httpServer := &http.Server{
		Addr:              serveAddr,
		Handler:           server.Handler(cmd.ErrOrStderr()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("listening", zap.String("addr", serveAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# attendr configuration
# Uncomment a value to enable it. CLI flags override config values.

[semester]
# start = "2024-01-01"              # First day of the semester
# last-working-date = "2024-05-31"  # Last teaching day
# subjects = ["Math", "Physics"]    # Tracked subjects ("Free" is reserved)

[timetable]
# One entry per slot: 8-10, 10-12, 1-3, 3-5. "" leaves a slot empty.
# Monday = ["Math", "Physics", "", "Free"]

[report]
# today = "2024-03-01"      # Fixed reference day (default: current date)
# trend-top = %d             # Subjects plotted by default
# trend-window = %d          # Trend points per subject (0 = all)
# plot-height = %d          # Trend plot height
# color = false             # Force colored plots

[server]
# addr = %q

[log]
# level = %q
`,
		defaultTrendTop,
		defaultTrendWindow,
		defaultPlotHeight,
		defaultAddr,
		logging.DefaultLevel,
	)
}

func validateReportConfig(cfg model.ReportConfig) error {
	if cfg.TrendTop < 1 {
		return fmt.Errorf("--trend-top must be >= 1")
	}
	if cfg.TrendWindow < 0 {
		return fmt.Errorf("--trend-window must be >= 0")
	}
	if cfg.PlotHeight < 2 {
		return fmt.Errorf("--plot-height must be >= 2")
	}
	return nil
}

// parseToday resolves the reference day; an empty value uses now's local date.
func parseToday(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return stats.CivilDay(now), nil
	}
	parsed, err := time.ParseInLocation(model.DateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --today value %q (expected YYYY-MM-DD)", value)
	}
	return stats.CivilDay(parsed), nil
}

func parseDateArg(value string) (time.Time, error) {
	parsed, err := stats.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
	}
	return parsed, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
