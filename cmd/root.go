package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/clock"
	"github.com/cwarden/timegrid/internal/config"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/remind"
	"github.com/cwarden/timegrid/internal/schedule"
	"github.com/cwarden/timegrid/internal/settings"
	"github.com/cwarden/timegrid/internal/source/api"
	"github.com/cwarden/timegrid/internal/ui"
	"github.com/cwarden/timegrid/internal/window"
)

var (
	cfgFile     string
	remindFiles []string
	icsFiles    []string
	debug       bool
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "timegrid",
	Short: "A terminal time-grid calendar",
	Long: `Timegrid lays out events and room reservations on a zoomable
day, week or month grid. Items come from remind files, iCalendar files
and feeds, and the timegrid items API.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: first of ~/.config/timegrid/timegridrc, ~/.timegridrc)")
	rootCmd.PersistentFlags().StringSliceVarP(&remindFiles, "file", "f", []string{}, "Remind file(s) to use (can be specified multiple times)")
	rootCmd.PersistentFlags().StringSliceVar(&icsFiles, "ics", []string{}, "iCalendar file(s) or URL(s) to use (can be specified multiple times)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log at debug level")
}

func initConfig() {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Command-line files replace the configured ones.
	if len(remindFiles) > 0 {
		cfg.RemindFiles = remindFiles
	}
	if len(icsFiles) > 0 {
		cfg.ICSFiles = icsFiles
	}
	if debug {
		cfg.Debug = true
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	log, err := logging.New(logging.Options{Path: cfg.LogFile, Debug: cfg.Debug})
	if err != nil {
		return err
	}
	defer log.Sync()

	src, watched, err := buildSource(log)
	if err != nil {
		return err
	}

	var store settings.Store
	fileStore, err := settings.OpenFile(cfg.SettingsFile)
	if err != nil {
		log.Warn("settings unavailable, zoom will not persist", zap.Error(err))
		store = settings.NewMemStore()
	} else {
		store = fileStore
	}

	cal := newCalendar(src, store, log)

	ticker := clock.NewMinuteTicker()
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := ui.NewModel(ui.Options{
		Config:   cfg,
		Calendar: cal,
		Ticker:   ticker,
		User:     currentUser(),
		Logger:   log,
		Context:  ctx,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	watcher, err := remind.NewWatcher(func(path string) {
		p.Send(ui.FilesChangedMsg{Path: path})
	}, remind.DefaultDebounce, log)
	if err != nil {
		log.Warn("file watching disabled", zap.Error(err))
	} else {
		defer watcher.Close()
		for _, f := range watched {
			if err := watcher.Add(f); err != nil {
				log.Warn("cannot watch file", zap.String("path", f), zap.Error(err))
			}
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func newCalendar(src window.Source, store settings.Store, log *zap.Logger) *calendar.Calendar {
	cache := window.New(src, window.Options{
		Padding:  cfg.Padding(),
		MaxDays:  cfg.MaxCachedDays,
		Location: time.Local,
		Logger:   log,
	})
	return calendar.New(cache, calendar.Options{
		Mode:          cfg.StartupView,
		WeekStart:     cfg.WeekStartDay,
		PixelsPerHour: cfg.PixelsPerHour,
		Strategy:      cfg.Layout,
		Zoom:          cfg.Zoom,
		Settings:      store,
		Logger:        log,
		OnActivate: func(id string, kind schedule.Kind, payload schedule.Payload) {
			log.Debug("item activated", zap.String("item", id), zap.Stringer("kind", kind))
		},
	})
}

// currentUser names the person whose reservations are highlighted: the
// API token's subject, or the login name.
func currentUser() string {
	if cfg.APIToken != "" {
		if sub, err := api.SubjectOf(cfg.APIToken); err == nil {
			return sub
		}
	}
	return os.Getenv("USER")
}
