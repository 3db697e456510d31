package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nateberkopec/chime/internal/app"
	"github.com/nateberkopec/chime/internal/bridge"
	"github.com/nateberkopec/chime/internal/logging"
	"github.com/nateberkopec/chime/internal/persistence"
	"github.com/nateberkopec/chime/internal/reminder"
	"github.com/nateberkopec/chime/internal/settings"
)

func main() {
	var (
		service  bool
		start    bool
		stop     bool
		status   bool
		interval int
		dataDir  string
	)

	flag.BoolVar(&service, "service", false, "run the background reminder loop instead of the control window")
	flag.BoolVar(&start, "start", false, "launch the background loop and exit")
	flag.BoolVar(&stop, "stop", false, "ask the background loop to stop after its current interval and exit")
	flag.BoolVar(&status, "status", false, "print the service state and exit")
	flag.IntVar(&interval, "interval", 0, "set the reminder interval in seconds and exit")
	flag.StringVar(&dataDir, "data-dir", "", "directory holding app.log, status.json and config.json")
	flag.Parse()

	st, err := settings.Load()
	if err != nil {
		fatal(err)
	}
	if dataDir == "" {
		dataDir = st.DataDir
	}
	if dataDir == "" {
		if dataDir, err = persistence.DataDir(); err != nil {
			fatal(err)
		}
	}

	role := "ui"
	if service {
		role = "service"
	}
	logger, closer, err := logging.Setup(logging.Options{
		Level:  st.LogLevel,
		Format: st.LogFormat,
		Dir:    dataDir,
		Role:   role,
	})
	if err != nil {
		fatal(err)
	}
	defer closer.Close()

	store, err := persistence.NewStore(dataDir, persistence.WithLogger(logger))
	if err != nil {
		fatal(err)
	}

	switch {
	case service:
		err = runService(store, st, logger)
	case start || stop || status || interval != 0:
		err = runHeadless(os.Stdout, store, headlessRequest{start: start, stop: stop, status: status, interval: interval})
	default:
		err = runUI(store, st, logger)
	}
	if err != nil {
		logger.Error().Err(err).Msg("exiting with error")
		closer.Close()
		fatal(err)
	}
}

func runService(store *persistence.Store, st *settings.Settings, logger zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loop := reminder.New(reminder.Config{
		Store:      store,
		Notifier:   reminder.DesktopNotifier{Sound: st.Sound},
		Logger:     logger,
		RetryDelay: st.RetryDelay,
	})

	logger.Info().Str("dir", store.Dir()).Msg("service starting")
	err := loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info().Int("notices", loop.NoticeCount()).Msg("service terminated by signal")
		return nil
	}
	logger.Info().Int("notices", loop.NoticeCount()).Msg("service stopped")
	return err
}

func runUI(store *persistence.Store, st *settings.Settings, logger zerolog.Logger) error {
	launcher, err := bridge.NewSelfLauncher(store.Dir())
	if err != nil {
		return err
	}

	cfg := app.Config{
		Store:           store,
		Bridge:          bridge.New(store, launcher),
		Logger:          logger,
		RefreshInterval: st.RefreshInterval,
		TailLines:       st.TailLines,
	}

	if st.WatchFiles {
		w, err := newWatcher(store.Dir())
		if err != nil {
			logger.Warn().Err(err).Msg("file watching disabled; falling back to polling")
		} else {
			defer w.Close()
			go func() {
				for err := range w.Errors() {
					logger.Debug().Err(err).Msg("watcher error")
				}
			}()
			cfg.Watcher = w
		}
	}

	program := tea.NewProgram(
		app.New(cfg),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = program.Run()
	return err
}

type headlessRequest struct {
	start    bool
	stop     bool
	status   bool
	interval int
}

// runHeadless applies the scripting flags in a fixed order: interval, stop,
// start, then status.
func runHeadless(out io.Writer, store *persistence.Store, req headlessRequest) error {
	if req.interval != 0 {
		if err := store.WriteConfig(req.interval); err != nil {
			return err
		}
		fmt.Fprintf(out, "interval set to %ds\n", req.interval)
	}

	var launcher bridge.Launcher
	if req.start {
		l, err := bridge.NewSelfLauncher(store.Dir())
		if err != nil {
			return err
		}
		launcher = l
	}
	b := bridge.New(store, launcher)

	var stopRequestedAt time.Time
	if req.stop {
		stopRequestedAt = time.Now()
		if err := b.RequestStop(); err != nil {
			return err
		}
		fmt.Fprintln(out, "stop requested; the service exits after its current interval")
	}
	if req.start {
		stopRequestedAt = time.Time{}
		if err := b.RequestStart(); err != nil {
			return err
		}
		fmt.Fprintln(out, "service started")
	}
	if req.status {
		printStatus(out, store, stopRequestedAt)
	}
	return nil
}

func printStatus(out io.Writer, store *persistence.Store, stopRequestedAt time.Time) {
	rec := store.ReadStatus()
	cfg := store.ReadConfig()

	fmt.Fprintf(out, "state:       %s\n", bridge.Derive(rec, stopRequestedAt))
	fmt.Fprintf(out, "interval:    %ds\n", cfg.IntervalSeconds)
	if rec == nil {
		return
	}
	last := "---"
	if rec.LastNoticeTime != nil {
		last = *rec.LastNoticeTime
	}
	fmt.Fprintf(out, "notices:     %d\n", rec.NoticeCount)
	fmt.Fprintf(out, "last notice: %s\n", last)
	if !rec.LastUpdated.IsZero() {
		fmt.Fprintf(out, "updated:     %s\n", rec.LastUpdated.Format(time.DateTime))
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
