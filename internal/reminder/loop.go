// Package reminder implements the background loop that periodically fires
// notices and cooperates with the UI through the status file.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nateberkopec/chime/internal/persistence"
)

// State is the loop's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// StartMarker is the first log line of every loop instance.
const StartMarker = "=== Service started ==="

const (
	stopMessage       = "Stop requested externally; service exiting"
	noticeTitleFormat = "🔔 Notice #%d"
)

const defaultRetry = 5 * time.Second

// statusStore is the slice of persistence the loop needs.
type statusStore interface {
	AppendLog(message string) error
	WriteStatus(rec persistence.StatusRecord) (persistence.StatusRecord, error)
	ReadStatus() *persistence.StatusRecord
	ReadConfig() persistence.ConfigRecord
}

// SleepFunc suspends for d. It returns early only when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config wires the loop's collaborators.
type Config struct {
	Store      statusStore
	Notifier   Notifier
	Logger     zerolog.Logger
	RetryDelay time.Duration
	Sleep      SleepFunc
	Now        func() time.Time
}

// Loop is one reminder-loop instance. Counters live here rather than in
// package state and are lost when the process exits.
type Loop struct {
	store      statusStore
	notifier   Notifier
	logger     zerolog.Logger
	retryDelay time.Duration
	sleep      SleepFunc
	now        func() time.Time

	state      State
	count      int
	lastNotice *string
}

// New builds a loop. Store and Notifier are required.
func New(cfg Config) *Loop {
	l := &Loop{
		store:      cfg.Store,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
		retryDelay: cfg.RetryDelay,
		sleep:      cfg.Sleep,
		now:        cfg.Now,
	}
	if l.retryDelay <= 0 {
		l.retryDelay = defaultRetry
	}
	if l.sleep == nil {
		l.sleep = Sleep
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// State reports the current lifecycle phase.
func (l *Loop) State() State {
	return l.state
}

// NoticeCount reports how many notices this instance has fired.
func (l *Loop) NoticeCount() int {
	return l.count
}

// Run executes cycles until a stop request is observed (returns nil) or ctx
// is cancelled, which stands in for process termination (returns ctx.Err()).
// Stop requests are only checked at cycle boundaries, never mid-sleep.
func (l *Loop) Run(ctx context.Context) error {
	l.state = StateRunning
	l.persist()
	l.appendLog(StartMarker)
	l.logger.Info().Msg("reminder loop started")

	for {
		stop, err := l.cycle(ctx)
		if ctx.Err() != nil {
			l.state = StateStopped
			l.logger.Info().Int("notices", l.count).Msg("reminder loop terminated")
			return ctx.Err()
		}
		if err != nil {
			l.appendLog(fmt.Sprintf("ERROR in loop: %v", err))
			l.logger.Error().Err(err).Dur("retry_in", l.retryDelay).Msg("cycle failed")
			if err := l.sleep(ctx, l.retryDelay); err != nil {
				l.state = StateStopped
				return err
			}
			continue
		}
		if stop {
			l.state = StateStopping
			l.appendLog(stopMessage)
			l.logger.Info().Int("notices", l.count).Msg("stop request observed")
			l.state = StateStopped
			return nil
		}
	}
}

// cycle runs one sleep/notice/persist/check iteration.
func (l *Loop) cycle(ctx context.Context) (stop bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	interval := l.store.ReadConfig().Interval()
	if err := l.sleep(ctx, interval); err != nil {
		return false, err
	}

	l.fireNotice()

	if _, err := l.store.WriteStatus(l.snapshot()); err != nil {
		return false, fmt.Errorf("persist status: %w", err)
	}

	if rec := l.store.ReadStatus(); rec != nil && !rec.Running {
		return true, nil
	}
	return false, nil
}

func (l *Loop) fireNotice() {
	l.count++
	at := l.now().Format(persistence.NoticeTimeLayout)
	l.lastNotice = &at

	l.appendLog(fmt.Sprintf("Notice #%d emitted", l.count))
	l.logger.Info().Int("notice", l.count).Str("at", at).Msg("notice")

	title := fmt.Sprintf(noticeTitleFormat, l.count)
	if err := l.notifier.Notify(title, "Time: "+at); err != nil {
		l.appendLog(fmt.Sprintf("Error sending notification: %v", err))
		l.logger.Warn().Err(err).Int("notice", l.count).Msg("notification failed")
		return
	}
	l.appendLog(fmt.Sprintf("Notification sent for Notice #%d", l.count))
}

func (l *Loop) snapshot() persistence.StatusRecord {
	return persistence.StatusRecord{
		Running:        l.state == StateRunning,
		LastNoticeTime: l.lastNotice,
		NoticeCount:    l.count,
	}
}

// persist writes the initial record; failures are logged, not fatal.
func (l *Loop) persist() {
	if _, err := l.store.WriteStatus(l.snapshot()); err != nil {
		l.logger.Error().Err(err).Msg("failed to write initial status")
	}
}

func (l *Loop) appendLog(message string) {
	if err := l.store.AppendLog(message); err != nil {
		l.logger.Error().Err(err).Str("line", message).Msg("failed to append log")
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
