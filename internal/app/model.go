package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nateberkopec/chime/internal/bridge"
	"github.com/nateberkopec/chime/internal/persistence"
)

// dataFiles captures the persistence operations the UI needs. This makes it
// easy to stub in tests without touching the filesystem.
type dataFiles interface {
	ReadStatus() *persistence.StatusRecord
	ReadLogTail(n int) string
	ReadConfig() persistence.ConfigRecord
	WriteConfig(intervalSeconds int) error
	TruncateLog() error
}

// controller issues start/stop requests to the background loop.
type controller interface {
	RequestStart() error
	RequestStop() error
}

// changeSource signals that the shared files changed on disk.
type changeSource interface {
	Changes() <-chan struct{}
}

type mode int

const (
	modeNormal mode = iota
	modeInterval
	modeConfirmClear
)

type statusKind int

const (
	statusNeutral statusKind = iota
	statusSuccess
)

type statusMessage struct {
	text    string
	kind    statusKind
	expires time.Time
}

const intervalStep = 5

// Config wires external dependencies for the app.
type Config struct {
	Store           dataFiles
	Bridge          controller
	Watcher         changeSource
	Logger          zerolog.Logger
	RefreshInterval time.Duration
	TailLines       int
	Now             func() time.Time
}

// Model implements the Bubble Tea program.
type Model struct {
	store           dataFiles
	bridge          controller
	watcher         changeSource
	logger          zerolog.Logger
	refreshInterval time.Duration
	tailLines       int
	now             func() time.Time

	mode   mode
	width  int
	height int

	record          *persistence.StatusRecord
	config          persistence.ConfigRecord
	logs            string
	loaded          bool
	stopRequestedAt time.Time

	logView viewport.Model
	input   textinput.Model
	spin    spinner.Model

	status statusMessage
	alert  string
}

// New creates a Bubble Tea model for the control window.
func New(cfg Config) *Model {
	refreshInterval := cfg.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Second
	}
	tailLines := cfg.TailLines
	if tailLines <= 0 {
		tailLines = 30
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	ti := textinput.New()
	ti.Placeholder = fmt.Sprintf("%d-%d", persistence.MinIntervalSeconds, persistence.MaxIntervalSeconds)
	ti.Prompt = "Interval (seconds): "
	ti.CharLimit = 5
	ti.Blur()

	sp := spinner.New(spinner.WithSpinner(spinner.Ellipsis))

	return &Model{
		store:           cfg.Store,
		bridge:          cfg.Bridge,
		watcher:         cfg.Watcher,
		logger:          cfg.Logger,
		refreshInterval: refreshInterval,
		tailLines:       tailLines,
		now:             now,
		config:          persistence.ConfigRecord{IntervalSeconds: persistence.DefaultIntervalSeconds},
		logView:         viewport.New(80, 10),
		input:           ti,
		spin:            sp,
	}
}

// Init satisfies the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refreshCmd(), m.scheduleRefresh(), m.spin.Tick}
	if m.watcher != nil {
		cmds = append(cmds, waitForChange(m.watcher))
	}
	return tea.Batch(cmds...)
}

// Update drives the Bubble Tea state machine.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.maybeExpireStatus()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.configureLayout()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	case refreshTickMsg:
		return m, tea.Batch(m.scheduleRefresh(), m.refreshCmd())
	case fileChangedMsg:
		return m, tea.Batch(waitForChange(m.watcher), m.refreshCmd())
	case snapshotMsg:
		m.applySnapshot(msg)
	case actionResultMsg:
		if msg.Err != nil {
			m.logger.Warn().Err(msg.Err).Msg("action failed")
			m.alert = msg.Err.Error()
		} else if msg.Text != "" {
			m.setStatus(msg.Text, statusSuccess)
		}
		return m, m.refreshCmd()
	}

	return m, nil
}

// View renders the TUI.
func (m *Model) View() string {
	return renderView(m)
}

// DisplayState reports the state shown in the header.
func (m *Model) DisplayState() bridge.DisplayState {
	return bridge.Derive(m.record, m.stopRequestedAt)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	// Failures block everything else until acknowledged.
	if m.alert != "" {
		switch key {
		case "enter", "esc":
			m.alert = ""
		}
		return m, nil
	}

	switch m.mode {
	case modeInterval:
		return m.handleIntervalKey(msg)
	case modeConfirmClear:
		m.mode = modeNormal
		if key == "y" || key == "Y" {
			return m, m.clearLogsCmd()
		}
		m.setStatus("Clear cancelled", statusNeutral)
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "r", "f5":
		return m, m.refreshCmd()
	case "s":
		m.stopRequestedAt = time.Time{}
		m.setStatus("Starting service…", statusNeutral)
		return m, m.startCmd()
	case "x":
		return m, m.requestStop()
	case "+", "=":
		return m, m.setIntervalCmd(m.config.IntervalSeconds + intervalStep)
	case "-", "_":
		return m, m.setIntervalCmd(m.config.IntervalSeconds - intervalStep)
	case "i":
		m.mode = modeInterval
		m.input.SetValue(strconv.Itoa(m.config.IntervalSeconds))
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink
	case "c":
		m.mode = modeConfirmClear
		return m, nil
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *Model) handleIntervalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeInput()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		m.closeInput()
		seconds, err := strconv.Atoi(value)
		if err != nil {
			m.alert = fmt.Sprintf("invalid interval %q: enter a whole number of seconds", value)
			return m, nil
		}
		return m, m.setIntervalCmd(seconds)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closeInput() {
	m.mode = modeNormal
	m.input.Blur()
	m.input.SetValue("")
}

// requestStop shows the stopping state right away; the loop only notices at
// its next cycle boundary.
func (m *Model) requestStop() tea.Cmd {
	m.stopRequestedAt = m.now()
	if m.record != nil {
		optimistic := *m.record
		optimistic.Running = false
		m.record = &optimistic
	}
	m.setStatus("Stop requested", statusNeutral)
	return m.stopCmd()
}

func (m *Model) applySnapshot(msg snapshotMsg) {
	m.loaded = true
	m.record = msg.Record
	m.config = msg.Config
	m.logs = msg.Logs
	m.logView.SetContent(m.logs)
	m.logView.GotoBottom()
}

func (m *Model) configureLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	const (
		titleHeight   = 1
		summaryHeight = 1
		ruleHeight    = 1
		logTitle      = 1
		footerHeight  = 3
		statusHeight  = 1
	)
	logHeight := m.height - (titleHeight + summaryHeight + ruleHeight + logTitle + footerHeight + statusHeight)
	if logHeight < 3 {
		logHeight = 3
	}
	m.logView.Width = m.width
	m.logView.Height = logHeight
	m.logView.SetContent(m.logs)
	m.logView.GotoBottom()
	m.input.Width = max(10, m.width-len(m.input.Prompt)-4)
}

func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (m *Model) refreshCmd() tea.Cmd {
	store := m.store
	tail := m.tailLines
	return func() tea.Msg {
		return loadSnapshot(store, tail)
	}
}

func (m *Model) startCmd() tea.Cmd {
	ctl := m.bridge
	logger := m.logger
	return func() tea.Msg {
		if err := ctl.RequestStart(); err != nil {
			return actionResultMsg{Err: fmt.Errorf("could not start the service: %w", err)}
		}
		logger.Info().Msg("service launch requested")
		return actionResultMsg{Text: "Service started"}
	}
}

func (m *Model) stopCmd() tea.Cmd {
	ctl := m.bridge
	logger := m.logger
	return func() tea.Msg {
		if err := ctl.RequestStop(); err != nil {
			return actionResultMsg{Err: fmt.Errorf("could not request stop: %w", err)}
		}
		logger.Info().Msg("stop requested")
		return actionResultMsg{Text: "Stop requested; the service exits after its current interval"}
	}
}

func (m *Model) setIntervalCmd(seconds int) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		if err := store.WriteConfig(seconds); err != nil {
			if errors.Is(err, persistence.ErrIntervalOutOfRange) {
				return actionResultMsg{Err: err}
			}
			return actionResultMsg{Err: fmt.Errorf("could not save interval: %w", err)}
		}
		return actionResultMsg{Text: fmt.Sprintf("Interval set to %ds (applies from the next cycle)", seconds)}
	}
}

func (m *Model) clearLogsCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		if err := store.TruncateLog(); err != nil {
			return actionResultMsg{Err: fmt.Errorf("could not clear logs: %w", err)}
		}
		return actionResultMsg{Text: "Logs cleared"}
	}
}

func (m *Model) setStatus(text string, kind statusKind) {
	if text == "" {
		m.status = statusMessage{}
		return
	}
	m.status = statusMessage{
		text:    text,
		kind:    kind,
		expires: m.now().Add(10 * time.Second),
	}
}

func (m *Model) maybeExpireStatus() {
	if m.status.text == "" {
		return
	}
	if m.now().After(m.status.expires) {
		m.status = statusMessage{}
	}
}

type refreshTickMsg struct{}

type fileChangedMsg struct{}

type snapshotMsg struct {
	Record *persistence.StatusRecord
	Config persistence.ConfigRecord
	Logs   string
}

type actionResultMsg struct {
	Text string
	Err  error
}

func loadSnapshot(store dataFiles, tail int) snapshotMsg {
	return snapshotMsg{
		Record: store.ReadStatus(),
		Config: store.ReadConfig(),
		Logs:   store.ReadLogTail(tail),
	}
}

func waitForChange(source changeSource) tea.Cmd {
	if source == nil {
		return nil
	}
	changes := source.Changes()
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return fileChangedMsg{}
	}
}
