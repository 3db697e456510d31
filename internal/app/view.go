package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nateberkopec/chime/internal/bridge"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))

	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("247"))

	runningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("120"))
	stoppedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	stoppingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))

	ruleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	logStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	statusNeutralStyle = lipgloss.NewStyle()
	statusSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle = panelStyle.BorderForeground(lipgloss.Color("105"))
	alertStyle = panelStyle.BorderForeground(lipgloss.Color("203")).Foreground(lipgloss.Color("203"))

	fieldGap = " • "
)

func renderView(m *Model) string {
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}

	var out []string
	out = append(out, renderTitle(m))
	out = append(out, renderSummary(m))
	out = append(out, ruleStyle.Render(strings.Repeat("─", m.width)))
	out = append(out, labelStyle.Render(fmt.Sprintf("Logs (last %d lines)", m.tailLines)))
	out = append(out, logStyle.Render(m.logView.View()))
	out = append(out, renderFooter(m))
	out = append(out, renderStatusLine(m))

	return strings.Join(out, "\n")
}

func renderTitle(m *Model) string {
	return titleStyle.Width(m.width).Render(pad("Chime • service status", m.width))
}

func renderSummary(m *Model) string {
	if !m.loaded {
		return pad("Reading status…", m.width)
	}

	notices := "0"
	lastNotice := "---"
	updated := "never"
	if m.record != nil {
		notices = fmt.Sprintf("%d", m.record.NoticeCount)
		if m.record.LastNoticeTime != nil && *m.record.LastNoticeTime != "" {
			lastNotice = *m.record.LastNoticeTime
		}
		if !m.record.LastUpdated.IsZero() {
			updated = humanizeAgo(m.now().Sub(m.record.LastUpdated.Time))
		}
	}

	fields := []string{
		labelStyle.Render("State: ") + renderState(m),
		labelStyle.Render("Notices: ") + notices,
		labelStyle.Render("Last notice: ") + lastNotice,
		labelStyle.Render("Interval: ") + formatInterval(m.config.IntervalSeconds),
		labelStyle.Render("Updated: ") + updated,
	}
	return truncate(strings.Join(fields, fieldGap), m.width)
}

func renderState(m *Model) string {
	state := m.DisplayState()
	switch state {
	case bridge.DisplayRunning:
		return runningStyle.Render(state.String())
	case bridge.DisplayStopping:
		return stoppingStyle.Render(state.String() + m.spin.View())
	default:
		return stoppedStyle.Render(state.String())
	}
}

func renderFooter(m *Model) string {
	if m.alert != "" {
		text := fmt.Sprintf("Error: %s   [enter] dismiss", m.alert)
		return alertStyle.Width(max(10, m.width-2)).Render(truncate(text, max(1, m.width-4)))
	}

	switch m.mode {
	case modeInterval:
		return inputStyle.Render(m.input.View())
	case modeConfirmClear:
		return panelStyle.Width(max(10, m.width-2)).Render("Clear the log file? [y/N]")
	}

	help := "[s] start • [x] stop • [r] refresh • [+/-] interval • [i] set interval • [c] clear logs • [q] quit"
	return "\n" + helpStyle.Width(m.width).Render(truncate(help, m.width)) + "\n"
}

func renderStatusLine(m *Model) string {
	msg := m.status.text

	style := statusNeutralStyle
	if m.status.kind == statusSuccess {
		style = statusSuccessStyle
	}

	return style.Width(m.width).Render(pad(msg, m.width))
}

func formatInterval(seconds int) string {
	d := time.Duration(seconds) * time.Second
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(text) <= width {
		return text
	}
	if width <= 1 {
		return lipgloss.NewStyle().MaxWidth(1).Render(text)
	}
	trimmed := lipgloss.NewStyle().MaxWidth(width - 1).Render(text)
	return trimmed + "…"
}

func pad(text string, width int) string {
	if width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

func humanizeAgo(d time.Duration) string {
	if d < time.Second {
		return "just now"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}
