package persistence

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// Sentinel texts returned by ReadLogTail in place of log content.
const (
	NoLogsYet    = "No logs yet"
	LogReadError = "Error reading logs"
)

const logTimeLayout = "2006-01-02 15:04:05"

// AppendLog writes one "[YYYY-MM-DD HH:MM:SS] message" line.
func (s *Store) AppendLog(message string) error {
	message = strings.ReplaceAll(message, "\r\n", " ")
	message = strings.ReplaceAll(message, "\n", " ")
	line := fmt.Sprintf("[%s] %s\n", s.now().Format(logTimeLayout), message)

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.logPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append log line: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// ReadLogTail returns the last n lines as one block. n <= 0 returns the
// whole file. Missing files yield NoLogsYet; unreadable ones LogReadError.
func (s *Store) ReadLogTail(n int) string {
	data, err := os.ReadFile(s.logPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NoLogsYet
		}
		s.logger.Warn().Err(err).Str("file", LogFileName).Msg("failed to read log")
		return LogReadError
	}
	if !utf8.Valid(data) {
		s.logger.Warn().Str("file", LogFileName).Msg("log is not valid UTF-8")
		return LogReadError
	}

	lines := strings.SplitAfter(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "")
}

// TruncateLog empties the log, creating it if absent.
func (s *Store) TruncateLog() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.logPath(), nil, 0644); err != nil {
		return fmt.Errorf("failed to truncate log: %w", err)
	}
	return nil
}
