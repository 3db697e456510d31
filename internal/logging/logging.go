// Package logging configures the zerolog diagnostics logger used by both
// the background loop and the terminal UI.
//
// Diagnostics never go to stdout: the UI owns the terminal and the service
// runs detached, so output lands in a file inside the data directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FileName is the diagnostics log written next to the shared files.
const FileName = "diagnostics.log"

// Options selects level, format and destination.
type Options struct {
	Level  string
	Format string
	Dir    string
	Role   string
}

// Setup opens the diagnostics file and returns a logger tagged with the
// process role. The returned closer releases the file.
func Setup(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(opts.Dir, FileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file %q: %w", path, err)
	}

	logger := New(file, opts.Format, level).With().Str("role", opts.Role).Logger()
	return logger, file, nil
}

// New builds a logger on an arbitrary writer.
func New(w io.Writer, format string, level zerolog.Level) zerolog.Logger {
	out := w
	if strings.ToLower(format) == "console" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(out).Level(level).With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()
}
