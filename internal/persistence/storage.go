// Package persistence owns the three files shared by the reminder loop and
// the terminal UI: the append-only log, the status record and the config
// record. No other package touches the data directory directly.
package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	appName = "chime"

	LogFileName    = "app.log"
	StatusFileName = "status.json"
	ConfigFileName = "config.json"
)

// Store reads and writes the shared files inside a single directory.
type Store struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time

	// mu serializes writers within one process. There is no cross-process
	// lock; concurrent processes get last-write-wins.
	mu sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger routes swallowed errors to a diagnostics logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the wall clock used for log and status timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore binds a Store to dir, creating it if needed.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		resolved, err := DataDir()
		if err != nil {
			return nil, err
		}
		dir = resolved
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		dir:    dir,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir reports the directory the store is bound to.
func (s *Store) Dir() string {
	return s.dir
}

// DataDir resolves the platform data directory without creating it.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName), nil
		}
		return filepath.Join(home, "AppData", "Roaming", appName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName), nil
	}

	xdgData := os.Getenv("XDG_DATA_HOME")
	if xdgData == "" {
		xdgData = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(xdgData, appName), nil
}

func (s *Store) logPath() string {
	return filepath.Join(s.dir, LogFileName)
}

func (s *Store) statusPath() string {
	return filepath.Join(s.dir, StatusFileName)
}

func (s *Store) configPath() string {
	return filepath.Join(s.dir, ConfigFileName)
}

// writeFileAtomic replaces path so readers see either the old or the new
// contents, never a torn write.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
