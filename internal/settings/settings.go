// Package settings loads process-level tuning knobs from the environment.
//
// These are distinct from config.json: the reminder interval lives in the
// shared data directory so both processes see changes, while settings only
// shape how a single process behaves.
package settings

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "CHIME"

// Settings holds the environment-driven options shared by both modes.
type Settings struct {
	DataDir         string        `envconfig:"DATA_DIR"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	TailLines       int           `envconfig:"TAIL_LINES" default:"30"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"5s"`
	RetryDelay      time.Duration `envconfig:"RETRY_DELAY" default:"5s"`
	WatchFiles      bool          `envconfig:"WATCH_FILES" default:"true"`
	Sound           bool          `envconfig:"SOUND" default:"true"`
}

// Load reads .env files (without overriding variables already set) and then
// processes CHIME_* variables.
func Load() (*Settings, error) {
	loadDotenv()

	var s Settings
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return nil, fmt.Errorf("process environment settings: %w", err)
	}
	if s.TailLines <= 0 {
		s.TailLines = 30
	}
	if s.RefreshInterval <= 0 {
		s.RefreshInterval = 5 * time.Second
	}
	if s.RetryDelay <= 0 {
		s.RetryDelay = 5 * time.Second
	}
	return &s, nil
}

// loadDotenv tries CHIME_ENV_FILE first, then .env in the working directory.
// CHIME_NO_DOTENV=1 skips both.
func loadDotenv() {
	if os.Getenv(envPrefix+"_NO_DOTENV") == "1" {
		return
	}
	if envFile := os.Getenv(envPrefix + "_ENV_FILE"); envFile != "" {
		_ = godotenv.Load(envFile)
		return
	}
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}
