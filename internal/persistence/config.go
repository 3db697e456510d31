package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	DefaultIntervalSeconds = 30
	MinIntervalSeconds     = 5
	MaxIntervalSeconds     = 86400
)

// ErrIntervalOutOfRange rejects intervals outside [5, 86400] seconds.
var ErrIntervalOutOfRange = fmt.Errorf("interval must be between %d and %d seconds", MinIntervalSeconds, MaxIntervalSeconds)

// ConfigRecord holds the user-tunable reminder interval.
type ConfigRecord struct {
	IntervalSeconds int `json:"intervalo"`
}

// Interval converts the record to a duration.
func (c ConfigRecord) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// ValidInterval reports whether seconds is an accepted interval.
func ValidInterval(seconds int) bool {
	return seconds >= MinIntervalSeconds && seconds <= MaxIntervalSeconds
}

// ReadConfig never fails: a missing or unreadable file yields the default,
// and out-of-range values are clamped.
func (s *Store) ReadConfig() ConfigRecord {
	fallback := ConfigRecord{IntervalSeconds: DefaultIntervalSeconds}

	data, err := os.ReadFile(s.configPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug().Err(err).Msg("failed to read config")
		}
		return fallback
	}

	var raw struct {
		IntervalSeconds *int `json:"intervalo"`
	}
	if err := json.Unmarshal(data, &raw); err != nil || raw.IntervalSeconds == nil {
		s.logger.Debug().Err(err).Msg("failed to parse config")
		return fallback
	}

	seconds := *raw.IntervalSeconds
	if seconds < MinIntervalSeconds {
		seconds = MinIntervalSeconds
	}
	if seconds > MaxIntervalSeconds {
		seconds = MaxIntervalSeconds
	}
	return ConfigRecord{IntervalSeconds: seconds}
}

// WriteConfig stores a new interval.
func (s *Store) WriteConfig(intervalSeconds int) error {
	if !ValidInterval(intervalSeconds) {
		return fmt.Errorf("%w: got %d", ErrIntervalOutOfRange, intervalSeconds)
	}

	data, err := json.Marshal(ConfigRecord{IntervalSeconds: intervalSeconds})
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeFileAtomic(s.configPath(), data)
}
