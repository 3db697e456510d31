package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrInvalidStatus is returned when raw status bytes are not valid JSON.
var ErrInvalidStatus = errors.New("status is not valid JSON")

// NoticeTimeLayout formats the time-of-day of the last notice.
const NoticeTimeLayout = "15:04:05"

// StatusRecord is the singleton snapshot of the reminder loop's state.
type StatusRecord struct {
	Running        bool      `json:"running"`
	LastNoticeTime *string   `json:"ultimo_aviso"`
	NoticeCount    int       `json:"contador_avisos"`
	LastUpdated    Timestamp `json:"ultima_actualizacion"`
}

// Timestamp is an ISO-8601 time that also accepts zone-less values.
type Timestamp struct {
	time.Time
}

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

var timestampParseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(timestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampParseLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

// WriteStatus persists rec and returns the record actually written. A
// running=false already on disk wins over rec.Running: stop requests stick.
// The reverse never applies. Failures reading the existing file are treated
// as "no prior state".
func (s *Store) WriteStatus(rec StatusRecord) (StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := os.ReadFile(s.statusPath()); err == nil {
		if gjson.ValidBytes(existing) && gjson.GetBytes(existing, "running").Type == gjson.False {
			rec.Running = false
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		s.logger.Debug().Err(err).Msg("ignoring unreadable status during merge")
	}

	rec.LastUpdated = Timestamp{s.now()}

	data, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := writeFileAtomic(s.statusPath(), data); err != nil {
		return rec, err
	}
	return rec, nil
}

// ReadStatus returns the current record, or nil if the file is absent or
// cannot be parsed (possibly mid-write).
func (s *Store) ReadStatus() *StatusRecord {
	data, err := os.ReadFile(s.statusPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug().Err(err).Msg("failed to read status")
		}
		return nil
	}

	var rec StatusRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Debug().Err(err).Msg("failed to parse status")
		return nil
	}
	return &rec
}

// ReadStatusBytes returns the raw status file.
func (s *Store) ReadStatusBytes() ([]byte, error) {
	data, err := os.ReadFile(s.statusPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}
	return data, nil
}

// ReplaceStatus overwrites the status file verbatim, bypassing the merge
// rule. Used for explicit start/stop requests.
func (s *Store) ReplaceStatus(data []byte) error {
	if !gjson.ValidBytes(data) {
		return ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeFileAtomic(s.statusPath(), data)
}
