// Package bridge implements the UI side of the status-file protocol: stop
// and start requests, spawning the background loop, and deriving what the
// UI should display from the last status it read.
package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/nateberkopec/chime/internal/persistence"
)

// statusFiles is the raw status access the bridge needs.
type statusFiles interface {
	ReadStatusBytes() ([]byte, error)
	ReplaceStatus(data []byte) error
}

// Launcher starts a new background loop process.
type Launcher interface {
	Launch() error
}

// Bridge issues requests to the background loop through the status file.
type Bridge struct {
	store    statusFiles
	launcher Launcher
	now      func() time.Time
}

// New creates a bridge. launcher may be nil when only stop requests are
// needed.
func New(store statusFiles, launcher Launcher) *Bridge {
	return &Bridge{
		store:    store,
		launcher: launcher,
		now:      time.Now,
	}
}

// RequestStop flips running to false, leaving every other field as it was.
// The loop notices at its next cycle boundary; nothing waits for it.
func (b *Bridge) RequestStop() error {
	if _, err := b.setRunning(false); err != nil {
		return fmt.Errorf("request stop: %w", err)
	}
	return nil
}

// RequestStart marks the status as running, so a stale stop flag does not
// end the new loop on its first cycle, then launches a loop. Nothing checks
// whether another loop is already running. If the launch fails the previous
// status is put back.
func (b *Bridge) RequestStart() error {
	if b.launcher == nil {
		return fmt.Errorf("request start: no launcher configured")
	}
	previous, err := b.setRunning(true)
	if err != nil {
		return fmt.Errorf("request start: %w", err)
	}
	if err := b.launcher.Launch(); err != nil {
		if restoreErr := b.store.ReplaceStatus(previous); restoreErr != nil {
			return fmt.Errorf("request start: launch service: %w (restoring status: %v)", err, restoreErr)
		}
		return fmt.Errorf("request start: launch service: %w", err)
	}
	return nil
}

// setRunning rewrites the running flag and returns the status it replaced.
// A missing or corrupt file is treated as a fresh stopped record stamped now.
func (b *Bridge) setRunning(running bool) ([]byte, error) {
	data, err := b.store.ReadStatusBytes()
	if err != nil || !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		fresh := persistence.StatusRecord{LastUpdated: persistence.Timestamp{Time: b.now()}}
		data, err = json.Marshal(fresh)
		if err != nil {
			return nil, fmt.Errorf("marshal empty status: %w", err)
		}
	}

	updated, err := sjson.SetBytes(data, "running", running)
	if err != nil {
		return nil, fmt.Errorf("set running flag: %w", err)
	}
	if err := b.store.ReplaceStatus(updated); err != nil {
		return nil, err
	}
	return data, nil
}
