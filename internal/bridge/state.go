package bridge

import (
	"time"

	"github.com/nateberkopec/chime/internal/persistence"
)

// DisplayState is what the UI shows for the background loop.
type DisplayState int

const (
	DisplayStopped DisplayState = iota
	DisplayRunning
	DisplayStopping
)

func (s DisplayState) String() string {
	switch s {
	case DisplayRunning:
		return "Running"
	case DisplayStopping:
		return "Stopping…"
	default:
		return "Stopped"
	}
}

// Derive maps the last-read status to a display state. It does not check
// that a loop process is alive. A stop requested after the loop's last
// write shows as Stopping until the loop writes again.
func Derive(rec *persistence.StatusRecord, stopRequestedAt time.Time) DisplayState {
	if rec == nil {
		return DisplayStopped
	}
	if rec.Running {
		return DisplayRunning
	}
	if !stopRequestedAt.IsZero() && !rec.LastUpdated.IsZero() && !rec.LastUpdated.After(stopRequestedAt) {
		return DisplayStopping
	}
	return DisplayStopped
}
