package reminder

import "github.com/gen2brain/beeep"

// Notifier raises a desktop notification.
type Notifier interface {
	Notify(title, message string) error
}

// DesktopNotifier delivers notices through the OS notification service.
type DesktopNotifier struct {
	// Sound plays the system alert sound alongside the notification.
	Sound bool
}

// Notify sends the notification and reports delivery failures.
func (n DesktopNotifier) Notify(title, message string) error {
	if n.Sound {
		return beeep.Alert(title, message, "")
	}
	return beeep.Notify(title, message, "")
}
