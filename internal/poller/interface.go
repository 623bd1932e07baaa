package poller

import "github.com/mauv0809/legend-tracker/internal/notifier"

// Notifier defines the notification operations required by the poller.
type Notifier interface {
	notifier.Notifier
}
