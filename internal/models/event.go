package models

import (
	"errors"
	"time"
)

// ErrCalendarNotFound is returned by calendar readers when the requested
// calendar does not exist for the account. Retrying cannot fix it.
var ErrCalendarNotFound = errors.New("calendar not found")

// Event represents a busy calendar entry.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID        string    // Unique identifier for the event (e.g., from the source calendar)
	Title     string    // Summary or title of the event
	StartTime time.Time // Start time of the event
	EndTime   time.Time // End time of the event (exclusive)
	AllDay    bool      // Whole-day entry; StartTime/EndTime carry the dates only
	Source    string    // The source of the event (e.g., "google-primary")
}
