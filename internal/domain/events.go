package domain

import "time"

// EventSeverity tags operator-visible events.
type EventSeverity string

const (
	EventInfo  EventSeverity = "info"
	EventWarn  EventSeverity = "warn"
	EventError EventSeverity = "error"
	EventFatal EventSeverity = "fatal"
)

// Event is a single entry in the operator-visible event log.
type Event struct {
	Time     time.Time
	Severity EventSeverity
	Message  string
}
