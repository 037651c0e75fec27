// Package events keeps a bounded in-memory log of engine activity for the
// operator API.
package events

import (
	"sync"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

const defaultCapacity = 200

// Log is a fixed-capacity event buffer. When full, appending evicts the
// oldest entry.
type Log struct {
	mu      sync.RWMutex
	entries []domain.Event
	cap     int
	now     func() time.Time
	publish func(domain.Event)
}

// NewLog creates a Log with the given capacity; non-positive values fall
// back to the default.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Log{cap: capacity, now: time.Now}
}

// SetPublisher registers a callback invoked for every appended event, after
// the event is stored. Used to mirror events onto an external bus; the
// callback must not block.
func (l *Log) SetPublisher(publish func(domain.Event)) {
	l.mu.Lock()
	l.publish = publish
	l.mu.Unlock()
}

// Append records an event with the current time.
func (l *Log) Append(sev domain.EventSeverity, message string) {
	ev := domain.Event{
		Severity: sev,
		Message:  message,
	}

	l.mu.Lock()
	ev.Time = l.now()
	l.entries = append(l.entries, ev)
	if len(l.entries) > l.cap {
		l.entries = append([]domain.Event(nil), l.entries[len(l.entries)-l.cap:]...)
	}
	publish := l.publish
	l.mu.Unlock()

	if publish != nil {
		publish(ev)
	}
}

// Recent returns up to n events, newest first. n <= 0 returns everything.
func (l *Log) Recent(n int) []domain.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := len(l.entries)
	if n <= 0 || n > total {
		n = total
	}
	out := make([]domain.Event, n)
	for i := 0; i < n; i++ {
		out[i] = l.entries[total-1-i]
	}
	return out
}
