package chat

import (
	"sync"
	"time"
)

// ActivityTracker keeps a rolling window of chat message timestamps so the
// scheduler can estimate how busy the room is.
type ActivityTracker struct {
	mu     sync.Mutex
	window time.Duration
	stamps []time.Time
}

// NewActivityTracker creates a tracker with the given rolling window.
func NewActivityTracker(window time.Duration) *ActivityTracker {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &ActivityTracker{window: window}
}

// Record notes one chat message at the current time.
func (t *ActivityTracker) Record() {
	t.RecordAt(time.Now())
}

// RecordAt notes one chat message at the given time.
func (t *ActivityTracker) RecordAt(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(at)
	t.stamps = append(t.stamps, at)
}

// MessagesPerMinute returns the message rate over the rolling window.
func (t *ActivityTracker) MessagesPerMinute() float64 {
	return t.messagesPerMinuteAt(time.Now())
}

func (t *ActivityTracker) messagesPerMinuteAt(now time.Time) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(now)
	minutes := t.window.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(len(t.stamps)) / minutes
}

func (t *ActivityTracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	drop := 0
	for drop < len(t.stamps) && t.stamps[drop].Before(cutoff) {
		drop++
	}
	if drop > 0 {
		t.stamps = append(t.stamps[:0], t.stamps[drop:]...)
	}
}
