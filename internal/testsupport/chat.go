package testsupport

import (
	"context"
	"sync"
)

// RecordingAnnouncer captures announcements for assertions.
type RecordingAnnouncer struct {
	mu       sync.Mutex
	messages []string
}

func (a *RecordingAnnouncer) Announce(_ context.Context, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
	return nil
}

// Messages returns a copy of everything announced so far.
func (a *RecordingAnnouncer) Messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := make([]string, len(a.messages))
	copy(cp, a.messages)
	return cp
}
