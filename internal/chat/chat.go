package chat

import "context"

// Announcer sends messages to the chat room. Implementations must be safe
// for concurrent use; the engine announces from timer goroutines.
type Announcer interface {
	Announce(ctx context.Context, message string) error
}

// Audience reports the current room size. Used to size raids and to gate
// the scheduler.
type Audience interface {
	ViewerCount(ctx context.Context) (int, error)
}

// AnnouncerFunc adapts a function to the Announcer interface.
type AnnouncerFunc func(ctx context.Context, message string) error

func (f AnnouncerFunc) Announce(ctx context.Context, message string) error {
	return f(ctx, message)
}

// AudienceFunc adapts a function to the Audience interface.
type AudienceFunc func(ctx context.Context) (int, error)

func (f AudienceFunc) ViewerCount(ctx context.Context) (int, error) {
	return f(ctx)
}
