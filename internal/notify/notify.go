package notify

import (
	"context"
	"time"
)

// Signal "dose notifications should be (re)scheduled" for one profile
type Signal struct {
	ProfileID string    `json:"profile_id"`
	Inserted  int       `json:"inserted"`
	WindowEnd time.Time `json:"window_end"`
	At        time.Time `json:"at"`
}

// Notifier delivers reschedule signals to the notification collaborator.
// Delivery is fire-and-forget from the caller's point of view.
type Notifier interface {
	Notify(ctx context.Context, signal Signal) error
}

// Nop drops every signal
type Nop struct{}

func (Nop) Notify(context.Context, Signal) error { return nil }
