// Package stream is the comment stream engine: a per-ticket ordered
// append-only log with live fan-out. Appends persist first and publish
// second; subscribers follow the replay-then-subscribe-then-reconcile
// protocol (see session.Coordinator) to see every comment exactly once.
package stream

import (
	"context"

	"github.com/google/uuid"

	"github.com/lalith-99/disputedesk/internal/models"
)

// Bus is the event collaborator: per-ticket fan-out of freshly appended
// comments. Delivery is at-least-once and best-effort; a subscriber that
// falls behind or loses its transport recovers by replaying from the
// store, never by asking the bus for history.
type Bus interface {
	// Publish fans out a comment to every live subscriber of its ticket.
	Publish(ctx context.Context, comment models.Comment) error

	// Subscribe opens a live subscription to a ticket's comments. It
	// delivers comments appended after the subscription is established;
	// it is cancelled by Close or when ctx ends.
	Subscribe(ctx context.Context, ticketID uuid.UUID) (Subscription, error)
}

// Subscription is a cancellable live stream of comments for one ticket.
type Subscription interface {
	// Comments yields comments as they are published. The channel closes
	// when the subscription ends; whether by Close, context
	// cancellation, or a transport failure. A closed channel is the
	// signal to run the reconnect protocol; it is not a fatal error.
	Comments() <-chan models.Comment

	// Close releases the subscriber's delivery slot. Safe to call more
	// than once.
	Close()
}
