// Package repository declares the storage collaborator contracts. The core
// orchestrates and validates against these; it never owns durability
// itself. Postgres implementations live in repository/postgres, in-memory
// ones (tests, local dev) in repository/memory.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/lalith-99/disputedesk/internal/models"
)

// Every method takes ctx because every method does I/O: deadlines and
// cancellation must flow from the request all the way into the store.

// UserRepository handles provisioned accounts.
type UserRepository interface {
	// Create inserts a user and returns it with ID and CreatedAt populated.
	Create(ctx context.Context, email, name, passwordHash string, role models.Role) (*models.User, error)

	// GetByID returns a user by ID. Returns nil, nil if not found.
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail looks up a user by the identity collaborator's subject
	// (email). Returns nil, nil if no row exists yet.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// TicketRepository handles dispute records.
type TicketRepository interface {
	// Create inserts a pending ticket owned by ownerID.
	Create(ctx context.Context, ownerID uuid.UUID, title, description, category, invoiceRef string) (*models.Ticket, error)

	// GetByID returns a single ticket. Returns nil, nil if not found.
	GetByID(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error)

	// ListByOwner returns the owner's tickets, newest first.
	// Returns an empty slice (not nil) so JSON serializes to [].
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Ticket, error)

	// ListAll returns every ticket, newest first. Admin-only at the
	// authorization layer; the store does not gate.
	ListAll(ctx context.Context) ([]models.Ticket, error)

	// SetStatus performs a compare-and-set on status. It reports false,
	// nil when the row was not in `from` (the race was lost or already
	// applied); that is an outcome, not an error.
	SetStatus(ctx context.Context, ticketID uuid.UUID, from, to models.TicketStatus) (bool, error)
}

// CommentRepository handles the per-ticket append-only log. Callers (the
// stream engine) assign seq under the ticket's lock; the store only
// enforces uniqueness of (ticket_id, seq).
type CommentRepository interface {
	// Append persists a comment with the given seq and idempotency key and
	// returns it with ID and CreatedAt populated. idemKey may be empty.
	Append(ctx context.Context, ticketID, authorID uuid.UUID, body string, seq int64, idemKey string) (*models.Comment, error)

	// ListSince returns comments with seq > sinceSeq in ascending seq
	// order. sinceSeq=0 replays the whole log.
	ListSince(ctx context.Context, ticketID uuid.UUID, sinceSeq int64) ([]models.Comment, error)

	// LastSeq returns the highest seq on the ticket, 0 if it has no
	// comments yet.
	LastSeq(ctx context.Context, ticketID uuid.UUID) (int64, error)

	// GetByIdempotencyKey returns the comment previously appended with
	// this key on this ticket, or nil, nil if the key is unused.
	GetByIdempotencyKey(ctx context.Context, ticketID uuid.UUID, idemKey string) (*models.Comment, error)
}
