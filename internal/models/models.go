package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is fixed at provisioning time. The core never mutates it; changing
// a role means re-provisioning the user row out-of-band.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// TicketStatus has exactly two values in this core. "resolved" is terminal;
// there is no re-open transition.
type TicketStatus string

const (
	StatusPending  TicketStatus = "pending"
	StatusResolved TicketStatus = "resolved"
)

// User is a provisioned account. PasswordHash is a bcrypt hash and never
// appears in responses.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ticket is a dispute record. It is owned by exactly one client, and its
// status moves only through ticket.Service, which serializes the
// pending→resolved transition per ticket ID.
//
// InvoiceRef is optional free text ("INV-2041" etc). Category is free text
// as well; the UI offers Billing / Service Issue / Other, but the core only
// requires it to be non-empty.
type Ticket struct {
	ID          uuid.UUID    `json:"id"`
	OwnerUserID uuid.UUID    `json:"owner_user_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	InvoiceRef  string       `json:"invoice_ref,omitempty"`
	Status      TicketStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Comment is an immutable message on a ticket's conversation log.
//
// Seq is the per-ticket sequence number: strictly increasing, gap-free,
// assigned by the stream engine under the ticket's lock. All ordering and
// dedup in the system keys off Seq, not CreatedAt; the timestamp exists
// for display only.
//
// Why int64 for Seq (not UUID)? Comments are the highest-volume entity and
// the sequence number doubles as the replay cursor, so a compact, naturally
// ordered integer is the right shape; the same reasoning as a bigserial PK.
type Comment struct {
	ID         uuid.UUID `json:"id"`
	TicketID   uuid.UUID `json:"ticket_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Body       string    `json:"body"`
	Seq        int64     `json:"seq"`
	CreatedAt  time.Time `json:"created_at"`
}
