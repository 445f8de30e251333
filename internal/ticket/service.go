// Package ticket owns the ticket lifecycle: creation with validation, and
// the single pending→resolved transition. Resolved is terminal; nothing
// here (or anywhere in the core) deletes or archives a ticket.
package ticket

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalith-99/disputedesk/internal/errs"
	"github.com/lalith-99/disputedesk/internal/locks"
	"github.com/lalith-99/disputedesk/internal/models"
	"github.com/lalith-99/disputedesk/internal/repository"
)

type Service struct {
	tickets repository.TicketRepository
	// locks serializes resolve calls per ticket ID. The store's
	// compare-and-set would be correct alone; the lock ensures concurrent
	// callers line up so exactly one performs the transition and the rest
	// observe it already applied.
	locks          *locks.KeyedMutex
	storageTimeout time.Duration
	logger         *zap.Logger
}

func NewService(tickets repository.TicketRepository, arena *locks.KeyedMutex, storageTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		tickets:        tickets,
		locks:          arena,
		storageTimeout: storageTimeout,
		logger:         logger,
	}
}

// CreateInput carries the client-supplied fields. InvoiceRef is optional;
// the rest must be non-empty after trimming.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	InvoiceRef  string
}

// Create validates the input and persists a new pending ticket owned by
// ownerID.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*models.Ticket, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	category := strings.TrimSpace(in.Category)

	switch {
	case title == "":
		return nil, errs.Validation("title", "title is required")
	case description == "":
		return nil, errs.Validation("description", "description is required")
	case category == "":
		return nil, errs.Validation("category", "category is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	t, err := s.tickets.Create(ctx, ownerID, title, description, category, strings.TrimSpace(in.InvoiceRef))
	if err != nil {
		return nil, errs.FromCollaborator("create ticket", err)
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", t.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.String("category", t.Category),
	)
	return t, nil
}

// Get returns a ticket snapshot or NotFound.
func (s *Service) Get(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, errs.FromCollaborator("get ticket", err)
	}
	if t == nil {
		return nil, errs.NotFound("ticket")
	}
	return t, nil
}

// ListOwned returns the owner's tickets, newest first.
func (s *Service) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]models.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	tickets, err := s.tickets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errs.FromCollaborator("list tickets", err)
	}
	return tickets, nil
}

// ListAll returns every ticket. The authorization gate has already run by
// the time this is called.
func (s *Service) ListAll(ctx context.Context) ([]models.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, errs.FromCollaborator("list tickets", err)
	}
	return tickets, nil
}

// Resolve moves a ticket to resolved. Resolving an already-resolved ticket
// is a success no-op so duplicate admin clicks (or retries after a
// timeout) converge on the same outcome. The per-ticket lock plus the
// store's compare-and-set guarantee exactly one caller performs the
// actual transition.
func (s *Service) Resolve(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, errs.FromCollaborator("get ticket", err)
	}
	if t == nil {
		return nil, errs.NotFound("ticket")
	}

	if t.Status == models.StatusResolved {
		return t, nil
	}

	applied, err := s.tickets.SetStatus(ctx, ticketID, models.StatusPending, models.StatusResolved)
	if err != nil {
		return nil, errs.FromCollaborator("resolve ticket", err)
	}
	if !applied {
		// Lost the compare-and-set to a writer outside this process.
		// Re-fetch: if the ticket is resolved now, that is the idempotent
		// success; anything else is a genuine conflict.
		t, err = s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return nil, errs.FromCollaborator("get ticket", err)
		}
		if t == nil || t.Status != models.StatusResolved {
			return nil, errs.Conflict("ticket status changed concurrently")
		}
		return t, nil
	}

	t.Status = models.StatusResolved
	s.logger.Info("ticket resolved", zap.String("ticket_id", ticketID.String()))
	return t, nil
}
