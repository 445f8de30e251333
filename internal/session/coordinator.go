// Package session ties the core together: identity resolution, the
// authorization gate, the ticket state machine, and the comment stream
// engine, behind the operations the API surface exposes. Every operation
// re-resolves the caller and re-runs the gate; a prior Allow is never
// trusted once any state may have changed.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalith-99/disputedesk/internal/auth"
	"github.com/lalith-99/disputedesk/internal/authz"
	"github.com/lalith-99/disputedesk/internal/errs"
	"github.com/lalith-99/disputedesk/internal/identity"
	"github.com/lalith-99/disputedesk/internal/models"
	"github.com/lalith-99/disputedesk/internal/stream"
	"github.com/lalith-99/disputedesk/internal/ticket"
)

type Coordinator struct {
	resolver *identity.Resolver
	tickets  *ticket.Service
	engine   *stream.Engine
	logger   *zap.Logger
}

func NewCoordinator(resolver *identity.Resolver, tickets *ticket.Service, engine *stream.Engine, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		resolver: resolver,
		tickets:  tickets,
		engine:   engine,
		logger:   logger,
	}
}

// CreateTicket files a new dispute owned by the caller.
func (c *Coordinator) CreateTicket(ctx context.Context, claims *auth.Claims, in ticket.CreateInput) (*models.Ticket, error) {
	user, err := c.resolver.Resolve(ctx, claims)
	if err != nil {
		return nil, err
	}
	return c.tickets.Create(ctx, user.ID, in)
}

// ListTickets returns what the caller is entitled to see: admins get every
// ticket, clients get their own.
func (c *Coordinator) ListTickets(ctx context.Context, claims *auth.Claims) ([]models.Ticket, error) {
	user, err := c.resolver.Resolve(ctx, claims)
	if err != nil {
		return nil, err
	}
	if authz.Decide(user, nil, authz.ActionListAllTickets).Allowed() {
		return c.tickets.ListAll(ctx)
	}
	return c.tickets.ListOwned(ctx, user.ID)
}

// TicketView is the unified snapshot an attached or one-shot viewer gets:
// the ticket plus its full comment log.
type TicketView struct {
	Ticket   *models.Ticket   `json:"ticket"`
	Comments []models.Comment `json:"comments"`
}

// GetTicketView authorizes ViewTicket and returns the snapshot.
func (c *Coordinator) GetTicketView(ctx context.Context, claims *auth.Claims, ticketID uuid.UUID) (*TicketView, error) {
	_, t, err := c.authorize(ctx, claims, ticketID, authz.ActionViewTicket)
	if err != nil {
		return nil, err
	}

	comments, err := c.engine.Replay(ctx, ticketID, 0)
	if err != nil {
		return nil, err
	}
	return &TicketView{Ticket: t, Comments: comments}, nil
}

// PostComment authorizes and appends. idemKey may be empty; callers that
// retry after a timeout must pass the same key both times.
func (c *Coordinator) PostComment(ctx context.Context, claims *auth.Claims, ticketID uuid.UUID, body, idemKey string) (*models.Comment, error) {
	user, _, err := c.authorize(ctx, claims, ticketID, authz.ActionPostComment)
	if err != nil {
		return nil, err
	}
	return c.engine.Append(ctx, ticketID, user, body, idemKey)
}

// ResolveTicket authorizes and resolves. Idempotent: a second call (or a
// concurrent duplicate) succeeds with no further state change.
func (c *Coordinator) ResolveTicket(ctx context.Context, claims *auth.Claims, ticketID uuid.UUID) (*models.Ticket, error) {
	if _, _, err := c.authorize(ctx, claims, ticketID, authz.ActionResolveTicket); err != nil {
		return nil, err
	}
	return c.tickets.Resolve(ctx, ticketID)
}

// authorize re-resolves the caller, fetches the ticket, and runs the gate.
// Always fresh on both sides: a role change or a ticket transition between
// two calls is picked up here, never papered over by a cached decision.
func (c *Coordinator) authorize(ctx context.Context, claims *auth.Claims, ticketID uuid.UUID, action authz.Action) (*models.User, *models.Ticket, error) {
	user, err := c.resolver.Resolve(ctx, claims)
	if err != nil {
		return nil, nil, err
	}

	t, err := c.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}

	if decision := authz.Decide(user, t, action); !decision.Allowed() {
		c.logger.Info("action denied",
			zap.String("user_id", user.ID.String()),
			zap.String("ticket_id", ticketID.String()),
			zap.String("action", string(action)),
			zap.String("reason", decision.Reason),
		)
		return nil, nil, errs.Forbidden(decision.Reason)
	}

	return user, t, nil
}

// reconnectBackoff paces resubscription attempts after a lost live
// connection.
const (
	reconnectBackoffMin = 250 * time.Millisecond
	reconnectBackoffMax = 5 * time.Second
)
