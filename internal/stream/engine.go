package stream

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

// Engine maintains the per-ticket comment log and its live fan-out.
//
// The ordering contract: Append assigns seq under the ticket's lock,
// persists, and only then publishes. Because persistence strictly precedes
// publication, a subscriber that replays after subscribing cannot miss a
// comment; at worst it sees one both ways and dedups on seq.
type Engine struct {
	comments       repository.CommentRepository
	tickets        repository.TicketRepository
	bus            Bus
	locks          *locks.KeyedMutex
	storageTimeout time.Duration
	logger         *zap.Logger
}

func NewEngine(
	comments repository.CommentRepository,
	tickets repository.TicketRepository,
	bus Bus,
	arena *locks.KeyedMutex,
	storageTimeout time.Duration,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		comments:       comments,
		tickets:        tickets,
		bus:            bus,
		locks:          arena,
		storageTimeout: storageTimeout,
		logger:         logger,
	}
}

// Append validates and persists a comment with the next sequence number
// for the ticket, then publishes it to live subscribers.
//
// idemKey, when non-empty, makes retries safe: a second call with the same
// key returns the previously persisted comment without consuming a new
// sequence number. Callers retrying after a Timeout must reuse their key.
//
// Validation failures consume no sequence number; they are checked before
// the ticket lock is even taken.
func (e *Engine) Append(ctx context.Context, ticketID uuid.UUID, author *models.User, body, idemKey string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errs.Validation("body", "comment body is required")
	}

	ctx, cancel := context.WithTimeout(ctx, e.storageTimeout)
	defer cancel()

	t, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, errs.FromCollaborator("get ticket", err)
	}
	if t == nil {
		return nil, errs.NotFound("ticket")
	}

	e.locks.Lock(ticketID)
	defer e.locks.Unlock(ticketID)

	if idemKey != "" {
		existing, err := e.comments.GetByIdempotencyKey(ctx, ticketID, idemKey)
		if err != nil {
			return nil, errs.FromCollaborator("check idempotency key", err)
		}
		if existing != nil {
			existing.AuthorName = author.Name
			return existing, nil
		}
	}

	last, err := e.comments.LastSeq(ctx, ticketID)
	if err != nil {
		return nil, errs.FromCollaborator("read last seq", err)
	}

	cm, err := e.comments.Append(ctx, ticketID, author.ID, body, last+1, idemKey)
	if err != nil {
		return nil, errs.FromCollaborator("append comment", err)
	}
	cm.AuthorName = author.Name

	// Persistence succeeded; the comment exists no matter what happens
	// next. A failed publish only delays live delivery; subscribers pick
	// the comment up on their next replay; so it is logged, not returned.
	if err := e.bus.Publish(ctx, *cm); err != nil {
		e.logger.Warn("comment persisted but publish failed",
			zap.String("ticket_id", ticketID.String()),
			zap.Int64("seq", cm.Seq),
			zap.Error(err),
		)
	}

	return cm, nil
}

// Replay returns every comment with seq > sinceSeq in ascending order.
// sinceSeq=0 replays the whole log. Used for the initial load and for
// closing gaps after a dropped live connection.
func (e *Engine) Replay(ctx context.Context, ticketID uuid.UUID, sinceSeq int64) ([]models.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storageTimeout)
	defer cancel()

	comments, err := e.comments.ListSince(ctx, ticketID, sinceSeq)
	if err != nil {
		return nil, errs.FromCollaborator("replay comments", err)
	}
	return comments, nil
}

// Subscribe opens a live subscription for the ticket. Callers must pair it
// with Replay per the replay-then-subscribe-then-reconcile protocol; the
// subscription alone guarantees delivery only from the moment it opens.
func (e *Engine) Subscribe(ctx context.Context, ticketID uuid.UUID) (Subscription, error) {
	sub, err := e.bus.Subscribe(ctx, ticketID)
	if err != nil {
		return nil, errs.FromCollaborator("subscribe", err)
	}
	return sub, nil
}
