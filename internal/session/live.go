package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalith-99/disputedesk/internal/auth"
	"github.com/lalith-99/disputedesk/internal/authz"
	"github.com/lalith-99/disputedesk/internal/models"
)

// Status is the transient connection state surfaced to the UI layer. A
// session that loses its live subscription reports Reconnecting and keeps
// going; it never drops comments it already delivered.
type Status string

const (
	StatusLive         Status = "live"
	StatusReconnecting Status = "reconnecting"
)

// Session is one client attached to one ticket: the initial snapshot plus
// a live, in-order, exactly-once stream of subsequent comments.
//
// The delivery contract is enforced here, not trusted from the transport:
// comments arrive on Comments() in strictly increasing seq order with no
// gaps, regardless of how the underlying bus duplicates, drops, or delays
// events.
type Session struct {
	ticket  *models.Ticket
	history []models.Comment

	out    chan models.Comment
	status chan Status
	cancel context.CancelFunc

	coord    *Coordinator
	claims   *auth.Claims
	ticketID uuid.UUID
}

// Attach runs the full attach sequence: resolve identity, authorize
// ViewTicket, snapshot the ticket, replay history, then start the live
// loop which subscribes and reconciles. The returned session is already
// authorized for viewing; mutations re-authorize per call.
func (c *Coordinator) Attach(ctx context.Context, claims *auth.Claims, ticketID uuid.UUID) (*Session, error) {
	_, t, err := c.authorize(ctx, claims, ticketID, authz.ActionViewTicket)
	if err != nil {
		return nil, err
	}

	history, err := c.engine.Replay(ctx, ticketID, 0)
	if err != nil {
		return nil, err
	}

	var lastSeq int64
	if len(history) > 0 {
		lastSeq = history[len(history)-1].Seq
	}

	liveCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		ticket:   t,
		history:  history,
		out:      make(chan models.Comment, 64),
		status:   make(chan Status, 4),
		cancel:   cancel,
		coord:    c,
		claims:   claims,
		ticketID: ticketID,
	}

	go s.run(liveCtx, lastSeq)

	return s, nil
}

// Ticket returns the snapshot taken at attach time.
func (s *Session) Ticket() *models.Ticket { return s.ticket }

// History returns the comments that existed at attach time, in seq order.
func (s *Session) History() []models.Comment { return s.history }

// Comments yields comments appended after attach, in seq order, each
// exactly once. The channel closes when the session is closed or its
// parent context ends.
func (s *Session) Comments() <-chan models.Comment { return s.out }

// StatusEvents yields connection-state transitions. Best-effort: if the
// consumer is not listening, events are dropped rather than blocking
// delivery of comments.
func (s *Session) StatusEvents() <-chan Status { return s.status }

// PostComment re-authorizes and appends through the engine. The session's
// own live stream will deliver the comment back, same as for any other
// subscriber.
func (s *Session) PostComment(ctx context.Context, body, idemKey string) (*models.Comment, error) {
	return s.coord.PostComment(ctx, s.claims, s.ticketID, body, idemKey)
}

// Resolve re-authorizes and resolves the ticket.
func (s *Session) Resolve(ctx context.Context) (*models.Ticket, error) {
	return s.coord.ResolveTicket(ctx, s.claims, s.ticketID)
}

// Close detaches from the ticket and releases the live subscription.
// Safe to call more than once.
func (s *Session) Close() { s.cancel() }

// run is the live loop. Each iteration executes the subscribe-then-
// reconcile half of the protocol:
//
//  1. subscribe to the ticket's topic;
//  2. replay everything past lastSeq once the subscription is live,
//     closing the window where an append ran between the attach replay
//     and the subscription opening;
//  3. forward live events, discarding seq already delivered and filling
//     any gap with another replay.
//
// A closed subscription is not fatal: the loop reports Reconnecting and
// starts over with the same lastSeq, so nothing is re-delivered and
// nothing is skipped.
func (s *Session) run(ctx context.Context, lastSeq int64) {
	defer close(s.out)
	defer close(s.status)

	backoff := reconnectBackoffMin
	for {
		sub, err := s.coord.engine.Subscribe(ctx, s.ticketID)
		if err != nil {
			if !s.pause(ctx, &backoff) {
				return
			}
			continue
		}

		lastSeq, err = s.reconcile(ctx, lastSeq)
		if err != nil {
			sub.Close()
			if !s.pause(ctx, &backoff) {
				return
			}
			continue
		}

		s.emitStatus(StatusLive)
		backoff = reconnectBackoffMin

		lost := false
		for !lost {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case cm, ok := <-sub.Comments():
				if !ok {
					lost = true
					break
				}
				if cm.Seq <= lastSeq {
					continue // already delivered via replay or an earlier event
				}
				if cm.Seq > lastSeq+1 {
					// The bus skipped ahead; fill from the store. The
					// replay includes cm itself, so the event is dropped
					// rather than forwarded twice.
					lastSeq, err = s.reconcile(ctx, lastSeq)
					if err != nil {
						lost = true
					}
					continue
				}
				if !s.emit(ctx, cm) {
					sub.Close()
					return
				}
				lastSeq = cm.Seq
			}
		}

		sub.Close()
		if ctx.Err() != nil {
			return
		}
		s.emitStatus(StatusReconnecting)
		if !s.pause(ctx, &backoff) {
			return
		}
	}
}

// reconcile replays past lastSeq and emits everything new, returning the
// new high-water mark.
func (s *Session) reconcile(ctx context.Context, lastSeq int64) (int64, error) {
	comments, err := s.coord.engine.Replay(ctx, s.ticketID, lastSeq)
	if err != nil {
		s.coord.logger.Warn("reconcile replay failed",
			zap.String("ticket_id", s.ticketID.String()),
			zap.Int64("since_seq", lastSeq),
			zap.Error(err),
		)
		return lastSeq, err
	}
	for _, cm := range comments {
		if !s.emit(ctx, cm) {
			return lastSeq, ctx.Err()
		}
		lastSeq = cm.Seq
	}
	return lastSeq, nil
}

func (s *Session) emit(ctx context.Context, cm models.Comment) bool {
	select {
	case s.out <- cm:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) emitStatus(st Status) {
	select {
	case s.status <- st:
	default:
	}
}

// pause sleeps with doubling backoff, reporting false if the session
// ended while waiting.
func (s *Session) pause(ctx context.Context, backoff *time.Duration) bool {
	timer := time.NewTimer(*backoff)
	defer timer.Stop()

	if *backoff < reconnectBackoffMax {
		*backoff *= 2
	}

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
