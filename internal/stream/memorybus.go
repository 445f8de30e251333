package stream

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lalith-99/disputedesk/internal/models"
)

// subscriberBuffer bounds how far a subscriber may lag before its
// subscription is dropped. A dropped subscriber reconnects and replays;
// the engine's protocol makes that lossless, so dropping beats blocking
// every other subscriber on one slow consumer.
const subscriberBuffer = 256

// MemoryBus is an in-process Bus. It backs tests and single-instance
// deployments; RedisBus carries the same contract across instances.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*memorySub]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[uuid.UUID]map[*memorySub]struct{})}
}

func (b *MemoryBus) Publish(ctx context.Context, comment models.Comment) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[comment.TicketID] {
		select {
		case sub.ch <- comment:
		default:
			// Subscriber lagged past its buffer: cut it loose so it
			// reconnects via replay.
			sub.closeLocked()
			delete(b.subs[comment.TicketID], sub)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, ticketID uuid.UUID) (Subscription, error) {
	sub := &memorySub{
		bus:      b,
		ticketID: ticketID,
		ch:       make(chan models.Comment, subscriberBuffer),
	}

	b.mu.Lock()
	if b.subs[ticketID] == nil {
		b.subs[ticketID] = make(map[*memorySub]struct{})
	}
	b.subs[ticketID][sub] = struct{}{}
	b.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Close()
		}()
	}

	return sub, nil
}

type memorySub struct {
	bus      *MemoryBus
	ticketID uuid.UUID
	ch       chan models.Comment
	closed   bool
}

func (s *memorySub) Comments() <-chan models.Comment { return s.ch }

func (s *memorySub) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if ticketSubs, ok := s.bus.subs[s.ticketID]; ok {
		delete(ticketSubs, s)
		if len(ticketSubs) == 0 {
			delete(s.bus.subs, s.ticketID)
		}
	}
	s.closeLocked()
}

// closeLocked closes the delivery channel once. Callers hold bus.mu.
func (s *memorySub) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
