// Package memory provides in-memory implementations of the repository
// contracts. They keep the same semantics as the Postgres stores,
// including the compare-and-set on ticket status, and are safe for
// concurrent use, so the concurrency tests exercise the real engine logic
// against them.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lalith-99/disputedesk/internal/models"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]models.User)}
}

func (s *UserStore) Create(ctx context.Context, email, name, passwordHash string, role models.Role) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, fmt.Errorf("insert user: email %q already exists", email)
		}
	}

	u := models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.users[u.ID] = u
	return &u, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[userID]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

type TicketStore struct {
	mu      sync.RWMutex
	tickets map[uuid.UUID]models.Ticket
}

func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[uuid.UUID]models.Ticket)}
}

func (s *TicketStore) Create(ctx context.Context, ownerID uuid.UUID, title, description, category, invoiceRef string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := models.Ticket{
		ID:          uuid.New(),
		OwnerUserID: ownerID,
		Title:       title,
		Description: description,
		Category:    category,
		InvoiceRef:  invoiceRef,
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
	}
	s.tickets[t.ID] = t
	return &t, nil
}

func (s *TicketStore) GetByID(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tickets[ticketID]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *TicketStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tickets := make([]models.Ticket, 0)
	for _, t := range s.tickets {
		if t.OwnerUserID == ownerID {
			tickets = append(tickets, t)
		}
	}
	sortNewestFirst(tickets)
	return tickets, nil
}

func (s *TicketStore) ListAll(ctx context.Context) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tickets := make([]models.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		tickets = append(tickets, t)
	}
	sortNewestFirst(tickets)
	return tickets, nil
}

// SetStatus mirrors the SQL compare-and-set: the status swap happens only
// if the row is still in `from`, atomically under the store lock.
func (s *TicketStore) SetStatus(ctx context.Context, ticketID uuid.UUID, from, to models.TicketStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	s.tickets[ticketID] = t
	return true, nil
}

func sortNewestFirst(tickets []models.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
}

type CommentStore struct {
	mu       sync.RWMutex
	byTicket map[uuid.UUID][]models.Comment
	// idemKeys maps ticketID -> idempotency key -> comment ID.
	idemKeys map[uuid.UUID]map[string]uuid.UUID
	// authorName resolves display names at read time, mirroring the SQL
	// join in the Postgres store. Optional; nil leaves names empty.
	authorName func(uuid.UUID) string
}

func NewCommentStore() *CommentStore {
	return &CommentStore{byTicket: make(map[uuid.UUID][]models.Comment)}
}

// WithAuthorNames wires a display-name resolver, typically backed by the
// sibling UserStore.
func (s *CommentStore) WithAuthorNames(resolve func(uuid.UUID) string) *CommentStore {
	s.authorName = resolve
	return s
}

func (s *CommentStore) Append(ctx context.Context, ticketID, authorID uuid.UUID, body string, seq int64, idemKey string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cm := range s.byTicket[ticketID] {
		if cm.Seq == seq {
			return nil, fmt.Errorf("insert comment: duplicate seq %d on ticket %s", seq, ticketID)
		}
	}

	cm := models.Comment{
		ID:        uuid.New(),
		TicketID:  ticketID,
		AuthorID:  authorID,
		Body:      body,
		Seq:       seq,
		CreatedAt: time.Now(),
	}
	if idemKey != "" {
		// Stored out-of-band of the model: the key is a storage concern,
		// not part of the comment's public shape.
		s.keys(ticketID)[idemKey] = cm.ID
	}
	s.byTicket[ticketID] = append(s.byTicket[ticketID], cm)
	return &cm, nil
}

func (s *CommentStore) ListSince(ctx context.Context, ticketID uuid.UUID, sinceSeq int64) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]models.Comment, 0)
	for _, cm := range s.byTicket[ticketID] {
		if cm.Seq > sinceSeq {
			if s.authorName != nil {
				cm.AuthorName = s.authorName(cm.AuthorID)
			}
			comments = append(comments, cm)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].Seq < comments[j].Seq })
	return comments, nil
}

func (s *CommentStore) LastSeq(ctx context.Context, ticketID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last int64
	for _, cm := range s.byTicket[ticketID] {
		if cm.Seq > last {
			last = cm.Seq
		}
	}
	return last, nil
}

func (s *CommentStore) GetByIdempotencyKey(ctx context.Context, ticketID uuid.UUID, idemKey string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.keysRead(ticketID)[idemKey]
	if !ok {
		return nil, nil
	}
	for _, cm := range s.byTicket[ticketID] {
		if cm.ID == id {
			return &cm, nil
		}
	}
	return nil, nil
}

func (s *CommentStore) keys(ticketID uuid.UUID) map[string]uuid.UUID {
	if s.idemKeys == nil {
		s.idemKeys = make(map[uuid.UUID]map[string]uuid.UUID)
	}
	if s.idemKeys[ticketID] == nil {
		s.idemKeys[ticketID] = make(map[string]uuid.UUID)
	}
	return s.idemKeys[ticketID]
}

func (s *CommentStore) keysRead(ticketID uuid.UUID) map[string]uuid.UUID {
	return s.idemKeys[ticketID]
}
