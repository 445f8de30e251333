package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lalith-99/disputedesk/internal/models"
)

type TicketStore struct {
	pool *pgxpool.Pool
}

func NewTicketStore(pool *pgxpool.Pool) *TicketStore {
	return &TicketStore{pool: pool}
}

func (s *TicketStore) Create(ctx context.Context, ownerID uuid.UUID, title, description, category, invoiceRef string) (*models.Ticket, error) {
	query := `
		INSERT INTO tickets (id, owner_user_id, title, description, category, invoice_ref, status, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, $6, now())
		RETURNING id, owner_user_id, title, description, category, invoice_ref, status, created_at`

	var t models.Ticket
	err := s.pool.QueryRow(ctx, query, ownerID, title, description, category, invoiceRef, models.StatusPending).Scan(
		&t.ID,
		&t.OwnerUserID,
		&t.Title,
		&t.Description,
		&t.Category,
		&t.InvoiceRef,
		&t.Status,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	return &t, nil
}

func (s *TicketStore) GetByID(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	query := `
		SELECT id, owner_user_id, title, description, category, invoice_ref, status, created_at
		FROM tickets
		WHERE id = $1`

	var t models.Ticket
	err := s.pool.QueryRow(ctx, query, ticketID).Scan(
		&t.ID,
		&t.OwnerUserID,
		&t.Title,
		&t.Description,
		&t.Category,
		&t.InvoiceRef,
		&t.Status,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return &t, nil
}

func (s *TicketStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Ticket, error) {
	query := `
		SELECT id, owner_user_id, title, description, category, invoice_ref, status, created_at
		FROM tickets
		WHERE owner_user_id = $1
		ORDER BY created_at DESC`

	return s.queryTickets(ctx, query, ownerID)
}

func (s *TicketStore) ListAll(ctx context.Context) ([]models.Ticket, error) {
	query := `
		SELECT id, owner_user_id, title, description, category, invoice_ref, status, created_at
		FROM tickets
		ORDER BY created_at DESC`

	return s.queryTickets(ctx, query)
}

// SetStatus is the compare-and-set the state machine relies on: the WHERE
// clause on the current status makes concurrent transitions race safely:
// exactly one UPDATE matches, the rest report false.
func (s *TicketStore) SetStatus(ctx context.Context, ticketID uuid.UUID, from, to models.TicketStatus) (bool, error) {
	query := `
		UPDATE tickets
		SET status = $1
		WHERE id = $2 AND status = $3`

	tag, err := s.pool.Exec(ctx, query, to, ticketID, from)
	if err != nil {
		return false, fmt.Errorf("set ticket status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *TicketStore) queryTickets(ctx context.Context, query string, args ...any) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]models.Ticket, 0)
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(
			&t.ID,
			&t.OwnerUserID,
			&t.Title,
			&t.Description,
			&t.Category,
			&t.InvoiceRef,
			&t.Status,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}

	return tickets, nil
}
