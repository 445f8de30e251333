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

type CommentStore struct {
	pool *pgxpool.Pool
}

func NewCommentStore(pool *pgxpool.Pool) *CommentStore {
	return &CommentStore{pool: pool}
}

// Append persists one comment. The caller assigns seq under the ticket's
// lock; the UNIQUE (ticket_id, seq) constraint is the backstop if that
// discipline is ever violated.
func (s *CommentStore) Append(ctx context.Context, ticketID, authorID uuid.UUID, body string, seq int64, idemKey string) (*models.Comment, error) {
	query := `
		INSERT INTO comments (id, ticket_id, author_id, body, seq, idempotency_key, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, NULLIF($5, ''), now())
		RETURNING id, ticket_id, author_id, body, seq, created_at`

	var cm models.Comment
	err := s.pool.QueryRow(ctx, query, ticketID, authorID, body, seq, idemKey).Scan(
		&cm.ID,
		&cm.TicketID,
		&cm.AuthorID,
		&cm.Body,
		&cm.Seq,
		&cm.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &cm, nil
}

// ListSince replays the log in seq order. The author name is joined in
// here so the view layer never does per-comment user lookups.
func (s *CommentStore) ListSince(ctx context.Context, ticketID uuid.UUID, sinceSeq int64) ([]models.Comment, error) {
	query := `
		SELECT c.id, c.ticket_id, c.author_id, u.name, c.body, c.seq, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.ticket_id = $1 AND c.seq > $2
		ORDER BY c.seq ASC`

	rows, err := s.pool.Query(ctx, query, ticketID, sinceSeq)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var cm models.Comment
		if err := rows.Scan(
			&cm.ID,
			&cm.TicketID,
			&cm.AuthorID,
			&cm.AuthorName,
			&cm.Body,
			&cm.Seq,
			&cm.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

func (s *CommentStore) LastSeq(ctx context.Context, ticketID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(MAX(seq), 0)
		FROM comments
		WHERE ticket_id = $1`

	var last int64
	if err := s.pool.QueryRow(ctx, query, ticketID).Scan(&last); err != nil {
		return 0, fmt.Errorf("last comment seq: %w", err)
	}
	return last, nil
}

func (s *CommentStore) GetByIdempotencyKey(ctx context.Context, ticketID uuid.UUID, idemKey string) (*models.Comment, error) {
	query := `
		SELECT id, ticket_id, author_id, body, seq, created_at
		FROM comments
		WHERE ticket_id = $1 AND idempotency_key = $2`

	var cm models.Comment
	err := s.pool.QueryRow(ctx, query, ticketID, idemKey).Scan(
		&cm.ID,
		&cm.TicketID,
		&cm.AuthorID,
		&cm.Body,
		&cm.Seq,
		&cm.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get comment by idempotency key: %w", err)
	}
	return &cm, nil
}
