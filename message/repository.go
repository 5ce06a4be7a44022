package message

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the referenced listing does not exist.
	ErrNotFound = errors.New("message: listing not found")
	// ErrForbidden signals the caller is not a participant of the thread.
	ErrForbidden = errors.New("message: not a participant")
)

// Repository handles data access for listing conversations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a message, verifying in the same statement that the listing
// exists; senders messaging themselves are rejected by the service layer.
func (r *Repository) Create(ctx context.Context, itemID, senderID, recipientID, body string) (Message, error) {
	const insertSQL = `
		INSERT INTO messages (item_id, sender_id, recipient_id, body)
		SELECT i.id, $2, $3, $4
		FROM items i
		WHERE i.id = $1
		RETURNING id, item_id, sender_id, recipient_id, body, created_at
	`

	var m Message
	err := r.pool.QueryRow(ctx, insertSQL, itemID, senderID, recipientID, body).
		Scan(&m.ID, &m.ItemID, &m.SenderID, &m.RecipientID, &m.Body, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, ErrNotFound
		}
		return Message{}, fmt.Errorf("message: create: %w", err)
	}
	return m, nil
}

// ListForItem returns the thread on a listing restricted to messages the
// caller sent or received.
func (r *Repository) ListForItem(ctx context.Context, itemID, userID string) ([]Message, error) {
	const query = `
		SELECT id, item_id, sender_id, recipient_id, body, created_at
		FROM messages
		WHERE item_id = $1 AND (sender_id = $2 OR recipient_id = $2)
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("message: list for item: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0, 8)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ItemID, &m.SenderID, &m.RecipientID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("message: scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message: iterate: %w", err)
	}
	return out, nil
}

// ListConversations returns one row per (listing, counterparty) pair the user
// has exchanged messages with, most recent first.
func (r *Repository) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	const query = `
		SELECT DISTINCT ON (m.item_id, counterparty)
		       m.item_id,
		       i.title,
		       CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS counterparty,
		       m.body,
		       m.created_at
		FROM messages m
		JOIN items i ON i.id = m.item_id
		WHERE m.sender_id = $1 OR m.recipient_id = $1
		ORDER BY m.item_id, counterparty, m.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("message: list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]Conversation, 0, 8)
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ItemID, &c.ItemTitle, &c.CounterpartyID, &c.LastBody, &c.LastAt); err != nil {
			return nil, fmt.Errorf("message: scan conversation: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message: iterate conversations: %w", err)
	}
	return out, nil
}
