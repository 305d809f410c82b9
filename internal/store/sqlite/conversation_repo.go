package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"chatd/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

// Upsert creates the directory entry on first message and refreshes the
// last-message summary afterwards. Participants never change for a direct
// thread, so only the summary and updated_at move on conflict.
func (r *ConversationRepo) Upsert(ctx context.Context, c *domain.Conversation) error {
	if len(c.Participants) != 2 {
		return fmt.Errorf("%w: conversation requires two participants", domain.ErrInvalidInput)
	}
	var lastMessage any
	if c.LastMessage != nil {
		b, err := json.Marshal(c.LastMessage)
		if err != nil {
			return fmt.Errorf("marshal last_message: %w", err)
		}
		lastMessage = string(b)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_a, user_b, last_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_message = excluded.last_message, updated_at = excluded.updated_at
	`, c.ID, c.Participants[0], c.Participants[1], lastMessage, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

func scanConversation(row interface{ Scan(...any) error }) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	var userA, userB string
	var lastMessage sql.NullString
	if err := row.Scan(&c.ID, &userA, &userB, &lastMessage, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Participants = []string{userA, userB}
	if lastMessage.Valid {
		c.LastMessage = &domain.LastMessage{}
		if err := json.Unmarshal([]byte(lastMessage.String), c.LastMessage); err != nil {
			return nil, fmt.Errorf("unmarshal last_message: %w", err)
		}
	}
	return c, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_a, user_b, last_message, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_a, user_b, last_message, created_at, updated_at
		FROM conversations
		WHERE user_a = ? OR user_b = ?
		ORDER BY updated_at DESC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *ConversationRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return fmt.Errorf("delete conversations: %w", err)
	}
	return nil
}
