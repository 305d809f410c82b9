package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"chatd/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

const messageColumns = `id, content, sender_id, receiver_id, group_id, chat_id, timestamp, read_by, reactions, attachments, forwarded`

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	readBy, err := json.Marshal(m.ReadBy)
	if err != nil {
		return fmt.Errorf("marshal read_by: %w", err)
	}
	reactions, err := json.Marshal(m.Reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}
	attachments, err := json.Marshal(m.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}
	var forwarded any
	if m.Forwarded != nil {
		b, err := json.Marshal(m.Forwarded)
		if err != nil {
			return fmt.Errorf("marshal forwarded: %w", err)
		}
		forwarded = string(b)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Content, m.SenderID, m.ReceiverID, m.GroupID, m.ChatID, m.Timestamp,
		string(readBy), string(reactions), string(attachments), forwarded)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func scanMessage(row interface{ Scan(...any) error }) (*domain.Message, error) {
	m := &domain.Message{}
	var readBy, reactions, attachments string
	var forwarded sql.NullString
	if err := row.Scan(
		&m.ID,
		&m.Content,
		&m.SenderID,
		&m.ReceiverID,
		&m.GroupID,
		&m.ChatID,
		&m.Timestamp,
		&readBy,
		&reactions,
		&attachments,
		&forwarded,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(readBy), &m.ReadBy); err != nil {
		return nil, fmt.Errorf("unmarshal read_by: %w", err)
	}
	if err := json.Unmarshal([]byte(reactions), &m.Reactions); err != nil {
		return nil, fmt.Errorf("unmarshal reactions: %w", err)
	}
	if err := json.Unmarshal([]byte(attachments), &m.Attachments); err != nil {
		return nil, fmt.Errorf("unmarshal attachments: %w", err)
	}
	if forwarded.Valid {
		m.Forwarded = &domain.Forwarded{}
		if err := json.Unmarshal([]byte(forwarded.String), m.Forwarded); err != nil {
			return nil, fmt.Errorf("unmarshal forwarded: %w", err)
		}
	}
	if m.Reactions == nil {
		m.Reactions = map[string]string{}
	}
	m.DeriveRead()
	return m, nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListByChat(ctx context.Context, chatID string, limit int) ([]*domain.Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, chatID, limit)
}

func (r *MessageRepo) ListByGroup(ctx context.Context, groupID string, limit int) ([]*domain.Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE group_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, groupID, limit)
}

func (r *MessageRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// AddReader adds userID to the message's read_by set. Idempotent: a reader
// already present is left untouched. The read-modify-write runs in a
// transaction so concurrent readers of the same message do not lose updates.
func (r *MessageRepo) AddReader(ctx context.Context, messageID, userID string) error {
	return r.updateJSON(ctx, messageID, func(m *domain.Message) bool {
		if m.WasReadBy(userID) {
			return false
		}
		m.ReadBy = append(m.ReadBy, userID)
		return true
	})
}

// SetReaction upserts the user's reaction, overwriting any previous one.
// At most one reaction per user per message.
func (r *MessageRepo) SetReaction(ctx context.Context, messageID, userID, reaction string) error {
	return r.updateJSON(ctx, messageID, func(m *domain.Message) bool {
		if m.Reactions == nil {
			m.Reactions = map[string]string{}
		}
		if m.Reactions[userID] == reaction {
			return false
		}
		m.Reactions[userID] = reaction
		return true
	})
}

func (r *MessageRepo) updateJSON(ctx context.Context, messageID string, mutate func(*domain.Message) bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, messageID)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}

	if !mutate(m) {
		return nil
	}

	readBy, err := json.Marshal(m.ReadBy)
	if err != nil {
		return fmt.Errorf("marshal read_by: %w", err)
	}
	reactions, err := json.Marshal(m.Reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE messages SET read_by = ?, reactions = ? WHERE id = ?
	`, string(readBy), string(reactions), messageID); err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return tx.Commit()
}

func (r *MessageRepo) DeleteByGroup(ctx context.Context, groupID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE group_id = ?`, groupID); err != nil {
		return fmt.Errorf("delete group messages: %w", err)
	}
	return nil
}

func (r *MessageRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}
