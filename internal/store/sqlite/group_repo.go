package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chatd/internal/domain"
)

type GroupRepo struct {
	db *sql.DB
}

func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

var _ domain.GroupRepository = (*GroupRepo)(nil)

// Create persists the group record and the membership index rows for every
// member in one transaction.
func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO groups (id, name, avatar, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, g.ID, g.Name, g.Avatar, g.CreatedBy, g.CreatedAt); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}

	now := time.Now().UnixMilli()
	for _, userID := range g.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at)
			VALUES (?, ?, ?)
		`, g.ID, userID, now); err != nil {
			return fmt.Errorf("insert group member: %w", err)
		}
	}
	return tx.Commit()
}

func (r *GroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, avatar, created_by, created_at, last_message
		FROM groups WHERE id = ?
	`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}

	members, err := r.members(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Members = members
	return g, nil
}

func scanGroup(row interface{ Scan(...any) error }) (*domain.Group, error) {
	g := &domain.Group{}
	var lastMessage sql.NullString
	if err := row.Scan(&g.ID, &g.Name, &g.Avatar, &g.CreatedBy, &g.CreatedAt, &lastMessage); err != nil {
		return nil, err
	}
	if lastMessage.Valid {
		g.LastMessage = &domain.LastMessage{}
		if err := json.Unmarshal([]byte(lastMessage.String), g.LastMessage); err != nil {
			return nil, fmt.Errorf("unmarshal last_message: %w", err)
		}
	}
	return g, nil
}

func (r *GroupRepo) members(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM group_members WHERE group_id = ? ORDER BY joined_at, user_id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// ListForUser resolves the user's membership index into full group records.
// Dangling index entries (group row gone) are filtered by the join.
func (r *GroupRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.avatar, g.created_by, g.created_at, g.last_message
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups for user: %w", err)
	}
	defer rows.Close()

	var res []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		res = append(res, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range res {
		members, err := r.members(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		g.Members = members
	}
	return res, nil
}

// AddMember adds the user to the group's member set. The membership index is
// the same relation read from both sides, so group record and user index
// cannot diverge. Adding an existing member is a no-op.
func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID string) error {
	if err := r.exists(ctx, groupID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`, groupID, userID, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveMember removes the user from the group's member set. Removing a
// non-member is a no-op.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	if err := r.exists(ctx, groupID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM group_members WHERE group_id = ? AND user_id = ?
	`, groupID, userID); err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}

func (r *GroupRepo) exists(ctx context.Context, groupID string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM groups WHERE id = ?`, groupID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check group: %w", err)
	}
	return nil
}

func (r *GroupRepo) SetLastMessage(ctx context.Context, groupID string, lm *domain.LastMessage) error {
	b, err := json.Marshal(lm)
	if err != nil {
		return fmt.Errorf("marshal last_message: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `
		UPDATE groups SET last_message = ? WHERE id = ?
	`, string(b), groupID); err != nil {
		return fmt.Errorf("set last message: %w", err)
	}
	return nil
}

// Delete removes the group record; membership index rows cascade. Message
// history cleanup is orchestrated by the service layer.
func (r *GroupRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GroupRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM groups`); err != nil {
		return fmt.Errorf("delete groups: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM group_members`); err != nil {
		return fmt.Errorf("delete group members: %w", err)
	}
	return nil
}
