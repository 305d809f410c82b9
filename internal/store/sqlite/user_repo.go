package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chatd/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

const userColumns = `id, display_name, email, avatar, provider, hashed_password, online, last_seen, created_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	u := &domain.User{}
	var email sql.NullString
	if err := row.Scan(
		&u.ID,
		&u.DisplayName,
		&email,
		&u.Avatar,
		&u.Provider,
		&u.HashedPassword,
		&u.Online,
		&u.LastSeen,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	u.Email = email.String
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	var email any
	if u.Email != "" {
		email = u.Email
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.DisplayName, email, u.Avatar, u.Provider, u.HashedPassword, u.Online, u.LastSeen, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY display_name`)
}

func (r *UserRepo) ListOnline(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE online = 1 ORDER BY display_name`)
}

func (r *UserRepo) list(ctx context.Context, query string) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var res []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r *UserRepo) SetOnline(ctx context.Context, id string, online bool, lastSeen int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET online = ?, last_seen = ? WHERE id = ?
	`, online, lastSeen, id)
	if err != nil {
		return fmt.Errorf("set online status: %w", err)
	}
	return nil
}

func (r *UserRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	return nil
}
