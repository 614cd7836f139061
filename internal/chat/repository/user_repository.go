package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourism_chat_service/internal/chat/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// UserRepository definition the user fields the chat reads and the presence it writes
type UserRepository interface {
	FindUser(ctx context.Context, id string) (*domain.User, error)
	FindUsers(ctx context.Context, ids []string) ([]domain.User, error)
	UpdatePresence(ctx context.Context, id string, online bool, at time.Time) error
}

type userRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository create a UserRepository
func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

const userColumns = "id, name, COALESCE(avatar, ''), role, is_online, COALESCE(last_seen, to_timestamp(0))"

func (r *userRepository) FindUser(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Avatar, &u.Role, &u.IsOnline, &u.LastSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) FindUsers(ctx context.Context, ids []string) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, "SELECT "+userColumns+" FROM users WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Avatar, &u.Role, &u.IsOnline, &u.LastSeen); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepository) UpdatePresence(ctx context.Context, id string, online bool, at time.Time) error {
	_, err := r.db.Exec(ctx, "UPDATE users SET is_online = $1, last_seen = $2 WHERE id = $3", online, at, id)
	return err
}
