package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andrisetiaw/go-storefront/internal/login"
)

type UserStore struct{ DB *pgxpool.Pool }

var ErrUserNotFound = errors.New("user not found")

func (s *UserStore) FindByUsername(ctx context.Context, username string) (login.User, error) {
	var u login.User
	err := s.DB.QueryRow(ctx, `SELECT id, username, password_hash, role FROM users WHERE username=$1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return login.User{}, ErrUserNotFound
	}
	if err != nil {
		return login.User{}, err
	}
	return u, nil
}
