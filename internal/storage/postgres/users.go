package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pkondrat/portaldav/internal/storage"
)

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*storage.User, error) {
	row := s.pool.QueryRow(ctx, `
		select id, username, password_hash, is_active, created_at
		from users where username = $1`, username)
	var u storage.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Active, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *storage.User) error {
	_, err := s.pool.Exec(ctx, `
		insert into users (id, username, password_hash, is_active)
		values ($1, $2, $3, $4)
	`, u.ID, u.Username, u.PasswordHash, u.Active)
	return err
}
