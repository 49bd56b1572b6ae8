package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pkondrat/portaldav/internal/storage"
)

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*storage.User, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, username, password_hash, is_active, created_at
		from users where username = ?`, username)
	var u storage.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Active, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *storage.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, username, password_hash, is_active, created_at)
		values (?, ?, ?, ?, ?)
	`, u.ID, u.Username, u.PasswordHash, u.Active, time.Now().UTC())
	return err
}
