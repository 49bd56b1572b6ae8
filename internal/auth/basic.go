package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/pkondrat/portaldav/internal/storage"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var ErrUnauthorized = errors.New("unauthorized")

type BasicAuth struct {
	Store  storage.Store
	Logger zerolog.Logger
}

// Authenticate validates an Authorization header value against the user
// store. Every failure collapses to ErrUnauthorized so callers emit a
// uniform 401.
func (b *BasicAuth) Authenticate(ctx context.Context, header string) (*Principal, error) {
	if header == "" {
		return nil, ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "basic" {
		return nil, ErrUnauthorized
	}
	dec, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrUnauthorized
	}
	creds := strings.SplitN(string(dec), ":", 2)
	if len(creds) != 2 {
		return nil, ErrUnauthorized
	}
	username, password := creds[0], creds[1]

	user, err := b.Store.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.Logger.Error().Err(err).Str("username", username).Msg("user lookup failed")
		}
		return nil, ErrUnauthorized
	}
	if !user.Active {
		return nil, ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrUnauthorized
	}
	return &Principal{UserID: user.ID, Username: user.Username}, nil
}
