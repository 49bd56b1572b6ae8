package auth

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/pkondrat/portaldav/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type userStore struct {
	storage.Store
	users map[string]*storage.User
}

func (s *userStore) GetUserByUsername(_ context.Context, username string) (*storage.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func newBasicAuth(t *testing.T) *BasicAuth {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return &BasicAuth{
		Store: &userStore{users: map[string]*storage.User{
			"alice": {ID: "u1", Username: "alice", PasswordHash: string(hash), Active: true, CreatedAt: time.Now()},
			"bob":   {ID: "u2", Username: "bob", PasswordHash: string(hash), Active: false, CreatedAt: time.Now()},
		}},
		Logger: zerolog.Nop(),
	}
}

func TestAuthenticateValidCredentials(t *testing.T) {
	b := newBasicAuth(t)

	p, err := b.Authenticate(context.Background(), basicHeader("alice", "s3cret"))
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "alice", p.Username)
}

func TestAuthenticateRejects(t *testing.T) {
	b := newBasicAuth(t)
	ctx := context.Background()

	cases := map[string]string{
		"empty header":   "",
		"not basic":      "Bearer abc",
		"bad base64":     "Basic !!!",
		"no colon":       "Basic " + base64.StdEncoding.EncodeToString([]byte("alice")),
		"wrong password": basicHeader("alice", "wrong"),
		"unknown user":   basicHeader("mallory", "s3cret"),
		"inactive user":  basicHeader("bob", "s3cret"),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := b.Authenticate(ctx, header)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}
