package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/klinika/klinika/internal/shared"
)

type fakeRepo struct {
	users   map[string]*User
	logins  []string
	logouts []string
}

func newFakeRepo(users ...*User) *fakeRepo {
	repo := &fakeRepo{users: map[string]*User{}}
	for _, u := range users {
		repo.users[u.Email] = u
	}
	return repo
}

func (f *fakeRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (f *fakeRepo) RecordLogin(_ context.Context, sessionID string, _ int64, _ time.Time, _, _ string) error {
	f.logins = append(f.logins, sessionID)
	return nil
}

func (f *fakeRepo) RecordLogout(_ context.Context, sessionID string) error {
	f.logouts = append(f.logouts, sessionID)
	return nil
}

func testUser(t *testing.T, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &User{
		ID:           1,
		TenantID:     "tnt-1",
		Email:        "eczaci@klinika.example",
		Name:         "Eczacı",
		Role:         "admin",
		PasswordHash: string(hash),
		IsActive:     true,
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	user := testUser(t, "correct horse battery")
	svc := NewService(newFakeRepo(user))

	got, err := svc.Authenticate(context.Background(), user.Email, "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, int64(1), got.ID)
	require.Equal(t, "tnt-1", got.TenantID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	user := testUser(t, "correct horse battery")
	svc := NewService(newFakeRepo(user))

	_, err := svc.Authenticate(context.Background(), user.Email, "wrong password!")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Authenticate(context.Background(), "nobody@klinika.example", "whatever123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	user := testUser(t, "correct horse battery")
	user.IsActive = false
	svc := NewService(newFakeRepo(user))

	_, err := svc.Authenticate(context.Background(), user.Email, "correct horse battery")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.False(t, errors.Is(err, shared.ErrNotFound))
}
