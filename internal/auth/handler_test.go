package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/klinika/klinika/internal/shared"
)

func newTestHandler(t *testing.T, repo Repository) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "klinika_session", "session-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, NewService(repo), sessions, csrf), sessions
}

func loginRequestWithSession(t *testing.T, sessions *shared.SessionManager, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestLoginSuccess(t *testing.T) {
	user := testUser(t, "correct horse battery")
	repo := newFakeRepo(user)
	handler, sessions := newTestHandler(t, repo)

	req := loginRequestWithSession(t, sessions, `{"email":"eczaci@klinika.example","password":"correct horse battery"}`)
	rec := httptest.NewRecorder()
	handler.login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data sessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Data.Authenticated)
	require.Equal(t, "1", envelope.Data.UserID)
	require.Equal(t, "tnt-1", envelope.Data.TenantID)
	require.NotEmpty(t, envelope.Data.CSRFToken)
	require.Len(t, repo.logins, 1)

	sess := shared.SessionFromContext(req.Context())
	require.True(t, sess.Authenticated())
	require.Equal(t, "tnt-1", sess.Tenant())
}

func TestLoginBadCredentials(t *testing.T) {
	user := testUser(t, "correct horse battery")
	handler, sessions := newTestHandler(t, newFakeRepo(user))

	req := loginRequestWithSession(t, sessions, `{"email":"eczaci@klinika.example","password":"wrong password!"}`)
	rec := httptest.NewRecorder()
	handler.login(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	sess := shared.SessionFromContext(req.Context())
	require.False(t, sess.Authenticated())
}

func TestLoginRejectsInvalidBody(t *testing.T) {
	handler, sessions := newTestHandler(t, newFakeRepo())

	req := loginRequestWithSession(t, sessions, `{"email":"not-an-email","password":"short"}`)
	rec := httptest.NewRecorder()
	handler.login(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	user := testUser(t, "correct horse battery")
	repo := newFakeRepo(user)
	handler, sessions := newTestHandler(t, repo)

	req := loginRequestWithSession(t, sessions, "")
	sess := shared.SessionFromContext(req.Context())
	sess.Login("1", "tnt-1")

	rec := httptest.NewRecorder()
	handler.logout(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{sess.ID}, repo.logouts)
}

func TestSessionProbeAnonymous(t *testing.T) {
	handler, sessions := newTestHandler(t, newFakeRepo())

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	handler.session(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data sessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.False(t, envelope.Data.Authenticated)
	require.Empty(t, envelope.Data.CSRFToken)
}
