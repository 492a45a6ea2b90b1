package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
)

type memStorage struct {
	mu      sync.Mutex
	session *models.Session
	saves   int
}

func (m *memStorage) Load(context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *memStorage) Save(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.saves++
	return nil
}

func (m *memStorage) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []models.AuthEvent
}

func (l *eventLog) record(event models.AuthEvent, _ *models.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) list() []models.AuthEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.AuthEvent(nil), l.events...)
}

func signedToken(t *testing.T, sub, email string, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return signed
}

func TestAuth_SignInWithPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/token", r.URL.Path)
		require.Equal(t, "password", r.URL.Query().Get("grant_type"))
		require.Equal(t, testAnonKey, r.Header.Get("apikey"))

		var creds credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "ada@example.com", creds.Email)

		_, _ = fmt.Fprintf(w, `{"access_token":"at","token_type":"bearer","expires_in":3600,"refresh_token":"rt","user":{"id":"u1","email":"ada@example.com"}}`)
	})

	storage := &memStorage{}
	events := &eventLog{}
	a := NewAuth(c, storage)
	unsubscribe := a.OnAuthStateChange(events.record)
	defer unsubscribe()

	session, err := a.SignInWithPassword(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "u1", session.User.ID)
	require.False(t, session.IsExpired())
	require.Equal(t, []models.AuthEvent{models.AuthEventSignedIn}, events.list())
	require.NotNil(t, storage.session)

	token, err := a.Token()
	require.NoError(t, err)
	require.Equal(t, "at", token.AccessToken)
}

func TestAuth_SignInInvalidCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`)
	})

	a := NewAuth(c, nil)
	_, err := a.SignInWithPassword(context.Background(), "ada@example.com", "wrong")
	require.EqualError(t, err, "Invalid login credentials")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "invalid_credentials", authErr.Code)
}

func TestAuth_legacyErrorShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`)
	})

	a := NewAuth(c, nil)
	_, err := a.SignInWithPassword(context.Background(), "ada@example.com", "wrong")
	require.EqualError(t, err, "Invalid Refresh Token")
}

func TestAuth_SignUpRequiresConfirmation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/signup", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":"u2","email":"new@example.com","confirmation_sent_at":"2024-01-01T00:00:00Z"}`)
	})

	events := &eventLog{}
	a := NewAuth(c, nil)
	a.OnAuthStateChange(events.record)

	session, err := a.SignUp(context.Background(), "new@example.com", "secret")
	require.NoError(t, err)
	require.Nil(t, session)
	require.Empty(t, events.list())
}

func TestAuth_SessionFallsBackToTokenClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signedToken(t, "u3", "claims@example.com", exp)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"access_token":%q,"refresh_token":"rt"}`, access)
	})

	a := NewAuth(c, nil)
	session, err := a.SignUp(context.Background(), "claims@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, models.User{ID: "u3", Email: "claims@example.com"}, session.User)
	require.True(t, exp.Equal(session.ExpiresAt))
}

func TestAuth_GetSessionRestoresAndRefreshes(t *testing.T) {
	refreshed := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))

		var body refreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "old-rt", body.RefreshToken)

		refreshed++
		_, _ = fmt.Fprintf(w, `{"access_token":"new-at","expires_at":%d,"refresh_token":"new-rt","user":{"id":"u1","email":"ada@example.com"}}`,
			time.Now().Add(time.Hour).Unix())
	})

	storage := &memStorage{session: &models.Session{
		AccessToken:  "old-at",
		RefreshToken: "old-rt",
		ExpiresAt:    time.Now().Add(-time.Minute),
		User:         models.User{ID: "u1", Email: "ada@example.com"},
	}}
	events := &eventLog{}
	a := NewAuth(c, storage)
	a.OnAuthStateChange(events.record)

	session, err := a.GetSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new-at", session.AccessToken)
	require.Equal(t, "new-rt", storage.session.RefreshToken)

	session, err = a.GetSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new-at", session.AccessToken)

	require.Equal(t, 1, refreshed)
	require.Equal(t, []models.AuthEvent{models.AuthEventTokenRefreshed, models.AuthEventInitialSession}, events.list())
}

func TestAuth_RejectedRefreshSignsOut(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error_code":"refresh_token_not_found","msg":"Invalid Refresh Token: Refresh Token Not Found"}`)
	})

	storage := &memStorage{session: &models.Session{
		AccessToken:  "old-at",
		RefreshToken: "old-rt",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}}
	events := &eventLog{}
	a := NewAuth(c, storage)
	a.OnAuthStateChange(events.record)

	session, err := a.GetSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, session)
	require.Nil(t, storage.session)
	require.Equal(t, []models.AuthEvent{models.AuthEventSignedOut, models.AuthEventInitialSession}, events.list())

	token, err := a.Token()
	require.NoError(t, err)
	require.Equal(t, testAnonKey, token.AccessToken)
}

func TestAuth_SignOut(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "revoked", status: http.StatusNoContent},
		{name: "session already gone", status: http.StatusNotFound},
		{name: "token rejected", status: http.StatusUnauthorized},
		{name: "server failure", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/auth/v1/logout", r.URL.Path)
				require.Equal(t, "Bearer at", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
			})

			storage := &memStorage{session: &models.Session{
				AccessToken: "at",
				ExpiresAt:   time.Now().Add(time.Hour),
				User:        models.User{ID: "u1"},
			}}
			events := &eventLog{}
			a := NewAuth(c, storage)
			a.OnAuthStateChange(events.record)

			err := a.SignOut(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				require.NotNil(t, storage.session)
				require.Empty(t, events.list())
				return
			}

			require.NoError(t, err)
			require.Nil(t, storage.session)
			require.Equal(t, []models.AuthEvent{models.AuthEventSignedOut}, events.list())

			session, err := a.GetSession(context.Background())
			require.NoError(t, err)
			require.Nil(t, session)
		})
	}
}

func TestAuth_Unsubscribe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	events := &eventLog{}
	a := NewAuth(c, nil)
	unsubscribe := a.OnAuthStateChange(events.record)
	unsubscribe()

	require.NoError(t, a.SignOut(context.Background()))
	require.Empty(t, events.list())
}

func TestAuthError_notAuthenticated(t *testing.T) {
	err := &AuthError{Status: http.StatusUnauthorized, Message: "invalid JWT"}
	require.ErrorIs(t, err, store.ErrNotAuthenticated)
	require.NotErrorIs(t, &AuthError{Status: http.StatusBadRequest}, store.ErrNotAuthenticated)
}
