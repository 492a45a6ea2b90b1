package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
	"golang.org/x/oauth2"
)

// Auth is a GoTrue client holding the session of a single user agent.
// It restores the session from storage on first use and refreshes expired
// access tokens.
type Auth struct {
	client  *Client
	storage store.SessionStorage

	// serializes refreshes so a refresh token is only spent once
	refreshMu sync.Mutex

	mu        sync.Mutex
	session   *models.Session
	loaded    bool
	listeners map[int]store.AuthListener
	nextID    int
}

var _ store.AuthProvider = (*Auth)(nil)

// NewAuth creates an auth client. A nil storage keeps the session in memory only.
func NewAuth(client *Client, storage store.SessionStorage) *Auth {
	return &Auth{
		client:    client,
		storage:   storage,
		listeners: make(map[int]store.AuthListener),
	}
}

// GetSession returns the current session, refreshing it when the access
// token has expired. The first call emits INITIAL_SESSION.
func (a *Auth) GetSession(ctx context.Context) (*models.Session, error) {
	session, initial, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	if session != nil && session.IsExpired() {
		session, err = a.refresh(ctx, session)
		if err != nil {
			return nil, err
		}
	}

	if initial {
		a.emit(models.AuthEventInitialSession, session)
	}

	return cloneSession(session), nil
}

// Token implements oauth2.TokenSource. Without a session the anon key is
// returned so data calls run as the anonymous role.
func (a *Auth) Token() (*oauth2.Token, error) {
	session, err := a.GetSession(context.Background())
	if err != nil {
		return nil, err
	}
	if session == nil {
		return a.client.anonToken(), nil
	}

	return &oauth2.Token{
		AccessToken:  session.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: session.RefreshToken,
		Expiry:       session.ExpiresAt,
	}, nil
}

func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var resp tokenResponse
	err := a.post(ctx, "/token?grant_type=password", "", credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	session, err := resp.session()
	if err != nil {
		return nil, err
	}

	a.store(ctx, session)
	a.emit(models.AuthEventSignedIn, session)

	return cloneSession(session), nil
}

// SignUp registers a user. When the project requires email confirmation no
// session is issued and nil is returned.
func (a *Auth) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	var resp tokenResponse
	err := a.post(ctx, "/signup", "", credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.AccessToken == "" {
		log.Debug().Str("email", email).Msg("sign up requires email confirmation")
		return nil, nil
	}

	session, err := resp.session()
	if err != nil {
		return nil, err
	}

	a.store(ctx, session)
	a.emit(models.AuthEventSignedIn, session)

	return cloneSession(session), nil
}

// SignOut revokes the session remotely and clears it locally. A session the
// server no longer knows about is cleared without error.
func (a *Auth) SignOut(ctx context.Context) error {
	session, _, err := a.load(ctx)
	if err != nil {
		return err
	}

	if session != nil {
		err := a.post(ctx, "/logout", session.AccessToken, nil, nil)
		var authErr *AuthError
		if err != nil && !(errors.As(err, &authErr) && isGoneStatus(authErr.Status)) {
			return fmt.Errorf("failed to sign out: %w", err)
		}
	}

	a.store(ctx, nil)
	a.emit(models.AuthEventSignedOut, nil)

	return nil
}

func (a *Auth) OnAuthStateChange(fn store.AuthListener) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

// load returns the in-memory session, reading storage on first use.
func (a *Auth) load(ctx context.Context) (*models.Session, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loaded {
		return a.session, false, nil
	}

	if a.storage != nil {
		session, err := a.storage.Load(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load session: %w", err)
		}
		a.session = session
	}
	a.loaded = true

	return a.session, true, nil
}

func (a *Auth) refresh(ctx context.Context, stale *models.Session) (*models.Session, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	a.mu.Lock()
	current := a.session
	a.mu.Unlock()

	// another caller refreshed or signed out while we waited
	if current == nil || current.AccessToken != stale.AccessToken {
		return current, nil
	}

	var resp tokenResponse
	err := a.post(ctx, "/token?grant_type=refresh_token", "", refreshRequest{RefreshToken: stale.RefreshToken}, &resp)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) && authErr.Status < http.StatusInternalServerError {
			log.Warn().Err(err).Str("user_id", stale.User.ID).Msg("session refresh rejected, signing out")
			a.store(ctx, nil)
			a.emit(models.AuthEventSignedOut, nil)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	session, err := resp.session()
	if err != nil {
		return nil, err
	}

	a.store(ctx, session)
	a.emit(models.AuthEventTokenRefreshed, session)

	return session, nil
}

// store replaces the session and persists it; a nil session clears it.
func (a *Auth) store(ctx context.Context, session *models.Session) {
	a.mu.Lock()
	a.session = session
	a.loaded = true
	a.mu.Unlock()

	if a.storage == nil {
		return
	}

	var err error
	if session == nil {
		err = a.storage.Clear(ctx)
	} else {
		err = a.storage.Save(ctx, session)
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to persist session")
	}
}

// emit notifies listeners outside the lock so they may call back into Auth.
func (a *Auth) emit(event models.AuthEvent, session *models.Session) {
	a.mu.Lock()
	listeners := make([]store.AuthListener, 0, len(a.listeners))
	for _, fn := range a.listeners {
		listeners = append(listeners, fn)
	}
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(event, cloneSession(session))
	}
}

func (a *Auth) post(ctx context.Context, path, bearer string, body, dst any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode auth request: %w", err)
		}
	} else {
		payload = []byte("{}")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.client.baseURL+"/auth/v1"+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build auth request: %w", err)
	}
	a.client.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAuthError(resp)
	}

	if dst == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	return nil
}

func isGoneStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// accessClaims are the GoTrue access token claims used when the response
// omits the user or expiry.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (r *tokenResponse) session() (*models.Session, error) {
	if r.AccessToken == "" {
		return nil, errors.New("auth response did not include an access token")
	}

	session := &models.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
	}
	if session.TokenType == "" {
		session.TokenType = "bearer"
	}
	if r.User != nil {
		session.User = *r.User
	}

	switch {
	case r.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(r.ExpiresAt, 0)
	case r.ExpiresIn > 0:
		session.ExpiresAt = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}

	if session.ExpiresAt.IsZero() || session.User.ID == "" {
		claims := new(accessClaims)
		if _, _, err := jwt.NewParser().ParseUnverified(r.AccessToken, claims); err != nil {
			return nil, fmt.Errorf("failed to read access token claims: %w", err)
		}
		if session.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time
		}
		if session.User.ID == "" {
			session.User = models.User{ID: claims.Subject, Email: claims.Email}
		}
	}

	return session, nil
}

func cloneSession(session *models.Session) *models.Session {
	if session == nil {
		return nil
	}
	clone := *session
	return &clone
}
