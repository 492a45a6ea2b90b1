package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
	"golang.org/x/oauth2"
)

// Auth implements store.AuthProvider against a Directory for one user agent.
type Auth struct {
	dir     *Directory
	storage store.SessionStorage
	anonKey string

	mu        sync.Mutex
	session   *models.Session
	loaded    bool
	listeners map[int]store.AuthListener
	nextID    int
}

var _ store.AuthProvider = (*Auth)(nil)

func (a *Auth) GetSession(ctx context.Context) (*models.Session, error) {
	a.mu.Lock()
	initial := !a.loaded
	if !a.loaded {
		if a.storage != nil {
			session, err := a.storage.Load(ctx)
			if err != nil {
				a.mu.Unlock()
				return nil, fmt.Errorf("failed to load session: %w", err)
			}
			a.session = session
		}
		a.loaded = true
	}
	session := a.session
	a.mu.Unlock()

	if session != nil && session.IsExpired() {
		refreshed, err := a.dir.refresh(session.RefreshToken)
		switch {
		case errors.Is(err, ErrInvalidRefresh):
			a.set(ctx, nil)
			a.emit(models.AuthEventSignedOut, nil)
			session = nil
		case err != nil:
			return nil, err
		default:
			a.set(ctx, refreshed)
			a.emit(models.AuthEventTokenRefreshed, refreshed)
			session = refreshed
		}
	}

	if initial {
		a.emit(models.AuthEventInitialSession, session)
	}

	return cloneSession(session), nil
}

// Token implements oauth2.TokenSource; the anon key stands in when signed out.
func (a *Auth) Token() (*oauth2.Token, error) {
	session, err := a.GetSession(context.Background())
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &oauth2.Token{AccessToken: a.anonKey, TokenType: "Bearer"}, nil
	}
	return &oauth2.Token{AccessToken: session.AccessToken, TokenType: "Bearer", Expiry: session.ExpiresAt}, nil
}

func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	session, err := a.dir.signIn(email, password)
	if err != nil {
		return nil, err
	}

	a.set(ctx, session)
	a.emit(models.AuthEventSignedIn, session)

	return cloneSession(session), nil
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	session, err := a.dir.signUp(email, password)
	if err != nil || session == nil {
		return nil, err
	}

	a.set(ctx, session)
	a.emit(models.AuthEventSignedIn, session)

	return cloneSession(session), nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session != nil {
		a.dir.revoke(session.AccessToken)
	}

	a.set(ctx, nil)
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

func (a *Auth) set(ctx context.Context, session *models.Session) {
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

func cloneSession(session *models.Session) *models.Session {
	if session == nil {
		return nil
	}
	clone := *session
	return &clone
}
