// Package login tracks console browser sessions. Each browser gets a session
// cookie holding an opaque id; the server keeps that browser's auth context
// and workspace.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/internal/auth"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
	"github.com/wolfeidau/organizehub/internal/store/memory"
	"github.com/wolfeidau/organizehub/internal/telemetry"
	"github.com/wolfeidau/organizehub/internal/workspace"
)

// CookieName is the browser session cookie.
const CookieName = "_session"

// DefaultAnonymousTTL is how long a browser nobody signed in with is kept.
const DefaultAnonymousTTL = 15 * time.Minute

var ErrInvalidSession = errors.New("invalid session")

type contextKey string

const browserContextKey contextKey = "browser"

// Browser is the server side state of one browser.
type Browser struct {
	ID        string
	Auth      *auth.Context
	Workspace *workspace.Workspace
	CreatedAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
	stop     context.CancelFunc
}

// LastUsedAt returns when the browser last made a request.
func (b *Browser) LastUsedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}

func (b *Browser) touch(now time.Time) {
	b.mu.Lock()
	b.lastUsed = now
	b.mu.Unlock()
}

// Manager creates and expires browser sessions.
type Manager struct {
	backend      store.Backend
	sessionTTL   time.Duration
	anonymousTTL time.Duration
	secureCookie bool
	now          func() time.Time

	mu       sync.Mutex
	browsers map[string]*Browser
}

type Option func(*Manager)

// WithInsecureCookie drops the Secure flag so the console works over plain HTTP in development.
func WithInsecureCookie() Option {
	return func(m *Manager) {
		m.secureCookie = false
	}
}

// WithAnonymousTTL sets the idle TTL of browsers without a signed-in user.
// It never exceeds the session TTL.
func WithAnonymousTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.anonymousTTL = ttl
	}
}

// WithClock overrides time.Now, used by tests of session expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager. Idle browsers are dropped after sessionTTL,
// or the anonymous TTL while no user is signed in.
func NewManager(backend store.Backend, sessionTTL time.Duration, opts ...Option) (*Manager, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}

	if sessionTTL <= 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0")
	}

	m := &Manager{
		backend:      backend,
		sessionTTL:   sessionTTL,
		anonymousTTL: DefaultAnonymousTTL,
		secureCookie: true,
		now:          time.Now,
		browsers:     make(map[string]*Browser),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.anonymousTTL <= 0 || m.anonymousTTL > m.sessionTTL {
		m.anonymousTTL = m.sessionTTL
	}

	return m, nil
}

// Middleware resolves the browser of each request, creating one (and its
// cookie) when the request has no live session.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		browser, err := m.lookup(r)
		if err != nil {
			browser, err = m.create(r.Context())
			if err != nil {
				log.Error().Err(err).Msg("Failed to create browser session")
				http.Error(w, "Failed to create session", http.StatusInternalServerError)
				return
			}
			m.setCookie(w, browser.ID)
		}

		browser.touch(m.now())

		ctx := context.WithValue(r.Context(), browserContextKey, browser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BrowserFromContext returns the browser stored by Middleware.
func BrowserFromContext(ctx context.Context) (*Browser, bool) {
	browser, ok := ctx.Value(browserContextKey).(*Browser)
	return browser, ok
}

// AuthContext returns the auth context of the request's browser. It is the
// guard.ContextFunc for routes behind Middleware.
func AuthContext(r *http.Request) *auth.Context {
	browser, ok := BrowserFromContext(r.Context())
	if !ok {
		// unreachable behind Middleware, treat as a signed out client
		return nil
	}
	return browser.Auth
}

func (m *Manager) lookup(r *http.Request) (*Browser, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrInvalidSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	browser, ok := m.browsers[cookie.Value]
	if !ok {
		log.Debug().Msg("Unknown browser session")
		return nil, ErrInvalidSession
	}

	if m.expired(browser, m.now()) {
		log.Debug().Str("browser", browser.ID).Msg("Browser session expired")
		m.removeLocked(browser)
		return nil, ErrInvalidSession
	}

	return browser, nil
}

func (m *Manager) create(ctx context.Context) (*Browser, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	provider := m.backend.Auth(memory.NewSessionStorage())
	authCtx := auth.NewContext(provider)

	now := m.now()
	browser := &Browser{
		ID:        id.String(),
		Auth:      authCtx,
		Workspace: workspace.New(m.backend.Data(provider)),
		CreatedAt: now,
		lastUsed:  now,
	}

	// detached from the request, the browser outlives it
	watchCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	browser.stop = stop

	changes, cancel := authCtx.Subscribe()
	go watch(watchCtx, browser, changes, cancel)

	authCtx.Start(watchCtx)

	m.mu.Lock()
	m.browsers[browser.ID] = browser
	m.mu.Unlock()

	telemetry.GetMetrics().ActiveBrowsers.Add(ctx, 1)
	log.Debug().Str("browser", browser.ID).Msg("Browser session created")

	return browser, nil
}

// watch resets the workspace whenever the signed-in user changes so no data
// of a previous user survives a sign out.
func watch(ctx context.Context, browser *Browser, changes <-chan auth.State, cancel func()) {
	defer cancel()

	var current *models.User
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-changes:
			if !ok {
				return
			}
			if userID(state.User) != userID(current) {
				log.Debug().Str("browser", browser.ID).Bool("authenticated", state.User != nil).Msg("User changed, resetting workspace")
				browser.Workspace.Reset()
			}
			current = state.User
		}
	}
}

func userID(user *models.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.sessionTTL.Seconds()),
	})
}

// expired reports whether browser has been idle for longer than its TTL.
// Crawlers and abandoned sign in pages get the shorter anonymous TTL.
func (m *Manager) expired(browser *Browser, now time.Time) bool {
	ttl := m.sessionTTL
	if !browser.Auth.State().Authenticated() {
		ttl = m.anonymousTTL
	}
	return now.Sub(browser.LastUsedAt()) > ttl
}

// Sweep drops expired browsers and returns how many were dropped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for _, browser := range m.browsers {
		if m.expired(browser, now) {
			m.removeLocked(browser)
			removed++
		}
	}

	return removed
}

// Run sweeps idle browsers every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.Info().Int("removed", n).Msg("Swept idle browser sessions")
			}
		}
	}
}

// Len returns the number of live browsers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.browsers)
}

// Close drops every browser.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, browser := range m.browsers {
		m.removeLocked(browser)
	}
}

func (m *Manager) removeLocked(browser *Browser) {
	delete(m.browsers, browser.ID)
	browser.stop()
	browser.Auth.Close()
	telemetry.GetMetrics().ActiveBrowsers.Add(context.Background(), -1)
}
