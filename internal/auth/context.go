// Package auth tracks the signed-in user of one console client. Context is
// an observable whose user only changes through the backend's session change
// notifications.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
	"github.com/wolfeidau/organizehub/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// State is the observable auth state. Loading is true until the existing
// session has been resolved.
type State struct {
	User    *models.User
	Loading bool
}

// Authenticated reports whether a user is signed in.
func (s State) Authenticated() bool {
	return s.User != nil
}

// Context holds the auth state for a single client.
type Context struct {
	provider store.AuthProvider

	startOnce   sync.Once
	resolved    chan struct{}
	unsubscribe func()

	mu     sync.Mutex
	state  State
	subs   map[int]chan State
	nextID int
	closed bool
	// set once a session notification arrived, it supersedes the resolution result
	notified bool
}

// NewContext creates an unresolved context: loading and signed out.
func NewContext(provider store.AuthProvider) *Context {
	return &Context{
		provider: provider,
		resolved: make(chan struct{}),
		state:    State{Loading: true},
		subs:     make(map[int]chan State),
	}
}

// Start subscribes to session changes and resolves the existing session in
// the background. Calls after the first are no-ops.
func (c *Context) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		unsubscribe := c.provider.OnAuthStateChange(c.onAuthStateChange)

		c.mu.Lock()
		c.unsubscribe = unsubscribe
		c.mu.Unlock()

		go c.resolve(context.WithoutCancel(ctx))
	})
}

func (c *Context) resolve(ctx context.Context) {
	defer close(c.resolved)

	session, err := c.provider.GetSession(ctx)
	if err != nil {
		// an unreadable session is treated as signed out
		log.Warn().Err(err).Msg("failed to resolve session")
		session = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.notified {
		c.state.User = userOf(session)
	}
	c.state.Loading = false
	c.publishLocked()

	log.Debug().Bool("authenticated", session != nil).Msg("session resolved")
}

func (c *Context) onAuthStateChange(event models.AuthEvent, session *models.Session) {
	telemetry.GetMetrics().AuthEventsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("event", string(event))))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.notified = true

	user := userOf(session)
	if sameUser(c.state.User, user) {
		return
	}

	c.state.User = user
	c.publishLocked()

	log.Debug().Str("event", string(event)).Bool("authenticated", user != nil).Msg("auth state changed")
}

// State returns the current state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Resolved is closed once the initial session resolution finished.
func (c *Context) Resolved() <-chan struct{} {
	return c.resolved
}

// Subscribe returns a channel receiving state changes. A slow reader only
// sees the latest state. The returned func cancels the subscription and
// closes the channel.
func (c *Context) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	if c.closed {
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

// SignIn authenticates with email and password. The user is updated by the
// resulting session notification.
func (c *Context) SignIn(ctx context.Context, email, password string) error {
	if _, err := c.provider.SignInWithPassword(ctx, email, password); err != nil {
		return err
	}
	return nil
}

// SignUp registers a new user. It reports whether the user must confirm
// their email address before signing in.
func (c *Context) SignUp(ctx context.Context, email, password string) (bool, error) {
	session, err := c.provider.SignUp(ctx, email, password)
	if err != nil {
		return false, err
	}
	return session == nil, nil
}

// SignOut ends the session.
func (c *Context) SignOut(ctx context.Context) error {
	if err := c.provider.SignOut(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// Close stops listening for session changes and closes every subscription.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// publishLocked replaces any undelivered state with the current one.
func (c *Context) publishLocked() {
	state := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}

func (c *Context) snapshotLocked() State {
	state := c.state
	if state.User != nil {
		user := *state.User
		state.User = &user
	}
	return state
}

func userOf(session *models.Session) *models.User {
	if session == nil {
		return nil
	}
	user := session.User
	return &user
}

func sameUser(a, b *models.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
