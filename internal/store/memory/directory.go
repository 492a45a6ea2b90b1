package memory

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Errors reported by the directory, worded like the hosted auth service.
var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrUserExists         = errors.New("User already registered")
	ErrEmailNotConfirmed  = errors.New("Email not confirmed")
	ErrWeakPassword       = errors.New("Password should be at least 6 characters.")
	ErrSignupDisabled     = errors.New("Signups not allowed for this instance")
	ErrInvalidRefresh     = errors.New("Invalid Refresh Token: Refresh Token Not Found")
)

const minPasswordLength = 6

type account struct {
	user      models.User
	hash      []byte
	confirmed bool
}

type grant struct {
	userID    string
	expiresAt time.Time
}

// Directory is an in-memory user directory issuing opaque access and refresh
// tokens. Passwords are stored as bcrypt hashes.
type Directory struct {
	mu sync.RWMutex

	accounts      map[string]*account // email -> account
	accessTokens  map[string]grant
	refreshTokens map[string]string // refresh token -> user id

	tokenTTL      time.Duration
	autoConfirm   bool
	disableSignup bool
	cost          int
}

type DirectoryOption func(*Directory)

// WithTokenTTL sets the lifetime of issued access tokens.
func WithTokenTTL(ttl time.Duration) DirectoryOption {
	return func(d *Directory) {
		d.tokenTTL = ttl
	}
}

// WithEmailConfirmation makes sign ups wait for Confirm before a session is issued.
func WithEmailConfirmation() DirectoryOption {
	return func(d *Directory) {
		d.autoConfirm = false
	}
}

// WithSignupDisabled rejects every sign up.
func WithSignupDisabled() DirectoryOption {
	return func(d *Directory) {
		d.disableSignup = true
	}
}

// WithBcryptCost overrides the hashing cost, tests use bcrypt.MinCost.
func WithBcryptCost(cost int) DirectoryOption {
	return func(d *Directory) {
		d.cost = cost
	}
}

// NewDirectory creates an empty directory.
func NewDirectory(opts ...DirectoryOption) *Directory {
	d := &Directory{
		accounts:      make(map[string]*account),
		accessTokens:  make(map[string]grant),
		refreshTokens: make(map[string]string),
		tokenTTL:      time.Hour,
		autoConfirm:   true,
		cost:          bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SignupDisabled reports whether sign ups are rejected.
func (d *Directory) SignupDisabled() bool {
	return d.disableSignup
}

// Register adds a confirmed user, bypassing the sign up rules.
func (d *Directory) Register(email, password string) (models.User, error) {
	return d.create(email, password, true)
}

// Confirm marks the user's email address as confirmed.
func (d *Directory) Confirm(email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[normalizeEmail(email)]
	if !ok {
		return ErrInvalidCredentials
	}
	acct.confirmed = true

	return nil
}

func (d *Directory) signUp(email, password string) (*models.Session, error) {
	if d.disableSignup {
		return nil, ErrSignupDisabled
	}

	user, err := d.create(email, password, d.autoConfirm)
	if err != nil {
		return nil, err
	}
	if !d.autoConfirm {
		return nil, nil
	}

	return d.issue(user)
}

func (d *Directory) create(email, password string, confirmed bool) (models.User, error) {
	if len(password) < minPasswordLength {
		return models.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.User{}, fmt.Errorf("failed to generate user id: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := normalizeEmail(email)
	if _, exists := d.accounts[key]; exists {
		return models.User{}, ErrUserExists
	}

	user := models.User{ID: id.String(), Email: key}
	d.accounts[key] = &account{user: user, hash: hash, confirmed: confirmed}

	return user, nil
}

func (d *Directory) signIn(email, password string) (*models.Session, error) {
	d.mu.RLock()
	acct, ok := d.accounts[normalizeEmail(email)]
	d.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !acct.confirmed {
		return nil, ErrEmailNotConfirmed
	}

	return d.issue(acct.user)
}

func (d *Directory) refresh(refreshToken string) (*models.Session, error) {
	d.mu.Lock()
	userID, ok := d.refreshTokens[refreshToken]
	delete(d.refreshTokens, refreshToken)
	d.mu.Unlock()

	if !ok {
		return nil, ErrInvalidRefresh
	}

	user, ok := d.userByID(userID)
	if !ok {
		return nil, ErrInvalidRefresh
	}

	return d.issue(user)
}

func (d *Directory) revoke(accessToken string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	g, ok := d.accessTokens[accessToken]
	if !ok {
		return
	}
	delete(d.accessTokens, accessToken)

	for rt, uid := range d.refreshTokens {
		if uid == g.userID {
			delete(d.refreshTokens, rt)
		}
	}
}

// Authenticate resolves an access token to its user.
func (d *Directory) Authenticate(accessToken string) (models.User, error) {
	d.mu.RLock()
	g, ok := d.accessTokens[accessToken]
	d.mu.RUnlock()

	if !ok || time.Now().After(g.expiresAt) {
		return models.User{}, store.ErrNotAuthenticated
	}

	user, ok := d.userByID(g.userID)
	if !ok {
		return models.User{}, store.ErrNotAuthenticated
	}

	return user, nil
}

func (d *Directory) userByID(id string) (models.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, acct := range d.accounts {
		if acct.user.ID == id {
			return acct.user, true
		}
	}
	return models.User{}, false
}

func (d *Directory) issue(user models.User) (*models.Session, error) {
	access, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &models.Session{
		AccessToken:  access.String(),
		RefreshToken: refresh.String(),
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(d.tokenTTL),
		User:         user,
	}

	d.mu.Lock()
	d.accessTokens[session.AccessToken] = grant{userID: user.ID, expiresAt: session.ExpiresAt}
	d.refreshTokens[session.RefreshToken] = user.ID
	d.mu.Unlock()

	return session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
