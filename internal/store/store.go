package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/organizehub/internal/models"
	"golang.org/x/oauth2"
)

// Sentinel errors shared by every backend.
var (
	ErrNoRows           = errors.New("no matching row")
	ErrConflict         = errors.New("row conflicts with an existing row")
	ErrReference        = errors.New("row references a missing or dependent row")
	ErrNotAuthenticated = errors.New("no authenticated user")
	ErrMissingConfig    = errors.New("missing backend URL or API key")
)

// Filter restricts a query to rows whose column equals value.
type Filter struct {
	Column string
	Value  string
}

// Eq builds an equality filter.
func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// Query describes a read. Columns defaults to every column and results are
// sorted ascending by OrderBy when it is set.
type Query struct {
	Columns string
	Filters []Filter
	OrderBy string
}

// Table is a table-scoped handle on the backend.
type Table interface {
	// Select decodes every matching row into dst, which must point to a slice.
	Select(ctx context.Context, q Query, dst any) error

	// SelectSingle decodes exactly one matching row into dst.
	// Returns an error matching ErrNoRows when no single row matches.
	SelectSingle(ctx context.Context, q Query, dst any) error

	// Insert stores a row (or a slice of rows) and decodes the canonical stored
	// representation into dst: an object for one row, a slice for many.
	Insert(ctx context.Context, rows any, dst any) error

	// Update applies patch to the rows matching filters and decodes the updated
	// row into dst. Returns an error matching ErrNoRows when nothing matched.
	Update(ctx context.Context, filters []Filter, patch any, dst any) error

	// Delete removes the rows matching filters.
	Delete(ctx context.Context, filters []Filter) error
}

// DataClient hands out table handles.
type DataClient interface {
	From(table string) Table
}

// AuthListener receives session change notifications. The session is nil
// after sign out.
type AuthListener func(event models.AuthEvent, session *models.Session)

// AuthProvider is the auth surface of a backend for a single client. It is
// also the token source used to authorize data calls made on its behalf.
type AuthProvider interface {
	oauth2.TokenSource

	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*models.Session, error)

	// SignInWithPassword authenticates with email and password.
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)

	// SignUp registers a new user. The returned session is nil when the
	// backend requires the email address to be confirmed first.
	SignUp(ctx context.Context, email, password string) (*models.Session, error)

	// SignOut ends the current session.
	SignOut(ctx context.Context) error

	// OnAuthStateChange registers a listener and returns a func that removes it.
	OnAuthStateChange(fn AuthListener) func()
}

// SessionStorage persists a session between uses of an AuthProvider.
type SessionStorage interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Clear(ctx context.Context) error
}

// Backend creates per-client auth providers and data clients.
type Backend interface {
	Auth(storage SessionStorage) AuthProvider
	Data(tokens oauth2.TokenSource) DataClient
}
