package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
	"golang.org/x/crypto/bcrypt"
)

func newTestBackend(t *testing.T, opts ...DirectoryOption) *Backend {
	t.Helper()
	return NewBackend(append([]DirectoryOption{WithBcryptCost(bcrypt.MinCost)}, opts...)...)
}

func TestAuth_SignInFlow(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	_, err := b.Dir.Register("ada@example.com", "password")
	require.NoError(t, err)

	storage := NewSessionStorage()
	provider := b.Auth(storage)

	var mu sync.Mutex
	var events []models.AuthEvent
	provider.OnAuthStateChange(func(event models.AuthEvent, _ *models.Session) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})

	session, err := provider.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, session)

	_, err = provider.SignInWithPassword(ctx, "ada@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	session, err = provider.SignInWithPassword(ctx, "ADA@example.com", "password")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", session.User.Email)

	stored, err := storage.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, session.AccessToken, stored.AccessToken)

	require.NoError(t, provider.SignOut(ctx))
	_, err = b.Dir.Authenticate(session.AccessToken)
	require.ErrorIs(t, err, store.ErrNotAuthenticated)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []models.AuthEvent{
		models.AuthEventInitialSession,
		models.AuthEventSignedIn,
		models.AuthEventSignedOut,
	}, events)
}

func TestAuth_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("auto confirm", func(t *testing.T) {
		b := newTestBackend(t)
		session, err := b.Auth(nil).SignUp(ctx, "new@example.com", "password")
		require.NoError(t, err)
		require.NotNil(t, session)

		_, err = b.Auth(nil).SignUp(ctx, "new@example.com", "password")
		require.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("email confirmation", func(t *testing.T) {
		b := newTestBackend(t, WithEmailConfirmation())
		provider := b.Auth(nil)

		session, err := provider.SignUp(ctx, "new@example.com", "password")
		require.NoError(t, err)
		require.Nil(t, session)

		_, err = provider.SignInWithPassword(ctx, "new@example.com", "password")
		require.ErrorIs(t, err, ErrEmailNotConfirmed)

		require.NoError(t, b.Dir.Confirm("new@example.com"))
		_, err = provider.SignInWithPassword(ctx, "new@example.com", "password")
		require.NoError(t, err)
	})

	t.Run("disabled", func(t *testing.T) {
		b := newTestBackend(t, WithSignupDisabled())
		_, err := b.Auth(nil).SignUp(ctx, "new@example.com", "password")
		require.ErrorIs(t, err, ErrSignupDisabled)
	})

	t.Run("weak password", func(t *testing.T) {
		b := newTestBackend(t)
		_, err := b.Auth(nil).SignUp(ctx, "new@example.com", "123")
		require.ErrorIs(t, err, ErrWeakPassword)
	})
}

func TestAuth_RefreshesExpiredSession(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, WithTokenTTL(time.Second))
	_, err := b.Dir.Register("ada@example.com", "password")
	require.NoError(t, err)

	storage := NewSessionStorage()
	first, err := b.Auth(storage).SignInWithPassword(ctx, "ada@example.com", "password")
	require.NoError(t, err)

	// a second provider restores the already expired session from storage
	restored := b.Auth(storage)
	session, err := restored.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	require.NotEqual(t, first.AccessToken, session.AccessToken)
	require.Equal(t, first.User, session.User)
}

func TestBackend_RowPolicy(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	user, err := SeedDemo(ctx, b)
	require.NoError(t, err)

	other, err := b.Dir.Register("other@example.com", "password")
	require.NoError(t, err)
	require.NoError(t, b.DB.From(TableEmployees).Insert(ctx, models.Employee{ID: other.ID, FirstName: "Other", Email: other.Email}, nil))

	provider := b.Auth(NewSessionStorage())
	data := b.Data(provider)

	var orgs []models.Organization
	err = data.From(TableOrganizations).Select(ctx, store.Query{}, &orgs)
	require.ErrorIs(t, err, store.ErrNotAuthenticated)

	_, err = provider.SignInWithPassword(ctx, DemoEmail, DemoPassword)
	require.NoError(t, err)

	require.NoError(t, data.From(TableOrganizations).Select(ctx, store.Query{}, &orgs))
	require.Len(t, orgs, 1)

	var depts []models.Department
	require.NoError(t, data.From(TableDepartments).Select(ctx, store.Query{
		Filters: []store.Filter{store.Eq("organization_id", orgs[0].ID)},
		OrderBy: "name",
	}, &depts))
	require.Len(t, depts, 2)
	require.Equal(t, "Sales", depts[0].Name)

	var employees []models.Employee
	require.NoError(t, data.From(TableEmployees).Select(ctx, store.Query{}, &employees))
	require.Len(t, employees, 1)
	require.Equal(t, user.ID, employees[0].ID)

	var emp models.Employee
	err = data.From(TableEmployees).SelectSingle(ctx, store.Query{Filters: []store.Filter{store.Eq("id", other.ID)}}, &emp)
	require.ErrorIs(t, err, store.ErrNoRows)
}
