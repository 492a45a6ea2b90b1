package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/organizehub/internal/auth"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
	"github.com/wolfeidau/organizehub/internal/store/memory"
	"golang.org/x/crypto/bcrypt"
)

func TestDecide(t *testing.T) {
	user := &models.User{ID: "u1", Email: "ada@example.com"}

	tests := []struct {
		name    string
		kind    Kind
		state   auth.State
		outcome Outcome
	}{
		{
			name:    "private loading without user",
			kind:    Private,
			state:   auth.State{Loading: true},
			outcome: Outcome{Action: Placeholder},
		},
		{
			name:    "private loading with user",
			kind:    Private,
			state:   auth.State{Loading: true, User: user},
			outcome: Outcome{Action: Placeholder},
		},
		{
			name:    "public loading without user",
			kind:    Public,
			state:   auth.State{Loading: true},
			outcome: Outcome{Action: Placeholder},
		},
		{
			name:    "public loading with user",
			kind:    Public,
			state:   auth.State{Loading: true, User: user},
			outcome: Outcome{Action: Placeholder},
		},
		{
			name:    "private signed out",
			kind:    Private,
			state:   auth.State{},
			outcome: Outcome{Action: Redirect, To: SignInPath},
		},
		{
			name:    "public signed out",
			kind:    Public,
			state:   auth.State{},
			outcome: Outcome{Action: Render},
		},
		{
			name:    "private signed in",
			kind:    Private,
			state:   auth.State{User: user},
			outcome: Outcome{Action: Render},
		},
		{
			name:    "public signed in",
			kind:    Public,
			state:   auth.State{User: user},
			outcome: Outcome{Action: Redirect, To: DashboardPath},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.outcome, Decide(tt.kind, tt.state))
		})
	}
}

// pendingProvider never resolves the session.
type pendingProvider struct {
	store.AuthProvider
	block chan struct{}
}

func (p *pendingProvider) OnAuthStateChange(store.AuthListener) func() {
	return func() {}
}

func (p *pendingProvider) GetSession(ctx context.Context) (*models.Session, error) {
	<-p.block
	return nil, nil
}

func serve(t *testing.T, cfg Config) *httptest.ResponseRecorder {
	t.Helper()

	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("content"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	return rec
}

func TestMiddleware_placeholderWhileLoading(t *testing.T) {
	provider := &pendingProvider{block: make(chan struct{})}
	defer close(provider.block)

	authCtx := auth.NewContext(provider)
	authCtx.Start(context.Background())
	defer authCtx.Close()

	spinner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("spinner"))
	})

	rec := serve(t, Config{
		Kind:        Private,
		Context:     func(*http.Request) *auth.Context { return authCtx },
		Placeholder: spinner,
		Grace:       10 * time.Millisecond,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "spinner", rec.Body.String())

	rec = serve(t, Config{
		Kind:    Public,
		Context: func(*http.Request) *auth.Context { return authCtx },
		Grace:   10 * time.Millisecond,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestMiddleware_resolvedStates(t *testing.T) {
	ctx := context.Background()
	b := memory.NewBackend(memory.WithBcryptCost(bcrypt.MinCost))
	_, err := b.Dir.Register("ada@example.com", "password")
	require.NoError(t, err)

	authCtx := auth.NewContext(b.Auth(nil))
	authCtx.Start(ctx)
	defer authCtx.Close()

	contextFn := func(*http.Request) *auth.Context { return authCtx }

	rec := serve(t, Config{Kind: Private, Context: contextFn, Grace: time.Second})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, SignInPath, rec.Header().Get("Location"))

	rec = serve(t, Config{Kind: Public, Context: contextFn, Grace: time.Second})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "content", rec.Body.String())

	require.NoError(t, authCtx.SignIn(ctx, "ada@example.com", "password"))

	rec = serve(t, Config{Kind: Private, Context: contextFn, Grace: time.Second})
	require.Equal(t, "content", rec.Body.String())

	rec = serve(t, Config{Kind: Public, Context: contextFn, Grace: time.Second})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, DashboardPath, rec.Header().Get("Location"))
}
