package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/cmd/cli/internal/credentials"
	"github.com/wolfeidau/organizehub/internal/auth"
	"github.com/wolfeidau/organizehub/internal/client"
	"github.com/wolfeidau/organizehub/internal/models"
	"github.com/wolfeidau/organizehub/internal/store"
	"github.com/wolfeidau/organizehub/internal/supabase"
	"github.com/wolfeidau/organizehub/internal/workspace"
)

// BackendFlags locate the Supabase project and the local session.
type BackendFlags struct {
	URL        string `help:"Supabase project URL" env:"SUPABASE_URL"`
	AnonKey    string `help:"Supabase anon key" env:"SUPABASE_ANON_KEY"`
	SessionDir string `help:"directory holding the session file (defaults to ~/.organizehub)" env:"ORGCTL_SESSION_DIR"`
}

type Globals struct {
	Debug   bool
	Version string
	Flags   BackendFlags

	Out io.Writer
	In  io.Reader

	// set by tests to bypass Supabase and the session file
	backend store.Backend
	storage store.SessionStorage
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Globals) in() io.Reader {
	if g.In == nil {
		return os.Stdin
	}
	return g.In
}

func (g *Globals) table() *tabwriter.Writer {
	return tabwriter.NewWriter(g.out(), 0, 0, 2, ' ', 0)
}

func (g *Globals) connect() (store.Backend, store.SessionStorage, error) {
	if g.backend != nil {
		return g.backend, g.storage, nil
	}

	cfg := supabase.Config{URL: g.Flags.URL, AnonKey: g.Flags.AnonKey}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid supabase configuration (--url/SUPABASE_URL, --anon-key/SUPABASE_ANON_KEY): %w", err)
	}

	backend, err := supabase.New(cfg, supabase.WithHTTPClient(client.NewHTTPClient(client.DefaultConfig())))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	storage, err := credentials.NewSessionFile(g.Flags.SessionDir, g.Flags.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session file: %w", err)
	}

	return backend, storage, nil
}

// session is one CLI invocation's view of the console.
type session struct {
	auth      *auth.Context
	workspace *workspace.Workspace
}

// open resolves the stored session before returning.
func (g *Globals) open(ctx context.Context) (*session, error) {
	backend, storage, err := g.connect()
	if err != nil {
		return nil, err
	}

	provider := backend.Auth(storage)
	ac := auth.NewContext(provider)
	ac.Start(ctx)

	select {
	case <-ac.Resolved():
	case <-ctx.Done():
		ac.Close()
		return nil, ctx.Err()
	}

	return &session{
		auth:      ac,
		workspace: workspace.New(backend.Data(provider)),
	}, nil
}

func (s *session) Close() {
	s.auth.Close()
}

// user returns the signed-in user or an error asking to log in.
func (s *session) user() (*models.User, error) {
	user := s.auth.State().User
	if user == nil {
		return nil, fmt.Errorf("not logged in, run orgctl login: %w", store.ErrNotAuthenticated)
	}
	log.Debug().Str("user", user.ID).Msg("using stored session")
	return user, nil
}

// signedIn opens a session that must belong to a signed-in user.
func (g *Globals) signedIn(ctx context.Context) (*session, error) {
	s, err := g.open(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.user(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// describe turns backend errors into CLI messages.
func describe(err error, what string) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%s conflicts with existing data: %w", what, err)
	case errors.Is(err, store.ErrReference):
		return fmt.Errorf("%s is still referenced: %w", what, err)
	case errors.Is(err, store.ErrNoRows):
		return fmt.Errorf("%s not found: %w", what, err)
	default:
		return err
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optional maps an empty flag value to a cleared column.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
