package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/internal/store"
)

type LoginCmd struct {
	Email    string `help:"account email" required:""`
	Password string `help:"account password" required:"" env:"ORGCTL_PASSWORD"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.auth.SignIn(ctx, strings.TrimSpace(l.Email), l.Password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	log.Info().Str("email", l.Email).Msg("logged in")
	fmt.Fprintf(globals.out(), "Logged in as %s\n", l.Email)
	return nil
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.auth.SignOut(ctx); err != nil && !errors.Is(err, store.ErrNotAuthenticated) {
		return err
	}

	fmt.Fprintln(globals.out(), "Logged out")
	return nil
}

type WhoamiCmd struct{}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := globals.signedIn(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := s.user()
	if err != nil {
		return err
	}
	fmt.Fprintf(globals.out(), "%s (%s)\n", user.Email, user.ID)
	return nil
}
