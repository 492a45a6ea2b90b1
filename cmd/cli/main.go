package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/organizehub/cmd/cli/internal/commands"
	"github.com/wolfeidau/organizehub/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode."`
		Version kong.VersionFlag

		Backend commands.BackendFlags `embed:""`

		Login   commands.LoginCmd   `cmd:"" help:"Log in with email and password"`
		Logout  commands.LogoutCmd  `cmd:"" help:"Log out and forget the stored session"`
		Whoami  commands.WhoamiCmd  `cmd:"" help:"Show the logged in user"`
		Orgs    commands.OrgsCmd    `cmd:"" help:"Manage organizations"`
		Depts   commands.DeptsCmd   `cmd:"" help:"Manage departments"`
		Profile commands.ProfileCmd `cmd:"" help:"View or update your employee profile"`
	}
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("orgctl"),
		kong.Description("Manage OrganizeHub organizations from the command line."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version, Flags: cli.Backend})
	cmd.FatalIfErrorf(err)
}
