package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/taskbook/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug        bool                    `help:"Enable debug mode."`
		Dev          bool                    `help:"Enable development mode (console logging, insecure cookies, default secret)." env:"TASKBOOK_DEV"`
		Version      kong.VersionFlag
		Serve        commands.ServeCmd        `cmd:"" default:"withargs" help:"Start the server (website + API)"`
		Migrate      commands.MigrateCmd      `cmd:"" help:"Apply database migrations"`
		Seed         commands.SeedCmd         `cmd:"" help:"Load divisions and users from a YAML seed file"`
		HashPassword commands.HashPasswordCmd `cmd:"" help:"Print the bcrypt hash of a password"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("taskbook"),
		kong.Description("Multi tenant task tracker"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Dev: cli.Dev, Version: version})
	cmd.FatalIfErrorf(err)
}
