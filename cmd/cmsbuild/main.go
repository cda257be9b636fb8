package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/cmsbuild/cmd/cmsbuild/commands"
	cberrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cmsbuild/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli := &commands.CLI{}
	global := &commands.Global{}
	parser := kong.Parse(cli,
		kong.Name("cmsbuild"),
		kong.Description("Build a typed content library and responsive images for a CMS-managed site."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global, cli),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := parser.Run()
	if err != nil {
		cancel()
		logger := global.Logger
		if logger == nil {
			logger = slog.Default()
		}
		cberrors.NewCLIErrorAdapter(cli.Verbose, logger).HandleError(err)
	}
}
