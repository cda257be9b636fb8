package commands

import (
	"context"
	"os"
	"time"

	"git.home.luguber.info/inful/cmsbuild/internal/build"
	"git.home.luguber.info/inful/cmsbuild/internal/logfields"
	"git.home.luguber.info/inful/cmsbuild/internal/watch"
)

// WatchCmd rebuilds whenever uploads, content sources or the CMS schema change.
type WatchCmd struct {
	Debounce time.Duration `name:"debounce" default:"300ms" help:"Quiet period before a rebuild starts."`
}

func (w *WatchCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	logger := g.Logger

	// A failed initial build is reported but does not stop watching.
	if err := runWithConfig(ctx, os.Stdout, logger, root, cfg, build.BuildRequest{}); err != nil {
		logger.Error("Initial build failed", logfields.Error(err))
	}

	rebuild := func(ctx context.Context, c watch.Change) error {
		// Markup embedded in content depends on image records, so content
		// is rebuilt for every change.
		return runWithConfig(ctx, os.Stdout, logger, root, cfg, requestFor(c))
	}
	return watch.New(cfg, rebuild, watch.WithDebounce(w.Debounce), watch.WithLogger(logger)).Run(ctx)
}

func requestFor(c watch.Change) build.BuildRequest {
	return build.BuildRequest{SkipImages: !c.Images}
}
