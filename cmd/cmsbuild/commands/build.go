package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/cmsbuild/internal/build"
	"git.home.luguber.info/inful/cmsbuild/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct{}

func (b *BuildCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	return RunBuild(ctx, g.Logger, root, build.BuildRequest{})
}

// ImagesCmd implements the 'images' command.
type ImagesCmd struct{}

func (i *ImagesCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	return RunBuild(ctx, g.Logger, root, build.BuildRequest{SkipContent: true})
}

// ContentCmd implements the 'content' command.
type ContentCmd struct{}

func (c *ContentCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	return RunBuild(ctx, g.Logger, root, build.BuildRequest{SkipImages: true})
}

// RunBuild loads the configuration and runs one build. req.Config is filled in.
func RunBuild(ctx context.Context, logger *slog.Logger, root *CLI, req build.BuildRequest) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	return runWithConfig(ctx, os.Stdout, logger, root, cfg, req)
}

func runWithConfig(ctx context.Context, out io.Writer, logger *slog.Logger, root *CLI, cfg *config.Config, req build.BuildRequest) error {
	if logger == nil {
		logger = slog.Default()
	}
	svc, flush := root.newService(logger)
	defer flush()

	req.Config = cfg
	result, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}
	printSummary(out, result)
	return nil
}

func printSummary(w io.Writer, r *build.BuildResult) {
	if r.Images != nil {
		_, _ = fmt.Fprintf(w, "images: %d sources, %d generated, %d up to date\n",
			r.Images.Images, r.Images.Generated, r.Images.Skipped)
	}
	if r.Library != nil {
		items, failed, datasets := r.Library.Totals()
		_, _ = fmt.Fprintf(w, "content: %d collections, %d items, %d failed, %d datasets\n",
			len(r.Library.Collections), items, failed, datasets)
	}
	_, _ = fmt.Fprintf(w, "build %s %s in %s\n", r.BuildID, r.Status, r.Duration.Round(time.Millisecond))
}
