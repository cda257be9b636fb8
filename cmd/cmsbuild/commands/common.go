package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/cmsbuild/internal/build"
	"git.home.luguber.info/inful/cmsbuild/internal/config"
	"git.home.luguber.info/inful/cmsbuild/internal/logfields"
	"git.home.luguber.info/inful/cmsbuild/internal/metrics"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config      string           `short:"c" help:"Configuration file path (relative to --workdir)" default:"cmsbuild.yaml"`
	Workdir     string           `short:"w" name:"workdir" help:"Project root; relative paths resolve against it" default:"."`
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	MetricsFile string           `name:"metrics-file" help:"Write Prometheus metrics in textfile format after each build"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" default:"1" help:"Process images, then build the content library"`
	Images  ImagesCmd  `cmd:"" help:"Generate image derivatives and placeholder records only"`
	Content ContentCmd `cmd:"" help:"Build the content library from persisted image records"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild on changes to uploads, content or schema"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	g.Logger = logger
	return nil
}

// ConfigPath resolves --config against --workdir.
func (c *CLI) ConfigPath() string {
	if filepath.IsAbs(c.Config) {
		return c.Config
	}
	return filepath.Join(c.Workdir, c.Config)
}

// LoadConfig loads and resolves the configuration for the working directory.
func (c *CLI) LoadConfig() (*config.Config, error) {
	opts, err := config.Load(c.ConfigPath())
	if err != nil {
		return nil, err
	}
	return config.Resolve(opts, c.Workdir), nil
}

// newService builds a build service. The returned flush writes the metrics
// textfile when --metrics-file is set and is a no-op otherwise.
func (c *CLI) newService(logger *slog.Logger) (*build.DefaultBuildService, func()) {
	svc := build.NewBuildService().WithLogger(logger)
	if c.MetricsFile == "" {
		return svc, func() {}
	}
	rec := metrics.NewPrometheusRecorder(prom.NewRegistry())
	svc.WithRecorder(rec)
	return svc, func() {
		if err := rec.WriteTextfile(c.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics file", logfields.Path(c.MetricsFile), logfields.Error(err))
		}
	}
}
