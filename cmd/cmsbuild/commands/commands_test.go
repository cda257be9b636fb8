package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cmsbuild/internal/build"
	"git.home.luguber.info/inful/cmsbuild/internal/config"
	cberrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cmsbuild/internal/watch"
)

func parse(t *testing.T, args ...string) (*CLI, *Global, *kong.Context) {
	t.Helper()
	cli := &CLI{}
	g := &Global{}
	parser, err := kong.New(cli, kong.Bind(g, cli), kong.Vars{"version": "test"})
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return cli, g, kctx
}

func TestCLI_Parse(t *testing.T) {
	cli, g, kctx := parse(t, "-v", "--workdir", "/srv/site", "--metrics-file", "/tmp/m.prom", "images")
	require.Equal(t, "images", kctx.Command())
	require.True(t, cli.Verbose)
	require.Equal(t, "/srv/site", cli.Workdir)
	require.Equal(t, "/tmp/m.prom", cli.MetricsFile)
	require.NotNil(t, g.Logger)
	require.True(t, g.Logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestCLI_DefaultCommandIsBuild(t *testing.T) {
	_, _, kctx := parse(t)
	require.Equal(t, "build", kctx.Command())
}

func TestCLI_WatchDebounce(t *testing.T) {
	cli, _, _ := parse(t, "watch", "--debounce", "1s")
	require.Equal(t, "1s", cli.Watch.Debounce.String())
}

func TestCLI_ConfigPath(t *testing.T) {
	cli := &CLI{Config: "cmsbuild.yaml", Workdir: "/srv/site"}
	require.Equal(t, filepath.Join("/srv/site", "cmsbuild.yaml"), cli.ConfigPath())

	cli.Config = "/etc/cmsbuild.yaml"
	require.Equal(t, "/etc/cmsbuild.yaml", cli.ConfigPath())
}

func TestCLI_LoadConfig_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cli := &CLI{Config: "cmsbuild.yaml", Workdir: dir}
	cfg, err := cli.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, config.DefaultSchemaPath), cfg.SchemaPath)
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmsbuild.yaml")
	require.NoError(t, RunInit(path, false))
	require.FileExists(t, path)

	err := RunInit(path, false)
	require.Error(t, err)
	require.True(t, cberrors.HasCategory(err, cberrors.CategoryConfig))

	require.NoError(t, RunInit(path, true))
}

func TestRunWithConfig_WritesSummaryAndMetrics(t *testing.T) {
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "cmsbuild.prom")
	cli := &CLI{Workdir: dir, MetricsFile: metricsFile}
	cfg := config.Resolve(nil, dir)

	var out bytes.Buffer
	err := runWithConfig(context.Background(), &out, slog.Default(), cli, cfg, build.BuildRequest{SkipContent: true})
	require.NoError(t, err)
	require.Contains(t, out.String(), "images: 0 sources, 0 generated, 0 up to date")
	require.Contains(t, out.String(), "success")
	require.NotContains(t, out.String(), "content:")

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	require.Contains(t, string(data), `cmsbuild_build_outcomes_total{outcome="success"} 1`)
}

func TestRunWithConfig_MissingSchemaFails(t *testing.T) {
	dir := t.TempDir()
	cli := &CLI{Workdir: dir}
	cfg := config.Resolve(nil, dir)

	var out bytes.Buffer
	err := runWithConfig(context.Background(), &out, nil, cli, cfg, build.BuildRequest{SkipImages: true})
	require.Error(t, err)
	require.True(t, cberrors.HasCategory(err, cberrors.CategorySchema))
	require.Empty(t, out.String())
}

func TestRequestFor(t *testing.T) {
	require.Equal(t, build.BuildRequest{SkipImages: true}, requestFor(watch.Change{Content: true}))
	require.Equal(t, build.BuildRequest{}, requestFor(watch.Change{Images: true}))
	require.Equal(t, build.BuildRequest{}, requestFor(watch.Change{Images: true, Content: true}))
}
