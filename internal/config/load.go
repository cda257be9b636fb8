package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	cberrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
)

// envFiles are loaded, in order, before the config document is expanded.
// Variables already present in the process environment win.
var envFiles = []string{".env", ".env.local"}

// Load reads the YAML options document at path. A missing file is not an
// error: it yields empty Options so every value falls back to its default.
// ${VAR} references are expanded from the environment.
func Load(path string) (*Options, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Configuration file not found; using defaults", "path", path)
			return &Options{}, nil
		}
		return nil, cberrors.WrapError(err, cberrors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", path).
			Build()
	}
	return Parse(data)
}

// Parse decodes an options document after environment expansion.
func Parse(data []byte) (*Options, error) {
	expanded := os.ExpandEnv(string(data))

	var opts Options
	if err := yaml.Unmarshal([]byte(expanded), &opts); err != nil {
		return nil, cberrors.WrapError(err, cberrors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}
	return &opts, nil
}

func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", "path", name, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", name)
	}
}

// Init writes an example options document to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return cberrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	example := Options{
		ConfigPath:  DefaultSchemaPath,
		BaseAliases: []string{"example.com"},
		Picture: &PictureOptions{
			ImageUploadDirectory: DefaultUploadDir,
			ImageDataDest:        DefaultDataDir,
			ImageDest:            DefaultBinaryDir,
			ImageDestURL:         DefaultPublicURL,
			Formats: []ImageFormat{
				{Type: "avif", Widths: []int{360, 420, 930, 1440, 1920}},
				{Type: "jpg", Widths: []int{1440}},
			},
		},
		Content: &ContentOptions{
			SourceRoot:  DefaultSourceRoot,
			LibraryRoot: DefaultLibraryRoot,
		},
		Hyphenation: &HyphenationOptions{MinWordLength: DefaultMinWordLength},
		ReducerByCollection: map[string]ReducerList{
			"posts": {"summaries"},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return cberrors.WrapError(err, cberrors.CategoryInternal, "failed to marshal example config").Build()
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return cberrors.WrapError(err, cberrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
