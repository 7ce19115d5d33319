// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/exp/maps"

	"github.com/plugload/plugload/internal/issue"
	"github.com/plugload/plugload/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "plugload"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (PLUGLOAD_LAZY=false).
	EnvPrefix = "PLUGLOAD"

	configDefinition = "#Config"
)

//go:embed config_schema.cue
var configSchema []byte

// ErrConfigNotFound is returned when an explicit config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// ConfigDir returns the plugload configuration directory: %APPDATA% on
// Windows, ~/Library/Application Support on macOS and $XDG_CONFIG_HOME
// (default ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ResolvePath returns the file Load would read for opts and whether it
// exists. With no explicit file and nothing on disk, the user config path is
// returned with found == false.
func ResolvePath(opts LoadOptions) (path string, found bool, err error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, fileExists(opts.ConfigFilePath), nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", false, err
	}
	userPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(userPath) {
		return userPath, true, nil
	}

	localPath := filepath.Join(opts.BaseDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(localPath) {
		return localPath, true, nil
	}
	return userPath, false, nil
}

// loadWithOptions reads defaults, the resolved config file and PLUGLOAD_
// environment overrides, in increasing order of precedence.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	path, found, err := ResolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	var rename map[string]string
	switch {
	case found:
		if rename, err = loadCUEIntoViper(v, path); err != nil {
			return nil, "", loadError(path, err)
		}
	case opts.ConfigFilePath != "":
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'plugload config init' to create a default configuration").
			Wrap(fmt.Errorf("%w: %w: %s", issue.ErrConfigLoad, ErrConfigNotFound, path)).
			BuildError()
	default:
		path = ""
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", loadError(path, fmt.Errorf("failed to decode config: %w", err))
	}
	cfg.Rename = rename
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Check the glob syntax of every pattern").
			WithSuggestion("Check that rename_expr evaluates to a string").
			Wrap(fmt.Errorf("%w: %w", issue.ErrConfigLoad, err)).
			BuildError()
	}

	return &cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("patterns", defaults.Patterns)
	v.SetDefault("camelize", defaults.Camelize)
	v.SetDefault("lazy", defaults.Lazy)
	v.SetDefault("rename_expr", defaults.RenameExpr)
	v.SetDefault("scopes", defaults.Scopes)
	v.SetDefault("modules_dir", defaults.ModulesDir)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color", defaults.UI.Color)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// replace_string has no default, so AutomaticEnv alone would not surface
	// it to Unmarshal.
	_ = v.BindEnv("replace_string")

	return v
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("Run 'plugload config dump' to see every supported key").
		Wrap(fmt.Errorf("%w: %w", issue.ErrConfigLoad, err)).
		BuildError()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it over
// the defaults already in v. The rename table is returned separately:
// viper lowercases keys and splits them on dots, which would corrupt
// identifiers such as "socket.io-plugin".
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	result, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, configDefinition,
		cueutil.WithFilename(path),
	)
	if err != nil {
		return nil, err
	}
	configMap := *result.Value

	var rename map[string]string
	if raw, ok := configMap["rename"].(map[string]any); ok {
		rename = make(map[string]string, len(raw))
		for k, val := range raw {
			rename[k], _ = val.(string)
		}
	}
	delete(configMap, "rename")

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	return rename, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration into dir (ConfigDir
// when empty) unless a config file is already there. It returns the file
// path and whether it was written.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, true, nil
}

// GenerateCUE renders cfg as a config file that validates against the schema.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// plugload configuration\n")
	sb.WriteString("// Every key can be overridden with a PLUGLOAD_ environment variable.\n\n")

	sb.WriteString("patterns: [")
	for i, p := range cfg.Patterns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", p)
	}
	sb.WriteString("]\n")

	if cfg.ReplaceString != nil {
		fmt.Fprintf(&sb, "replace_string: %q\n", *cfg.ReplaceString)
	}
	fmt.Fprintf(&sb, "camelize: %v\n", cfg.Camelize)
	fmt.Fprintf(&sb, "lazy: %v\n", cfg.Lazy)

	if len(cfg.Rename) > 0 {
		sb.WriteString("\nrename: {\n")
		keys := maps.Keys(cfg.Rename)
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "\t%q: %q\n", k, cfg.Rename[k])
		}
		sb.WriteString("}\n")
	}
	if cfg.RenameExpr != "" {
		fmt.Fprintf(&sb, "rename_expr: %q\n", cfg.RenameExpr)
	}

	sb.WriteString("\nscopes: [")
	for i, s := range cfg.Scopes {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", s)
	}
	sb.WriteString("]\n")
	fmt.Fprintf(&sb, "modules_dir: %q\n", cfg.ModulesDir)

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	if cfg.UI.Color != "" {
		fmt.Fprintf(&sb, "\tcolor: %q\n", cfg.UI.Color)
	}
	sb.WriteString("}\n")

	return sb.String()
}
