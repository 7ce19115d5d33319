// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/plugload/plugload/internal/config"
	"github.com/plugload/plugload/pkg/loader"
	"github.com/plugload/plugload/pkg/manifest"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives the App through
	// its session and reaches configuration, manifests and modules through it.
	App struct {
		Config    ConfigProvider
		Manifests manifest.Provider
		Loader    loader.Loader
		configDir string
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		// Manifests reads dependency manifests. Nil means a
		// manifest.FileProvider honoring the configured scopes.
		Manifests manifest.Provider
		// Loader loads plugin modules. Nil means the built-in registry
		// followed by script modules below the project root.
		Loader loader.Loader
		// ConfigDir overrides the user configuration directory.
		ConfigDir string
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	// This abstraction enables testing with custom config sources or mock implementations.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config:    deps.Config,
		Manifests: deps.Manifests,
		Loader:    deps.Loader,
		configDir: deps.ConfigDir,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}, nil
}

// loadOptions returns the config load options for an explicit --config value.
func (a *App) loadOptions(configFile string) config.LoadOptions {
	return config.LoadOptions{
		ConfigFilePath: configFile,
		ConfigDirPath:  a.configDir,
	}
}
