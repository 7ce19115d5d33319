// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/plugload/plugload/internal/config"
	"github.com/plugload/plugload/internal/issue"
	"github.com/plugload/plugload/pkg/manifest"
	"github.com/plugload/plugload/pkg/pluginname"
	"github.com/plugload/plugload/pkg/pluginns"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	errInvalidRename = errors.New("invalid --rename value, want <identifier>=<name>")
)

type (
	// rootFlags holds the global flags. Plugin flags override the
	// configuration only when they were set on the command line.
	rootFlags struct {
		verbose       bool
		configFile    string
		patterns      []string
		replaceString string
		noCamelize    bool
		eager         bool
		renames       []string
		renameExpr    string
		scopes        []string
		modulesDir    string
	}

	// session is the state shared by the commands of one invocation.
	session struct {
		app     *App
		flags   *rootFlags
		cfg     *config.Config
		cfgErr  error
		verbose bool
		logger  *slog.Logger
	}
)

// NewRootCommand builds the plugload command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	s := &session{app: app, flags: &rootFlags{}}

	rootCmd := &cobra.Command{
		Use:   "plugload",
		Short: "Load project plugins into a namespace",
		Long: TitleStyle.Render("plugload") + SubtitleStyle.Render(" - Load project plugins into a namespace") + `

plugload reads the dependency manifest of a project (package.json, or its
YAML, TOML and CUE equivalents), selects the dependencies whose names match
the plugin patterns and exposes each one under a camel-cased property path:

  foo-plugin             ->  foo
  @savl/test-plugin      ->  savl.test

` + SubtitleStyle.Render("Examples:") + `
  plugload list                       List plugins of the current project
  plugload resolve foo                Load the "foo" plugin and describe it
  plugload explain @savl/test-plugin  Show how an identifier is named
  plugload config show                Show current configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s.init(cmd.Context())
			return nil
		},
	}

	f := rootCmd.PersistentFlags()
	f.BoolVarP(&s.flags.verbose, "verbose", "v", false, "enable verbose output")
	f.StringVar(&s.flags.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/plugload/config.cue)")
	f.StringArrayVar(&s.flags.patterns, "pattern", nil, "glob selecting plugin identifiers, repeatable; prefix with ! to exclude")
	f.StringVar(&s.flags.replaceString, "replace-string", "", "prefix stripped from names (default: literal prefix of the first pattern)")
	f.BoolVar(&s.flags.noCamelize, "no-camelize", false, "keep property names as written")
	f.BoolVar(&s.flags.eager, "eager", false, "load every plugin up front")
	f.StringArrayVar(&s.flags.renames, "rename", nil, "property name for an identifier as <identifier>=<name>, repeatable")
	f.StringVar(&s.flags.renameExpr, "rename-expr", "", "expression naming every plugin, e.g. 'upper(base)'")
	f.StringArrayVar(&s.flags.scopes, "scope", nil, "dependency category to read, repeatable (default: dependencies, devDependencies, peerDependencies)")
	f.StringVar(&s.flags.modulesDir, "modules-dir", "", "directory holding installed modules (default: node_modules)")

	rootCmd.AddCommand(newListCommand(s))
	rootCmd.AddCommand(newResolveCommand(s))
	rootCmd.AddCommand(newExplainCommand(s))
	rootCmd.AddCommand(newConfigCommand(s))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the production App and runs the command tree through fang.
// This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// init loads the configuration and sets up output. A configuration error is
// reported as a warning and the defaults are used; config show and dump
// report it as a failure.
func (s *session) init(ctx context.Context) {
	cfg, err := s.app.Config.Load(ctx, s.app.loadOptions(s.flags.configFile))
	if err != nil {
		fmt.Fprintln(s.app.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, s.flags.verbose))
		cfg = config.DefaultConfig()
	}
	s.cfg, s.cfgErr = cfg, err

	s.verbose = s.flags.verbose || cfg.UI.Verbose
	applyColorMode(cfg.UI.Color)
	s.logger = newLogger(s.app.stderr, s.verbose)
}

// pluginOptions merges the configuration with the flags set on cmd.
func (s *session) pluginOptions(cmd *cobra.Command) ([]pluginns.Option, error) {
	opts, err := s.cfg.PluginOptions()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("pattern") {
		opts = append(opts, pluginns.WithPattern(s.flags.patterns...))
	}
	if flags.Changed("replace-string") {
		opts = append(opts, pluginns.WithReplaceString(s.flags.replaceString))
	}
	if s.flags.noCamelize {
		opts = append(opts, pluginns.WithCamelize(false))
	}
	if s.flags.eager {
		opts = append(opts, pluginns.WithLazy(false))
	}
	if len(s.flags.renames) > 0 {
		rename, err := parseRenames(s.cfg.Rename, s.flags.renames)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pluginns.WithRename(rename))
	}
	if flags.Changed("rename-expr") {
		var expr *pluginname.RenameExpr
		if s.flags.renameExpr != "" {
			if expr, err = pluginname.CompileRenameExpr(s.flags.renameExpr); err != nil {
				return nil, err
			}
		}
		opts = append(opts, pluginns.WithRenameExpr(expr))
	}
	if flags.Changed("scope") {
		scopes := make([]manifest.Category, 0, len(s.flags.scopes))
		for _, raw := range s.flags.scopes {
			c := manifest.Category(raw)
			if err := c.Validate(); err != nil {
				return nil, err
			}
			scopes = append(scopes, c)
		}
		opts = append(opts, pluginns.WithScopes(scopes...))
	}

	modulesDir := s.cfg.ModulesDir
	if flags.Changed("modules-dir") {
		modulesDir = s.flags.modulesDir
	}
	opts = append(opts, pluginns.WithModulesDir(modulesDir), pluginns.WithLogger(s.logger))

	if s.app.Manifests != nil {
		opts = append(opts, pluginns.WithProvider(s.app.Manifests))
	}
	if s.app.Loader != nil {
		opts = append(opts, pluginns.WithLoader(s.app.Loader))
	}
	return opts, nil
}

// loadNamespace loads the plugin namespace of the project in dir.
func (s *session) loadNamespace(cmd *cobra.Command, dir string, extra ...pluginns.Option) (*pluginns.Namespace, error) {
	opts, err := s.pluginOptions(cmd)
	if err != nil {
		return nil, err
	}
	opts = append(opts, pluginns.WithConfig(manifest.FromDir(dir)))
	opts = append(opts, extra...)
	return pluginns.Load(cmd.Context(), opts...)
}

// fail reports err on stderr with the matching issue guidance and returns
// the ExitError the command should return.
func (s *session) fail(cmd *cobra.Command, err error) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	fmt.Fprintln(s.app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, s.verbose))
	if entry := issue.ForError(err); entry != nil {
		renderIssue(s.app.stderr, entry)
	}
	return &ExitError{Code: 1, Err: err}
}

// parseRenames merges "<identifier>=<name>" values over base.
func parseRenames(base map[string]string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(base)+len(values))
	maps.Copy(out, base)
	for _, value := range values {
		id, name, ok := strings.Cut(value, "=")
		if !ok || id == "" || name == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidRename, value)
		}
		out[id] = name
	}
	return out, nil
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderIssue prints the catalogue guidance for an error.
func renderIssue(w io.Writer, entry *issue.Issue) {
	rendered, err := entry.Render("dark")
	if err != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", entry.Id(), "error", err)
		return
	}
	fmt.Fprint(w, rendered)
}

// dirArg returns the optional project directory argument at index i.
func dirArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}
