// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/plugload/plugload/internal/config"
	"github.com/plugload/plugload/internal/issue"
)

// newConfigCommand creates the `plugload config` command tree.
func newConfigCommand(s *session) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage plugload configuration",
		Long: `Manage plugload configuration.

Configuration is stored in:
  - Linux: ~/.config/plugload/config.cue
  - macOS: ~/Library/Application Support/plugload/config.cue
  - Windows: %APPDATA%\plugload\config.cue

Every key can be overridden with a PLUGLOAD_ environment variable, for
example PLUGLOAD_LAZY=false or PLUGLOAD_UI_VERBOSE=true.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.cfgErr != nil {
				return s.fail(cmd, s.cfgErr)
			}
			return showConfig(s)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _, err := config.ResolvePath(s.app.loadOptions(s.flags.configFile))
			if err != nil {
				return s.fail(cmd, err)
			}
			fmt.Fprintln(s.app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.CreateDefaultConfig(s.app.configDir)
			if err != nil {
				return s.fail(cmd, issue.WrapWithOperation(err, "create configuration"))
			}
			if !created {
				fmt.Fprintf(s.app.stdout, "%s %s\n", SubtitleStyle.Render("Configuration already exists:"), path)
				return nil
			}
			fmt.Fprintf(s.app.stdout, "%s %s\n", SuccessStyle.Render("Created"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.cfgErr != nil {
				return s.fail(cmd, s.cfgErr)
			}
			fmt.Fprint(s.app.stdout, config.GenerateCUE(s.cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(s *session) error {
	out := s.app.stdout
	cfg := s.cfg
	keyStyle := PathStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	path, found, err := config.ResolvePath(s.app.loadOptions(s.flags.configFile))
	if err == nil && found {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("patterns"), valueStyle.Render(strings.Join(cfg.Patterns, ", ")))
	replace := SubtitleStyle.Render("(derived from the first pattern)")
	if cfg.ReplaceString != nil {
		replace = valueStyle.Render(fmt.Sprintf("%q", *cfg.ReplaceString))
	}
	fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("replace_string"), replace)
	fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("camelize"), valueStyle.Render(fmt.Sprint(cfg.Camelize)))
	fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("lazy"), valueStyle.Render(fmt.Sprint(cfg.Lazy)))
	fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("scopes"), valueStyle.Render(strings.Join(cfg.Scopes, ", ")))
	fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("modules_dir"), valueStyle.Render(cfg.ModulesDir))
	if cfg.RenameExpr != "" {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("rename_expr"), valueStyle.Render(cfg.RenameExpr))
	}
	printRename(out, cfg.Rename)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(out, "  verbose: %s\n", valueStyle.Render(fmt.Sprint(cfg.UI.Verbose)))
	fmt.Fprintf(out, "  color: %s\n", valueStyle.Render(string(cfg.UI.Color)))
	return nil
}

func printRename(out io.Writer, rename map[string]string) {
	fmt.Fprintf(out, "%s:\n", PathStyle.Render("rename"))
	if len(rename) == 0 {
		fmt.Fprintf(out, "  %s\n", SubtitleStyle.Render("(none configured)"))
		return
	}
	keys := maps.Keys(rename)
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %s = %s\n", k, SuccessStyle.Render(rename[k]))
	}
}
