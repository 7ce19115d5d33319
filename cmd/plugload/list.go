// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plugload/plugload/internal/issue"
	"github.com/plugload/plugload/pkg/lazy"
	"github.com/plugload/plugload/pkg/pluginns"
)

func newListCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List the plugin properties of a project",
		Long: `List the plugin properties of the project in dir (default: the current
directory). The manifest is searched in dir and its parents.

Plugins are not loaded unless --eager is given; with --eager every plugin is
loaded and the first failure is reported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := listPlugins(cmd, s, dirArg(args, 0)); err != nil {
				return s.fail(cmd, err)
			}
			return nil
		},
	}
}

func listPlugins(cmd *cobra.Command, s *session, dir string) error {
	ns, err := s.loadNamespace(cmd, dir)
	if err != nil {
		return issue.WrapWithContext(err, "load plugins", displayDir(dir))
	}

	out := s.app.stdout
	if ns.Len() == 0 {
		fmt.Fprintln(out, SubtitleStyle.Render("No plugins found."))
		return nil
	}

	fmt.Fprintln(out, TitleStyle.Render(fmt.Sprintf("Plugins (%d)", ns.Len())))
	fmt.Fprintln(out)

	leaves := ns.Leaves()
	width := 0
	for _, leaf := range leaves {
		width = max(width, len(leaf.Path().String()))
	}
	for _, leaf := range leaves {
		path := leaf.Path().String()
		line := fmt.Sprintf("  %s%s  %s", PathStyle.Render(path), strings.Repeat(" ", width-len(path)), SubtitleStyle.Render(leaf.Identifier()))
		if s.verbose || leaf.State() != lazy.StateUnresolved {
			line += "  " + stateLabel(leaf)
		}
		fmt.Fprintln(out, line)
	}

	if overwritten := ns.Overwritten(); s.verbose && len(overwritten) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, WarningStyle.Render("Overwritten (last declaration wins):"))
		for _, e := range overwritten {
			fmt.Fprintf(out, "  %s  %s\n", PathStyle.Render(e.Path.String()), VerboseStyle.Render(e.Identifier))
		}
	}
	return nil
}

func stateLabel(leaf *pluginns.Leaf) string {
	state := leaf.State()
	switch state {
	case lazy.StateResolved:
		return SuccessStyle.Render(state.String())
	case lazy.StateFailed:
		return ErrorStyle.Render(state.String())
	default:
		return VerboseStyle.Render(state.String())
	}
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
