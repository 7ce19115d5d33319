// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugload/plugload/pkg/pluginname"
	"github.com/plugload/plugload/pkg/pluginns"
)

func newExplainCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <identifier>...",
		Short: "Show how dependency identifiers map to property paths",
		Long: `Show whether each identifier qualifies as a plugin and the property path it
would be installed at, using the configured patterns and naming rules. No
manifest is read and nothing is loaded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := explainIdentifiers(cmd, s, args); err != nil {
				return s.fail(cmd, err)
			}
			return nil
		},
	}
}

func explainIdentifiers(cmd *cobra.Command, s *session, identifiers []string) error {
	opts, err := s.pluginOptions(cmd)
	if err != nil {
		return err
	}
	o := pluginns.NewOptions(opts...)

	entries, err := o.Entries(identifiers)
	if err != nil {
		return err
	}
	paths := make(map[string]pluginname.PropertyPath, len(entries))
	for _, e := range entries {
		paths[e.Identifier] = e.Path
	}

	out := s.app.stdout
	for _, id := range identifiers {
		path, ok := paths[id]
		if !ok {
			fmt.Fprintf(out, "%s  %s\n", SubtitleStyle.Render(id), VerboseStyle.Render("skipped: no pattern matches"))
			continue
		}
		fmt.Fprintf(out, "%s  ->  %s\n", SubtitleStyle.Render(id), PathStyle.Render(path.String()))
	}

	if s.verbose {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s %v\n", VerboseStyle.Render("patterns:"), o.Patterns)
		m, err := pluginname.NewMatcher(o.Patterns...)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %q\n", VerboseStyle.Render("replace string:"), o.Transformer(m).ReplaceString)
		fmt.Fprintf(out, "%s %v\n", VerboseStyle.Render("camelize:"), o.Camelize)
	}
	return nil
}
