// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/plugload/plugload/internal/issue"
	"github.com/plugload/plugload/pkg/loader"
	"github.com/plugload/plugload/pkg/pluginns"
)

type resolveFlags struct {
	call bool
	args []string
}

func newResolveCommand(s *session) *cobra.Command {
	var rf resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve <property.path> [dir]",
		Short: "Load a plugin property and describe its value",
		Long: `Load the plugin behind a dotted property path and describe the value.
Paths may continue into the members of a loaded module. Property names that
contain "." themselves, such as "socket.io", are matched as a whole:

  plugload resolve savl.insert.wrap
  plugload resolve lodash.merge
  plugload resolve hello --call --arg world`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveProperty(cmd, s, args[0], dirArg(args, 1), rf); err != nil {
				return s.fail(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&rf.call, "call", false, "call the property and describe its result")
	cmd.Flags().StringArrayVar(&rf.args, "arg", nil, "string argument passed with --call, repeatable")
	return cmd
}

func resolveProperty(cmd *cobra.Command, s *session, property, dir string, rf resolveFlags) error {
	ns, err := s.loadNamespace(cmd, dir)
	if err != nil {
		return issue.WrapWithContext(err, "load plugins", displayDir(dir))
	}
	path := ns.ParsePath(property)

	var v any
	if rf.call {
		args := make([]any, len(rf.args))
		for i, a := range rf.args {
			args[i] = a
		}
		v, err = ns.Call(cmd.Context(), path, args...)
	} else {
		v, err = ns.Get(cmd.Context(), path...)
	}
	if err != nil {
		return issue.WrapWithContext(err, "resolve property", path.String())
	}

	fmt.Fprintf(s.app.stdout, "%s  %s\n", PathStyle.Render(path.String()), describeValue(v))
	return nil
}

// describeValue summarizes a resolved value in one line.
func describeValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case *pluginns.Node:
		return "namespace {" + strings.Join(v.Names(), ", ") + "}"
	case *loader.Object:
		return "function with members {" + strings.Join(sortedKeys(v.Fields), ", ") + "}"
	case map[string]any:
		return "object {" + strings.Join(sortedKeys(v), ", ") + "}"
	case []any:
		return fmt.Sprintf("array (%d items)", len(v))
	case string:
		return fmt.Sprintf("string %q", v)
	}
	if pluginns.Callable(v) {
		return "function"
	}
	return fmt.Sprintf("%T %v", v, v)
}

func sortedKeys(m map[string]any) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
