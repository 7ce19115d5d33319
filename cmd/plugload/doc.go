// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for plugload.
//
// The command tree is built by NewRootCommand around an App, the composition
// root holding the configuration provider, the manifest provider, the module
// loader and the output streams. Execute runs the tree through fang.
package cmd
