// SPDX-License-Identifier: MPL-2.0

// Package pluginname decides which dependency identifiers are plugins and
// turns them into property paths.
//
// Selection uses glob patterns evaluated over the whole identifier:
//
//	m, err := pluginname.NewMatcher("*-plugin", "@*/*-plugin", "!legacy-*")
//	m.Match("foo-plugin") // true
//
// Qualifying identifiers are then transformed into a PropertyPath. Renames
// take precedence over the default transform, which strips the configured
// prefix and the pattern's literal suffix, splits scoped identifiers into two
// segments and camel-cases each segment:
//
//	t := pluginname.Transformer{Suffix: "-plugin", Camelize: true}
//	t.Transform("@savl/test-plugin-plugin") // [savl testPlugin]
package pluginname
