// SPDX-License-Identifier: MPL-2.0

// Package pluginns builds plugin namespaces from a project's dependency
// manifest.
//
// Load reads the manifest, keeps the dependency identifiers that match the
// configured patterns, turns each one into a property path and installs a
// leaf for it in a Namespace:
//
//	ns, err := pluginns.Load(ctx, pluginns.WithConfig(manifest.FromDir(".")))
//	if err != nil {
//	    return err
//	}
//	// "foo-bar-plugin" is reachable as fooBar, "@savl/test-plugin" as savl.test.
//	result, err := ns.Call(ctx, []string{"fooBar"}, "arg")
//
// Leaves load their module on first access and memoize the result. With
// WithLazy(false) every leaf is loaded before Load returns.
package pluginns
