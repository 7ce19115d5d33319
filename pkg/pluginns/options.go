// SPDX-License-Identifier: MPL-2.0

package pluginns

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/plugload/plugload/pkg/loader"
	"github.com/plugload/plugload/pkg/manifest"
	"github.com/plugload/plugload/pkg/pluginname"
)

type (
	// Options configures Load and Build. It is never mutated once a Load
	// starts.
	Options struct {
		// Patterns select qualifying identifiers. "!" negates a pattern.
		Patterns []string
		// ReplaceString is stripped from the front of each name. Unless set
		// with WithReplaceString it is the literal prefix of the first
		// positive pattern.
		ReplaceString string
		// Camelize converts path segments to lower camel case.
		Camelize bool
		// Lazy defers loading to first access.
		Lazy bool
		// Rename maps identifiers to literal property names.
		Rename map[string]string
		// RenameFunc overrides every other naming rule.
		RenameFunc pluginname.RenameFunc
		// RenameExpr is evaluated for every qualifying identifier when
		// RenameFunc is not set.
		RenameExpr *pluginname.RenameExpr
		// Config locates the dependency manifest.
		Config manifest.Source
		// Provider reads Config. Nil means a manifest.FileProvider reading
		// Scopes.
		Provider manifest.Provider
		// Scopes are the manifest categories to read.
		Scopes []manifest.Category
		// Loader loads modules. Nil means loader.Default for the manifest's
		// directory.
		Loader loader.Loader
		// ModulesDir is the modules directory of the default loader,
		// relative to the project root. Empty means node_modules.
		ModulesDir string
		Logger     *slog.Logger

		replaceStringSet bool
	}

	// Option configures Options.
	Option func(*Options)
)

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Patterns: pluginname.DefaultPatterns(),
		Camelize: true,
		Lazy:     true,
		Scopes:   manifest.DefaultCategories(),
		Logger:   slog.Default(),
	}
}

// NewOptions applies opts to DefaultOptions.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPattern replaces the patterns. No arguments restores the defaults.
func WithPattern(patterns ...string) Option {
	return func(o *Options) {
		if len(patterns) == 0 {
			o.Patterns = pluginname.DefaultPatterns()
			return
		}
		o.Patterns = slices.Clone(patterns)
	}
}

// WithReplaceString sets the prefix stripped from names, including "" to
// strip nothing.
func WithReplaceString(s string) Option {
	return func(o *Options) {
		o.ReplaceString = s
		o.replaceStringSet = true
	}
}

// WithCamelize toggles camel-casing of path segments.
func WithCamelize(camelize bool) Option {
	return func(o *Options) { o.Camelize = camelize }
}

// WithLazy toggles deferred loading.
func WithLazy(lazy bool) Option {
	return func(o *Options) { o.Lazy = lazy }
}

// WithRename sets literal property names per identifier. The map is copied.
func WithRename(rename map[string]string) Option {
	return func(o *Options) { o.Rename = maps.Clone(rename) }
}

// WithRenameFunc sets a function that names every qualifying identifier.
func WithRenameFunc(fn pluginname.RenameFunc) Option {
	return func(o *Options) { o.RenameFunc = fn }
}

// WithRenameExpr names identifiers with a compiled rename expression.
func WithRenameExpr(expr *pluginname.RenameExpr) Option {
	return func(o *Options) { o.RenameExpr = expr }
}

// WithConfig sets the manifest source.
func WithConfig(src manifest.Source) Option {
	return func(o *Options) { o.Config = src }
}

// WithProvider sets the manifest provider.
func WithProvider(p manifest.Provider) Option {
	return func(o *Options) { o.Provider = p }
}

// WithScopes sets the manifest categories to read. No arguments restores
// the defaults.
func WithScopes(scopes ...manifest.Category) Option {
	return func(o *Options) {
		if len(scopes) == 0 {
			o.Scopes = manifest.DefaultCategories()
			return
		}
		o.Scopes = slices.Clone(scopes)
	}
}

// WithLoader sets the module loader.
func WithLoader(l loader.Loader) Option {
	return func(o *Options) { o.Loader = l }
}

// WithModulesDir sets the modules directory the default loader reads.
func WithModulesDir(dir string) Option {
	return func(o *Options) { o.ModulesDir = dir }
}

// WithLogger sets the logger. Nil keeps the current one.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// Transformer returns the name transformer for the options, taking the
// default ReplaceString and suffix from the matcher's first positive pattern.
func (o Options) Transformer(m *pluginname.Matcher) pluginname.Transformer {
	prefix, suffix := m.Affixes()
	if o.replaceStringSet || o.ReplaceString != "" {
		prefix = o.ReplaceString
	}
	return pluginname.Transformer{
		ReplaceString: prefix,
		Suffix:        suffix,
		Camelize:      o.Camelize,
		Rename:        o.Rename,
		RenameFunc:    o.RenameFunc,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
