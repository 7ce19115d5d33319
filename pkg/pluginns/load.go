// SPDX-License-Identifier: MPL-2.0

package pluginns

import (
	"context"
	"path/filepath"

	"github.com/plugload/plugload/pkg/loader"
	"github.com/plugload/plugload/pkg/manifest"
	"github.com/plugload/plugload/pkg/pluginname"
)

// Load reads the configured manifest and builds a Namespace of its
// qualifying dependencies.
//
// Manifest and loader errors are returned unchanged: a missing manifest is
// a *manifest.NotFoundError and, with WithLazy(false), the first failing
// load is returned as the loader produced it.
func Load(ctx context.Context, opts ...Option) (*Namespace, error) {
	o := NewOptions(opts...)

	set, err := o.provider().Load(ctx, o.Config)
	if err != nil {
		return nil, err
	}

	entries, err := o.Entries(set.Names())
	if err != nil {
		return nil, err
	}

	if o.Loader == nil {
		o.Loader = o.defaultLoader(projectRoot(o.Config, set))
	}
	return Build(ctx, entries, o)
}

// Entries filters identifiers through the patterns and transforms each
// qualifying one into an Entry, preserving order.
func (o Options) Entries(identifiers []string) ([]Entry, error) {
	matcher, err := pluginname.NewMatcher(o.Patterns...)
	if err != nil {
		return nil, err
	}

	var qualifying []string
	for _, id := range identifiers {
		if matcher.Match(id) {
			qualifying = append(qualifying, id)
		}
	}

	tr := o.Transformer(matcher)
	if tr.RenameFunc == nil && o.RenameExpr != nil {
		// Evaluation errors surface here; Transform itself cannot fail.
		names := make(map[string]string, len(qualifying))
		for _, id := range qualifying {
			name, err := o.RenameExpr.Eval(id)
			if err != nil {
				return nil, err
			}
			names[id] = name
		}
		tr.RenameFunc = func(id string) string { return names[id] }
	}

	entries := make([]Entry, 0, len(qualifying))
	for _, id := range qualifying {
		entries = append(entries, Entry{Path: tr.Transform(id), Identifier: id})
	}
	return entries, nil
}

func (o Options) provider() manifest.Provider {
	if o.Provider != nil {
		return o.Provider
	}
	return manifest.NewProvider(manifest.WithCategories(o.Scopes...), manifest.WithLogger(o.logger()))
}

// defaultLoader resolves built-in modules first, then script modules below
// root.
func (o Options) defaultLoader(root string) loader.Loader {
	scripts := loader.NewScriptLoader(root)
	scripts.ModulesDir = o.ModulesDir
	scripts.Logger = o.logger()
	return loader.Chain{loader.DefaultRegistry(), scripts}
}

// projectRoot is the directory whose node_modules the default loader reads.
func projectRoot(src manifest.Source, set *manifest.DependencySet) string {
	if set.Path() != "" {
		return filepath.Dir(set.Path())
	}
	if src.Kind() == manifest.SourceDir {
		return src.Path()
	}
	return ""
}
