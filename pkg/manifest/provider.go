// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/plugload/plugload/pkg/cueutil"
)

//go:embed manifest_schema.cue
var schemaBytes []byte

var manifestSchema = cueutil.MustCompile(schemaBytes, "#Manifest")

type (
	// Provider reads the dependency set of a project.
	Provider interface {
		Load(ctx context.Context, src Source) (*DependencySet, error)
	}

	// FileProvider is the default Provider. It reads manifests from disk or
	// from in-memory objects, validates them against the manifest schema and
	// merges the configured categories.
	FileProvider struct {
		categories []Category
		logger     *slog.Logger
	}

	// ProviderOption configures a FileProvider.
	ProviderOption func(*FileProvider)
)

// WithCategories sets the categories to merge, in order. An empty list keeps
// DefaultCategories.
func WithCategories(categories ...Category) ProviderOption {
	return func(p *FileProvider) {
		if len(categories) > 0 {
			p.categories = slices.Clone(categories)
		}
	}
}

// WithLogger sets the logger used for discovery diagnostics.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *FileProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider returns a FileProvider.
func NewProvider(opts ...ProviderOption) *FileProvider {
	p := &FileProvider{categories: DefaultCategories(), logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Categories returns the categories merged by the provider.
func (p *FileProvider) Categories() []Category {
	return slices.Clone(p.categories)
}

// Load implements Provider.
func (p *FileProvider) Load(ctx context.Context, src Source) (*DependencySet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, c := range p.categories {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	switch src.kind {
	case SourceNone:
		return nil, &NotFoundError{Source: src}
	case SourceObject:
		if src.object == nil {
			return nil, &NotFoundError{Source: src}
		}
		return p.fromDocument(src, "", FormatObject, &document{raw: src.object})
	case SourceFile:
		return p.loadFile(src, src.path)
	default:
		path, err := Discover(ctx, src.path)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				nf.Source = src
			}
			return nil, err
		}
		p.logger.Debug("manifest located", "path", path)
		return p.loadFile(src, path)
	}
}

func (p *FileProvider) loadFile(src Source, path string) (*DependencySet, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("unsupported manifest extension %q", filepath.Ext(path))}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Source: src, Path: path}
		}
		return nil, &ParseError{Path: path, Format: format, Err: err}
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return nil, &ParseError{Path: path, Format: format, Err: err}
	}

	doc, err := decode(format, data, path)
	if err != nil {
		return nil, &ParseError{Path: path, Format: format, Err: err}
	}
	return p.fromDocument(src, path, format, doc)
}

func (p *FileProvider) fromDocument(src Source, path string, format Format, doc *document) (*DependencySet, error) {
	name := path
	if name == "" {
		name = format.String()
	}
	if err := manifestSchema.ValidateValue(doc.raw, name); err != nil {
		return nil, &ParseError{Path: path, Format: format, Err: err}
	}

	set := NewDependencySet()
	set.path = path
	found := false
	for _, category := range p.categories {
		deps, present, err := doc.entries(category)
		if err != nil {
			if path == "" {
				err = fmt.Errorf("%s: %w", name, err)
			}
			return nil, &ParseError{Path: path, Format: format, Err: err}
		}
		found = found || present
		for _, d := range deps {
			if !set.add(d) {
				p.logger.Debug("dependency declared in several categories",
					"name", d.Name, "kept", set.deps[set.index[d.Name]].Category, "ignored", category)
			}
		}
	}
	if !found {
		return nil, &NotFoundError{Source: src, Path: path}
	}

	p.logger.Debug("dependencies read", "source", src.String(), "path", path, "count", set.Len())
	return set, nil
}

// Discover returns the first manifest file found in dir or one of its
// parents. An empty dir starts at the current working directory.
func Discover(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		for _, name := range ManifestFiles() {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &NotFoundError{Source: FromDir(dir)}
		}
		dir = parent
	}
}
