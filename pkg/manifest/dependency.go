// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// CategoryDependencies holds runtime dependencies.
	CategoryDependencies Category = "dependencies"
	// CategoryDevDependencies holds development dependencies.
	CategoryDevDependencies Category = "devDependencies"
	// CategoryPeerDependencies holds peer dependencies.
	CategoryPeerDependencies Category = "peerDependencies"
	// CategoryOptionalDependencies holds optional dependencies. It is
	// recognized but not read by default.
	CategoryOptionalDependencies Category = "optionalDependencies"
)

// ErrInvalidCategory is returned when a category name is empty or contains
// whitespace.
var ErrInvalidCategory = errors.New("invalid dependency category")

type (
	// Category names one dependency section of a manifest.
	Category string

	// InvalidCategoryError is returned when a Category value is not usable.
	InvalidCategoryError struct {
		Value Category
	}

	// Dependency is one declared dependency.
	Dependency struct {
		Name     string
		Version  string
		Category Category
	}

	// DependencySet is the ordered, de-duplicated result of reading a
	// manifest. It is immutable after construction.
	DependencySet struct {
		deps  []Dependency
		index map[string]int
		path  string
	}
)

// DefaultCategories returns the categories read when none are configured.
func DefaultCategories() []Category {
	return []Category{CategoryDependencies, CategoryDevDependencies, CategoryPeerDependencies}
}

// KnownCategories returns every category the manifest schema types.
func KnownCategories() []Category {
	return append(DefaultCategories(), CategoryOptionalDependencies)
}

// String returns the string representation of the Category.
func (c Category) String() string { return string(c) }

// Validate returns nil if the Category is usable as a manifest key.
func (c Category) Validate() error {
	if c == "" || strings.ContainsFunc(string(c), func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }) {
		return &InvalidCategoryError{Value: c}
	}
	return nil
}

// IsKnown reports whether c is one of KnownCategories.
func (c Category) IsKnown() bool {
	return slices.Contains(KnownCategories(), c)
}

// Error implements the error interface.
func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid dependency category %q", e.Value)
}

// Unwrap returns ErrInvalidCategory for errors.Is() compatibility.
func (e *InvalidCategoryError) Unwrap() error { return ErrInvalidCategory }

// NewDependencySet returns a set holding deps in order. A name seen more than
// once keeps its first position and version.
func NewDependencySet(deps ...Dependency) *DependencySet {
	s := &DependencySet{index: make(map[string]int, len(deps))}
	for _, d := range deps {
		s.add(d)
	}
	return s
}

func (s *DependencySet) add(d Dependency) bool {
	if _, dup := s.index[d.Name]; dup {
		return false
	}
	s.index[d.Name] = len(s.deps)
	s.deps = append(s.deps, d)
	return true
}

// Len returns the number of dependencies.
func (s *DependencySet) Len() int { return len(s.deps) }

// All returns the dependencies in order.
func (s *DependencySet) All() []Dependency { return slices.Clone(s.deps) }

// Names returns the dependency identifiers in order.
func (s *DependencySet) Names() []string {
	names := make([]string, len(s.deps))
	for i, d := range s.deps {
		names[i] = d.Name
	}
	return names
}

// Get returns the dependency named name.
func (s *DependencySet) Get(name string) (Dependency, bool) {
	i, ok := s.index[name]
	if !ok {
		return Dependency{}, false
	}
	return s.deps[i], true
}

// ByCategory returns the dependencies that were read from c.
func (s *DependencySet) ByCategory(c Category) []Dependency {
	var out []Dependency
	for _, d := range s.deps {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}

// Path returns the manifest file the set was read from, or "" for object
// sources.
func (s *DependencySet) Path() string { return s.path }
