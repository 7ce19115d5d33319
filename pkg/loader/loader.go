// SPDX-License-Identifier: MPL-2.0

// Package loader provides the module-loading primitive used to resolve plugin
// identifiers into values.
//
// A Loader maps one identifier to one loaded value. Loaders compose with
// Chain; Default returns the chain used when no loader is configured: the
// process-wide Registry first, then script modules below node_modules.
package loader

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrModuleNotFound is returned when a loader has no module for an identifier.
	ErrModuleNotFound = errors.New("module not found")

	// ErrScriptFailed is returned when a script module fails to compile or run.
	ErrScriptFailed = errors.New("script module failed")
)

type (
	// Loader resolves an identifier into a loaded module value.
	Loader interface {
		Load(ctx context.Context, identifier string) (any, error)
	}

	// LoaderFunc adapts an ordinary function to the Loader interface.
	LoaderFunc func(ctx context.Context, identifier string) (any, error)

	// Func is the canonical callable module value.
	Func func(args ...any) (any, error)

	// Object is a callable module value that also carries members, such as a
	// script function with properties attached to it.
	Object struct {
		Fn     Func
		Fields map[string]any
	}

	// NotFoundError reports an identifier no loader could resolve.
	NotFoundError struct {
		Identifier string
		// Path is the location that was tried, if any.
		Path string
	}

	// ScriptError reports a script module that failed to compile, run or
	// complete a call.
	ScriptError struct {
		Identifier string
		Path       string
		Err        error
	}
)

// Load calls f(ctx, identifier).
func (f LoaderFunc) Load(ctx context.Context, identifier string) (any, error) {
	return f(ctx, identifier)
}

// Call invokes the object's function.
func (o *Object) Call(args ...any) (any, error) {
	if o.Fn == nil {
		return nil, fmt.Errorf("object is not callable")
	}
	return o.Fn(args...)
}

// Member returns the named field.
func (o *Object) Member(name string) (any, bool) {
	v, ok := o.Fields[name]
	return v, ok
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Cannot find module '%s'", e.Identifier)
}

// Unwrap returns ErrModuleNotFound for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrModuleNotFound
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("module '%s' (%s): %v", e.Identifier, e.Path, e.Err)
}

// Unwrap returns the underlying script error.
func (e *ScriptError) Unwrap() error {
	return e.Err
}

// Is reports ErrScriptFailed as a match so callers can test the category
// without losing the underlying cause.
func (e *ScriptError) Is(target error) bool {
	return target == ErrScriptFailed
}

// IsNotFound reports whether err is a module-not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrModuleNotFound)
}

// Default returns the default loader for a project rooted at root: the
// process-wide registry, then script modules below root/node_modules.
func Default(root string) Loader {
	return Chain{DefaultRegistry(), NewScriptLoader(root)}
}
