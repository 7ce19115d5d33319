// SPDX-License-Identifier: MPL-2.0

package pluginns

import (
	"errors"
	"fmt"

	"github.com/plugload/plugload/pkg/pluginname"
)

var (
	// ErrPathConflict is returned when two property paths cannot coexist in
	// one namespace tree.
	ErrPathConflict = errors.New("property path conflict")

	// ErrNoSuchProperty is returned when a property path does not exist.
	ErrNoSuchProperty = errors.New("no such property")

	// ErrNotCallable is returned when Call reaches a value that is not a
	// function.
	ErrNotCallable = errors.New("value is not callable")
)

type (
	// PathConflictError describes a property path that could not be
	// installed.
	PathConflictError struct {
		Path       pluginname.PropertyPath
		Identifier string
		// Existing is the identifier of the leaf in the way, if any.
		Existing string
		Reason   string
	}

	// PropertyError describes a failed property access.
	PropertyError struct {
		Path pluginname.PropertyPath
		// Type is the Go type of the value reached, for ErrNotCallable.
		Type string
		Err  error
	}
)

// Error implements the error interface.
func (e *PathConflictError) Error() string {
	return fmt.Sprintf("cannot install %q at %q: %s", e.Identifier, e.Path, e.Reason)
}

// Unwrap returns ErrPathConflict for errors.Is() compatibility.
func (e *PathConflictError) Unwrap() error { return ErrPathConflict }

// Error implements the error interface.
func (e *PropertyError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("property %q: %v (%s)", e.Path, e.Err, e.Type)
	}
	return fmt.Sprintf("property %q: %v", e.Path, e.Err)
}

// Unwrap returns ErrNoSuchProperty or ErrNotCallable.
func (e *PropertyError) Unwrap() error { return e.Err }
