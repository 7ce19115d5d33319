// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
)

// NotFoundMessage is the message of every NotFoundError.
const NotFoundMessage = "Could not find dependencies. Do you have a package.json file in your project?"

var (
	// ErrNotFound is returned when no manifest with dependency categories
	// can be located.
	ErrNotFound = errors.New("dependency manifest not found")

	// ErrParse is returned when a manifest cannot be decoded or violates the
	// manifest schema.
	ErrParse = errors.New("invalid dependency manifest")
)

type (
	// NotFoundError is returned when a source yields no manifest, or a
	// manifest without any of the configured categories.
	NotFoundError struct {
		Source Source
		// Path is the manifest that was read, if one was found.
		Path string
	}

	// ParseError is returned when a manifest file cannot be used.
	ParseError struct {
		// Path is the manifest file; empty for in-memory objects.
		Path   string
		Format Format
		Err    error
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string { return NotFoundMessage }

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		// In-memory documents: the cause names the source.
		return fmt.Sprintf("failed to parse manifest: %v", e.Err)
	}
	if e.Format == "" {
		return fmt.Sprintf("failed to parse manifest %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to parse %s manifest %s: %v", e.Format, e.Path, e.Err)
}

// Unwrap returns the decoding or validation error.
func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
