// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

type (
	// ValidationError lists the schema violations found in one document.
	ValidationError struct {
		// File is the document being validated.
		File string
		// Issues holds one entry per violation, in CUE's reporting order.
		Issues []Issue
	}

	// Issue is a single violation.
	Issue struct {
		// Path is the field path in JSON-path notation, e.g. "dependencies.foo".
		Path    string
		Message string
	}
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		lines[i] = issue.String()
	}
	if len(lines) == 1 {
		return fmt.Sprintf("%s: %s", e.File, lines[0])
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.File, strings.Join(lines, "\n  "))
}

// String formats the issue as "<path>: <message>".
func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// FormatError converts a CUE error into a *ValidationError naming file.
// Errors that carry no CUE details are wrapped with the file name.
func FormatError(err error, file string) error {
	if err == nil {
		return nil
	}

	var cueErr cueerrors.Error
	if !errors.As(err, &cueErr) {
		return fmt.Errorf("%s: %w", file, err)
	}

	cueErrors := cueerrors.Errors(err)
	ve := &ValidationError{File: file, Issues: make([]Issue, 0, len(cueErrors))}
	for _, e := range cueErrors {
		format, args := e.Msg()
		ve.Issues = append(ve.Issues, Issue{
			Path:    formatPath(cueerrors.Path(e)),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return ve
}

// formatPath renders ["deps", "0", "name"] as "deps[0].name". A leading
// definition selector ("#Manifest") is dropped and quoted labels are
// unquoted, so paths read as they do in the validated document.
func formatPath(path []string) string {
	if len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}

	var b strings.Builder
	for i, part := range path {
		if unquoted, err := strconv.Unquote(part); err == nil && strings.HasPrefix(part, `"`) {
			part = unquoted
		}
		switch {
		case i > 0 && isIndex(part):
			b.WriteString("[" + part + "]")
		case i > 0:
			b.WriteString("." + part)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize reports an error when data exceeds maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
