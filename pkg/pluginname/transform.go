// SPDX-License-Identifier: MPL-2.0

package pluginname

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// scopeMarker starts a scoped identifier ("@scope/name").
	scopeMarker = "@"
	// scopeSeparator separates the scope from the name.
	scopeSeparator = "/"
)

type (
	// RenameFunc maps a raw identifier to a replacement property name.
	RenameFunc func(identifier string) string

	// Transformer converts qualifying identifiers into property paths.
	//
	// Precedence: RenameFunc, then Rename, then the default transform. Both
	// rename forms produce a single segment that is used verbatim.
	Transformer struct {
		// ReplaceString is stripped from the start of the (unscoped) name.
		ReplaceString string
		// Suffix is stripped from the end of the name.
		Suffix string
		// Camelize converts every segment to lower camel case.
		Camelize bool
		// Rename maps raw identifiers to literal property names.
		Rename map[string]string
		// RenameFunc overrides both Rename and the default transform.
		RenameFunc RenameFunc
	}
)

// Transform returns the property path for identifier.
func (t Transformer) Transform(identifier string) PropertyPath {
	if t.RenameFunc != nil {
		return PropertyPath{t.RenameFunc(identifier)}
	}
	if name, ok := t.Rename[identifier]; ok {
		return PropertyPath{name}
	}

	scope, name, scoped := SplitScope(identifier)
	if t.ReplaceString != "" {
		name = strings.TrimPrefix(name, t.ReplaceString)
	}
	if t.Suffix != "" {
		name = strings.TrimSuffix(name, t.Suffix)
	}

	path := PropertyPath{name}
	if scoped {
		path = PropertyPath{scope, name}
	}
	if t.Camelize {
		for i, segment := range path {
			path[i] = Camelize(segment)
		}
	}
	return path
}

// SplitScope splits "@scope/name" into its scope and name. Identifiers
// without a scope return the identifier as name and scoped == false.
func SplitScope(identifier string) (scope, name string, scoped bool) {
	rest, ok := strings.CutPrefix(identifier, scopeMarker)
	if !ok {
		return "", identifier, false
	}
	scope, name, ok = strings.Cut(rest, scopeSeparator)
	if !ok {
		return "", identifier, false
	}
	return scope, name, true
}

// Camelize removes hyphen, underscore and whitespace separators and
// upper-cases the first letter of every word after the first: "foo-bar"
// becomes "fooBar". Other letters keep their case, so "foo-BAR" becomes
// "fooBAR".
func Camelize(segment string) string {
	words := strings.FieldsFunc(segment, isWordSeparator)
	for i := 1; i < len(words); i++ {
		r, size := utf8.DecodeRuneInString(words[i])
		words[i] = string(unicode.ToUpper(r)) + words[i][size:]
	}
	return strings.Join(words, "")
}

func isWordSeparator(r rune) bool {
	return r == '-' || r == '_' || unicode.IsSpace(r)
}
