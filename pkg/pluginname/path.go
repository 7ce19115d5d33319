// SPDX-License-Identifier: MPL-2.0

package pluginname

import (
	"slices"
	"strings"
)

// PathSeparator joins PropertyPath segments in their string form.
const PathSeparator = "."

// PropertyPath is the sequence of namespace segments under which a plugin is
// exposed. It has more than one segment only for scoped identifiers.
type PropertyPath []string

// ParsePropertyPath splits a dotted path such as "savl.testPlugin".
func ParsePropertyPath(s string) PropertyPath {
	if s == "" {
		return nil
	}
	return PropertyPath(strings.Split(s, PathSeparator))
}

// String returns the dotted form of the path.
func (p PropertyPath) String() string {
	return strings.Join(p, PathSeparator)
}

// Equal reports whether p and other have the same segments.
func (p PropertyPath) Equal(other PropertyPath) bool {
	return slices.Equal(p, other)
}

// Parent returns all segments but the last.
func (p PropertyPath) Parent() PropertyPath {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Base returns the last segment, or "" for an empty path.
func (p PropertyPath) Base() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}
