// SPDX-License-Identifier: MPL-2.0

package manifest

import "maps"

const (
	// SourceDir discovers a manifest by walking up from a directory.
	SourceDir SourceKind = iota
	// SourceFile reads one manifest file.
	SourceFile
	// SourceObject uses an already decoded manifest.
	SourceObject
	// SourceNone is the explicit absence of a manifest.
	SourceNone
)

type (
	// SourceKind identifies how a Source locates its manifest.
	SourceKind int

	// Source tells a Provider where the manifest comes from. The zero value
	// discovers a manifest from the current working directory.
	Source struct {
		kind   SourceKind
		path   string
		object map[string]any
	}
)

// FromDir discovers the nearest manifest at or above dir. An empty dir means
// the current working directory.
func FromDir(dir string) Source {
	return Source{kind: SourceDir, path: dir}
}

// FromFile reads the manifest at path.
func FromFile(path string) Source {
	return Source{kind: SourceFile, path: path}
}

// FromObject uses obj as the decoded manifest. Category values may be
// map[string]any or map[string]string. The map is copied one level deep.
func FromObject(obj map[string]any) Source {
	return Source{kind: SourceObject, object: maps.Clone(obj)}
}

// None returns a source that never yields dependencies.
func None() Source {
	return Source{kind: SourceNone}
}

// Kind returns how the source locates its manifest.
func (s Source) Kind() SourceKind { return s.kind }

// Path returns the directory or file of a SourceDir or SourceFile.
func (s Source) Path() string { return s.path }

// String returns the string representation of the SourceKind.
func (k SourceKind) String() string {
	switch k {
	case SourceDir:
		return "dir"
	case SourceFile:
		return "file"
	case SourceObject:
		return "object"
	case SourceNone:
		return "none"
	default:
		return "unknown"
	}
}

// String describes the source for logs and errors.
func (s Source) String() string {
	switch s.kind {
	case SourceDir:
		if s.path == "" {
			return "dir:."
		}
		return "dir:" + s.path
	case SourceFile:
		return "file:" + s.path
	default:
		return s.kind.String()
	}
}
