// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"
	"golang.org/x/exp/maps"
)

const (
	// FormatJSON is package.json.
	FormatJSON Format = "json"
	// FormatYAML is package.yaml / package.yml.
	FormatYAML Format = "yaml"
	// FormatTOML is package.toml.
	FormatTOML Format = "toml"
	// FormatCUE is package.cue.
	FormatCUE Format = "cue"
	// FormatObject marks an in-memory manifest.
	FormatObject Format = "object"
)

var errNotMapping = errors.New("top level must be a mapping")

type (
	// Format identifies a manifest encoding.
	Format string

	// document is a decoded manifest: the plain values used for schema
	// validation plus the declaration order of each category's keys when
	// the format preserves it.
	document struct {
		raw   map[string]any
		order map[string][]string
	}
)

// ManifestFiles returns the file names looked up in each directory, in order.
func ManifestFiles() []string {
	return []string{"package.json", "package.yaml", "package.yml", "package.toml", "package.cue"}
}

// FormatOf returns the format implied by a file's extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	case ".cue":
		return FormatCUE, true
	default:
		return "", false
	}
}

// String returns the string representation of the Format.
func (f Format) String() string { return string(f) }

func decode(format Format, data []byte, filename string) (*document, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		return decodeYAML(data)
	case FormatTOML:
		return decodeTOML(data)
	case FormatCUE:
		return decodeCUE(data, filename)
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
}

func decodeJSON(data []byte) (*document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	doc := &document{raw: make(map[string]any, len(fields)), order: make(map[string][]string)}
	for key, msg := range fields {
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, err
		}
		doc.raw[key] = v
		if keys, ok, err := jsonObjectKeys(msg); err != nil {
			return nil, err
		} else if ok {
			doc.order[key] = keys
		}
	}
	return doc, nil
}

// jsonObjectKeys returns the keys of a JSON object in source order. Repeated
// keys keep their first position.
func jsonObjectKeys(msg json.RawMessage) ([]string, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	tok, err := dec.Token()
	if err != nil {
		return nil, false, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, false, nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false, err
		}
		key, _ := tok.(string)
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, false, err
		}
	}
	return keys, true, nil
}

func decodeYAML(data []byte) (*document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	doc := &document{raw: map[string]any{}, order: make(map[string][]string)}
	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}
	mapping := resolveAlias(root.Content[0])
	if mapping.Kind != yaml.MappingNode {
		return nil, errNotMapping
	}
	if err := mapping.Decode(&doc.raw); err != nil {
		return nil, err
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		value := resolveAlias(mapping.Content[i+1])
		if value.Kind != yaml.MappingNode {
			continue
		}
		var keys []string
		for j := 0; j+1 < len(value.Content); j += 2 {
			if k := value.Content[j].Value; !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
		doc.order[key] = keys
	}
	return doc, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// decodeTOML decodes a TOML manifest. go-toml decodes tables into Go maps,
// so category order is lexicographic.
func decodeTOML(data []byte) (*document, error) {
	doc := &document{raw: map[string]any{}}
	if err := toml.Unmarshal(data, &doc.raw); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeCUE(data []byte, filename string) (*document, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if v.Err() != nil {
		return nil, v.Err()
	}
	doc := &document{raw: map[string]any{}, order: make(map[string][]string)}
	if err := v.Decode(&doc.raw); err != nil {
		return nil, err
	}

	fields, err := v.Fields()
	if err != nil {
		return nil, err
	}
	for fields.Next() {
		key := fields.Selector().Unquoted()
		if fields.Value().IncompleteKind() != cue.StructKind {
			continue
		}
		inner, err := fields.Value().Fields()
		if err != nil {
			return nil, err
		}
		var keys []string
		for inner.Next() {
			keys = append(keys, inner.Selector().Unquoted())
		}
		doc.order[key] = keys
	}
	return doc, nil
}

// entries returns the name/version pairs of one category in declaration
// order, falling back to lexical order when the format kept none.
func (d *document) entries(category Category) ([]Dependency, bool, error) {
	value, present := d.raw[string(category)]
	if !present {
		return nil, false, nil
	}

	var versions map[string]string
	switch v := value.(type) {
	case map[string]string:
		versions = v
	case map[string]any:
		versions = make(map[string]string, len(v))
		for name, version := range v {
			s, ok := version.(string)
			if !ok {
				return nil, true, fmt.Errorf("%s.%s: version must be a string, got %T", category, name, version)
			}
			versions[name] = s
		}
	case nil:
		return nil, true, nil
	default:
		return nil, true, fmt.Errorf("%s: must be a mapping of name to version, got %T", category, value)
	}

	names := d.order[string(category)]
	if len(names) != len(versions) {
		names = maps.Keys(versions)
		slices.Sort(names)
	}
	deps := make([]Dependency, 0, len(names))
	for _, name := range names {
		deps = append(deps, Dependency{Name: name, Version: versions[name], Category: category})
	}
	return deps, true, nil
}
