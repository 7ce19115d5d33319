// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"

	"cuelang.org/go/cue"
)

const testSchema = `
#Doc: {
	name: string
	tags?: [...string]
	deps?: [string]: string
}
`

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	type doc struct {
		Name string            `json:"name"`
		Tags []string          `json:"tags"`
		Deps map[string]string `json:"deps"`
	}

	res, err := ParseAndDecode[doc]([]byte(testSchema), []byte(`name: "x", tags: ["a"], deps: {"foo-plugin": "^1.0.0"}`), "#Doc",
		WithFilename("doc.cue"))
	if err != nil {
		t.Fatalf("ParseAndDecode() error: %v", err)
	}
	if res.Value.Name != "x" || len(res.Value.Tags) != 1 || res.Value.Deps["foo-plugin"] != "^1.0.0" {
		t.Errorf("decoded %+v", res.Value)
	}
}

func TestParseAndDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		opts []Option
	}{
		{"syntax error", `name: `, nil},
		{"type mismatch", `name: 1`, nil},
		{"closed definition", `name: "x", extra: true`, nil},
		{"missing concrete field", `tags: []`, nil},
		{"file too large", `name: "x"`, []Option{WithMaxFileSize(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := append([]Option{WithFilename("doc.cue")}, tt.opts...)
			_, err := ParseAndDecode[map[string]any]([]byte(testSchema), []byte(tt.data), "#Doc", opts...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "doc.cue") {
				t.Errorf("error should name the file, got: %v", err)
			}
		})
	}
}

func TestSchema_ValidateValue(t *testing.T) {
	t.Parallel()

	schema := MustCompile([]byte(testSchema), "#Doc")
	if schema.Definition() != "#Doc" {
		t.Errorf("Definition() = %q", schema.Definition())
	}

	ok := map[string]any{"name": "x", "deps": map[string]any{"foo-plugin": "1.0.0"}}
	if err := schema.ValidateValue(ok, "package.json"); err != nil {
		t.Errorf("ValidateValue() error: %v", err)
	}

	bad := map[string]any{"name": "x", "deps": map[string]any{"foo-plugin": 1.0}}
	err := schema.ValidateValue(bad, "package.json")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("ValidateValue() error = %v, want *ValidationError", err)
	}
	if ve.File != "package.json" {
		t.Errorf("File = %q", ve.File)
	}
	found := false
	for _, issue := range ve.Issues {
		if strings.HasPrefix(issue.Path, "deps") {
			found = true
		}
	}
	if !found {
		t.Errorf("issues should point at deps, got %+v", ve.Issues)
	}
}

func TestSchema_ValidateSource(t *testing.T) {
	t.Parallel()

	schema := MustCompile([]byte(testSchema), "#Doc")
	v, err := schema.ValidateSource([]byte(`name: "x"`), "doc.cue")
	if err != nil {
		t.Fatalf("ValidateSource() error: %v", err)
	}
	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil || name != "x" {
		t.Errorf("name = %q, %v", name, err)
	}

	if _, err := schema.ValidateSource([]byte(`name: 3`), "doc.cue"); err == nil {
		t.Error("expected a validation error")
	}
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Compile([]byte(`#A: {`), "#A"); err == nil {
		t.Error("expected error for an invalid schema")
	}
	if _, err := Compile([]byte(testSchema), "#Missing"); err == nil {
		t.Error("expected error for a missing definition")
	}
}
