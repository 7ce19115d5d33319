// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultMaxFileSize bounds the documents accepted by ParseAndDecode.
const DefaultMaxFileSize int64 = 4 << 20

type (
	// Option configures ParseAndDecode.
	Option func(*options)

	options struct {
		filename    string
		maxFileSize int64
		concrete    bool
	}

	// ParseResult contains the result of a successful parse.
	ParseResult[T any] struct {
		// Value is the decoded Go value.
		Value *T
		// Unified is the document unified with its schema.
		Unified cue.Value
	}

	// Schema is a compiled root definition of an embedded CUE schema.
	// cue.Context is not safe for concurrent use, so every validation
	// builds its own context from the schema source.
	Schema struct {
		source     []byte
		definition string
	}
)

// WithFilename sets the filename used in positions and error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(o *options) { o.maxFileSize = n }
}

// WithConcrete requires every field of the unified document to be concrete.
func WithConcrete(concrete bool) Option {
	return func(o *options) { o.concrete = concrete }
}

func defaultOptions() options {
	return options{filename: "<input>", maxFileSize: DefaultMaxFileSize, concrete: true}
}

// Compile checks that source compiles and defines definition.
func Compile(source []byte, definition string) (*Schema, error) {
	s := &Schema{source: source, definition: definition}
	if _, err := s.root(cuecontext.New()); err != nil {
		return nil, err
	}
	return s, nil
}

// MustCompile is Compile for embedded schemas; it panics on error.
func MustCompile(source []byte, definition string) *Schema {
	s, err := Compile(source, definition)
	if err != nil {
		panic(err)
	}
	return s
}

// Definition returns the root definition path, e.g. "#Manifest".
func (s *Schema) Definition() string {
	return s.definition
}

// ValidateSource compiles CUE source, unifies it with the schema and
// validates the result. The unified value is returned for decoding.
func (s *Schema) ValidateSource(data []byte, filename string) (cue.Value, error) {
	ctx := cuecontext.New()
	root, err := s.root(ctx)
	if err != nil {
		return cue.Value{}, err
	}
	doc := ctx.CompileBytes(data, cue.Filename(filename))
	if doc.Err() != nil {
		return cue.Value{}, FormatError(doc.Err(), filename)
	}
	unified := root.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, FormatError(err, filename)
	}
	return unified, nil
}

// ValidateValue encodes a decoded Go value and validates it against the
// schema.
func (s *Schema) ValidateValue(v any, filename string) error {
	ctx := cuecontext.New()
	root, err := s.root(ctx)
	if err != nil {
		return err
	}
	doc := ctx.Encode(v)
	if doc.Err() != nil {
		return FormatError(doc.Err(), filename)
	}
	if err := root.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return FormatError(err, filename)
	}
	return nil
}

func (s *Schema) root(ctx *cue.Context) (cue.Value, error) {
	schema := ctx.CompileBytes(s.source)
	if schema.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: failed to compile schema: %w", schema.Err())
	}
	root := schema.LookupPath(cue.ParsePath(s.definition))
	if root.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", s.definition, root.Err())
	}
	return root, nil
}

// ParseAndDecode compiles data, unifies it with the schema definition and
// decodes the result into T.
func ParseAndDecode[T any](schema, data []byte, definition string, opts ...Option) (*ParseResult[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	root, err := (&Schema{source: schema, definition: definition}).root(ctx)
	if err != nil {
		return nil, err
	}

	doc := ctx.CompileBytes(data, cue.Filename(o.filename))
	if doc.Err() != nil {
		return nil, FormatError(doc.Err(), o.filename)
	}

	unified := root.Unify(doc)
	validateOpts := []cue.Option{}
	if o.concrete {
		validateOpts = append(validateOpts, cue.Concrete(true))
	}
	if err := unified.Validate(validateOpts...); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &ParseResult[T]{Value: &result, Unified: unified}, nil
}
