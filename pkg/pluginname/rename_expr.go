// SPDX-License-Identifier: MPL-2.0

package pluginname

import (
	"errors"
	"fmt"
	"reflect"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
	"github.com/stoewer/go-strcase"
)

// ErrInvalidRenameExpr is returned when a rename expression fails to compile or evaluate.
var ErrInvalidRenameExpr = errors.New("invalid rename expression")

type (
	// RenameExpr is a compiled rename rule written in the expr language.
	// The expression sees three string variables:
	//
	//	name   the raw identifier ("@savl/test-plugin")
	//	scope  the scope without "@" ("savl"), empty when unscoped
	//	base   the identifier without its scope ("test-plugin")
	//
	// and must evaluate to a string, e.g. `upper(trimSuffix(base, "-plugin"))`.
	// Besides the expr builtins it may call camel, pascal, kebab and snake,
	// which re-case a string: `snake(trimSuffix(base, "-plugin"))`.
	RenameExpr struct {
		source  string
		program *exprvm.Program
	}

	// RenameExprError describes a compile or evaluation failure.
	// It wraps ErrInvalidRenameExpr for errors.Is() compatibility.
	RenameExprError struct {
		Expr       string
		Identifier string
		Err        error
	}
)

// CompileRenameExpr compiles source into a RenameExpr.
func CompileRenameExpr(source string) (*RenameExpr, error) {
	if source == "" {
		return nil, &RenameExprError{Expr: source, Err: errors.New("expression must not be empty")}
	}
	program, err := exprlang.Compile(source,
		exprlang.Env(renameEnv("")),
		exprlang.AsKind(reflect.String),
		caseFunction("camel", strcase.LowerCamelCase),
		caseFunction("pascal", strcase.UpperCamelCase),
		caseFunction("kebab", strcase.KebabCase),
		caseFunction("snake", strcase.SnakeCase),
	)
	if err != nil {
		return nil, &RenameExprError{Expr: source, Err: err}
	}
	return &RenameExpr{source: source, program: program}, nil
}

// String returns the expression source.
func (r *RenameExpr) String() string {
	return r.source
}

// Eval evaluates the expression for identifier.
func (r *RenameExpr) Eval(identifier string) (string, error) {
	out, err := exprlang.Run(r.program, renameEnv(identifier))
	if err != nil {
		return "", &RenameExprError{Expr: r.source, Identifier: identifier, Err: err}
	}
	name, ok := out.(string)
	if !ok {
		return "", &RenameExprError{Expr: r.source, Identifier: identifier, Err: fmt.Errorf("expected string result, got %T", out)}
	}
	return name, nil
}

// Error implements the error interface for RenameExprError.
func (e *RenameExprError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("rename expression %q for %q: %v", e.Expr, e.Identifier, e.Err)
	}
	return fmt.Sprintf("rename expression %q: %v", e.Expr, e.Err)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *RenameExprError) Unwrap() error {
	return ErrInvalidRenameExpr
}

func renameEnv(identifier string) map[string]any {
	scope, base, _ := SplitScope(identifier)
	return map[string]any{
		"name":  identifier,
		"scope": scope,
		"base":  base,
	}
}

// caseFunction exposes a string conversion as a one-argument expr function.
func caseFunction(name string, fn func(string) string) exprlang.Option {
	return exprlang.Function(name, func(params ...any) (any, error) {
		s, ok := params[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected string argument, got %T", name, params[0])
		}
		return fn(s), nil
	}, new(func(string) string))
}
