// SPDX-License-Identifier: MPL-2.0

package pluginns

import (
	"fmt"

	"github.com/plugload/plugload/pkg/loader"
	"github.com/plugload/plugload/pkg/pluginname"
)

type (
	// Member is implemented by loaded values that expose named members.
	// map[string]any values are traversed without it.
	Member interface {
		Member(name string) (any, bool)
	}

	// Caller is implemented by loaded values that can be invoked.
	Caller interface {
		Call(args ...any) (any, error)
	}
)

// memberPath resolves path[from:] inside v.
func memberPath(v any, path pluginname.PropertyPath, from int) (any, error) {
	for i := from; i < len(path); i++ {
		next, ok := member(v, path[i])
		if !ok {
			return nil, &PropertyError{Path: path[:i+1], Err: ErrNoSuchProperty}
		}
		v = next
	}
	return v, nil
}

func member(v any, name string) (any, bool) {
	switch m := v.(type) {
	case Member:
		return m.Member(name)
	case map[string]any:
		next, ok := m[name]
		return next, ok
	default:
		return nil, false
	}
}

// call invokes v if it is one of the supported callable shapes.
func call(v any, path pluginname.PropertyPath, args []any) (any, error) {
	switch fn := v.(type) {
	case Caller:
		return fn.Call(args...)
	case loader.Func:
		return fn(args...)
	case func(...any) (any, error):
		return fn(args...)
	case func(...any) any:
		return fn(args...), nil
	case func() (any, error):
		return fn()
	case func() any:
		return fn(), nil
	case func():
		fn()
		return nil, nil
	default:
		return nil, &PropertyError{Path: path, Type: fmt.Sprintf("%T", v), Err: ErrNotCallable}
	}
}

// Callable reports whether Call can invoke v.
func Callable(v any) bool {
	switch v.(type) {
	case Caller, loader.Func, func(...any) (any, error), func(...any) any,
		func() (any, error), func() any, func():
		return true
	default:
		return false
	}
}
