// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"reflect"
	"strconv"

	"github.com/dop251/goja"
)

const (
	classArray  = "Array"
	classObject = "Object"
)

// export converts a script value into plain Go values. Shared and cyclic
// references convert to the same Go value.
func (m *scriptModule) export(v goja.Value) any {
	return m.exportValue(v, goja.Undefined(), make(map[*goja.Object]any))
}

func (m *scriptModule) exportValue(v, this goja.Value, seen map[*goja.Object]any) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.Export()
	}
	if prev, ok := seen[obj]; ok {
		return prev
	}

	if fn, ok := goja.AssertFunction(obj); ok {
		f := m.wrapFunc(fn, this)
		keys := obj.Keys()
		if len(keys) == 0 {
			seen[obj] = f
			return f
		}
		o := &Object{Fn: f, Fields: make(map[string]any, len(keys))}
		seen[obj] = o
		for _, k := range keys {
			o.Fields[k] = m.exportValue(obj.Get(k), obj, seen)
		}
		return o
	}

	switch obj.ClassName() {
	case classArray:
		n := int(obj.Get("length").ToInteger())
		out := make([]any, n)
		seen[obj] = out
		for i := range n {
			out[i] = m.exportValue(obj.Get(strconv.Itoa(i)), obj, seen)
		}
		return out
	case classObject:
		keys := obj.Keys()
		out := make(map[string]any, len(keys))
		seen[obj] = out
		for _, k := range keys {
			out[k] = m.exportValue(obj.Get(k), obj, seen)
		}
		return out
	default:
		return obj.Export()
	}
}

// wrapFunc exposes a script function as a Func. Calls are serialized on the
// module's runtime, which is not safe for concurrent use.
func (m *scriptModule) wrapFunc(fn goja.Callable, this goja.Value) Func {
	return func(args ...any) (any, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		// A load-time cancellation that fired late must not abort calls.
		m.vm.ClearInterrupt()

		seen := make(map[any]goja.Value)
		jsArgs := make([]goja.Value, len(args))
		for i, a := range args {
			jsArgs[i] = m.toJS(a, seen)
		}
		res, err := fn(this, jsArgs...)
		if err != nil {
			return nil, m.scriptError(m.entry, err)
		}
		return m.export(res), nil
	}
}

// toJS converts a Go value for the runtime. Go functions, including those
// nested in maps and slices, are adapted by callOut.
func (m *scriptModule) toJS(v any, seen map[any]goja.Value) goja.Value {
	var key any
	switch v := v.(type) {
	case *Object:
		key = v
	case map[string]any:
		key = reflect.ValueOf(v).Pointer()
	case []any:
		if len(v) > 0 {
			key = &v[0]
		}
	}
	if key != nil {
		if prev, ok := seen[key]; ok {
			return prev
		}
	}

	switch v := v.(type) {
	case Func:
		if v == nil {
			return goja.Null()
		}
		return m.vm.ToValue(m.callOut(v))
	case *Object:
		if v == nil || v.Fn == nil {
			return goja.Null()
		}
		fn := m.vm.ToValue(m.callOut(v.Fn)).(*goja.Object)
		seen[key] = fn
		for k, f := range v.Fields {
			_ = fn.Set(k, m.toJS(f, seen))
		}
		return fn
	case map[string]any:
		obj := m.vm.NewObject()
		seen[key] = obj
		for k, f := range v {
			_ = obj.Set(k, m.toJS(f, seen))
		}
		return obj
	case []any:
		arr := m.vm.NewArray()
		if key != nil {
			seen[key] = arr
		}
		for i, e := range v {
			_ = arr.Set(strconv.Itoa(i), m.toJS(e, seen))
		}
		return arr
	default:
		return m.vm.ToValue(v)
	}
}

// callOut adapts a Go function for the runtime. Script code only runs while
// the module lock is held; the lock is released while f runs so that f may
// call back into this module, including functions it exported.
func (m *scriptModule) callOut(f Func) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = m.export(a)
		}
		res, err := m.unlocked(f, args)
		if err != nil {
			panic(m.vm.NewGoError(err))
		}
		return m.toJS(res, make(map[any]goja.Value))
	}
}

func (m *scriptModule) unlocked(f Func, args []any) (any, error) {
	m.mu.Unlock()
	defer m.mu.Lock()
	return f(args...)
}
