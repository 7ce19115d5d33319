// SPDX-License-Identifier: MPL-2.0

package pluginns

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/plugload/plugload/pkg/lazy"
	"github.com/plugload/plugload/pkg/loader"
)

type module struct{ name string }

func TestNamespace_GetIsMemoized(t *testing.T) {
	t.Parallel()

	mod := &module{name: "foo"}
	ld := newRecordingLoader(map[string]any{"foo-plugin": mod})
	ns, err := Build(t.Context(), []Entry{{path("foo"), "foo-plugin"}}, quietOptions(ld))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	first, err := ns.Get(t.Context(), "foo")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	second, err := ns.Get(t.Context(), "foo")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if first != second || first != mod {
		t.Error("repeated access must return the same memoized instance")
	}
	if ld.count("foo-plugin") != 1 {
		t.Errorf("loader called %d times, want 1", ld.count("foo-plugin"))
	}
	leaf, _ := ns.Lookup("foo")
	if leaf.Leaf().State() != lazy.StateResolved {
		t.Errorf("State() = %v, want resolved", leaf.Leaf().State())
	}
}

func TestNamespace_FailureIsRetried(t *testing.T) {
	t.Parallel()

	errFlaky := errors.New("flaky")
	ld := newRecordingLoader(map[string]any{"foo-plugin": "ok"})
	ld.errs["foo-plugin"] = errFlaky

	ns, err := Build(t.Context(), []Entry{{path("foo"), "foo-plugin"}}, quietOptions(ld))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if _, err := ns.Get(t.Context(), "foo"); err != errFlaky {
		t.Fatalf("first Get() error = %v, want the loader's error unchanged", err)
	}
	got, err := ns.Get(t.Context(), "foo")
	if err != nil || got != "ok" {
		t.Errorf("second Get() = (%v, %v), want (ok, nil)", got, err)
	}
	if ld.count("foo-plugin") != 2 {
		t.Errorf("loader called %d times, want 2", ld.count("foo-plugin"))
	}
}

func TestNamespace_ConcurrentFirstAccess(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{"foo-plugin": &module{name: "foo"}})
	ns, err := Build(t.Context(), []Entry{{path("foo"), "foo-plugin"}}, quietOptions(ld))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			if _, err := ns.Get(t.Context(), "foo"); err != nil {
				t.Errorf("Get() error: %v", err)
			}
		})
	}
	wg.Wait()

	if ld.count("foo-plugin") != 1 {
		t.Errorf("loader called %d times, want 1", ld.count("foo-plugin"))
	}
}

func TestNamespace_Members(t *testing.T) {
	t.Parallel()

	wrapped := 0
	insert := map[string]any{
		"wrap": loader.Func(func(args ...any) (any, error) {
			wrapped++
			return "wrapped", nil
		}),
		"version": "1.0.0",
	}
	fnObject := &loader.Object{
		Fn:     func(args ...any) (any, error) { return len(args), nil },
		Fields: map[string]any{"nested": map[string]any{"deep": "value"}},
	}
	ld := newRecordingLoader(map[string]any{"insert-plugin": insert, "obj-plugin": fnObject})

	ns, err := Build(t.Context(), []Entry{
		{path("insert"), "insert-plugin"},
		{path("savl", "obj"), "obj-plugin"},
	}, quietOptions(ld))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	got, err := ns.Call(t.Context(), []string{"insert", "wrap"})
	if err != nil || got != "wrapped" || wrapped != 1 {
		t.Errorf("Call(insert.wrap) = (%v, %v), wrapped = %d", got, err, wrapped)
	}
	if v, err := ns.Get(t.Context(), "insert", "version"); err != nil || v != "1.0.0" {
		t.Errorf("Get(insert.version) = (%v, %v)", v, err)
	}
	if v, err := ns.Call(t.Context(), []string{"savl", "obj"}, 1, 2, 3); err != nil || v != 3 {
		t.Errorf("Call(savl.obj) = (%v, %v), want (3, nil)", v, err)
	}
	if v, err := ns.Get(t.Context(), "savl", "obj", "nested", "deep"); err != nil || v != "value" {
		t.Errorf("Get(savl.obj.nested.deep) = (%v, %v)", v, err)
	}
}

func TestNamespace_PropertyErrors(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{"foo-plugin": map[string]any{"n": 1}, "@savl/x-plugin": 2})
	ns, err := Build(t.Context(), []Entry{
		{path("foo"), "foo-plugin"},
		{path("savl", "x"), "@savl/x-plugin"},
	}, quietOptions(ld))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	tests := []struct {
		name     string
		path     []string
		call     bool
		wantErr  error
		wantPath string
	}{
		{"unknown top-level", []string{"bar"}, false, ErrNoSuchProperty, "bar"},
		{"unknown in namespace", []string{"savl", "y"}, false, ErrNoSuchProperty, "savl.y"},
		{"unknown member", []string{"foo", "missing"}, false, ErrNoSuchProperty, "foo.missing"},
		{"member of a scalar", []string{"savl", "x", "y"}, false, ErrNoSuchProperty, "savl.x.y"},
		{"raw scoped identifier", []string{"@savl/x-plugin"}, false, ErrNoSuchProperty, "@savl/x-plugin"},
		{"call a map", []string{"foo"}, true, ErrNotCallable, "foo"},
		{"call a namespace", []string{"savl"}, true, ErrNotCallable, "savl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var err error
			if tt.call {
				_, err = ns.Call(t.Context(), tt.path)
			} else {
				_, err = ns.Get(t.Context(), tt.path...)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var pe *PropertyError
			if !errors.As(err, &pe) || pe.Path.String() != tt.wantPath {
				t.Errorf("PropertyError path = %v, want %q", err, tt.wantPath)
			}
		})
	}
}

func TestNamespace_GetNamespaceNode(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(nil)
	ns, err := Build(t.Context(), []Entry{{path("savl", "x"), "@savl/x-plugin"}}, quietOptions(ld))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	v, err := ns.Get(t.Context(), "savl")
	if err != nil {
		t.Fatalf("Get(savl) error: %v", err)
	}
	node, ok := v.(*Node)
	if !ok || node.IsLeaf() || node.Path().String() != "savl" {
		t.Errorf("Get(savl) = %#v, want the savl namespace node", v)
	}
	if ld.total() != 0 {
		t.Error("reading a namespace must not load its leaves")
	}

	root, ok := ns.Lookup()
	if !ok || root != ns.Root() {
		t.Error("Lookup() with no segments should return the root")
	}
	if _, ok := ns.Lookup("savl", "x", "member"); ok {
		t.Error("Lookup() must not descend past a leaf")
	}
}

func TestNamespace_Walk(t *testing.T) {
	t.Parallel()

	ns, err := Build(t.Context(), []Entry{
		{path("a"), "a-plugin"},
		{path("b"), "b-plugin"},
	}, quietOptions(newRecordingLoader(nil)))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	var ids []string
	errStop := errors.New("stop")
	err = ns.Walk(func(l *Leaf) error {
		ids = append(ids, l.Identifier())
		return errStop
	})
	if err != errStop || strings.Join(ids, ",") != "a-plugin" {
		t.Errorf("Walk() = %v visiting %v, want to stop after a-plugin", err, ids)
	}
}

func TestCall_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   any
		want any
	}{
		{"loader.Func", loader.Func(func(args ...any) (any, error) { return len(args), nil }), 2},
		{"variadic with error", func(args ...any) (any, error) { return len(args), nil }, 2},
		{"variadic", func(args ...any) any { return len(args) }, 2},
		{"nullary with error", func() (any, error) { return "n", nil }, "n"},
		{"nullary", func() any { return "n" }, "n"},
		{"no result", func() {}, nil},
		{"caller", &loader.Object{Fn: func(args ...any) (any, error) { return "obj", nil }}, "obj"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if !Callable(tt.fn) {
				t.Fatal("Callable() = false")
			}
			got, err := call(tt.fn, path("x"), []any{1, 2})
			if err != nil || got != tt.want {
				t.Errorf("call() = (%v, %v), want (%v, nil)", got, err, tt.want)
			}
		})
	}

	if Callable("string") || Callable(func(int) {}) {
		t.Error("Callable() should reject non-function values and unsupported signatures")
	}
}
