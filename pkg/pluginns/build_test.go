// SPDX-License-Identifier: MPL-2.0

package pluginns

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/plugload/plugload/pkg/loader"
	"github.com/plugload/plugload/pkg/pluginname"
)

// recordingLoader serves values from a map and counts Load calls.
type recordingLoader struct {
	mu     sync.Mutex
	values map[string]any
	errs   map[string]error
	calls  map[string]int
}

func newRecordingLoader(values map[string]any) *recordingLoader {
	return &recordingLoader{values: values, errs: map[string]error{}, calls: map[string]int{}}
}

func (r *recordingLoader) Load(_ context.Context, id string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[id]++
	if err, ok := r.errs[id]; ok {
		delete(r.errs, id)
		return nil, err
	}
	v, ok := r.values[id]
	if !ok {
		return nil, &loader.NotFoundError{Identifier: id}
	}
	return v, nil
}

func (r *recordingLoader) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

func (r *recordingLoader) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func quietOptions(ld loader.Loader) Options {
	o := DefaultOptions()
	o.Loader = ld
	o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return o
}

func path(segments ...string) pluginname.PropertyPath { return segments }

func TestBuild_PathConflicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []Entry
	}{
		{"leaf where a namespace exists", []Entry{{path("a", "b"), "a-b"}, {path("a"), "a"}}},
		{"namespace through a leaf", []Entry{{path("a"), "a"}, {path("a", "b"), "a-b"}}},
		{"empty segment", []Entry{{path("savl", ""), "@savl/plugin"}}},
		{"empty path", []Entry{{nil, "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ns, err := Build(t.Context(), tt.entries, quietOptions(newRecordingLoader(nil)))
			if !errors.Is(err, ErrPathConflict) {
				t.Fatalf("Build() error = %v, want ErrPathConflict", err)
			}
			if ns != nil {
				t.Error("Build() should not return a namespace on conflict")
			}
			var pce *PathConflictError
			if !errors.As(err, &pce) || pce.Identifier != tt.entries[len(tt.entries)-1].Identifier {
				t.Errorf("conflict should name the failing identifier, got %v", err)
			}
		})
	}
}

func TestBuild_ConflictNamesExistingLeaf(t *testing.T) {
	t.Parallel()

	_, err := Build(t.Context(), []Entry{{path("a"), "a-plugin"}, {path("a", "b"), "@a/b-plugin"}},
		quietOptions(newRecordingLoader(nil)))
	var pce *PathConflictError
	if !errors.As(err, &pce) {
		t.Fatalf("Build() error = %v, want *PathConflictError", err)
	}
	if pce.Existing != "a-plugin" {
		t.Errorf("Existing = %q, want a-plugin", pce.Existing)
	}
}

func TestBuild_ReservedNamesAreLegal(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{"constructor-plugin": 1, "proto-plugin": 2})
	ns, err := Build(t.Context(), []Entry{
		{path("constructor"), "constructor-plugin"},
		{path("__proto__"), "proto-plugin"},
	}, quietOptions(ld))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if v, err := ns.Get(t.Context(), "__proto__"); err != nil || v != 2 {
		t.Errorf("Get(__proto__) = (%v, %v), want (2, nil)", v, err)
	}
}

func TestBuild_LastRegisteredWins(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{"foo-plugin": "first", "gulp-foo": "second"})
	ns, err := Build(t.Context(), []Entry{
		{path("foo"), "foo-plugin"},
		{path("foo"), "gulp-foo"},
	}, quietOptions(ld))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	got, err := ns.Get(t.Context(), "foo")
	if err != nil || got != "second" {
		t.Errorf("Get(foo) = (%v, %v), want (second, nil)", got, err)
	}
	if ns.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ns.Len())
	}
	if diff := cmp.Diff([]Entry{{path("foo"), "foo-plugin"}}, ns.Overwritten()); diff != "" {
		t.Errorf("Overwritten() mismatch (-want +got):\n%s", diff)
	}
	if ld.count("foo-plugin") != 0 {
		t.Error("the replaced leaf must never be loaded")
	}
}

func TestBuild_TreeOrder(t *testing.T) {
	t.Parallel()

	ns, err := Build(t.Context(), []Entry{
		{path("savl", "x"), "@savl/x-plugin"},
		{path("foo"), "foo-plugin"},
		{path("savl", "y"), "@savl/y-plugin"},
	}, quietOptions(newRecordingLoader(nil)))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := []pluginname.PropertyPath{path("savl", "x"), path("savl", "y"), path("foo")}
	if diff := cmp.Diff(want, ns.Paths()); diff != "" {
		t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"savl", "foo"}, ns.Root().Names()); diff != "" {
		t.Errorf("Root().Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_LazyDefersLoading(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{"foo-plugin": 1, "bar-plugin": 2})
	ns, err := Build(t.Context(), []Entry{{path("foo"), "foo-plugin"}, {path("bar"), "bar-plugin"}}, quietOptions(ld))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if ld.total() != 0 {
		t.Fatalf("lazy Build() invoked the loader %d times", ld.total())
	}

	if _, err := ns.Get(t.Context(), "foo"); err != nil {
		t.Fatalf("Get(foo) error: %v", err)
	}
	if ld.count("foo-plugin") != 1 || ld.count("bar-plugin") != 0 {
		t.Errorf("only foo-plugin should be loaded, calls = %v", ld.calls)
	}
}

func TestBuild_Eager(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{"foo-plugin": 1, "bar-plugin": 2})
	o := quietOptions(ld)
	o.Lazy = false

	ns, err := Build(t.Context(), []Entry{{path("foo"), "foo-plugin"}, {path("bar"), "bar-plugin"}}, o)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if ld.count("foo-plugin") != 1 || ld.count("bar-plugin") != 1 {
		t.Errorf("eager Build() should load every leaf once, calls = %v", ld.calls)
	}
	for _, l := range ns.Leaves() {
		if _, ok := l.Peek(); !ok {
			t.Errorf("leaf %s should be resolved", l.Path())
		}
	}

	if _, err := ns.Get(t.Context(), "foo"); err != nil || ld.count("foo-plugin") != 1 {
		t.Errorf("access after eager load must not reload, err = %v", err)
	}
}

func TestBuild_EagerFailureIsUnchanged(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{"foo-plugin": 1})
	o := quietOptions(ld)
	o.Lazy = false

	ns, err := Build(t.Context(), []Entry{{path("foo"), "foo-plugin"}, {path("oops"), "oops-plugin"}}, o)
	if ns != nil {
		t.Error("Build() should not return a namespace when an eager load fails")
	}
	var nf *loader.NotFoundError
	if !errors.As(err, &nf) || nf.Identifier != "oops-plugin" {
		t.Fatalf("Build() error = %v, want the loader's *NotFoundError", err)
	}
	if err.Error() != "Cannot find module 'oops-plugin'" {
		t.Errorf("message changed: %q", err.Error())
	}
}
