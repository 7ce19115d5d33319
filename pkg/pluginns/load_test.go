// SPDX-License-Identifier: MPL-2.0

package pluginns

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/plugload/plugload/internal/testutil"
	"github.com/plugload/plugload/pkg/loader"
	"github.com/plugload/plugload/pkg/manifest"
	"github.com/plugload/plugload/pkg/pluginname"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func deps(names ...string) manifest.Source {
	m := make(map[string]any, len(names))
	for _, n := range names {
		m[n] = "1.0.0"
	}
	return manifest.FromObject(map[string]any{"dependencies": m})
}

func constFunc(v any) loader.Func {
	return func(...any) (any, error) { return v, nil }
}

func TestLoad_Scenario_DefaultConfig(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{
		"foo-plugin": constFunc("foo-module"),
		"bar-plugin": constFunc("bar-module"),
	})
	ns, err := Load(t.Context(), quiet, WithLoader(ld), WithConfig(manifest.FromObject(map[string]any{
		"dependencies": map[string]any{"foo-plugin": "1.0.0", "bar-plugin": "*"},
	})))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for name, want := range map[string]string{"foo": "foo-module", "bar": "bar-module"} {
		got, err := ns.Call(t.Context(), []string{name})
		if err != nil || got != want {
			t.Errorf("Call(%s) = (%v, %v), want (%s, nil)", name, got, err, want)
		}
	}
}

func TestLoad_Scenario_CamelizeOff(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{"foo-bar-plugin": 1})
	ns, err := Load(t.Context(), quiet, WithLoader(ld), WithCamelize(false), WithConfig(deps("foo-bar-plugin")))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if _, ok := ns.Lookup("foo-bar"); !ok {
		t.Error("foo-bar should be installed")
	}
	if _, ok := ns.Lookup("fooBar"); ok {
		t.Error("fooBar must not be installed when camelize is off")
	}
}

func TestLoad_Scenario_NoManifest(t *testing.T) {
	t.Parallel()

	for _, src := range []manifest.Source{manifest.None(), manifest.FromFile(filepath.Join(t.TempDir(), "package.json"))} {
		ns, err := Load(t.Context(), quiet, WithConfig(src))
		if ns != nil {
			t.Error("Load() should not return a namespace")
		}
		if !errors.Is(err, manifest.ErrNotFound) {
			t.Fatalf("Load(%s) error = %v, want manifest.ErrNotFound", src, err)
		}
		if !strings.Contains(err.Error(), "package.json") {
			t.Errorf("message should reference the manifest file, got %q", err.Error())
		}
	}
}

func TestLoad_Scenario_ModuleNotFound(t *testing.T) {
	t.Parallel()

	ld := loader.NewRegistry(nil)
	ns, err := Load(t.Context(), quiet, WithLoader(ld), WithConfig(deps("oops-plugin")))
	if err != nil {
		t.Fatalf("lazy Load() must not load anything, got %v", err)
	}

	_, err = ns.Call(t.Context(), []string{"oops"})
	if !errors.Is(err, loader.ErrModuleNotFound) {
		t.Fatalf("Call(oops) error = %v, want loader.ErrModuleNotFound", err)
	}
	if err.Error() != "Cannot find module 'oops-plugin'" {
		t.Errorf("message = %q, want the loader's message unchanged", err.Error())
	}

	_, err = Load(t.Context(), quiet, WithLoader(ld), WithLazy(false), WithConfig(deps("oops-plugin")))
	if !errors.Is(err, loader.ErrModuleNotFound) {
		t.Errorf("eager Load() error = %v, want loader.ErrModuleNotFound", err)
	}
}

func TestLoad_OnlyMatchingIdentifiers(t *testing.T) {
	t.Parallel()

	ns, err := Load(t.Context(), quiet, WithLoader(newRecordingLoader(nil)),
		WithConfig(deps("foo-plugin", "lodash", "plugin", "foo-plugins", "@savl/a-plugin", "@types/node")))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Object sources are read in lexical order.
	want := []pluginname.PropertyPath{{"savl", "a"}, {"foo"}}
	if diff := cmp.Diff(want, ns.Paths()); diff != "" {
		t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ScopedIdentifier(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{"@savl/test-plugin-plugin": constFunc("scoped")})
	ns, err := Load(t.Context(), quiet, WithLoader(ld), WithConfig(deps("@savl/test-plugin-plugin")))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	got, err := ns.Call(t.Context(), []string{"savl", "testPlugin"})
	if err != nil || got != "scoped" {
		t.Errorf("Call(savl.testPlugin) = (%v, %v)", got, err)
	}
	if _, ok := ns.Lookup("@savl/test-plugin-plugin"); ok {
		t.Error("the raw scoped identifier must not be a property")
	}
}

func TestLoad_RenamePrecedence(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{"foo-bar-plugin": 1, "baz-plugin": 2})
	ns, err := Load(t.Context(), quiet, WithLoader(ld), WithConfig(deps("foo-bar-plugin", "baz-plugin")),
		WithRename(map[string]string{"foo-bar-plugin": "my-foo"}))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if v, err := ns.Get(t.Context(), "my-foo"); err != nil || v != 1 {
		t.Errorf("Get(my-foo) = (%v, %v), want the rename used verbatim", v, err)
	}
	if _, ok := ns.Lookup("fooBar"); ok {
		t.Error("the default name must not exist for a renamed identifier")
	}
	if _, ok := ns.Lookup("baz"); !ok {
		t.Error("identifiers without a rename keep the default transform")
	}
}

func TestLoad_RenameFuncPrecedence(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(map[string]any{"foo-bar-plugin": 1})
	ns, err := Load(t.Context(), quiet, WithLoader(ld), WithConfig(deps("foo-bar-plugin")),
		WithRename(map[string]string{"foo-bar-plugin": "renamed"}),
		WithRenameFunc(func(id string) string { return "fn_" + id }))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if _, ok := ns.Lookup("fn_foo-bar-plugin"); !ok {
		t.Error("renameFn result should be installed")
	}
	for _, name := range []string{"fooBar", "renamed"} {
		if _, ok := ns.Lookup(name); ok {
			t.Errorf("%s must not exist when renameFn is set", name)
		}
	}
}

func TestLoad_RenameExpr(t *testing.T) {
	t.Parallel()

	expr, err := pluginname.CompileRenameExpr(`upper(base)`)
	if err != nil {
		t.Fatalf("CompileRenameExpr() error: %v", err)
	}
	ns, err := Load(t.Context(), quiet, WithLoader(newRecordingLoader(nil)), WithConfig(deps("foo-plugin")),
		WithRenameExpr(expr))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := ns.Lookup("FOO-PLUGIN"); !ok {
		t.Errorf("Paths() = %v, want FOO-PLUGIN", ns.Paths())
	}
}

func TestLoad_PatternAndReplaceString(t *testing.T) {
	t.Parallel()

	ld := newRecordingLoader(nil)
	src := deps("jack-foo", "jack-bar-baz", "foo-plugin")

	ns, err := Load(t.Context(), quiet, WithLoader(ld), WithConfig(src), WithPattern("jack-*"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff([]string{"barBaz", "foo"}, ns.Root().Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	ns, err = Load(t.Context(), quiet, WithLoader(ld), WithConfig(src), WithPattern("jack-*"), WithReplaceString(""))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff([]string{"jackBarBaz", "jackFoo"}, ns.Root().Names()); diff != "" {
		t.Errorf("names with an explicit empty replace string mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := Load(t.Context(), quiet, WithConfig(deps("foo-plugin")), WithPattern("[oops"))
	if !errors.Is(err, pluginname.ErrInvalidPattern) {
		t.Errorf("Load() error = %v, want ErrInvalidPattern", err)
	}
}

func TestLoad_Scopes(t *testing.T) {
	t.Parallel()

	src := manifest.FromObject(map[string]any{
		"dependencies":    map[string]any{"a-plugin": "1"},
		"devDependencies": map[string]any{"b-plugin": "1"},
	})
	ns, err := Load(t.Context(), quiet, WithLoader(newRecordingLoader(nil)), WithConfig(src),
		WithScopes(manifest.CategoryDevDependencies))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff([]string{"b"}, ns.Root().Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ScriptModulesOnDisk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"package.json": `{
			"dependencies": {"hello-plugin": "1.0.0", "@savl/insert-plugin": "1.0.0"},
			"devDependencies": {"lodash": "4.0.0"}
		}`,
		"node_modules/hello-plugin/index.js":             `module.exports = function (name) { return "hello " + name }`,
		"node_modules/@savl/insert-plugin/package.json":  `{"main": "lib/insert.js"}`,
		"node_modules/@savl/insert-plugin/lib/insert.js": `exports.wrap = function (s) { return "[" + s + "]" }`,
	})

	ns, err := Load(t.Context(), quiet, WithConfig(manifest.FromDir(root)), WithLazy(false))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	got, err := ns.Call(t.Context(), []string{"hello"}, "world")
	if err != nil || got != "hello world" {
		t.Errorf("Call(hello) = (%v, %v)", got, err)
	}
	got, err = ns.Call(t.Context(), []string{"savl", "insert", "wrap"}, "x")
	if err != nil || got != "[x]" {
		t.Errorf("Call(savl.insert.wrap) = (%v, %v)", got, err)
	}
}

func TestLoad_ModulesDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"package.json":                    `{"dependencies": {"vendored-plugin": "1.0.0"}}`,
		"vendor/vendored-plugin/index.js": `module.exports = "from vendor"`,
	})

	ns, err := Load(t.Context(), quiet, WithConfig(manifest.FromDir(root)), WithModulesDir("vendor"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	got, err := ns.Get(t.Context(), "vendored")
	if err != nil || got != "from vendor" {
		t.Errorf("Get(vendored) = (%v, %v), want (from vendor, nil)", got, err)
	}

	ns, err = Load(t.Context(), quiet, WithConfig(manifest.FromDir(root)))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, err := ns.Get(t.Context(), "vendored"); !loader.IsNotFound(err) {
		t.Errorf("Get(vendored) without modules dir error = %v, want not found", err)
	}
}

func TestLoad_DottedIdentifiers(t *testing.T) {
	t.Parallel()

	for _, camelize := range []bool{true, false} {
		ld := newRecordingLoader(map[string]any{
			"foo-plugin":          "foo",
			"lodash.merge-plugin": map[string]any{"fn": constFunc("merged")},
			"socket.io-plugin":    "io",
		})
		ns, err := Load(t.Context(), quiet, WithLoader(ld), WithCamelize(camelize),
			WithConfig(deps("foo-plugin", "lodash.merge-plugin", "socket.io-plugin")))
		if err != nil {
			t.Fatalf("Load(camelize=%v) error: %v", camelize, err)
		}

		want := []pluginname.PropertyPath{{"foo"}, {"lodash.merge"}, {"socket.io"}}
		if diff := cmp.Diff(want, ns.Paths()); diff != "" {
			t.Errorf("Paths(camelize=%v) mismatch (-want +got):\n%s", camelize, diff)
		}
		if got, err := ns.Get(t.Context(), "socket.io"); err != nil || got != "io" {
			t.Errorf("Get(socket.io) = (%v, %v), want (io, nil)", got, err)
		}
		if got, err := ns.Call(t.Context(), ns.ParsePath("lodash.merge.fn")); err != nil || got != "merged" {
			t.Errorf("Call(lodash.merge.fn) = (%v, %v), want (merged, nil)", got, err)
		}
	}
}

func TestNamespace_ParsePath(t *testing.T) {
	t.Parallel()

	ns, err := Build(t.Context(), []Entry{
		{path("lodash"), "lodash-plugin"},
		{path("lodash.merge"), "lodash.merge-plugin"},
		{path("savl", "a.b"), "@savl/a.b-plugin"},
	}, quietOptions(newRecordingLoader(nil)))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	tests := map[string]pluginname.PropertyPath{
		"":                nil,
		"lodash":          {"lodash"},
		"lodash.merge":    {"lodash.merge"},
		"lodash.merge.fn": {"lodash.merge", "fn"},
		"lodash.map":      {"lodash", "map"},
		"savl.a.b":        {"savl", "a.b"},
		"savl.a.b.c.d":    {"savl", "a.b", "c", "d"},
		"savl.x.y":        {"savl", "x", "y"},
		"missing.a":       {"missing", "a"},
	}
	for in, want := range tests {
		if diff := cmp.Diff(want, ns.ParsePath(in)); diff != "" {
			t.Errorf("ParsePath(%q) mismatch (-want +got):\n%s", in, diff)
		}
	}
}
