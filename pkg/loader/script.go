// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

const (
	// DefaultModulesDir is the directory below the project root that holds
	// installed modules.
	DefaultModulesDir = "node_modules"

	// packageFile names the per-module metadata file read for "main".
	packageFile = "package.json"
	// defaultMain is the entry point used when package.json names none.
	defaultMain = "index.js"
	scriptExt   = ".js"

	// commonJSWrapper turns a module body into a function of the CommonJS
	// free variables.
	commonJSWrapper = "(function (exports, require, module, __filename, __dirname) {\n%s\n})"
)

type (
	// ScriptLoader loads CommonJS script modules from a modules directory and
	// exposes their exports as Go values. Every Load runs the module in a
	// fresh goja runtime.
	//
	// Objects are exported as map[string]any, arrays as []any and functions
	// as Func (or *Object when the function carries properties). Calls into
	// an exported function are serialized on the module's runtime.
	ScriptLoader struct {
		// Root is the project directory containing ModulesDir.
		Root string
		// ModulesDir defaults to DefaultModulesDir.
		ModulesDir string
		// Builtins resolves bare require() identifiers before the modules
		// directory is consulted. Nil means the process-wide registry.
		Builtins Loader
		// Logger receives console output from scripts at debug level.
		Logger *slog.Logger
	}

	// packageMeta is the subset of a module's package.json the loader reads.
	packageMeta struct {
		Name string `json:"name"`
		Main string `json:"main"`
	}

	// scriptModule is one module evaluation: a runtime plus its file cache.
	scriptModule struct {
		loader     *ScriptLoader
		identifier string
		entry      string
		ctx        context.Context

		mu    sync.Mutex
		vm    *goja.Runtime
		files map[string]*goja.Object
	}

	requireStackKey struct{}
)

// NewScriptLoader returns a ScriptLoader rooted at root.
func NewScriptLoader(root string) *ScriptLoader {
	return &ScriptLoader{Root: root}
}

// Load resolves identifier below the modules directory, runs its entry
// point and returns module.exports.
func (s *ScriptLoader) Load(ctx context.Context, identifier string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := s.moduleDir(identifier)
	if err != nil {
		return nil, err
	}
	entry, err := s.entryPoint(identifier, dir)
	if err != nil {
		return nil, err
	}

	stack, _ := ctx.Value(requireStackKey{}).([]string)
	if slices.Contains(stack, identifier) {
		return nil, &ScriptError{
			Identifier: identifier,
			Path:       entry,
			Err:        fmt.Errorf("circular require: %s -> %s", strings.Join(stack, " -> "), identifier),
		}
	}
	ctx = context.WithValue(ctx, requireStackKey{}, append(slices.Clip(stack), identifier))

	m := &scriptModule{
		loader:     s,
		identifier: identifier,
		entry:      entry,
		ctx:        ctx,
		vm:         goja.New(),
		files:      make(map[string]*goja.Object),
	}
	m.installConsole()

	m.mu.Lock()
	defer m.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		m.vm.Interrupt(ctx.Err())
	})

	exports, err := m.evalFile(entry)
	stop()
	if err != nil {
		return nil, m.scriptError(entry, err)
	}
	return m.export(exports), nil
}

func (s *ScriptLoader) modulesRoot() string {
	dir := s.ModulesDir
	if dir == "" {
		dir = DefaultModulesDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(s.Root, dir)
}

func (s *ScriptLoader) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *ScriptLoader) builtins() Loader {
	if s.Builtins != nil {
		return s.Builtins
	}
	return DefaultRegistry()
}

// moduleDir maps an identifier onto its directory. Scoped identifiers map to
// nested directories; identifiers that would escape the modules directory
// are treated as not found.
func (s *ScriptLoader) moduleDir(identifier string) (string, error) {
	clean := path.Clean(identifier)
	if identifier == "" || clean != identifier || path.IsAbs(clean) || strings.HasPrefix(clean, ".") {
		return "", &NotFoundError{Identifier: identifier}
	}

	dir := filepath.Join(s.modulesRoot(), filepath.FromSlash(clean))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", &NotFoundError{Identifier: identifier, Path: dir}
	}
	return dir, nil
}

// entryPoint reads package.json "main" (default index.js) and resolves it to
// a file.
func (s *ScriptLoader) entryPoint(identifier, dir string) (string, error) {
	main := defaultMain

	data, err := os.ReadFile(filepath.Join(dir, packageFile))
	switch {
	case err == nil:
		var meta packageMeta
		if jsonErr := json.Unmarshal(data, &meta); jsonErr != nil {
			return "", &ScriptError{
				Identifier: identifier,
				Path:       filepath.Join(dir, packageFile),
				Err:        jsonErr,
			}
		}
		if meta.Main != "" {
			main = meta.Main
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", &ScriptError{Identifier: identifier, Path: filepath.Join(dir, packageFile), Err: err}
	}

	file, ok := resolveFile(filepath.Join(dir, filepath.FromSlash(main)))
	if !ok {
		return "", &NotFoundError{Identifier: identifier, Path: filepath.Join(dir, main)}
	}
	return file, nil
}

// resolveFile applies the CommonJS file lookup: the path itself, the path
// with .js appended, then index.js inside it.
func resolveFile(p string) (string, bool) {
	candidates := []string{p, p + scriptExt, filepath.Join(p, defaultMain)}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

// evalFile runs one file of the module and returns its module.exports.
// Files are cached by path so relative require cycles observe partially
// initialized exports, as CommonJS does.
func (m *scriptModule) evalFile(file string) (goja.Value, error) {
	if mod, ok := m.files[file]; ok {
		return mod.Get("exports"), nil
	}

	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	prog, err := goja.Compile(file, fmt.Sprintf(commonJSWrapper, src), false)
	if err != nil {
		return nil, err
	}
	wrapperVal, err := m.vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	wrapper, ok := goja.AssertFunction(wrapperVal)
	if !ok {
		return nil, fmt.Errorf("%s: module wrapper is not a function", file)
	}

	exports := m.vm.NewObject()
	mod := m.vm.NewObject()
	if err := mod.Set("exports", exports); err != nil {
		return nil, err
	}
	if err := mod.Set("id", m.identifier); err != nil {
		return nil, err
	}
	m.files[file] = mod

	require := m.vm.ToValue(m.requireFrom(filepath.Dir(file)))
	_, err = wrapper(exports, exports, require, mod, m.vm.ToValue(file), m.vm.ToValue(filepath.Dir(file)))
	if err != nil {
		delete(m.files, file)
		return nil, err
	}
	return mod.Get("exports"), nil
}

// requireFrom returns the require function for files in dir. Relative
// identifiers load files of the same module on the same runtime; bare
// identifiers load other modules through the builtins and the loader itself.
func (m *scriptModule) requireFrom(dir string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()

		if strings.HasPrefix(id, "./") || strings.HasPrefix(id, "../") {
			file, ok := resolveFile(filepath.Join(dir, filepath.FromSlash(id)))
			if !ok {
				panic(m.vm.NewGoError(&NotFoundError{Identifier: id, Path: filepath.Join(dir, id)}))
			}
			v, err := m.evalFile(file)
			if err != nil {
				panic(m.vm.NewGoError(err))
			}
			return v
		}

		v, err := Chain{m.loader.builtins(), m.loader}.Load(m.ctx, id)
		if err != nil {
			panic(m.vm.NewGoError(err))
		}
		return m.toJS(v, make(map[any]goja.Value))
	}
}

func (m *scriptModule) installConsole() {
	logger := m.loader.logger().With("module", m.identifier)
	console := m.vm.NewObject()
	logFn := func(level slog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			logger.Log(context.Background(), level, strings.Join(parts, " "))
			return goja.Undefined()
		}
	}
	_ = console.Set("log", logFn(slog.LevelDebug))
	_ = console.Set("info", logFn(slog.LevelDebug))
	_ = console.Set("warn", logFn(slog.LevelWarn))
	_ = console.Set("error", logFn(slog.LevelError))
	m.vm.Set("console", console)
}

func (m *scriptModule) scriptError(file string, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			err = cause
		}
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		// Go errors thrown from require() keep their type so callers can
		// still match ErrModuleNotFound through the script error.
		if goErr := thrownGoError(ex); goErr != nil {
			err = fmt.Errorf("%s: %w", ex.Error(), goErr)
		}
	}
	return &ScriptError{Identifier: m.identifier, Path: file, Err: err}
}

func thrownGoError(ex *goja.Exception) error {
	obj, ok := ex.Value().(*goja.Object)
	if !ok {
		return nil
	}
	v := obj.Get("value")
	if v == nil {
		return nil
	}
	goErr, _ := v.Export().(error)
	return goErr
}
