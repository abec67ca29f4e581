// Package extensions loads hot-reloadable bot extensions. An extension is a
// Go source file or package directory under the extension directory,
// interpreted at load time; its Setup function registers commands against
// the live router, and unloading removes them again.
package extensions

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/Minion3665/jishaku/pkg/command"
)

// LoadedSetSpec is the spec token that expands to every loaded extension.
const LoadedSetSpec = "~"

// SetupFunc is the entry point every extension must export.
type SetupFunc func(*command.Router) error

// hostPath is the import path extensions use to reach the host command API.
const hostPath = "github.com/Minion3665/jishaku/pkg/command"

// Extension is one loaded extension instance.
type Extension struct {
	Name string

	interp   *interp.Interpreter
	teardown SetupFunc
	commands []string
}

// Loader owns the loaded extension set for one router.
type Loader struct {
	dir    string
	router *command.Router

	mu    sync.Mutex
	seen  map[string]*Extension
	names []string
}

// NewLoader creates a loader rooted at dir, registering into router.
func NewLoader(dir string, router *command.Router) *Loader {
	return &Loader{
		dir:    dir,
		router: router,
		seen:   make(map[string]*Extension),
	}
}

// Loaded returns loaded extension names in load order.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// IsLoaded reports whether name is currently loaded.
func (l *Loader) IsLoaded(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[name]
	return ok
}

// Load interprets the named extension and runs its Setup against the router.
func (l *Loader) Load(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.seen[name]; exists {
		return fmt.Errorf("extension %q already loaded", name)
	}

	ext, err := l.interpret(name)
	if err != nil {
		return err
	}

	l.seen[name] = ext
	l.names = append(l.names, name)
	return nil
}

// Unload tears down the named extension and unregisters the commands its
// Setup added.
func (l *Loader) Unload(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unloadLocked(name)
}

// Reload unloads the extension if loaded, then loads it from source again.
func (l *Loader) Reload(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.seen[name]; exists {
		if err := l.unloadLocked(name); err != nil {
			return err
		}
	}

	ext, err := l.interpret(name)
	if err != nil {
		return err
	}
	l.seen[name] = ext
	l.names = append(l.names, name)
	return nil
}

func (l *Loader) unloadLocked(name string) error {
	ext, exists := l.seen[name]
	if !exists {
		return fmt.Errorf("extension %q is not loaded", name)
	}

	var teardownErr error
	if ext.teardown != nil {
		teardownErr = ext.teardown(l.router)
	}
	for _, cmd := range ext.commands {
		l.router.Unregister(cmd)
	}

	delete(l.seen, name)
	for i, n := range l.names {
		if n == name {
			l.names = append(l.names[:i], l.names[i+1:]...)
			break
		}
	}

	if teardownErr != nil {
		return fmt.Errorf("teardown %q: %w", name, teardownErr)
	}
	return nil
}

// interpret builds a fresh interpreter for the extension source, evaluates
// it, and invokes Setup. Callers hold the loader lock.
func (l *Loader) interpret(name string) (*Extension, error) {
	sources, err := l.sourceFiles(name)
	if err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if err := i.Use(hostSymbols()); err != nil {
		return nil, fmt.Errorf("bind host symbols: %w", err)
	}

	var pkgName string
	for _, path := range sources {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read extension source: %w", err)
		}
		if pkgName == "" {
			pkgName = packageName(string(src))
		}
		if _, err := i.Eval(string(src)); err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", filepath.Base(path), err)
		}
	}

	setup, err := lookupFunc(i, pkgName, "Setup")
	if err != nil {
		return nil, fmt.Errorf("extension %q: no usable Setup function: %w", name, err)
	}

	// Snapshot the command set so Setup's registrations can be reversed on
	// unload.
	before := commandNames(l.router)
	if err := setup(l.router); err != nil {
		return nil, fmt.Errorf("setup %q: %w", name, err)
	}
	added := diffNames(before, commandNames(l.router))

	ext := &Extension{Name: name, interp: i, commands: added}
	if teardown, err := lookupFunc(i, pkgName, "Teardown"); err == nil {
		ext.teardown = teardown
	}
	return ext, nil
}

// sourceFiles resolves an extension name to its source file list: a single
// file for "pkg.name", every non-test .go file in sorted order for a package
// directory.
func (l *Loader) sourceFiles(name string) ([]string, error) {
	base := filepath.Join(l.dir, nameToPath(name))

	if info, err := os.Stat(base + ".go"); err == nil && !info.IsDir() {
		return []string{base + ".go"}, nil
	}

	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("extension %q not found under %s", name, l.dir)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}
	var sources []string
	for _, entry := range entries {
		if !entry.IsDir() && isGoSource(entry.Name()) {
			sources = append(sources, filepath.Join(base, entry.Name()))
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("extension %q has no Go source files", name)
	}
	sort.Strings(sources)
	return sources, nil
}

// lookupFunc finds an exported function in the interpreter, trying the
// package-qualified name first and the bare name as a fallback for main or
// unnamed packages.
func lookupFunc(i *interp.Interpreter, pkgName, fn string) (SetupFunc, error) {
	candidates := []string{fn}
	if pkgName != "" && pkgName != "main" {
		candidates = []string{pkgName + "." + fn, fn}
	}

	var lastErr error
	for _, expr := range candidates {
		v, err := i.Eval(expr)
		if err != nil {
			lastErr = err
			continue
		}
		if f, ok := v.Interface().(func(*command.Router) error); ok {
			return f, nil
		}
		return nil, fmt.Errorf("%s has the wrong signature, want func(*command.Router) error", expr)
	}
	return nil, lastErr
}

// packageName extracts the package clause from source text.
func packageName(src string) string {
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "package "))
		}
	}
	return ""
}

func commandNames(r *command.Router) map[string]struct{} {
	names := make(map[string]struct{})
	for _, cmd := range r.Commands() {
		names[cmd.Name] = struct{}{}
	}
	return names
}

func diffNames(before, after map[string]struct{}) []string {
	var added []string
	for name := range after {
		if _, ok := before[name]; !ok {
			added = append(added, name)
		}
	}
	sort.Strings(added)
	return added
}
