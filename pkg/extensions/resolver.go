package extensions

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Resolve expands one extension spec into concrete extension names.
//
// A plain name resolves to itself. A trailing ".*" expands to every
// extension under the named directory: .go files and subdirectories that
// contain at least one .go file, in sorted order. "~" resolves to the
// currently loaded set. A ".*" over a missing directory expands to nothing
// rather than failing, so "unload pkg.*" is always safe.
func (l *Loader) Resolve(spec string) ([]string, error) {
	if spec == LoadedSetSpec {
		return l.Loaded(), nil
	}

	base, wildcard := strings.CutSuffix(spec, ".*")
	if spec == "*" {
		base, wildcard = "", true
	}
	if !wildcard {
		return []string{spec}, nil
	}

	dir := l.dir
	if base != "" {
		dir = filepath.Join(l.dir, nameToPath(base))
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			if dirHasGoFiles(filepath.Join(dir, entry.Name())) {
				names = append(names, joinName(base, entry.Name()))
			}
			continue
		}
		if isGoSource(entry.Name()) {
			names = append(names, joinName(base, strings.TrimSuffix(entry.Name(), ".go")))
		}
	}
	sort.Strings(names)
	return names, nil
}

// ResolveAll expands multiple specs, deduplicating while preserving first
// appearance order.
func (l *Loader) ResolveAll(specs []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	for _, spec := range specs {
		names, err := l.Resolve(spec)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out, nil
}

// nameToPath maps a dotted extension name to a path under the extension
// directory: "pkg.sub" -> "pkg/sub".
func nameToPath(name string) string {
	return filepath.Join(strings.Split(name, ".")...)
}

func joinName(base, leaf string) string {
	if base == "" {
		return leaf
	}
	return base + "." + leaf
}

func isGoSource(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

func dirHasGoFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && isGoSource(entry.Name()) {
			return true
		}
	}
	return false
}
