// Package apiscan builds API signature sets from unpacked Python package
// sources.
package apiscan

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"apidrift/internal/core/errors"

	"github.com/gobwas/glob"
)

// DefaultExcludes drops tests and build scripts from a scan.
var DefaultExcludes = []string{"*test*", "setup.py"}

// Source is one Python file of a package: Rel is the slash-separated path
// relative to the package root, Path the filesystem path.
type Source struct {
	Rel  string
	Path string
}

// Module is the dotted module path of the source.
func (s Source) Module() string {
	return ModulePath(s.Rel)
}

// IsInit reports whether the source is a package __init__.py.
func (s Source) IsInit() bool {
	return filepath.Base(s.Path) == "__init__.py"
}

// Discover lists the Python sources of the package unpacked at root. When
// an *.egg-info directory with top_level.txt and SOURCES.txt exists, the
// listing comes from there; otherwise the tree is walked. Files matching
// any exclude glob are skipped.
func Discover(root string, excludes []string) ([]Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "package directory not found"), errors.CtxPath, root)
	}
	if !info.IsDir() {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "package path is not a directory"), errors.CtxPath, root)
	}

	matchers, err := compileExcludes(excludes)
	if err != nil {
		return nil, err
	}

	sources, ok, err := discoverEggInfo(root, matchers)
	if err != nil {
		return nil, err
	}
	if !ok {
		sources, err = discoverWalk(root, matchers)
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Rel < sources[j].Rel })
	return sources, nil
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern"), "pattern", p)
		}
		out = append(out, g)
	}
	return out, nil
}

func excluded(rel string, matchers []glob.Glob) bool {
	base := filepath.Base(rel)
	for _, m := range matchers {
		if m.Match(rel) || m.Match(base) {
			return true
		}
	}
	return false
}

func findEggInfo(root string) (string, bool) {
	var found string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && strings.HasSuffix(d.Name(), ".egg-info") {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found, found != ""
}

func discoverEggInfo(root string, matchers []glob.Glob) ([]Source, bool, error) {
	eggDir, ok := findEggInfo(root)
	if !ok {
		return nil, false, nil
	}
	topLevels, err := readLines(filepath.Join(eggDir, "top_level.txt"))
	if err != nil {
		return nil, false, nil
	}
	listed, err := readLines(filepath.Join(eggDir, "SOURCES.txt"))
	if err != nil {
		return nil, false, nil
	}

	seen := make(map[string]bool)
	var sources []Source
	add := func(rel, file string) {
		if seen[rel] {
			return
		}
		seen[rel] = true
		sources = append(sources, Source{Rel: rel, Path: filepath.Join(root, filepath.FromSlash(file))})
	}

	for _, file := range listed {
		file = filepath.ToSlash(file)
		if !strings.HasSuffix(file, ".py") || excluded(file, matchers) {
			continue
		}
		if len(topLevels) == 0 {
			add(file, file)
			continue
		}
		for _, top := range topLevels {
			// src/ layouts list "src/pkg/mod.py"; the module path starts at
			// the top-level package.
			if idx := strings.Index(file, top); idx >= 0 {
				add(file[idx:], file)
			}
		}
	}
	return sources, true, nil
}

func discoverWalk(root string, matchers []glob.Glob) ([]Source, error) {
	var sources []Source
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if excluded(rel, matchers) {
			return nil
		}
		sources = append(sources, Source{Rel: rel, Path: path})
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk package directory"), errors.CtxPath, root)
	}
	return sources, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// ModulePath converts a relative source path to its dotted module path:
// "a/b/c.py" becomes "a.b.c" and "a/b/__init__.py" becomes "a.b".
func ModulePath(rel string) string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".py")
	rel = strings.TrimSuffix(rel, "/__init__")
	if rel == "__init__" {
		return ""
	}
	return strings.Trim(strings.ReplaceAll(rel, "/", "."), ".")
}
