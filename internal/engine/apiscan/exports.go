package apiscan

import (
	"log/slog"
	"os"
	"sort"
	"strings"

	"apidrift/internal/engine/parser"

	"github.com/gobwas/glob"
)

// ExportMap maps real definition paths to the public paths a package
// re-exports them under, as declared by from-imports in __init__.py files.
// Keys ending in ".*" come from wildcard imports.
type ExportMap struct {
	exact    map[string]string
	patterns []exportPattern
}

type exportPattern struct {
	prefix string
	public string
	match  glob.Glob
}

// NewExportMap returns an empty map.
func NewExportMap() *ExportMap {
	return &ExportMap{exact: make(map[string]string)}
}

// Add records that real is exported as public. A real path containing "*"
// maps every matching name, substituting the matched suffix into public.
func (m *ExportMap) Add(real, public string) {
	real = strings.TrimLeft(real, ".")
	public = strings.TrimLeft(public, ".")
	if !strings.Contains(real, "*") {
		m.exact[real] = public
		return
	}
	g, err := glob.Compile(real)
	if err != nil {
		return
	}
	entry := exportPattern{prefix: real[:strings.Index(real, "*")], public: public, match: g}
	for i, p := range m.patterns {
		if p.prefix == entry.prefix {
			m.patterns[i] = entry
			return
		}
	}
	m.patterns = append(m.patterns, entry)
}

func (m *ExportMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.exact) + len(m.patterns)
}

// Expose returns fullName plus every public path it is reachable under,
// sorted.
func (m *ExportMap) Expose(fullName string) []string {
	fullName = strings.TrimLeft(fullName, ".")
	names := map[string]bool{fullName: true}
	if m != nil {
		for real, public := range m.exact {
			switch {
			case fullName == real:
				names[public] = true
			case strings.HasPrefix(fullName, real+"."):
				names[public+fullName[len(real):]] = true
			}
		}
		for _, p := range m.patterns {
			if !p.match.Match(fullName) || !strings.Contains(p.public, "*") {
				continue
			}
			suffix := fullName[len(p.prefix):]
			names[strings.Replace(p.public, "*", suffix, 1)] = true
		}
	}

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BuildExportMap reads every __init__.py among sources and records its
// absolute (level 0) and single-dot relative from-imports.
func BuildExportMap(sources []Source) *ExportMap {
	m := NewExportMap()
	for _, src := range sources {
		if !src.IsInit() {
			continue
		}
		content, err := os.ReadFile(src.Path)
		if err != nil {
			slog.Debug("skipping unreadable package init", "path", src.Path, "error", err)
			continue
		}
		unit, err := parser.Parse(content)
		if err != nil {
			slog.Debug("skipping unparseable package init", "path", src.Path, "error", err)
			continue
		}
		addInitExports(m, src.Module(), parser.ExtractImports(unit))
		unit.Close()
	}
	return m
}

func addInitExports(m *ExportMap, pkg string, imports []parser.Import) {
	for _, imp := range imports {
		if imp.Module == "" && imp.Level == 0 {
			// plain "import x" statements export nothing by name
			continue
		}
		if imp.Level > 1 {
			continue
		}

		imported := imp.Module
		if imp.Level == 1 {
			imported = joinDotted(pkg, imp.Module)
		}

		if imp.Wildcard {
			m.Add(joinDotted(imported, "*"), joinDotted(pkg, "*"))
			continue
		}
		public := imp.Alias
		if public == "" {
			public = imp.Name
		}
		m.Add(joinDotted(imported, imp.Name), joinDotted(pkg, public))
	}
}

func joinDotted(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.Trim(p, "."); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}
