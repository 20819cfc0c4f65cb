// Package requirements reads the third-party dependencies a Python project
// declares in its manifests.
package requirements

import (
	"regexp"
	"strings"
)

// ConstraintKind classifies how tightly a dependency's version is fixed.
type ConstraintKind string

const (
	Pinned        ConstraintKind = "pinned"
	Range         ConstraintKind = "range"
	Unconstrained ConstraintKind = "unconstrained"
)

// Dependency is one declared requirement.
type Dependency struct {
	Package string         `json:"package" yaml:"package"`
	Spec    string         `json:"spec,omitempty" yaml:"spec,omitempty"`
	Kind    ConstraintKind `json:"kind" yaml:"kind"`
	Source  string         `json:"source,omitempty" yaml:"source,omitempty"`
}

// Version returns the pinned version, or "" for other kinds.
func (d Dependency) Version() string {
	if d.Kind != Pinned {
		return ""
	}
	return strings.TrimSpace(strings.TrimLeft(d.Spec, "="))
}

var (
	requirementLine = regexp.MustCompile(`^\s*([a-zA-Z0-9_\-.]+)\s*(?:\[[^\]]*\])?\s*(.*)$`)
	specOperators   = []string{"===", "==", ">=", "<=", "~=", "!=", ">", "<"}
)

// ParseLine parses one PEP 508 style requirement such as "numpy==1.21.0",
// "numpy>=1.20,<=1.22" or "numpy". Blank lines and comments yield ok=false.
// Extras and environment markers are dropped.
func ParseLine(line string) (Dependency, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Dependency{}, false
	}
	if idx := strings.Index(line, ";"); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	m := requirementLine.FindStringSubmatch(line)
	if m == nil {
		return Dependency{}, false
	}

	dep := Dependency{Package: m[1], Kind: Unconstrained}
	spec := strings.Join(strings.Fields(m[2]), "")
	for _, op := range specOperators {
		if strings.HasPrefix(spec, op) {
			dep.Spec = spec
			dep.Kind = classify(spec)
			break
		}
	}
	return dep, true
}

// classify treats a single exact clause as pinned, anything else as a range.
func classify(spec string) ConstraintKind {
	if strings.HasPrefix(spec, "==") &&
		!strings.Contains(spec, ",") && !strings.Contains(spec, "*") {
		return Pinned
	}
	return Range
}

// NormalizeName folds a distribution name to its PEP 503 form.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "-", ".", "-").Replace(name)
}

// Lookup returns the first dependency declared for pkg.
func Lookup(deps []Dependency, pkg string) (Dependency, bool) {
	want := NormalizeName(pkg)
	for _, d := range deps {
		if NormalizeName(d.Package) == want {
			return d, true
		}
	}
	return Dependency{}, false
}
