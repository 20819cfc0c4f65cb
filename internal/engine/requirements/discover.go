package requirements

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Format names a manifest file type.
type Format string

const (
	FormatSetupPy      Format = "setup.py"
	FormatSetupCfg     Format = "setup.cfg"
	FormatRequirements Format = "requirements.txt"
	FormatPyproject    Format = "pyproject.toml"
)

// manifestOrder is the order manifests are read in: setup scripts first.
var manifestOrder = []Format{FormatSetupPy, FormatSetupCfg, FormatRequirements, FormatPyproject}

// Manifest is a dependency file found at a project root.
type Manifest struct {
	Path   string
	Format Format
}

// Discover lists the manifests present directly in dir.
func Discover(dir string) []Manifest {
	var out []Manifest
	for _, format := range manifestOrder {
		path := filepath.Join(dir, string(format))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out = append(out, Manifest{Path: path, Format: format})
		}
	}
	return out
}

// Parse reads one manifest.
func (m Manifest) Parse() ([]Dependency, error) {
	switch m.Format {
	case FormatSetupPy:
		return ParseSetupPy(m.Path)
	case FormatSetupCfg:
		return ParseSetupCfg(m.Path)
	case FormatPyproject:
		return ParsePyproject(m.Path)
	default:
		return ParseRequirementsTxt(m.Path)
	}
}

// Dependencies collects the requirements of every manifest in dir. A
// manifest that fails to parse is logged and skipped.
func Dependencies(dir string) []Dependency {
	var deps []Dependency
	for _, m := range Discover(dir) {
		parsed, err := m.Parse()
		if err != nil {
			slog.Warn("skipping manifest", "path", m.Path, "error", err)
			continue
		}
		slog.Debug("manifest parsed", "path", m.Path, "dependencies", len(parsed))
		deps = append(deps, parsed...)
	}
	return deps
}
