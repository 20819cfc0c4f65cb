package requirements

import (
	"bufio"
	"bytes"
	"os"
	"regexp"
	"strings"

	"apidrift/internal/core/errors"
	"apidrift/internal/shared/util"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
)

var (
	reqPrefix    = regexp.MustCompile(`^[^#;@\\]+`)
	condaTriple  = regexp.MustCompile(`^(.+?)=(.+?)=(.+)$`)
	localVersion = regexp.MustCompile(`\+.*$`)
)

// ParseRequirementsTxt reads a pip requirements file. It accepts inline
// comments, "pip install" lines, git+ URLs, conda name=version=build
// triples and local version tags.
func ParseRequirementsTxt(path string) ([]Dependency, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read requirements file"), errors.CtxPath, path)
	}
	return parseRequirementsText(content, path), nil
}

func parseRequirementsText(content []byte, source string) []Dependency {
	var deps []Dependency
	add := func(line string) {
		if dep, ok := ParseLine(line); ok {
			dep.Source = source
			deps = append(deps, dep)
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := cleanRequirement(scanner.Text())
		if line == "" || strings.ContainsRune("#-_`", rune(line[0])) {
			continue
		}
		switch {
		case strings.HasPrefix(line, "pip install"):
			for _, field := range strings.Fields(line[len("pip install"):]) {
				add(field)
			}
		case strings.HasPrefix(line, "git+"):
			add(repoName(line))
		case isCondaTriple(line):
			add(condaTriple.FindStringSubmatch(line)[1])
		default:
			add(localVersion.ReplaceAllString(line, ""))
		}
	}
	return deps
}

func cleanRequirement(line string) string {
	line = strings.ReplaceAll(line, "\ufeff", "")
	if m := reqPrefix.FindString(line); m != "" {
		line = m
	}
	if idx := strings.Index(line, "--"); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

// isCondaTriple matches conda exports such as "numpy=1.21.0=py39h5d0ccc0_0".
func isCondaTriple(line string) bool {
	return condaTriple.MatchString(line) &&
		!strings.Contains(line, "==") && !strings.ContainsAny(line, "<>!~,")
}

// repoName takes the repository name of a git+ URL as the package name.
func repoName(url string) string {
	url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return strings.TrimPrefix(url, "git+")
}

type pyproject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]interface{} `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// ParsePyproject reads project.dependencies, every optional-dependencies
// group and tool.poetry.dependencies of a pyproject.toml.
func ParsePyproject(path string) ([]Dependency, error) {
	var doc pyproject
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeParseError, "decode pyproject.toml"), errors.CtxPath, path)
	}

	lines := append([]string(nil), doc.Project.Dependencies...)
	for _, group := range util.SortedKeys(doc.Project.OptionalDependencies) {
		lines = append(lines, doc.Project.OptionalDependencies[group]...)
	}
	for _, name := range util.SortedKeys(doc.Tool.Poetry.Dependencies) {
		if strings.EqualFold(name, "python") {
			continue
		}
		lines = append(lines, name+poetrySpec(doc.Tool.Poetry.Dependencies[name]))
	}

	seen := make(map[string]bool)
	var deps []Dependency
	for _, line := range lines {
		if seen[line] {
			continue
		}
		seen[line] = true
		if dep, ok := ParseLine(line); ok {
			dep.Source = path
			deps = append(deps, dep)
		}
	}
	return deps, nil
}

// poetrySpec turns a poetry constraint into a PEP 440 clause. A bare
// version is exact; caret and tilde constraints stay ranges.
func poetrySpec(value interface{}) string {
	var v string
	switch t := value.(type) {
	case string:
		v = t
	case map[string]interface{}:
		v, _ = t["version"].(string)
	}
	v = strings.TrimSpace(v)
	switch {
	case v == "" || v == "*":
		return ""
	case v[0] >= '0' && v[0] <= '9':
		return "==" + v
	case strings.HasPrefix(v, "^"):
		return ">=" + v[1:]
	case strings.HasPrefix(v, "~") && !strings.HasPrefix(v, "~="):
		return "~=" + v[1:]
	}
	return v
}

// ParseSetupCfg reads options.install_requires and every group of
// options.extras_require from a setup.cfg.
func ParseSetupCfg(path string) ([]Dependency, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		SkipUnrecognizableLines:    true,
	}, path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeParseError, "load setup.cfg"), errors.CtxPath, path)
	}

	var deps []Dependency
	addLines := func(value string) {
		for _, line := range strings.Split(value, "\n") {
			if dep, ok := ParseLine(line); ok {
				dep.Source = path
				deps = append(deps, dep)
			}
		}
	}

	if sec, err := cfg.GetSection("options"); err == nil && sec.HasKey("install_requires") {
		addLines(sec.Key("install_requires").String())
	}
	if sec, err := cfg.GetSection("options.extras_require"); err == nil {
		for _, key := range sec.Keys() {
			addLines(key.String())
		}
	}
	return deps, nil
}
