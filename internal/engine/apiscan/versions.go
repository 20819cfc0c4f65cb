package apiscan

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// CleanName drops a versioned directory prefix from an API name, so that
// "numpy-1.3.0.numpy.core.add" scanned for version 1.3.0 becomes
// "numpy.core.add".
func CleanName(name, version string) string {
	if version == "" {
		return name
	}
	marker := "-" + version + "."
	if idx := strings.LastIndex(name, marker); idx >= 0 {
		return name[idx+len(marker):]
	}
	return name
}

var pep440 = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?((?:\.\d+)*)[-_.]?([a-zA-Z]+[-_.]?\d*)?(?:[-_.]?(post\d*))?(?:\+.*)?$`)

// Canonical rewrites a Python release string as a semantic version, or
// returns "" when it cannot. Pre-release tags (a, b, rc, dev) become
// semver pre-releases (see preReleaseTag); post releases and extra components are dropped.
func Canonical(version string) string {
	m := pep440.FindStringSubmatch(strings.TrimSpace(version))
	if m == nil {
		return ""
	}
	minor, patch := m[2], m[3]
	if minor == "" {
		minor = "0"
	}
	if patch == "" {
		patch = "0"
	}
	v := "v" + m[1] + "." + minor + "." + patch

	tag := strings.ToLower(strings.NewReplacer("-", "", "_", "", ".", "").Replace(m[5]))
	if tag != "" && !strings.HasPrefix(tag, "post") {
		v += "-" + preReleaseTag(tag)
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// preReleaseTag spells a PEP 440 pre-release so semver orders it
// dev < a < b < rc. Alternate spellings (alpha, beta, c, pre, preview) are
// folded first; the "0" prefix puts dev ahead of every letter tag.
func preReleaseTag(tag string) string {
	letters := strings.TrimRightFunc(tag, func(r rune) bool { return r >= '0' && r <= '9' })
	number := tag[len(letters):]
	switch letters {
	case "alpha":
		letters = "a"
	case "beta":
		letters = "b"
	case "c", "pre", "preview":
		letters = "rc"
	case "dev":
		letters = "0dev"
	}
	return letters + number
}

// CompareVersions orders two release strings. Unmappable versions sort after
// mappable ones; ties and unmappable pairs compare lexically.
func CompareVersions(a, b string) int {
	ca, cb := Canonical(a), Canonical(b)
	switch {
	case ca != "" && cb != "":
		if c := semver.Compare(ca, cb); c != 0 {
			return c
		}
	case ca != "":
		return -1
	case cb != "":
		return 1
	}
	return strings.Compare(a, b)
}

// SortVersions sorts versions oldest first in place.
func SortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) < 0
	})
}

// VersionsFromArchives extracts the versions of pkg from archive or
// directory names such as "pkg-1.2.0.tar.gz", sorted oldest first.
func VersionsFromArchives(pkg string, names []string) []string {
	prefix := pkg + "-"
	seen := make(map[string]bool)
	var versions []string
	for _, name := range names {
		name = strings.TrimSuffix(name, ".tar.gz")
		name = strings.TrimSuffix(name, ".zip")
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		v := strings.TrimPrefix(name, prefix)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		versions = append(versions, v)
	}
	SortVersions(versions)
	return versions
}
