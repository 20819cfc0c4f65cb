package apiscan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"apidrift/internal/engine/apidiff"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestScanSource_FunctionsAndMethods(t *testing.T) {
	src := `import os

def top(a, b=1, *args, c, **kw):
    return a

class Model(Base):
    def __init__(self, x: int, y: str = "s"):
        self.x = x

    @property
    def size(self):
        return len(self.x)

    def fit(self, X, y=None, *, sample_weight=None):
        pass

    class Inner:
        def hidden(self):
            pass

def _private():
    def nested(q):
        pass
    return
`
	apis, err := ScanSource("pkg.core", []byte(src), nil)
	require.NoError(t, err)

	want := []apidiff.API{
		{Name: "pkg.core.top", Params: []string{"a", "b", "*args", "c", "**kw"}, HasReturn: true, Optional: []string{"b"}},
		{Name: "pkg.core.Model.__init__", Params: []string{"self", "x", "y"}, Optional: []string{"y"}},
		{Name: "pkg.core.Model.size", Params: []string{"self"}, HasReturn: true, Optional: []string{}},
		{Name: "pkg.core.Model.fit", Params: []string{"self", "X", "y", "sample_weight"}, Optional: []string{"y", "sample_weight"}},
		{Name: "pkg.core._private", Params: []string{}, Optional: []string{}},
	}
	assert.Equal(t, want, apis)

	assert.True(t, apis[0].Variadic())
	assert.Equal(t, []string{"X"}, apis[3].Required())
}

func TestExportMap_Expose(t *testing.T) {
	m := NewExportMap()
	m.Add("pkg.core.Model", "pkg.Model")
	m.Add("pkg.util.*", "pkg.*")

	assert.Equal(t, []string{"pkg.Model.fit", "pkg.core.Model.fit"}, m.Expose("pkg.core.Model.fit"))
	assert.Equal(t, []string{"pkg.helper", "pkg.util.helper"}, m.Expose("pkg.util.helper"))
	assert.Equal(t, []string{"other.f"}, m.Expose("other.f"))
	assert.Equal(t, []string{"a.b"}, (*ExportMap)(nil).Expose(".a.b"))
}

func TestScanPackage_ExpandsExports(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"setup.py":               "from setuptools import setup\nsetup()\n",
		"pkg/__init__.py":        "from .core import Model\nfrom pkg.util import *\nfrom . import core as c\n",
		"pkg/core.py":            "class Model:\n    def fit(self, X):\n        return self\n",
		"pkg/util.py":            "def helper(x):\n    return x\n",
		"pkg/tests/test_core.py": "def test_fit():\n    pass\n",
		"pkg/broken.py":          "def (:\n",
	})

	apis, err := ScanPackage(context.Background(), root, Options{Workers: 2})
	require.NoError(t, err)

	var names []string
	for _, api := range apis {
		names = append(names, api.Name)
	}
	assert.Equal(t, []string{
		"pkg.Model.fit",
		"pkg.c.Model.fit",
		"pkg.core.Model.fit",
		"pkg.helper",
		"pkg.util.helper",
	}, names)
}

func TestScanPackage_StripsVersionedDirectory(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"numpy-1.3.0/numpy/core.py": "def add(x1, x2):\n    return x1\n",
	})

	apis, err := ScanPackage(context.Background(), root, Options{Version: "1.3.0"})
	require.NoError(t, err)
	require.Len(t, apis, 1)
	assert.Equal(t, "numpy.core.add", apis[0].Name)
}

func TestScanPackage_MissingDirectory(t *testing.T) {
	_, err := ScanPackage(context.Background(), filepath.Join(t.TempDir(), "absent"), Options{})
	require.Error(t, err)
}

func TestDiscover_PrefersEggInfo(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"pkg.egg-info/top_level.txt": "pkg\n",
		"pkg.egg-info/SOURCES.txt":   "setup.py\npkg/__init__.py\npkg/core.py\npkg/tests/test_core.py\nREADME.md\n",
		"pkg/__init__.py":            "",
		"pkg/core.py":                "",
		"pkg/extra.py":               "",
	})

	sources, err := Discover(root, DefaultExcludes)
	require.NoError(t, err)

	var rels []string
	for _, s := range sources {
		rels = append(rels, s.Rel)
	}
	assert.Equal(t, []string{"pkg/__init__.py", "pkg/core.py"}, rels)
	assert.Equal(t, "pkg", sources[0].Module())
	assert.True(t, sources[0].IsInit())
}

func TestDiscover_InvalidExclude(t *testing.T) {
	_, err := Discover(t.TempDir(), []string{"[unclosed"})
	require.Error(t, err)
}

func TestModulePath(t *testing.T) {
	cases := map[string]string{
		"a/b/c.py":        "a.b.c",
		"a/b/__init__.py": "a.b",
		"__init__.py":     "",
		"/lead/mod.py":    "lead.mod",
	}
	for in, want := range cases {
		if got := ModulePath(in); got != want {
			t.Errorf("ModulePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScanSource_RejectsSyntaxErrors(t *testing.T) {
	_, err := ScanSource("pkg.broken", []byte("def (:\n"), nil)
	require.Error(t, err)
}
