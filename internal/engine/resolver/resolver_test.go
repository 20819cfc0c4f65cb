// # internal/engine/resolver/resolver_test.go
package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unitSource = `
import numpy as np
import pandas
from sklearn.linear_model import LogisticRegression as LR
from os.path import *
from . import sibling
from .. import parent as up
from .utils import helper

model = LR(max_iter=10)
rng = np.random.RandomState(0)
df = pandas.DataFrame(data)
factory = np.random.default_rng
loader = make_loader()
item = loader()
mod_name = "numpy"
attr_name = 'linalg'
f = getattr(mod_name, attr_name)
g = getattr(np, "zeros")
h = getattr(obj, unknown)
a = b = torch.zeros(3)
`

func TestResolve_Maps(t *testing.T) {
	b := ResolveSource([]byte(unitSource))

	assert.Equal(t, map[string]string{
		"np":     "numpy",
		"pandas": "pandas",
		"LR":     "sklearn.linear_model.LogisticRegression",
		"helper": "utils.helper",
	}, b.Imports)

	assert.Equal(t, map[string]string{
		"rng":  "np.random.RandomState",
		"df":   "pandas.DataFrame",
		"item": "make_loader",
		"a":    "torch.zeros",
		"b":    "torch.zeros",
	}, b.Instances)

	assert.Equal(t, DirectCall{Callee: "LR"}, b.ClassObjects["model"])
	assert.Equal(t, DirectCall{Callee: "loader"}, b.ClassObjects["item"])
	assert.Equal(t, DirectCall{Callee: "getattr"}, b.ClassObjects["h"])
	assert.NotContains(t, b.ClassObjects, "factory")

	assert.Equal(t, map[string]ReflectedCall{
		"f": {Module: "numpy", Attr: "linalg"},
		"g": {Module: "np", Attr: "zeros"},
	}, b.Reflected())

	assert.Equal(t, "numpy", b.Strings["mod_name"])
	assert.Equal(t, "linalg", b.Strings["attr_name"])
}

func TestResolve_LastWriteWins(t *testing.T) {
	src := `
import sklearn.svm as sk
if flag:
    clf = sk.SVC()
else:
    clf = sk.LinearSVC()
`
	b := ResolveSource([]byte(src))
	assert.Equal(t, "sk.LinearSVC", b.Instances["clf"])
	assert.Equal(t, "sklearn.svm.LinearSVC.fit", b.Normalize("clf.fit"))
}

func TestResolve_NestedScopes(t *testing.T) {
	src := `
def build():
    import torch.nn as nn
    layer = nn.Linear(4, 2)
    return layer
`
	b := ResolveSource([]byte(src))
	assert.Equal(t, "torch.nn", b.Imports["nn"])
	assert.Equal(t, "nn.Linear", b.Instances["layer"])
	assert.Equal(t, "torch.nn.Linear.forward", b.Normalize("layer.forward"))
}

func TestResolve_Unparseable(t *testing.T) {
	b := ResolveSource([]byte("def (:\n  ))) = ="))
	require.NotNil(t, b)
	assert.Empty(t, b.Imports)
	assert.Equal(t, "foo.bar", b.Normalize("foo.bar"))
}

func TestResolve_NilUnit(t *testing.T) {
	b := Resolve(nil)
	require.NotNil(t, b)
	assert.Empty(t, b.Imports)
	assert.Empty(t, b.Instances)
	assert.Empty(t, b.ClassObjects)
}
