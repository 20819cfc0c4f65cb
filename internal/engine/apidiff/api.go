// Package apidiff models declared API signatures and computes their
// membership deltas across the ordered versions of one package.
package apidiff

import (
	"strconv"
	"strings"
)

// API is one declared callable of a package version. Params keeps
// declaration order; variadic parameters carry their `*`/`**` prefix.
type API struct {
	Name      string   `json:"name" yaml:"name"`
	Params    []string `json:"params" yaml:"params"`
	HasReturn bool     `json:"has_return" yaml:"has_return"`
	// Optional lists parameters declared with a default. nil means the
	// source did not record defaults.
	Optional []string `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Key is the identity used for set membership: name, parameter tuple and
// return flag. Optional does not take part.
func (a API) Key() string {
	var b strings.Builder
	b.WriteString(a.Name)
	b.WriteByte('(')
	b.WriteString(strings.Join(a.Params, ","))
	b.WriteString(")->")
	b.WriteString(strconv.FormatBool(a.HasReturn))
	return b.String()
}

// Variadic reports a *args or **kwargs style parameter.
func (a API) Variadic() bool {
	for _, p := range a.Params {
		if p == "args" || p == "kwargs" || strings.HasPrefix(p, "*") {
			return true
		}
	}
	return false
}

// Keywords returns the parameters that may be passed by name: everything
// except self and variadic collectors.
func (a API) Keywords() []string {
	out := make([]string, 0, len(a.Params))
	for _, p := range a.Params {
		if p == "self" || strings.HasPrefix(p, "*") {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Required returns the keyword-capable parameters without a default.
func (a API) Required() []string {
	optional := make(map[string]bool, len(a.Optional))
	for _, p := range a.Optional {
		optional[p] = true
	}
	var out []string
	for _, p := range a.Keywords() {
		if !optional[p] {
			out = append(out, p)
		}
	}
	return out
}

// ShiftKind names the part of an API that changed between versions.
type ShiftKind string

const (
	ShiftName       ShiftKind = "method_name"
	ShiftParameters ShiftKind = "parameters"
	ShiftReturnType ShiftKind = "return_type"
)

// Shift compares an old and a new declaration of what is taken to be the
// same API. ok is false when nothing in the identity changed.
func Shift(old, cur API) (kind ShiftKind, ok bool) {
	switch {
	case old.Name != cur.Name:
		return ShiftName, true
	case strings.Join(old.Params, ",") != strings.Join(cur.Params, ","):
		return ShiftParameters, true
	case old.HasReturn != cur.HasReturn:
		return ShiftReturnType, true
	}
	return "", false
}
