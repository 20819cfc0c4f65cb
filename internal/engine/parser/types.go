// # internal/engine/parser/types.go
package parser

import "strings"

// Import is one name bound by an import or import-from statement.
type Import struct {
	Module   string // from-import module, "" for plain imports
	Name     string // imported dotted name or "*"
	Alias    string // optional `as` clause
	Level    int    // leading dots of a relative from-import
	Wildcard bool
	Location Location
}

// LocalName is the identifier the statement binds in the importing module.
// Plain `import a.b` binds `a`.
func (i Import) LocalName() string {
	if i.Alias != "" {
		return i.Alias
	}
	if i.Module == "" && i.Level == 0 {
		if idx := strings.IndexByte(i.Name, '.'); idx >= 0 {
			return i.Name[:idx]
		}
	}
	return i.Name
}

// Origin is the dotted path the local name refers to.
func (i Import) Origin() string {
	if i.Module == "" && i.Level == 0 {
		if i.Alias != "" {
			return i.Name
		}
		return i.LocalName()
	}
	if i.Module == "" {
		return i.Name
	}
	return i.Module + "." + i.Name
}

type Location struct {
	Line   int
	Column int
}
