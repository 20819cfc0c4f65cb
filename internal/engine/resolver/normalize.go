package resolver

import (
	"strings"

	"apidrift/internal/engine/parser"
)

// Normalize rewrites a raw dotted callee into a best-effort fully qualified
// name. The first applicable rule wins:
//
//  1. a bare name bound as an instance becomes "<class>.<name>"; a bare name
//     bound by getattr becomes the reflected target;
//  2. a two-segment name whose head is a class object has its head replaced
//     by that object's callee;
//  3. the head of the (possibly rewritten) name is replaced by its import
//     origin.
//
// Names nothing applies to are returned unchanged. Normalize never fails and
// a nil receiver only cleans the name.
func (b *Bindings) Normalize(raw string) string {
	name := CleanName(raw)
	if name == "" || b == nil {
		return name
	}

	parts := strings.Split(name, ".")
	if len(parts) == 1 {
		if class, ok := b.Instances[name]; ok {
			name = class + "." + name
		} else if reflected, ok := b.ClassObjects[name].(ReflectedCall); ok {
			name = reflected.Name()
		}
	} else if len(parts) == 2 {
		if object, ok := b.ClassObjects[parts[0]]; ok {
			name = object.Name() + "." + parts[1]
		}
	}

	parts = strings.Split(name, ".")
	if origin, ok := b.Imports[parts[0]]; ok {
		parts[0] = origin
		name = strings.Join(parts, ".")
	}
	return strings.TrimRight(name, ".")
}

// CleanName drops whitespace and trailing dots from a dotted name.
func CleanName(raw string) string {
	return strings.TrimRight(parser.StripSpace(raw), ".")
}
