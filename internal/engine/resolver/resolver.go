// # internal/engine/resolver/resolver.go
package resolver

import (
	"log/slog"

	"apidrift/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const getattrBuiltin = "getattr"

// Resolve walks unit once, top-down, and returns its bindings. Statements
// that are not simple `name = expr` assignments are skipped. Wildcard imports
// are left unexpanded.
func Resolve(unit *parser.Unit) *Bindings {
	b := NewBindings()
	if unit == nil || unit.Root() == nil {
		return b
	}

	for _, imp := range parser.ExtractImports(unit) {
		if imp.Wildcard {
			continue
		}
		if imp.Module == "" && imp.Level > 0 {
			// `from . import x [as y]` has no module to qualify x with.
			continue
		}
		local := imp.LocalName()
		if local == "" {
			continue
		}
		b.Imports[local] = imp.Origin()
	}

	w := &assignmentWalker{bindings: b}
	ctx := parser.NewExtractionContext(unit)
	engine := parser.NewExtractorEngine(map[string]parser.NodeHandler{
		"assignment": w.extractAssignment,
	})
	engine.Walk(ctx, unit.Root())
	return b
}

// ResolveSource parses source with the shared pool and resolves it. A source
// that cannot be parsed at all yields empty bindings.
func ResolveSource(source []byte) *Bindings {
	unit, err := parser.Parse(source)
	if err != nil {
		slog.Debug("resolve: parse failed, using empty bindings", "error", err)
		return NewBindings()
	}
	defer unit.Close()
	return Resolve(unit)
}

type assignmentWalker struct {
	bindings *Bindings
}

func (w *assignmentWalker) extractAssignment(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	// a = b = C(): bind a to the innermost value; b is bound when the
	// walker reaches the nested assignment.
	for right != nil && right.Kind() == "assignment" {
		right = right.ChildByFieldName("right")
	}
	if left == nil || right == nil || left.Kind() != "identifier" {
		return false
	}
	w.bind(ctx.Unit, ctx.Text(left), right)
	return false
}

func (w *assignmentWalker) bind(unit *parser.Unit, target string, value *sitter.Node) {
	b := w.bindings

	if literal, ok := unit.StringValue(value); ok {
		b.Strings[target] = literal
		return
	}

	first := parser.FindFirst(value, "call")
	if first == nil {
		return
	}
	if binding := w.callBinding(unit, first); binding != nil {
		b.ClassObjects[target] = binding
	}

	if value.Kind() != "call" {
		return
	}
	fn := value.ChildByFieldName("function")
	name, ok := unit.DottedName(fn)
	if !ok {
		return
	}
	switch fn.Kind() {
	case "attribute":
		b.Instances[target] = name
	case "identifier":
		if factory, ok := b.ClassObjects[name]; ok {
			b.Instances[target] = factory.Name()
		}
	}
}

func (w *assignmentWalker) callBinding(unit *parser.Unit, call *sitter.Node) CallBinding {
	name, ok := unit.DottedName(call.ChildByFieldName("function"))
	if !ok {
		return nil
	}
	if name == getattrBuiltin {
		if reflected, ok := w.reflect(unit, call.ChildByFieldName("arguments")); ok {
			return reflected
		}
	}
	return DirectCall{Callee: name}
}

// reflect resolves getattr(module, attr) when the module operand is a string
// or a name and the attr operand is a string or a name bound to a string.
func (w *assignmentWalker) reflect(unit *parser.Unit, args *sitter.Node) (ReflectedCall, bool) {
	operands := parser.NamedChildren(args)
	if len(operands) < 2 {
		return ReflectedCall{}, false
	}
	module, ok := w.operand(unit, operands[0], true)
	if !ok {
		return ReflectedCall{}, false
	}
	attr, ok := w.operand(unit, operands[1], false)
	if !ok {
		return ReflectedCall{}, false
	}
	return ReflectedCall{Module: module, Attr: attr}, true
}

func (w *assignmentWalker) operand(unit *parser.Unit, node *sitter.Node, allowName bool) (string, bool) {
	if value, ok := unit.StringValue(node); ok && value != "" {
		return value, true
	}
	if node.Kind() != "identifier" {
		return "", false
	}
	name := unit.Text(node)
	if value, ok := w.bindings.Strings[name]; ok && value != "" {
		return value, true
	}
	if allowName {
		return name, true
	}
	return "", false
}
