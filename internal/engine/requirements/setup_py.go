package requirements

import (
	"os"

	"apidrift/internal/core/errors"
	"apidrift/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParseSetupPy reads the install_requires and extras_require arguments of
// setup() calls. List arguments may be literals or names assigned a list
// literal earlier in the file.
func ParseSetupPy(path string) ([]Dependency, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read setup.py"), errors.CtxPath, path)
	}
	unit, err := parser.Parse(content)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	defer unit.Close()

	e := &setupExtractor{lists: make(map[string]*sitter.Node), source: path}
	ctx := parser.NewExtractionContext(unit)
	engine := parser.NewExtractorEngine(map[string]parser.NodeHandler{
		"assignment": e.extractAssignment,
		"call":       e.extractCall,
	})
	engine.Walk(ctx, unit.Root())
	return e.deps, nil
}

type setupExtractor struct {
	lists  map[string]*sitter.Node
	deps   []Dependency
	source string
}

func (e *setupExtractor) extractAssignment(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	left, right := node.ChildByFieldName("left"), node.ChildByFieldName("right")
	if left == nil || right == nil || left.Kind() != "identifier" {
		return false
	}
	switch right.Kind() {
	case "list", "tuple", "dictionary":
		e.lists[ctx.Text(left)] = right
	}
	return false
}

func (e *setupExtractor) extractCall(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	name, ok := ctx.Unit.DottedName(node.ChildByFieldName("function"))
	if !ok || (name != "setup" && name != "setuptools.setup" && name != "distutils.core.setup") {
		return false
	}
	for _, arg := range parser.NamedChildren(node.ChildByFieldName("arguments")) {
		if arg.Kind() != "keyword_argument" {
			continue
		}
		value := e.deref(ctx, arg.ChildByFieldName("value"))
		switch ctx.Text(arg.ChildByFieldName("name")) {
		case "install_requires":
			e.addStrings(ctx, value)
		case "extras_require":
			if value == nil || value.Kind() != "dictionary" {
				continue
			}
			for _, pair := range parser.NamedChildren(value) {
				if pair.Kind() == "pair" {
					e.addStrings(ctx, e.deref(ctx, pair.ChildByFieldName("value")))
				}
			}
		}
	}
	return false
}

func (e *setupExtractor) deref(ctx *parser.ExtractionContext, node *sitter.Node) *sitter.Node {
	if node != nil && node.Kind() == "identifier" {
		if bound, ok := e.lists[ctx.Text(node)]; ok {
			return bound
		}
	}
	return node
}

func (e *setupExtractor) addStrings(ctx *parser.ExtractionContext, node *sitter.Node) {
	if node == nil || (node.Kind() != "list" && node.Kind() != "tuple") {
		return
	}
	for _, elt := range parser.NamedChildren(node) {
		value, ok := ctx.Unit.StringValue(elt)
		if !ok {
			continue
		}
		if dep, ok := ParseLine(value); ok {
			dep.Source = e.source
			e.deps = append(e.deps, dep)
		}
	}
}
