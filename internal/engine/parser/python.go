package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ImportExtractor collects every import binding of a unit in document order.
type ImportExtractor struct {
	imports []Import
}

// ExtractImports returns the imports declared anywhere in unit, including
// those nested in functions or conditional blocks.
func ExtractImports(unit *Unit) []Import {
	e := &ImportExtractor{}
	ctx := NewExtractionContext(unit)
	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_statement":      e.extractImport,
		"import_from_statement": e.extractFromImport,
	})
	engine.Walk(ctx, unit.Root())
	return e.imports
}

func (e *ImportExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name":
			e.imports = append(e.imports, Import{
				Name:     ctx.Unit.CompactText(child),
				Location: ctx.Location(child),
			})
		case "aliased_import":
			name, alias := aliasedParts(ctx, child)
			if name == "" {
				continue
			}
			e.imports = append(e.imports, Import{
				Name:     name,
				Alias:    alias,
				Location: ctx.Location(child),
			})
		}
	}
	return true
}

func (e *ImportExtractor) extractFromImport(ctx *ExtractionContext, node *sitter.Node) bool {
	var module string
	level := 0
	if moduleNode := node.ChildByFieldName("module_name"); moduleNode != nil {
		if moduleNode.Kind() == "relative_import" {
			level = strings.Count(ctx.Text(ChildOfKind(moduleNode, "import_prefix")), ".")
			module = ctx.Unit.CompactText(ChildOfKind(moduleNode, "dotted_name"))
		} else {
			module = ctx.Unit.CompactText(moduleNode)
		}
	}

	afterImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "import" {
			afterImport = true
			continue
		}
		if !afterImport {
			continue
		}
		switch child.Kind() {
		case "wildcard_import":
			e.imports = append(e.imports, Import{
				Module:   module,
				Name:     "*",
				Level:    level,
				Wildcard: true,
				Location: ctx.Location(child),
			})
		case "dotted_name", "identifier":
			e.imports = append(e.imports, Import{
				Module:   module,
				Name:     ctx.Unit.CompactText(child),
				Level:    level,
				Location: ctx.Location(child),
			})
		case "aliased_import":
			name, alias := aliasedParts(ctx, child)
			if name == "" {
				continue
			}
			e.imports = append(e.imports, Import{
				Module:   module,
				Name:     name,
				Alias:    alias,
				Level:    level,
				Location: ctx.Location(child),
			})
		}
	}
	return true
}

func aliasedParts(ctx *ExtractionContext, node *sitter.Node) (name, alias string) {
	name = ctx.Unit.CompactText(node.ChildByFieldName("name"))
	alias = ctx.Text(node.ChildByFieldName("alias"))
	return name, strings.TrimSpace(alias)
}
