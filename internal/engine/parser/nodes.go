package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ChildOfKind returns the first direct child of node with the given kind.
func ChildOfKind(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// NamedChildren returns the named direct children of node, skipping comments.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// FirstNamedChild returns the first non-comment named child.
func FirstNamedChild(node *sitter.Node) *sitter.Node {
	children := NamedChildren(node)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// FindFirst returns the first node of kind in pre-order, including node itself.
func FindFirst(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == kind {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := FindFirst(node.Child(i), kind); found != nil {
			return found
		}
	}
	return nil
}

// Contains reports whether any descendant of node (or node) has kind.
func Contains(node *sitter.Node, kind string) bool {
	return FindFirst(node, kind) != nil
}

// IsStringNode reports whether node is a plain or implicitly concatenated string.
func IsStringNode(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	return node.Kind() == "string" || node.Kind() == "concatenated_string"
}

// StringValue decodes a Python string literal node into its contents. Escape
// sequences are kept verbatim; f-string interpolations are kept as written.
func (u *Unit) StringValue(node *sitter.Node) (string, bool) {
	if !IsStringNode(node) {
		return "", false
	}
	if node.Kind() == "concatenated_string" {
		var b strings.Builder
		for _, part := range NamedChildren(node) {
			value, ok := u.StringValue(part)
			if !ok {
				return "", false
			}
			b.WriteString(value)
		}
		return b.String(), true
	}
	return UnquoteLiteral(u.Text(node))
}

// UnquoteLiteral strips an optional prefix (r, b, f, u in any case) and the
// matching single or triple quotes from a Python string literal.
func UnquoteLiteral(literal string) (string, bool) {
	literal = strings.TrimSpace(literal)
	start := strings.IndexAny(literal, `"'`)
	if start < 0 || strings.Trim(literal[:start], "rRbBfFuU") != "" {
		return "", false
	}
	body := literal[start:]
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) >= 2*len(quote) && strings.HasPrefix(body, quote) && strings.HasSuffix(body, quote) {
			return body[len(quote) : len(body)-len(quote)], true
		}
	}
	return "", false
}

// DottedName renders an identifier or a chain of attribute accesses on an
// identifier, e.g. `np . linalg.norm` as "np.linalg.norm". ok is false when
// the chain is rooted at anything else (calls, subscripts, literals).
func (u *Unit) DottedName(node *sitter.Node) (name string, ok bool) {
	if node == nil {
		return "", false
	}
	switch node.Kind() {
	case "identifier":
		return u.Text(node), true
	case "attribute":
		base, ok := u.DottedName(node.ChildByFieldName("object"))
		if !ok {
			return "", false
		}
		attr := node.ChildByFieldName("attribute")
		if attr == nil {
			return "", false
		}
		return base + "." + u.Text(attr), true
	}
	return "", false
}
