package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Unit is one parsed Python document. It owns its syntax tree; callers must
// Close it once analysis is done.
type Unit struct {
	Source []byte
	tree   *sitter.Tree
}

// Parse parses source with the shared Python pool.
func Parse(source []byte) (*Unit, error) {
	return DefaultPool().Parse(source)
}

// ParseString is Parse for statement-sized inputs.
func ParseString(source string) (*Unit, error) {
	return Parse([]byte(source))
}

func (u *Unit) Root() *sitter.Node {
	if u == nil || u.tree == nil {
		return nil
	}
	return u.tree.RootNode()
}

// Clean reports whether the tree parsed without ERROR or MISSING nodes and
// without empty block bodies. The grammar accepts a bare compound statement
// header such as `for x in y:` with a zero-width block.
func (u *Unit) Clean() bool {
	root := u.Root()
	return root != nil && !root.HasError() && !hasEmptyBlock(root)
}

func hasEmptyBlock(node *sitter.Node) bool {
	if node.Kind() == "block" && node.StartByte() == node.EndByte() {
		return true
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child != nil && hasEmptyBlock(child) {
			return true
		}
	}
	return false
}

func (u *Unit) Close() {
	if u == nil || u.tree == nil {
		return
	}
	u.tree.Close()
	u.tree = nil
}

// Text returns the source slice covered by node.
func (u *Unit) Text(node *sitter.Node) string {
	if u == nil || node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if end > uint(len(u.Source)) || start > end {
		return ""
	}
	return string(u.Source[start:end])
}

// Line returns the 1-based start line of node.
func (u *Unit) Line(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPosition().Row) + 1
}

// CompactText is Text with all whitespace removed, used for dotted names
// written as `a . b`.
func (u *Unit) CompactText(node *sitter.Node) string {
	return StripSpace(u.Text(node))
}

// StripSpace removes every whitespace rune from value.
func StripSpace(value string) string {
	return strings.Join(strings.Fields(value), "")
}
