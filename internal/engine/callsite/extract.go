// Package callsite finds the outermost call of a Python statement and
// describes its arguments.
package callsite

import (
	"strings"

	"apidrift/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Kind tags how an Extraction was obtained.
type Kind int

const (
	// Empty: the statement was blank.
	Empty Kind = iota
	// NoCall: the statement parsed and holds no call.
	NoCall
	// Parsed: the call came from an error-free syntax tree; Node is set.
	Parsed
	// LexicalGuess: only the callee name was recovered, by pattern.
	LexicalGuess
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case NoCall:
		return "no-call"
	case Parsed:
		return "parsed"
	case LexicalGuess:
		return "lexical-guess"
	}
	return "unknown"
}

// Call is the outermost call of a statement.
type Call struct {
	// Text is the source of the call expression (the whole statement for
	// lexical guesses).
	Text string
	// Name is the raw dotted callee, before any binding resolution.
	Name string
	// Node is nil unless the extraction kind is Parsed.
	Node *sitter.Node
	unit *parser.Unit
}

// Extraction is the result of ExtractOutermost.
type Extraction struct {
	Kind Kind
	Call Call
}

// HasCall reports whether a callee name is available.
func (e Extraction) HasCall() bool {
	return e.Kind == Parsed || e.Kind == LexicalGuess
}

// Close releases the syntax tree of a Parsed extraction.
func (e Extraction) Close() {
	if e.Call.unit != nil {
		e.Call.unit.Close()
	}
}

// ExtractOutermost returns the outermost call of stmt. One layer of
// expression statement, assignment, augmented assignment or return is
// unwrapped; if the unwrapped node is not itself a call, the first call in
// pre-order is used. Statements that do not parse cleanly, or hold no call
// node, fall back to LexicalGuess when the call pattern matches.
// Callers must Close the result.
func ExtractOutermost(stmt string) Extraction {
	if strings.TrimSpace(stmt) == "" {
		return Extraction{Kind: Empty}
	}

	unit, err := parser.ParseString(stmt)
	if err == nil {
		if unit.Clean() {
			if call := outermostCall(unit.Root()); call != nil {
				return Extraction{Kind: Parsed, Call: Call{
					Text: unit.Text(call),
					Name: CalleeName(unit, call.ChildByFieldName("function")),
					Node: call,
					unit: unit,
				}}
			}
		}
		unit.Close()
	}

	if name, ok := FirstCallName(stmt); ok {
		return Extraction{Kind: LexicalGuess, Call: Call{Text: strings.TrimSpace(stmt), Name: name}}
	}
	return Extraction{Kind: NoCall}
}

// HasCall reports whether stmt contains any call expression. Statements that
// fail to parse count as calls only when the lexical pattern matches.
func HasCall(stmt string) bool {
	if strings.TrimSpace(stmt) == "" {
		return false
	}
	unit, err := parser.ParseString(stmt)
	if err != nil {
		_, ok := FirstCallName(stmt)
		return ok
	}
	defer unit.Close()
	if !unit.Clean() {
		_, ok := FirstCallName(stmt)
		return ok
	}
	return parser.Contains(unit.Root(), "call")
}

func outermostCall(root *sitter.Node) *sitter.Node {
	node := parser.FirstNamedChild(root)
	if node == nil {
		return nil
	}
	if node.Kind() == "expression_statement" {
		node = parser.FirstNamedChild(node)
	}
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "assignment", "augmented_assignment":
		if right := node.ChildByFieldName("right"); right != nil {
			node = right
		}
	case "return_statement":
		if value := parser.FirstNamedChild(node); value != nil {
			node = value
		}
	}
	return parser.FindFirst(node, "call")
}

// CalleeName renders the callee of a call. Attribute chains rooted at
// something other than a name use "expression" for the root; any other
// callee shape is "unknown".
func CalleeName(unit *parser.Unit, fn *sitter.Node) string {
	if fn == nil {
		return "unknown"
	}
	switch fn.Kind() {
	case "identifier":
		return unit.Text(fn)
	case "attribute":
		return attributeChain(unit, fn)
	}
	return "unknown"
}

func attributeChain(unit *parser.Unit, node *sitter.Node) string {
	switch node.Kind() {
	case "identifier":
		return unit.Text(node)
	case "attribute":
		prefix := attributeChain(unit, node.ChildByFieldName("object"))
		attr := unit.Text(node.ChildByFieldName("attribute"))
		if prefix == "" {
			return attr
		}
		return prefix + "." + attr
	}
	return "expression"
}
