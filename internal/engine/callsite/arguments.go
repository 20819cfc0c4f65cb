package callsite

import (
	"sort"

	"apidrift/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ArgKind classifies one actual argument.
type ArgKind int

const (
	ArgExpression ArgKind = iota
	ArgString
	ArgNumber
	ArgBoolean
	ArgNone
	ArgIdentifier
	ArgAttribute
	ArgAggregate
)

var argKindNames = map[ArgKind]string{
	ArgExpression: "expression",
	ArgString:     "string",
	ArgNumber:     "number",
	ArgBoolean:    "boolean",
	ArgNone:       "none",
	ArgIdentifier: "identifier",
	ArgAttribute:  "attribute",
	ArgAggregate:  "aggregate",
}

func (k ArgKind) String() string {
	if name, ok := argKindNames[k]; ok {
		return name
	}
	return "expression"
}

// Argument describes one actual argument, or one element of an aggregate.
type Argument struct {
	Kind ArgKind
	// Keyword is the keyword name, or the key text for dictionary entries.
	Keyword string
	// Value is the literal value, the bound name, or the attribute text.
	Value string
	// Source is the raw argument text.
	Source string
	// Index is the position inside the argument list.
	Index int
	// Splat marks *x and **x.
	Splat bool
	// Elements holds one level of list or dict members.
	Elements []Argument
}

// Arguments is the positional/keyword split of a call's argument list.
type Arguments struct {
	Positional []Argument
	Keyword    []Argument
}

// Count is the total number of actual arguments.
func (a Arguments) Count() int {
	return len(a.Positional) + len(a.Keyword)
}

// KeywordNames returns the sorted, distinct keyword names; **x splats carry
// no name and are skipped.
func (a Arguments) KeywordNames() []string {
	seen := make(map[string]bool, len(a.Keyword))
	names := make([]string, 0, len(a.Keyword))
	for _, kw := range a.Keyword {
		if kw.Keyword == "" || seen[kw.Keyword] {
			continue
		}
		seen[kw.Keyword] = true
		names = append(names, kw.Keyword)
	}
	sort.Strings(names)
	return names
}

// PositionalAfterKeyword reports a non-splat positional argument written
// after a keyword argument, which Python rejects.
func (a Arguments) PositionalAfterKeyword() bool {
	if len(a.Keyword) == 0 {
		return false
	}
	firstKeyword := a.Keyword[0].Index
	for _, kw := range a.Keyword {
		if kw.Index < firstKeyword {
			firstKeyword = kw.Index
		}
	}
	for _, arg := range a.Positional {
		if !arg.Splat && arg.Index > firstKeyword {
			return true
		}
	}
	return false
}

// AnalyzeArguments describes the arguments of a Parsed call. Lexical guesses
// have no node and yield an empty value.
func AnalyzeArguments(call Call) Arguments {
	var out Arguments
	if call.Node == nil || call.unit == nil {
		return out
	}
	args := call.Node.ChildByFieldName("arguments")
	if args == nil {
		return out
	}
	unit := call.unit

	// f(x for x in xs) has a generator in place of the argument list.
	if args.Kind() == "generator_expression" {
		out.Positional = append(out.Positional, describe(unit, args, 0, 1))
		return out
	}

	for i, child := range parser.NamedChildren(args) {
		switch child.Kind() {
		case "keyword_argument":
			arg := describe(unit, child.ChildByFieldName("value"), i, 1)
			arg.Keyword = unit.Text(child.ChildByFieldName("name"))
			arg.Source = unit.Text(child)
			out.Keyword = append(out.Keyword, arg)
		case "dictionary_splat":
			arg := describe(unit, child, i, 0)
			arg.Splat = true
			out.Keyword = append(out.Keyword, arg)
		case "list_splat":
			arg := describe(unit, child, i, 0)
			arg.Splat = true
			out.Positional = append(out.Positional, arg)
		default:
			out.Positional = append(out.Positional, describe(unit, child, i, 1))
		}
	}
	return out
}

// describe classifies node; depth bounds how many aggregate levels get
// their elements described.
func describe(unit *parser.Unit, node *sitter.Node, index, depth int) Argument {
	arg := Argument{Kind: ArgExpression, Index: index}
	if node == nil {
		return arg
	}
	arg.Source = unit.Text(node)
	arg.Value = arg.Source

	switch node.Kind() {
	case "string", "concatenated_string":
		if value, ok := unit.StringValue(node); ok {
			arg.Kind = ArgString
			arg.Value = value
		}
	case "integer", "float":
		arg.Kind = ArgNumber
	case "true", "false":
		arg.Kind = ArgBoolean
	case "none":
		arg.Kind = ArgNone
	case "identifier":
		arg.Kind = ArgIdentifier
	case "attribute":
		arg.Kind = ArgAttribute
	case "list", "tuple", "set":
		arg.Kind = ArgAggregate
		if depth > 0 {
			for i, element := range parser.NamedChildren(node) {
				arg.Elements = append(arg.Elements, describe(unit, element, i, depth-1))
			}
		}
	case "dictionary":
		arg.Kind = ArgAggregate
		if depth > 0 {
			for i, entry := range parser.NamedChildren(node) {
				if entry.Kind() != "pair" {
					arg.Elements = append(arg.Elements, describe(unit, entry, i, 0))
					continue
				}
				element := describe(unit, entry.ChildByFieldName("value"), i, depth-1)
				key := entry.ChildByFieldName("key")
				if value, ok := unit.StringValue(key); ok {
					element.Keyword = value
				} else {
					element.Keyword = unit.Text(key)
				}
				arg.Elements = append(arg.Elements, element)
			}
		}
	}
	return arg
}
