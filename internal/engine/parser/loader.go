// # internal/engine/parser/loader.go
package parser

import (
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

var (
	pythonOnce sync.Once
	pythonLang *sitter.Language

	defaultPoolOnce sync.Once
	defaultPool     *ParserPool
)

// PythonLanguage returns the process-wide Python grammar.
func PythonLanguage() *sitter.Language {
	pythonOnce.Do(func() {
		pythonLang = sitter.NewLanguage(tree_sitter_python.Language())
	})
	return pythonLang
}

// DefaultPool returns the shared Python parser pool used by Parse.
func DefaultPool() *ParserPool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewParserPool(PythonLanguage())
	})
	return defaultPool
}
