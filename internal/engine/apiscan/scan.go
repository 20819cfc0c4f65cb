package apiscan

import (
	"context"
	"os"
	"runtime"
	"sort"
	"sync"

	"apidrift/internal/core/errors"
	"apidrift/internal/engine/apidiff"
	"apidrift/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/errgroup"
)

// Options tunes ScanPackage.
type Options struct {
	// Excludes are glob patterns matched against relative paths and base
	// names. nil selects DefaultExcludes.
	Excludes []string
	// Version, when set, is stripped from versioned directory prefixes in
	// API names (see CleanName).
	Version string
	// Workers bounds concurrent file scans. Zero means GOMAXPROCS.
	Workers int
}

// ScanPackage discovers the sources under dir and returns the sorted,
// de-duplicated APIs they declare. Unparseable files are skipped.
func ScanPackage(ctx context.Context, dir string, opts Options) ([]apidiff.API, error) {
	excludes := opts.Excludes
	if excludes == nil {
		excludes = DefaultExcludes
	}
	sources, err := Discover(dir, excludes)
	if err != nil {
		return nil, err
	}
	exports := BuildExportMap(sources)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		mu  sync.Mutex
		all []apidiff.API
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(src.Path)
			if err != nil {
				return nil
			}
			apis, err := ScanSource(src.Module(), content, exports)
			if err != nil {
				return nil
			}
			mu.Lock()
			all = append(all, apis...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "scan package"), errors.CtxPath, dir)
	}

	if opts.Version != "" {
		for i := range all {
			all[i].Name = CleanName(all[i].Name, opts.Version)
		}
	}
	return Dedupe(all), nil
}

// Dedupe sorts apis by name then key and drops repeated identities.
func Dedupe(apis []apidiff.API) []apidiff.API {
	sort.SliceStable(apis, func(i, j int) bool {
		if apis[i].Name != apis[j].Name {
			return apis[i].Name < apis[j].Name
		}
		return apis[i].Key() < apis[j].Key()
	})
	out := apis[:0]
	seen := make(map[string]bool, len(apis))
	for _, api := range apis {
		if seen[api.Key()] {
			continue
		}
		seen[api.Key()] = true
		out = append(out, api)
	}
	return out
}

// ScanSource returns the module-level functions and class methods defined
// in src, each under its module path and every exported alias.
// Definitions nested inside functions are not part of the API. Sources
// with syntax errors are rejected.
func ScanSource(module string, src []byte, exports *ExportMap) ([]apidiff.API, error) {
	unit, err := parser.Parse(src)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, module)
	}
	defer unit.Close()
	if !unit.Clean() {
		return nil, errors.AddContext(errors.New(errors.CodeParseError, "source has syntax errors"), errors.CtxPath, module)
	}

	s := &sourceScanner{module: module, exports: exports}
	ctx := parser.NewExtractionContext(unit)
	engine := parser.NewExtractorEngine(map[string]parser.NodeHandler{
		"function_definition": s.extractFunction,
		"class_definition":    s.extractClass,
	})
	engine.Walk(ctx, unit.Root())
	return s.apis, nil
}

type sourceScanner struct {
	module  string
	exports *ExportMap
	apis    []apidiff.API
}

func (s *sourceScanner) extractFunction(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	s.record(ctx.Unit, node, joinDotted(s.module, ctx.Text(node.ChildByFieldName("name"))))
	return true
}

func (s *sourceScanner) extractClass(ctx *parser.ExtractionContext, node *sitter.Node) bool {
	class := joinDotted(s.module, ctx.Text(node.ChildByFieldName("name")))
	body := node.ChildByFieldName("body")
	for _, child := range parser.NamedChildren(body) {
		def := child
		if def.Kind() == "decorated_definition" {
			def = def.ChildByFieldName("definition")
		}
		if def == nil || def.Kind() != "function_definition" {
			continue
		}
		s.record(ctx.Unit, def, joinDotted(class, ctx.Text(def.ChildByFieldName("name"))))
	}
	return true
}

func (s *sourceScanner) record(unit *parser.Unit, fn *sitter.Node, fullName string) {
	params, optional := parameters(unit, fn.ChildByFieldName("parameters"))
	hasReturn := returnsValue(fn.ChildByFieldName("body"))
	for _, name := range s.exports.Expose(fullName) {
		s.apis = append(s.apis, apidiff.API{
			Name:      name,
			Params:    params,
			HasReturn: hasReturn,
			Optional:  optional,
		})
	}
}

// parameters lists declared parameter names in order. Variadic collectors
// keep their star prefix; optional lists the ones with defaults.
func parameters(unit *parser.Unit, node *sitter.Node) (params, optional []string) {
	params, optional = []string{}, []string{}
	for _, child := range parser.NamedChildren(node) {
		switch child.Kind() {
		case "identifier":
			params = append(params, unit.Text(child))
		case "typed_parameter":
			if name := paramName(unit, parser.FirstNamedChild(child)); name != "" {
				params = append(params, name)
			}
		case "default_parameter", "typed_default_parameter":
			name := unit.Text(child.ChildByFieldName("name"))
			params = append(params, name)
			optional = append(optional, name)
		case "list_splat_pattern", "dictionary_splat_pattern":
			if name := paramName(unit, child); name != "" {
				params = append(params, name)
			}
		}
	}
	return params, optional
}

func paramName(unit *parser.Unit, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "identifier":
		return unit.Text(node)
	case "list_splat_pattern":
		return "*" + unit.Text(parser.FirstNamedChild(node))
	case "dictionary_splat_pattern":
		return "**" + unit.Text(parser.FirstNamedChild(node))
	}
	return ""
}

// returnsValue reports a `return <expr>` anywhere in body.
func returnsValue(body *sitter.Node) bool {
	if body == nil {
		return false
	}
	if body.Kind() == "return_statement" && body.NamedChildCount() > 0 {
		return true
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		if returnsValue(body.Child(i)) {
			return true
		}
	}
	return false
}
