// # internal/engine/parser/pool.go
package parser

import (
	"sync"
	"sync/atomic"
	"time"

	"apidrift/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParserPool recycles tree-sitter parsers bound to one grammar so that
// concurrent evaluation workers do not pay NewParser/Close per statement.
//
//	sp := pool.Get()
//	defer pool.Put(sp)
//	tree := sp.Parse(source, nil)
//
// Safe for concurrent use. Parse wraps that sequence and returns a Unit.
type ParserPool struct {
	lang *sitter.Language
	pool sync.Pool

	leases   map[*sitter.Parser]time.Time
	leasesMu sync.Mutex
	parsed   atomic.Int64
}

// NewParserPool creates a pool for the given language grammar.
func NewParserPool(lang *sitter.Language) *ParserPool {
	p := &ParserPool{
		lang:   lang,
		leases: make(map[*sitter.Parser]time.Time),
	}
	p.pool = sync.Pool{
		New: func() any {
			sp := sitter.NewParser()
			_ = sp.SetLanguage(lang)
			return sp
		},
	}
	return p
}

// Get retrieves a parser configured for the pool's language.
func (p *ParserPool) Get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	_ = sp.SetLanguage(p.lang)

	p.leasesMu.Lock()
	p.leases[sp] = time.Now()
	p.leasesMu.Unlock()

	return sp
}

// Put resets sp and returns it to the pool. sp must not be used afterwards.
func (p *ParserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}

	p.leasesMu.Lock()
	delete(p.leases, sp)
	p.leasesMu.Unlock()

	sp.Reset()
	p.pool.Put(sp)
}

// Parse builds a Unit for source with a leased parser. The returned Unit owns
// its tree and must be closed by the caller.
func (p *ParserPool) Parse(source []byte) (*Unit, error) {
	sp := p.Get()
	defer p.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParseError, "tree-sitter returned no tree")
	}
	p.parsed.Add(1)
	return &Unit{Source: source, tree: tree}, nil
}

// PoolStats is a point-in-time view of pool usage.
type PoolStats struct {
	Leased int
	Parsed int64
}

// Stats returns the number of leased parsers and total parses served.
func (p *ParserPool) Stats() PoolStats {
	p.leasesMu.Lock()
	defer p.leasesMu.Unlock()
	return PoolStats{Leased: len(p.leases), Parsed: p.parsed.Load()}
}
