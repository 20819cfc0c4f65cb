package callsite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOutermost(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		kind Kind
		call string
		text string
	}{
		{"assignment", "result = np.array([1, 2], dtype=float)", Parsed, "np.array", "np.array([1, 2], dtype=float)"},
		{"return", "return foo.bar(x)", Parsed, "foo.bar", "foo.bar(x)"},
		{"augmented", "total += compute(a)", Parsed, "compute", "compute(a)"},
		{"nested keeps outer", "print(len(x))", Parsed, "print", "print(len(x))"},
		{"call on call", "make()(1)", Parsed, "unknown", "make()(1)"},
		{"chain on call result", "obj.method().chain(1)", Parsed, "expression.chain", "obj.method().chain(1)"},
		{"spaced attribute", "self . model . fit (x)", Parsed, "self.model.fit", "self . model . fit (x)"},
		{"call inside condition", "if check(x): pass", Parsed, "check", "check(x)"},
		{"no call", "x = 1", NoCall, "", ""},
		{"empty", "", Empty, "", ""},
		{"blank", "   \n", Empty, "", ""},
		{"truncated", "x = foo(1,", LexicalGuess, "foo", "x = foo(1,"},
		{"open block", "with open(path) as fh:", LexicalGuess, "open", "with open(path) as fh:"},
		{"loop header", "for x in range(3):", LexicalGuess, "range", "for x in range(3):"},
		{"if header", "if check(x):", LexicalGuess, "check", "if check(x):"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractOutermost(tc.stmt)
			defer got.Close()

			assert.Equal(t, tc.kind, got.Kind, "kind")
			assert.Equal(t, tc.call, got.Call.Name, "callee")
			assert.Equal(t, tc.text, got.Call.Text, "text")
			assert.Equal(t, tc.kind == Parsed, got.Call.Node != nil, "node presence")
		})
	}
}

func TestFirstCallName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"x = a.b . c (1)", "a.b.c", true},
		{"  foo(", "foo", true},
		{"1 + bar (2)", "bar", true},
		{"value = x.y", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			got, ok := FirstCallName(tc.text)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("FirstCallName(%q) = %q, %v; want %q, %v", tc.text, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestHasCall(t *testing.T) {
	assert.True(t, HasCall("y = f(x)"))
	assert.True(t, HasCall("foo(1,"))
	assert.False(t, HasCall("x = 1"))
	assert.False(t, HasCall(""))
	assert.False(t, HasCall("a = [1, 2"))
	assert.True(t, HasCall("with open(path) as fh:"))
	assert.False(t, HasCall("for x in items:"))
}

func TestAnalyzeArguments(t *testing.T) {
	ex := ExtractOutermost(`plt.plot(x, y, 'r--', *extra, label="data", lw=2.5, visible=True, color=None, **style)`)
	defer ex.Close()
	require.Equal(t, Parsed, ex.Kind)

	args := AnalyzeArguments(ex.Call)
	require.Len(t, args.Positional, 4)
	require.Len(t, args.Keyword, 5)
	assert.Equal(t, 9, args.Count())

	assert.Equal(t, ArgIdentifier, args.Positional[0].Kind)
	assert.Equal(t, "x", args.Positional[0].Value)
	assert.Equal(t, ArgString, args.Positional[2].Kind)
	assert.Equal(t, "r--", args.Positional[2].Value)
	assert.True(t, args.Positional[3].Splat)

	byName := map[string]Argument{}
	for _, kw := range args.Keyword {
		byName[kw.Keyword] = kw
	}
	assert.Equal(t, ArgString, byName["label"].Kind)
	assert.Equal(t, "data", byName["label"].Value)
	assert.Equal(t, ArgNumber, byName["lw"].Kind)
	assert.Equal(t, "2.5", byName["lw"].Value)
	assert.Equal(t, ArgBoolean, byName["visible"].Kind)
	assert.Equal(t, ArgNone, byName["color"].Kind)
	assert.True(t, byName[""].Splat)

	assert.Equal(t, []string{"color", "label", "lw", "visible"}, args.KeywordNames())
	assert.False(t, args.PositionalAfterKeyword())
}

func TestAnalyzeArguments_Aggregates(t *testing.T) {
	ex := ExtractOutermost(`f([1, 'a', g(x)], {'k': v, **extra}, cfg.opts)`)
	defer ex.Close()
	require.Equal(t, Parsed, ex.Kind)

	args := AnalyzeArguments(ex.Call)
	require.Len(t, args.Positional, 3)

	list := args.Positional[0]
	assert.Equal(t, ArgAggregate, list.Kind)
	require.Len(t, list.Elements, 3)
	assert.Equal(t, []ArgKind{ArgNumber, ArgString, ArgExpression},
		[]ArgKind{list.Elements[0].Kind, list.Elements[1].Kind, list.Elements[2].Kind})

	dict := args.Positional[1]
	assert.Equal(t, ArgAggregate, dict.Kind)
	require.Len(t, dict.Elements, 2)
	assert.Equal(t, "k", dict.Elements[0].Keyword)
	assert.Equal(t, ArgIdentifier, dict.Elements[0].Kind)
	assert.Equal(t, ArgExpression, dict.Elements[1].Kind)

	assert.Equal(t, ArgAttribute, args.Positional[2].Kind)
	assert.Equal(t, "cfg.opts", args.Positional[2].Value)
}

func TestAnalyzeArguments_TupleAndSet(t *testing.T) {
	ex := ExtractOutermost(`f((1, name), {2, 3.5}, (x))`)
	defer ex.Close()
	require.Equal(t, Parsed, ex.Kind)

	args := AnalyzeArguments(ex.Call)
	require.Len(t, args.Positional, 3)

	tuple := args.Positional[0]
	assert.Equal(t, ArgAggregate, tuple.Kind)
	require.Len(t, tuple.Elements, 2)
	assert.Equal(t, ArgNumber, tuple.Elements[0].Kind)
	assert.Equal(t, ArgIdentifier, tuple.Elements[1].Kind)

	set := args.Positional[1]
	assert.Equal(t, ArgAggregate, set.Kind)
	require.Len(t, set.Elements, 2)
	assert.Equal(t, ArgNumber, set.Elements[1].Kind)

	assert.Equal(t, ArgExpression, args.Positional[2].Kind)
}

func TestAnalyzeArguments_Shapes(t *testing.T) {
	cases := []struct {
		stmt            string
		count           int
		positionalAfter bool
	}{
		{"f(a=1, b)", 2, true},
		{"f(a=1, *rest)", 2, false},
		{"f()", 0, false},
		{"sum(x for x in xs)", 1, false},
	}
	for _, tc := range cases {
		ex := ExtractOutermost(tc.stmt)
		args := AnalyzeArguments(ex.Call)
		assert.Equal(t, tc.count, args.Count(), tc.stmt)
		assert.Equal(t, tc.positionalAfter, args.PositionalAfterKeyword(), tc.stmt)
		ex.Close()
	}
}

func TestAnalyzeArguments_LexicalGuessIsEmpty(t *testing.T) {
	ex := ExtractOutermost("x = foo(1, 2")
	defer ex.Close()
	require.Equal(t, LexicalGuess, ex.Kind)
	assert.Zero(t, AnalyzeArguments(ex.Call).Count())
}
