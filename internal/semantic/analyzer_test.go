package semantic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/diag"
	"github.com/AnriaW/minipar/internal/parser"
	"github.com/AnriaW/minipar/internal/scope"
	"github.com/AnriaW/minipar/internal/semantic"
	"github.com/AnriaW/minipar/internal/types"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, _, err := parser.Parse("test.mp", src)
	require.NoError(t, err)
	return prog
}

func check(t *testing.T, src string) ([]diag.Diagnostic, *semantic.Analyzer) {
	t.Helper()
	a := semantic.New()
	return a.Check(mustParse(t, src)), a
}

func codes(ds []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, len(ds))
	for i, d := range ds {
		out[i] = d.Code
	}
	return out
}

func TestValidProgramHasNoErrors(t *testing.T) {
	ds, _ := check(t, `SEQ {
	int x = 2;
	int y = 3;
	int z = x + y;
	float f = z * 1.5;
	float g = 4;
	string s = "a" + "b";
	bool b = x < y and not (f == 2.0);
	List<int> xs = [1, 2, 3];
	if b { output(z); } else { output(s); }
	while x < 10 { x = x + 1; }
	for (v in xs) { print(v); }
	def area(float w, float h) { return w * h; }
	float r = area(2.0, 3.0);
	output(sigmoid(r), relu(-1.0), quicksort(xs));
}`)
	assert.Empty(t, ds)
}

func TestScenarioTypeMismatchKeepsDeclaredType(t *testing.T) {
	ds, a := check(t, `SEQ { string s = true + 1; }`)

	require.NotEmpty(t, ds)
	assert.Contains(t, codes(ds), diag.CodeTypeMismatch)

	tbl := a.Table()
	frames := tbl.Frames()
	require.Len(t, frames, 2, "global plus the SEQ frame")

	sym, ok := tbl.LookupLocal(frames[1], "s")
	require.True(t, ok)
	assert.True(t, types.Is(sym.Type, types.String), "declared type must survive, got %s", sym.Type)
}

func TestScenarioChannels(t *testing.T) {
	ds, a := check(t, `SEQ {
	c_channel chan1 = server "localhost" 8585;
	chan1.send: "hello";
	chan1.receive: reply;
	output(reply);
}`)
	assert.Empty(t, ds)
	assert.Equal(t, []string{"chan1"}, a.Channels())

	ds, _ = check(t, `SEQ {
	ghost.send: 1;
	ghost.receive: x;
}`)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeUndeclaredChannel, ds[0].Code)
	assert.Equal(t, "channel 'ghost' not declared", ds[0].Message)
}

func TestDuplicateDeclarationContinues(t *testing.T) {
	ds, _ := check(t, `SEQ {
	int x = 1;
	int x = 2;
	y = 3;
	bool b = 1 + "a";
}`)

	assert.Equal(t, []diag.Code{
		diag.CodeDuplicateDeclaration,
		diag.CodeUndeclaredName,
		diag.CodeTypeMismatch,
	}, codes(ds))

	dup := ds[0]
	assert.Equal(t, "variable 'x' already declared in this scope", dup.Message)
	require.Len(t, dup.LabeledSpans, 2)
	assert.Equal(t, 2, dup.LabeledSpans[1].Span.Line, "secondary span points at the first declaration")
}

func TestShadowingInNestedBlocksIsAllowed(t *testing.T) {
	ds, _ := check(t, `SEQ {
	int x = 1;
	SEQ { string x = "inner"; output(x); }
	PAR { x = 2; }
}`)
	assert.Empty(t, ds)
}

func TestAnalysisIsIdempotent(t *testing.T) {
	prog := mustParse(t, `SEQ {
	int x = "no";
	int x = 1;
	foo(1);
	missing.send: 1;
}`)

	a := semantic.New()
	first := a.Check(prog)
	second := a.Check(prog)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestUndeclaredNameSuggestion(t *testing.T) {
	ds, _ := check(t, `SEQ { int counter = 0; output(countr); }`)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeUndeclaredName, ds[0].Code)
	assert.Equal(t, "did you mean 'counter'?", ds[0].Help)
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []diag.Code
	}{
		{
			name: "call before definition",
			src:  `SEQ { f(1); def f(a) { return a; } }`,
		},
		{
			name: "arity mismatch",
			src:  `SEQ { def f(a, b) { return a; } f(1); }`,
			want: []diag.Code{diag.CodeArityMismatch},
		},
		{
			name: "variadic builtin skips arity",
			src:  `SEQ { print(1, 2, 3); print(); }`,
		},
		{
			name: "unknown function",
			src:  `SEQ { sigmoi(1.0); }`,
			want: []diag.Code{diag.CodeUnknownFunction},
		},
		{
			name: "duplicate function",
			src:  `SEQ { def f() { return; } def f() { return; } }`,
			want: []diag.Code{diag.CodeDuplicateFunction},
		},
		{
			name: "builtin cannot be redefined",
			src:  `SEQ { def relu(x) { return x; } }`,
			want: []diag.Code{diag.CodeDuplicateFunction},
		},
		{
			name: "return outside function",
			src:  `SEQ { return 1; }`,
			want: []diag.Code{diag.CodeReturnOutsideFunction},
		},
		{
			name: "return nested inside function",
			src:  `SEQ { def f(x) { if x > 0 { return 1; } return 0; } }`,
		},
		{
			name: "parameters are local",
			src:  `SEQ { def f(x) { return x; } output(x); }`,
			want: []diag.Code{diag.CodeUndeclaredName},
		},
		{
			name: "arguments are checked",
			src:  `SEQ { print(nope); }`,
			want: []diag.Code{diag.CodeUndeclaredName},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, _ := check(t, tt.src)
			if tt.want == nil {
				assert.Empty(t, ds)
				return
			}
			assert.Equal(t, tt.want, codes(ds))
		})
	}
}

func TestUnknownFunctionSuggestion(t *testing.T) {
	ds, _ := check(t, `SEQ { sigmoi(1.0); }`)
	require.Len(t, ds, 1)
	assert.Equal(t, "function 'sigmoi' not declared", ds[0].Message)
	assert.Equal(t, "did you mean 'sigmoid'?", ds[0].Help)
}

func TestTypeRules(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ok   bool
	}{
		{"int plus float widens", `SEQ { float f = 1 + 2.5; }`, true},
		{"int result into float", `SEQ { float f = 1 + 2; }`, true},
		{"float into int", `SEQ { int i = 1.5; }`, false},
		{"string concat", `SEQ { string s = "a" + "b"; }`, true},
		{"string minus", `SEQ { string s = "a" - "b"; }`, false},
		{"string plus int", `SEQ { string s = "a" + 1; }`, false},
		{"compare numerics", `SEQ { bool b = 1 < 2.5; }`, true},
		{"compare strings", `SEQ { bool b = "a" == "b"; }`, true},
		{"compare string and int", `SEQ { bool b = "a" == 1; }`, false},
		{"order strings", `SEQ { bool b = "a" < "b"; }`, true},
		{"order bools", `SEQ { bool b = true < false; }`, false},
		{"order lists", `SEQ { List<int> xs = [1]; bool b = xs >= xs; }`, false},
		{"equal bools", `SEQ { bool b = true == false; }`, true},
		{"and on ints", `SEQ { bool b = 1 and 2; }`, false},
		{"not on bool", `SEQ { bool b = not true; }`, true},
		{"negate string", `SEQ { string s = -"a"; }`, false},
		{"if condition must be bool", `SEQ { if 1 { output(1); } }`, false},
		{"while condition must be bool", `SEQ { while "x" { output(1); } }`, false},
		{"iterate over int", `SEQ { for (v in 3) { output(v); } }`, false},
		{"iterate over string", `SEQ { for (ch in "abc") { output(ch); } }`, true},
		{"call result is wildcard", `SEQ { def f() { return 1; } string s = f(); int i = f(); }`, true},
		{"list element types", `SEQ { List<int> xs = ["a"]; }`, false},
		{"mixed list is any", `SEQ { List<int> xs = [1, "a"]; }`, true},
		{"assign mismatch", `SEQ { int i = 0; i = "s"; }`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, _ := check(t, tt.src)
			if tt.ok {
				assert.Empty(t, ds)
				return
			}
			require.NotEmpty(t, ds)
			assert.Equal(t, diag.CodeTypeMismatch, ds[0].Code)
		})
	}
}

func TestUnknownOperandsDoNotCascade(t *testing.T) {
	ds, _ := check(t, `SEQ { int x = missing + 1 * 2; bool b = missing < 3; }`)
	assert.Equal(t, []diag.Code{diag.CodeUndeclaredName, diag.CodeUndeclaredName}, codes(ds))
}

func TestChannelDeclarations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []diag.Code
	}{
		{"descriptive", `SEQ { c_channel calc a b; calc.send: 1; }`, nil},
		{"duplicate", `SEQ { c_channel c a b; c_channel c = client "h" 80; }`, []diag.Code{diag.CodeDuplicateChannel}},
		{"port zero", `SEQ { c_channel c = client "h" 0; }`, []diag.Code{diag.CodeInvalidChannel}},
		{"port too large", `SEQ { c_channel c = server "h" 70000; }`, []diag.Code{diag.CodeInvalidChannel}},
		{"empty host", `SEQ { c_channel c = server "" 80; }`, []diag.Code{diag.CodeInvalidChannel}},
		{"declared in another PAR child", `PAR { c_channel c a b; c.send: 1; }`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, _ := check(t, tt.src)
			if tt.want == nil {
				assert.Empty(t, ds)
				return
			}
			assert.Equal(t, tt.want, codes(ds))
		})
	}
}

func TestReceiveTargets(t *testing.T) {
	ds, a := check(t, `SEQ {
	c_channel c a b;
	string known = "";
	c.receive: known, fresh;
	c.receive: 1 + 2;
	output(fresh);
}`)

	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeInvalidReceiveTarget, ds[0].Code)

	seq := a.Table().Frames()[1]
	sym, ok := a.Table().LookupLocal(seq, "fresh")
	require.True(t, ok, "receive target should be auto-declared")
	assert.True(t, types.IsWildcard(sym.Type))

	ds, _ = check(t, `SEQ {
	c_channel c a b;
	int count = 0;
	c.receive: count;
}`)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeTypeMismatch, ds[0].Code)
	assert.Equal(t, "cannot receive into 'count' of type int", ds[0].Message)
}

func TestInputStatement(t *testing.T) {
	ds, a := check(t, `SEQ { input name; output("hi " + name); }`)
	assert.Empty(t, ds)

	sym, ok := a.Table().LookupLocal(a.Table().Frames()[1], "name")
	require.True(t, ok)
	assert.True(t, types.Is(sym.Type, types.String))

	ds, _ = check(t, `SEQ { List<int> xs = []; input xs; }`)
	assert.Equal(t, []diag.Code{diag.CodeTypeMismatch}, codes(ds))

	for _, decl := range []string{"int n = 0;", "float n = 0.0;", "bool n = false;"} {
		ds, _ = check(t, "SEQ { "+decl+" input n; }")
		assert.Equal(t, []diag.Code{diag.CodeTypeMismatch}, codes(ds), decl)
	}

	ds, _ = check(t, `SEQ { string s = ""; input s; }`)
	assert.Empty(t, ds)
}

func TestFunctionScopeName(t *testing.T) {
	_, a := check(t, `SEQ { def f(a) { return a; } }`)

	var found bool
	for _, id := range a.Table().Frames() {
		if a.Table().Name(id) == scope.FuncScopePrefix+"f" {
			found = true
			_, ok := a.Table().LookupLocal(id, "a")
			assert.True(t, ok)
		}
	}
	assert.True(t, found)
}
