package scope_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnriaW/minipar/internal/lexer"
	"github.com/AnriaW/minipar/internal/scope"
	"github.com/AnriaW/minipar/internal/types"
)

func TestDeclareAndLookup(t *testing.T) {
	tbl := scope.NewTable()
	c := scope.NewChain(tbl)

	_, err := c.Declare("x", types.TypeInt, int64(1), lexer.Span{Line: 1, Column: 5})
	require.NoError(t, err)

	sym, err := c.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, "x", sym.Name)
	assert.Equal(t, types.TypeInt, sym.Type)
	assert.Equal(t, int64(1), sym.Value)
	assert.Equal(t, 5, sym.Span.Column)
}

func TestDuplicateInSameScope(t *testing.T) {
	c := scope.NewChain(scope.NewTable())

	_, err := c.Declare("x", types.TypeInt, nil, lexer.Span{})
	require.NoError(t, err)

	_, err = c.Declare("x", types.TypeString, nil, lexer.Span{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, scope.ErrDuplicateDeclaration))
	assert.Equal(t, "variable 'x' already declared in this scope", err.Error())

	sym, err := c.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, types.TypeInt, sym.Type, "failed redeclaration must not replace the binding")
}

func TestShadowingAcrossScopes(t *testing.T) {
	c := scope.NewChain(scope.NewTable())

	_, err := c.Declare("x", types.TypeInt, int64(1), lexer.Span{})
	require.NoError(t, err)

	c.Enter("block")
	_, err = c.Declare("x", types.TypeString, "inner", lexer.Span{})
	require.NoError(t, err)

	sym, err := c.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, "inner", sym.Value)

	c.Exit()
	sym, err = c.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sym.Value)
}

func TestLookupFallsBackToParents(t *testing.T) {
	c := scope.NewChain(scope.NewTable())
	_, err := c.Declare("outer", types.TypeBool, true, lexer.Span{})
	require.NoError(t, err)

	c.Enter("a")
	c.Enter("b")
	assert.Equal(t, 3, c.Depth())

	sym, err := c.Lookup("outer")
	require.NoError(t, err)
	assert.Equal(t, true, sym.Value)

	_, err = c.Lookup("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, scope.ErrUndeclaredName))
	assert.Equal(t, "variable 'missing' not declared", err.Error())
}

func TestExitRootPanics(t *testing.T) {
	c := scope.NewChain(scope.NewTable())
	assert.Panics(t, func() { c.Exit() })
}

func TestReleaseReusesFrames(t *testing.T) {
	tbl := scope.NewTable()

	a := tbl.Enter(tbl.Root(), "a")
	_, err := tbl.Declare(a, "tmp", types.TypeInt, int64(1), lexer.Span{})
	require.NoError(t, err)
	tbl.Release(a)

	b := tbl.Enter(tbl.Root(), "b")
	assert.Equal(t, a, b, "released frame should be reused")
	_, ok := tbl.LookupLocal(b, "tmp")
	assert.False(t, ok, "reused frame must start empty")
	assert.Equal(t, "b", tbl.Name(b))

	assert.Panics(t, func() { tbl.Release(tbl.Root()) })
	assert.Panics(t, func() { tbl.Release(a + 100) })
}

func TestAssignUpdatesOwningFrame(t *testing.T) {
	tbl := scope.NewTable()
	_, err := tbl.Declare(tbl.Root(), "n", types.TypeInt, int64(0), lexer.Span{})
	require.NoError(t, err)

	child := tbl.Enter(tbl.Root(), "child")
	require.NoError(t, tbl.Assign(child, "n", int64(7)))

	sym, owner, err := tbl.Lookup(child, "n")
	require.NoError(t, err)
	assert.Equal(t, tbl.Root(), owner)
	assert.Equal(t, int64(7), sym.Value)

	err = tbl.Assign(child, "ghost", int64(1))
	assert.True(t, errors.Is(err, scope.ErrUndeclaredName))
}

func TestFunctionNamespace(t *testing.T) {
	tbl := scope.NewTable()

	require.NoError(t, tbl.DeclareFunc(&scope.Function{Name: "soma", Params: []scope.Param{{Name: "a"}, {Name: "b"}}}))

	err := tbl.DeclareFunc(&scope.Function{Name: "soma"})
	assert.True(t, errors.Is(err, scope.ErrDuplicateFunction))
	assert.Equal(t, "function 'soma' already declared", err.Error())

	fn, err := tbl.Func("soma")
	require.NoError(t, err)
	assert.Len(t, fn.Params, 2)

	_, err = tbl.Func("nope")
	assert.True(t, errors.Is(err, scope.ErrUnknownFunction))
	assert.Equal(t, []string{"soma"}, tbl.FuncNames())
}

func TestEnclosingFunction(t *testing.T) {
	c := scope.NewChain(scope.NewTable())
	assert.False(t, c.InFunction())

	c.Enter(scope.FuncScopePrefix + "area")
	c.Enter("if")
	assert.True(t, c.InFunction())

	name, ok := c.Table().EnclosingFunction(c.Current())
	assert.True(t, ok)
	assert.Equal(t, "area", name)
}

func TestVisibleInnermostFirst(t *testing.T) {
	c := scope.NewChain(scope.NewTable())
	_, _ = c.Declare("b", types.TypeInt, nil, lexer.Span{})
	_, _ = c.Declare("a", types.TypeInt, nil, lexer.Span{})
	c.Enter("inner")
	_, _ = c.Declare("z", types.TypeInt, nil, lexer.Span{})
	_, _ = c.Declare("a", types.TypeString, nil, lexer.Span{})

	assert.Equal(t, []string{"a", "z", "b"}, c.Table().Visible(c.Current()))
}

func TestConcurrentAccessFromSiblings(t *testing.T) {
	tbl := scope.NewTable()
	_, err := tbl.Declare(tbl.Root(), "counter", types.TypeInt, int64(0), lexer.Span{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			child := tbl.Enter(tbl.Root(), "par")
			_, _ = tbl.Declare(child, "local", types.TypeInt, int64(i), lexer.Span{})
			_ = tbl.Assign(child, "counter", int64(i))
			_, _, _ = tbl.Lookup(child, "counter")
			tbl.Release(child)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []scope.ID{tbl.Root()}, tbl.Frames())
}
