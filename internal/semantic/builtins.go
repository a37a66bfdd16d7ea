package semantic

import (
	"github.com/AnriaW/minipar/internal/scope"
	"github.com/AnriaW/minipar/internal/types"
)

// Builtins lists the functions every program can call without defining them.
// The interpreter executes these natively.
var Builtins = []scope.Function{
	{Name: "print", Variadic: true, Builtin: true},
	{Name: "input", Variadic: true, Builtin: true},
	{Name: "sigmoid", Params: []scope.Param{{Name: "x", Type: types.TypeFloat}}, Builtin: true},
	{Name: "sigmoid_derivative", Params: []scope.Param{{Name: "x", Type: types.TypeFloat}}, Builtin: true},
	{Name: "relu", Params: []scope.Param{{Name: "x", Type: types.TypeFloat}}, Builtin: true},
	{Name: "activation", Params: []scope.Param{{Name: "x", Type: types.TypeFloat}}, Builtin: true},
	{Name: "quicksort", Params: []scope.Param{{Name: "list", Type: &types.List{Elem: types.TypeAny}}}, Builtin: true},
}

func registerBuiltins(t *scope.Table) {
	for i := range Builtins {
		fn := Builtins[i]
		_ = t.DeclareFunc(&fn)
	}
}
