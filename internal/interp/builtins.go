package interp

import (
	"math"
	"slices"
	"strings"

	"github.com/AnriaW/minipar/internal/errors"
)

type builtinFunc func(in *Interpreter, args []Value) (Value, error)

// builtins are executed natively. Their names match the functions the
// semantic analyzer registers before checking a program.
var builtins = map[string]builtinFunc{
	"print":              builtinPrint,
	"input":              builtinInput,
	"sigmoid":            numeric1("sigmoid", sigmoid),
	"sigmoid_derivative": numeric1("sigmoid_derivative", func(x float64) float64 { return x * (1 - x) }),
	"relu":               numeric1("relu", func(x float64) float64 { return math.Max(0, x) }),
	"activation":         numeric1("activation", step),
	"quicksort":          builtinQuicksort,
}

func builtinPrint(in *Interpreter, args []Value) (Value, error) {
	if err := in.write(joinValues(args) + "\n"); err != nil {
		return Nil, err
	}
	return Nil, nil
}

func builtinInput(in *Interpreter, args []Value) (Value, error) {
	line, err := in.readLine(joinValues(args))
	if err != nil {
		return Nil, err
	}
	return String(line), nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func step(x float64) float64 {
	if x >= 0 {
		return 1
	}
	return 0
}

// numeric1 adapts a float function of one argument. Ints are widened.
func numeric1(name string, fn func(float64) float64) builtinFunc {
	return func(_ *Interpreter, args []Value) (Value, error) {
		if len(args) != 1 {
			return Nil, errors.Newf(errors.CodeExecution, "function '%s' expects 1 argument(s), got %d", name, len(args))
		}
		if !args[0].IsNumeric() {
			return Nil, errors.Newf(errors.CodeExecution, "function '%s' expects a number, got %s", name, args[0].Kind())
		}
		return Float(fn(args[0].AsFloat())), nil
	}
}

// builtinQuicksort returns a sorted copy of a list of numbers or of strings.
func builtinQuicksort(_ *Interpreter, args []Value) (Value, error) {
	if len(args) != 1 || args[0].Kind() != KindList {
		return Nil, errors.New(errors.CodeExecution, "function 'quicksort' expects one list")
	}

	sorted := slices.Clone(args[0].Elems())
	for _, v := range sorted {
		if _, ok := compare(v, sorted[0]); !ok {
			return Nil, errors.Newf(errors.CodeExecution, "quicksort cannot order %s with %s", v.Kind(), sorted[0].Kind())
		}
	}

	slices.SortStableFunc(sorted, func(a, b Value) int {
		c, _ := compare(a, b)
		return c
	})
	return List(sorted), nil
}

func joinValues(args []Value) string {
	parts := make([]string, len(args))
	for i, v := range args {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}
