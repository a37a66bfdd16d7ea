package semantic

import (
	"fmt"
	"strings"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/diag"
	"github.com/AnriaW/minipar/internal/lexer"
	"github.com/AnriaW/minipar/internal/types"
)

// checkExpr infers the type of expr, reporting any violation it finds. It
// always returns a type so callers can keep checking; after an error that
// type is Unknown, which is compatible with everything.
func (a *Analyzer) checkExpr(expr ast.Expr) types.Type {
	switch e := expr.(type) {
	case *ast.Ident:
		sym, err := a.chain.Lookup(e.Name)
		if err != nil {
			a.reportUndeclared(e)
			return types.TypeUnknown
		}
		return sym.Type
	case *ast.IntLit:
		return types.TypeInt
	case *ast.FloatLit:
		return types.TypeFloat
	case *ast.StringLit:
		return types.TypeString
	case *ast.BoolLit:
		return types.TypeBool
	case *ast.ListLit:
		return a.checkListLit(e)
	case *ast.BinaryExpr:
		return a.checkBinary(e)
	case *ast.UnaryExpr:
		return a.checkUnary(e)
	case *ast.CallExpr:
		return a.checkCall(e)
	case *ast.InputExpr:
		for _, arg := range e.Args {
			a.checkExpr(arg)
		}
		return types.TypeString
	default:
		return types.TypeUnknown
	}
}

// checkListLit types a list literal by its first element. Mixed or empty
// lists are List<any>.
func (a *Analyzer) checkListLit(e *ast.ListLit) types.Type {
	var elem types.Type
	for i, el := range e.Elems {
		t := a.checkExpr(el)
		switch {
		case i == 0:
			elem = t
		case !types.Equal(elem, t):
			elem = types.TypeAny
		}
	}
	if elem == nil || types.IsWildcard(elem) {
		elem = types.TypeAny
	}
	return &types.List{Elem: elem}
}

func (a *Analyzer) checkBinary(e *ast.BinaryExpr) types.Type {
	left := a.checkExpr(e.Left)
	right := a.checkExpr(e.Right)

	switch e.Op {
	case lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH:
		return a.checkArithmetic(e, left, right)
	case lexer.EQ, lexer.NOT_EQ:
		ok := types.IsWildcard(left) || types.IsWildcard(right) ||
			types.Equal(left, right) ||
			(types.IsNumeric(left) && types.IsNumeric(right))
		if !ok {
			a.mismatch(e, fmt.Sprintf("cannot compare %s with %s using '%s'", left, right, opName(e.Op)))
		}
		return types.TypeBool
	case lexer.LT, lexer.LE, lexer.GT, lexer.GE:
		// only numbers and strings are ordered
		ok := (isNumericish(left) && isNumericish(right)) ||
			(isStringish(left) && isStringish(right))
		if !ok {
			a.mismatch(e, fmt.Sprintf("cannot compare %s with %s using '%s'", left, right, opName(e.Op)))
		}
		return types.TypeBool
	case lexer.AND, lexer.OR:
		if !isBoolish(left) || !isBoolish(right) {
			a.mismatch(e, fmt.Sprintf("operator '%s' requires bool operands, found %s and %s", opName(e.Op), left, right))
		}
		return types.TypeBool
	default:
		return types.TypeUnknown
	}
}

// checkArithmetic applies the numeric rules: int op int is int, float on
// either side makes float. '+' also concatenates two strings.
func (a *Analyzer) checkArithmetic(e *ast.BinaryExpr, left, right types.Type) types.Type {
	if e.Op == lexer.PLUS && (types.Is(left, types.String) || types.Is(right, types.String)) {
		if isStringish(left) && isStringish(right) {
			return types.TypeString
		}
		a.mismatch(e, fmt.Sprintf("operator '+' cannot be applied to %s and %s", left, right))
		return types.TypeUnknown
	}

	if !isNumericish(left) || !isNumericish(right) {
		a.mismatch(e, fmt.Sprintf("operator '%s' cannot be applied to %s and %s", opName(e.Op), left, right))
		return types.TypeUnknown
	}

	switch {
	case types.IsWildcard(left) || types.IsWildcard(right):
		return types.TypeAny
	case types.Is(left, types.Float) || types.Is(right, types.Float):
		return types.TypeFloat
	default:
		return types.TypeInt
	}
}

func (a *Analyzer) checkUnary(e *ast.UnaryExpr) types.Type {
	operand := a.checkExpr(e.Operand)

	switch e.Op {
	case lexer.NOT:
		if !isBoolish(operand) {
			a.mismatch(e, fmt.Sprintf("operator 'not' requires a bool operand, found %s", operand))
		}
		return types.TypeBool
	case lexer.MINUS:
		if !isNumericish(operand) {
			a.mismatch(e, fmt.Sprintf("operator '-' cannot be applied to %s", operand))
			return types.TypeUnknown
		}
		return operand
	default:
		return types.TypeUnknown
	}
}

// checkCall resolves the callee in the function namespace and checks arity
// unless the function is variadic. Every argument is checked either way.
// The result is the wildcard type: return types are not inferred.
func (a *Analyzer) checkCall(e *ast.CallExpr) types.Type {
	for _, arg := range e.Args {
		a.checkExpr(arg)
	}

	fn, err := a.table.Func(e.Callee.Name)
	if err != nil {
		a.reportError(
			diag.CodeUnknownFunction,
			err.Error(),
			e.Callee.Span(),
			didYouMean(e.Callee.Name, a.table.FuncNames()),
		)
		return types.TypeAny
	}

	if !fn.Variadic && len(e.Args) != len(fn.Params) {
		a.reportError(
			diag.CodeArityMismatch,
			fmt.Sprintf("function '%s' expects %d argument(s), got %d", fn.Name, len(fn.Params), len(e.Args)),
			e.Span(),
			"",
		)
	}

	return types.TypeAny
}

func (a *Analyzer) mismatch(e ast.Expr, msg string) {
	a.reportError(diag.CodeTypeMismatch, msg, e.Span(), "")
}

func isBoolish(t types.Type) bool {
	return types.IsWildcard(t) || types.Is(t, types.Bool)
}

func isNumericish(t types.Type) bool {
	return types.IsWildcard(t) || types.IsNumeric(t)
}

func isStringish(t types.Type) bool {
	return types.IsWildcard(t) || types.Is(t, types.String)
}

func opName(op lexer.TokenType) string {
	return strings.ToLower(string(op))
}
