package interp

import (
	"strings"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/lexer"
)

func (e *executor) eval(expr ast.Expr) (Value, error) {
	switch x := expr.(type) {
	case *ast.Ident:
		sym, _, err := e.in.table.Lookup(e.scope, x.Name)
		if err != nil {
			return Nil, execError(x.Span().Line, err.Error())
		}
		v, _ := sym.Value.(Value)
		return v, nil
	case *ast.IntLit:
		return Int(x.Value), nil
	case *ast.FloatLit:
		return Float(x.Value), nil
	case *ast.StringLit:
		return String(x.Value), nil
	case *ast.BoolLit:
		return Bool(x.Value), nil
	case *ast.ListLit:
		elems := make([]Value, len(x.Elems))
		for i, el := range x.Elems {
			v, err := e.eval(el)
			if err != nil {
				return Nil, err
			}
			elems[i] = v
		}
		return List(elems), nil
	case *ast.BinaryExpr:
		return e.evalBinary(x)
	case *ast.UnaryExpr:
		return e.evalUnary(x)
	case *ast.CallExpr:
		return e.evalCall(x)
	case *ast.InputExpr:
		prompt, err := e.joinArgs(x.Args)
		if err != nil {
			return Nil, err
		}
		line, err := e.in.readLine(prompt)
		if err != nil {
			return Nil, withLine(err, x.Span().Line)
		}
		return String(line), nil
	default:
		return Nil, execErrorf(expr.Span().Line, "cannot evaluate %T", expr)
	}
}

func (e *executor) evalBinary(x *ast.BinaryExpr) (Value, error) {
	left, err := e.eval(x.Left)
	if err != nil {
		return Nil, err
	}

	// and/or short-circuit
	if x.Op == lexer.AND || x.Op == lexer.OR {
		if left.Kind() != KindBool {
			return Nil, operandError(x, left)
		}
		if (x.Op == lexer.AND) != left.AsBool() {
			return left, nil
		}
		right, err := e.eval(x.Right)
		if err != nil {
			return Nil, err
		}
		if right.Kind() != KindBool {
			return Nil, operandError(x, right)
		}
		return right, nil
	}

	right, err := e.eval(x.Right)
	if err != nil {
		return Nil, err
	}

	switch x.Op {
	case lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH:
		return arithmetic(x, left, right)
	case lexer.EQ:
		return Bool(Equal(left, right)), nil
	case lexer.NOT_EQ:
		return Bool(!Equal(left, right)), nil
	case lexer.LT, lexer.LE, lexer.GT, lexer.GE:
		cmp, ok := compare(left, right)
		if !ok {
			return Nil, execErrorf(x.Span().Line, "cannot compare %s with %s using '%s'", left.Kind(), right.Kind(), opText(x.Op))
		}
		switch x.Op {
		case lexer.LT:
			return Bool(cmp < 0), nil
		case lexer.LE:
			return Bool(cmp <= 0), nil
		case lexer.GT:
			return Bool(cmp > 0), nil
		default:
			return Bool(cmp >= 0), nil
		}
	default:
		return Nil, execErrorf(x.Span().Line, "unsupported operator '%s'", opText(x.Op))
	}
}

// arithmetic follows the static rules: int op int stays int (division
// truncates), a float on either side makes float, and '+' joins strings.
func arithmetic(x *ast.BinaryExpr, left, right Value) (Value, error) {
	line := x.Span().Line

	if x.Op == lexer.PLUS && left.Kind() == KindString && right.Kind() == KindString {
		return String(left.AsString() + right.AsString()), nil
	}
	if !left.IsNumeric() || !right.IsNumeric() {
		return Nil, execErrorf(line, "operator '%s' cannot be applied to %s and %s", opText(x.Op), left.Kind(), right.Kind())
	}

	if left.Kind() == KindInt && right.Kind() == KindInt {
		a, b := left.AsInt(), right.AsInt()
		switch x.Op {
		case lexer.PLUS:
			return Int(a + b), nil
		case lexer.MINUS:
			return Int(a - b), nil
		case lexer.ASTERISK:
			return Int(a * b), nil
		default:
			if b == 0 {
				return Nil, execError(line, "division by zero")
			}
			return Int(a / b), nil
		}
	}

	a, b := left.AsFloat(), right.AsFloat()
	switch x.Op {
	case lexer.PLUS:
		return Float(a + b), nil
	case lexer.MINUS:
		return Float(a - b), nil
	case lexer.ASTERISK:
		return Float(a * b), nil
	default:
		if b == 0 {
			return Nil, execError(line, "division by zero")
		}
		return Float(a / b), nil
	}
}

func (e *executor) evalUnary(x *ast.UnaryExpr) (Value, error) {
	v, err := e.eval(x.Operand)
	if err != nil {
		return Nil, err
	}

	switch {
	case x.Op == lexer.NOT && v.Kind() == KindBool:
		return Bool(!v.AsBool()), nil
	case x.Op == lexer.MINUS && v.Kind() == KindInt:
		return Int(-v.AsInt()), nil
	case x.Op == lexer.MINUS && v.Kind() == KindFloat:
		return Float(-v.AsFloat()), nil
	}
	return Nil, operandError(x, v)
}

// evalCall evaluates the arguments, then runs a builtin natively. A user
// function yields int 0 without running its body.
func (e *executor) evalCall(x *ast.CallExpr) (Value, error) {
	line := x.Span().Line

	fn, err := e.in.table.Func(x.Callee.Name)
	if err != nil {
		return Nil, execError(line, err.Error())
	}

	args := make([]Value, len(x.Args))
	for i, arg := range x.Args {
		if args[i], err = e.eval(arg); err != nil {
			return Nil, err
		}
	}

	if fn.Builtin {
		v, err := builtins[fn.Name](e.in, args)
		if err != nil {
			return Nil, withLine(err, line)
		}
		return v, nil
	}
	return Int(0), nil
}

func operandError(x ast.Expr, v Value) error {
	var op lexer.TokenType
	switch n := x.(type) {
	case *ast.BinaryExpr:
		op = n.Op
	case *ast.UnaryExpr:
		op = n.Op
	}
	return execErrorf(x.Span().Line, "operator '%s' cannot be applied to %s", opText(op), v.Kind())
}

func opText(op lexer.TokenType) string {
	return strings.ToLower(string(op))
}
