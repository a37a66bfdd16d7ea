package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes an indented outline of node to w, one node per line.
func Fprint(w io.Writer, node Node) error {
	p := &printer{w: w}
	p.print(node, 0)
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func (p *printer) print(node Node, depth int) {
	switch n := node.(type) {
	case *Program:
		p.line(depth, "Program")
		p.print(n.Body, depth+1)
	case *SeqBlock:
		p.line(depth, "SEQ")
		p.stmts(n.Stmts, depth+1)
	case *ParBlock:
		p.line(depth, "PAR")
		p.stmts(n.Stmts, depth+1)
	case *Block:
		p.line(depth, "Block")
		p.stmts(n.Stmts, depth+1)
	case *VarDecl:
		p.line(depth, "VarDecl %s %s", n.Type, n.Name.Name)
		if n.Value != nil {
			p.print(n.Value, depth+1)
		}
	case *ChannelDecl:
		if n.Role == RoleLocal {
			names := make([]string, len(n.Endpoints))
			for i, ep := range n.Endpoints {
				names[i] = ep.Name
			}
			p.line(depth, "ChannelDecl %s local %s", n.Name.Name, strings.Join(names, " "))
			return
		}
		p.line(depth, "ChannelDecl %s %s %s:%d", n.Name.Name, n.Role, n.Host, n.Port)
	case *AssignStmt:
		p.line(depth, "Assign %s", n.Name.Name)
		p.print(n.Value, depth+1)
	case *SendStmt:
		p.line(depth, "Send %s", n.Channel.Name)
		p.exprs(n.Args, depth+1)
	case *ReceiveStmt:
		p.line(depth, "Receive %s", n.Channel.Name)
		p.exprs(n.Targets, depth+1)
	case *IfStmt:
		p.line(depth, "If")
		p.print(n.Cond, depth+1)
		p.print(n.Then, depth+1)
		if n.Else != nil {
			p.line(depth, "Else")
			p.print(n.Else, depth+1)
		}
	case *WhileStmt:
		p.line(depth, "While")
		p.print(n.Cond, depth+1)
		p.print(n.Body, depth+1)
	case *ForStmt:
		p.line(depth, "For %s", n.Var.Name)
		p.print(n.Iter, depth+1)
		p.print(n.Body, depth+1)
	case *FuncDef:
		params := make([]string, len(n.Params))
		for i, prm := range n.Params {
			params[i] = prm.Name.Name
			if prm.Type != nil {
				params[i] = prm.Type.String() + " " + params[i]
			}
		}
		p.line(depth, "Def %s(%s)", n.Name.Name, strings.Join(params, ", "))
		p.print(n.Body, depth+1)
	case *ReturnStmt:
		p.line(depth, "Return")
		if n.Value != nil {
			p.print(n.Value, depth+1)
		}
	case *OutputStmt:
		p.line(depth, "Output")
		p.exprs(n.Args, depth+1)
	case *InputStmt:
		p.line(depth, "Input %s", n.Target.Name)
	case *ExprStmt:
		p.print(n.Expr, depth)
	case *Ident:
		p.line(depth, "Ident %s", n.Name)
	case *IntLit:
		p.line(depth, "Int %d", n.Value)
	case *FloatLit:
		p.line(depth, "Float %s", n.Text)
	case *StringLit:
		p.line(depth, "String %s", strconv.Quote(n.Value))
	case *BoolLit:
		p.line(depth, "Bool %t", n.Value)
	case *ListLit:
		p.line(depth, "List")
		p.exprs(n.Elems, depth+1)
	case *BinaryExpr:
		p.line(depth, "Binary %s", n.Op)
		p.print(n.Left, depth+1)
		p.print(n.Right, depth+1)
	case *UnaryExpr:
		p.line(depth, "Unary %s", n.Op)
		p.print(n.Operand, depth+1)
	case *CallExpr:
		p.line(depth, "Call %s", n.Callee.Name)
		p.exprs(n.Args, depth+1)
	case *InputExpr:
		p.line(depth, "InputExpr")
		p.exprs(n.Args, depth+1)
	default:
		p.line(depth, "%T", node)
	}
}

func (p *printer) stmts(stmts []Stmt, depth int) {
	for _, s := range stmts {
		p.print(s, depth)
	}
}

func (p *printer) exprs(exprs []Expr, depth int) {
	for _, e := range exprs {
		p.print(e, depth)
	}
}
