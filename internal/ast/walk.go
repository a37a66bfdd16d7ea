package ast

// Walk traverses the AST starting from node, calling fn for each node.
// If fn returns false, Walk stops traversing that branch.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *Program:
		Walk(n.Body, fn)

	case *SeqBlock:
		walkStmts(n.Stmts, fn)

	case *ParBlock:
		walkStmts(n.Stmts, fn)

	case *Block:
		walkStmts(n.Stmts, fn)

	case *VarDecl:
		Walk(n.Type, fn)
		Walk(n.Name, fn)
		if n.Value != nil {
			Walk(n.Value, fn)
		}

	case *ChannelDecl:
		Walk(n.Name, fn)
		for _, ep := range n.Endpoints {
			Walk(ep, fn)
		}

	case *AssignStmt:
		Walk(n.Name, fn)
		Walk(n.Value, fn)

	case *SendStmt:
		Walk(n.Channel, fn)
		walkExprs(n.Args, fn)

	case *ReceiveStmt:
		Walk(n.Channel, fn)
		walkExprs(n.Targets, fn)

	case *IfStmt:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		if n.Else != nil {
			Walk(n.Else, fn)
		}

	case *WhileStmt:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)

	case *ForStmt:
		Walk(n.Var, fn)
		Walk(n.Iter, fn)
		Walk(n.Body, fn)

	case *FuncDef:
		Walk(n.Name, fn)
		for _, p := range n.Params {
			Walk(p, fn)
		}
		Walk(n.Body, fn)

	case *Param:
		if n.Type != nil {
			Walk(n.Type, fn)
		}
		Walk(n.Name, fn)

	case *ReturnStmt:
		if n.Value != nil {
			Walk(n.Value, fn)
		}

	case *OutputStmt:
		walkExprs(n.Args, fn)

	case *InputStmt:
		Walk(n.Target, fn)

	case *ExprStmt:
		Walk(n.Expr, fn)

	case *ListLit:
		walkExprs(n.Elems, fn)

	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)

	case *UnaryExpr:
		Walk(n.Operand, fn)

	case *CallExpr:
		Walk(n.Callee, fn)
		walkExprs(n.Args, fn)

	case *InputExpr:
		walkExprs(n.Args, fn)

	case *ListType:
		Walk(n.Elem, fn)
	}
}

func walkStmts(stmts []Stmt, fn func(Node) bool) {
	for _, s := range stmts {
		Walk(s, fn)
	}
}

func walkExprs(exprs []Expr, fn func(Node) bool) {
	for _, e := range exprs {
		Walk(e, fn)
	}
}
