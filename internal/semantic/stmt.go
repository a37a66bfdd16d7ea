package semantic

import (
	"errors"
	"fmt"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/diag"
	"github.com/AnriaW/minipar/internal/scope"
	"github.com/AnriaW/minipar/internal/types"
)

func (a *Analyzer) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.SeqBlock:
		a.checkScoped("SEQ", s.Stmts)
	case *ast.ParBlock:
		a.checkScoped("PAR", s.Stmts)
	case *ast.Block:
		a.checkScoped("block", s.Stmts)
	case *ast.VarDecl:
		a.checkVarDecl(s)
	case *ast.ChannelDecl:
		a.checkChannelDecl(s)
	case *ast.AssignStmt:
		a.checkAssign(s)
	case *ast.SendStmt:
		a.checkChannelRef(s.Channel)
		for _, arg := range s.Args {
			a.checkExpr(arg)
		}
	case *ast.ReceiveStmt:
		a.checkReceive(s)
	case *ast.IfStmt:
		a.checkCondition("if", s.Cond)
		a.checkScoped("if", s.Then.Stmts)
		switch els := s.Else.(type) {
		case nil:
		case *ast.Block:
			a.checkScoped("else", els.Stmts)
		default:
			a.checkStmt(els)
		}
	case *ast.WhileStmt:
		a.checkCondition("while", s.Cond)
		a.checkScoped("while", s.Body.Stmts)
	case *ast.ForStmt:
		a.checkFor(s)
	case *ast.FuncDef:
		a.checkFuncDef(s)
	case *ast.ReturnStmt:
		if !a.chain.InFunction() {
			a.reportError(diag.CodeReturnOutsideFunction, "'return' outside of a function", s.Span(), "")
		}
		if s.Value != nil {
			a.checkExpr(s.Value)
		}
	case *ast.OutputStmt:
		for _, arg := range s.Args {
			a.checkExpr(arg)
		}
	case *ast.InputStmt:
		a.checkInput(s)
	case *ast.ExprStmt:
		a.checkExpr(s.Expr)
	}
}

func (a *Analyzer) checkScoped(name string, stmts []ast.Stmt) {
	a.chain.Enter(name)
	defer a.chain.Exit()

	for _, stmt := range stmts {
		a.checkStmt(stmt)
	}
}

// declare binds name in the current scope, reporting a same-scope duplicate
// against the earlier declaration.
func (a *Analyzer) declare(name *ast.Ident, typ types.Type) {
	prev, err := a.chain.Declare(name.Name, typ, nil, name.Span())
	if errors.Is(err, scope.ErrDuplicateDeclaration) {
		a.report(diag.CodeDuplicateDeclaration, err.Error(), name.Span(), "redeclared here", "", &prev.Span)
	}
}

// checkVarDecl checks the initializer before binding the name, so the
// initializer sees any outer binding of the same name. The declared type is
// always what gets recorded, even when the initializer does not match it.
func (a *Analyzer) checkVarDecl(s *ast.VarDecl) {
	declared := typeOf(s.Type)

	if s.Value != nil {
		valueType := a.checkExpr(s.Value)
		if !types.AssignableTo(valueType, declared) {
			a.report(
				diag.CodeTypeMismatch,
				fmt.Sprintf("cannot initialize '%s' of type %s with a value of type %s", s.Name.Name, declared, valueType),
				s.Value.Span(),
				"expected "+declared.String()+", found "+valueType.String(),
				"",
				nil,
			)
		}
	}

	a.declare(s.Name, declared)
}

func (a *Analyzer) checkAssign(s *ast.AssignStmt) {
	valueType := a.checkExpr(s.Value)

	sym, err := a.chain.Lookup(s.Name.Name)
	if err != nil {
		a.reportUndeclared(s.Name)
		return
	}

	if !types.AssignableTo(valueType, sym.Type) {
		a.report(
			diag.CodeTypeMismatch,
			fmt.Sprintf("cannot assign a value of type %s to '%s' of type %s", valueType, s.Name.Name, sym.Type),
			s.Value.Span(),
			"expected "+sym.Type.String()+", found "+valueType.String(),
			"",
			&sym.Span,
		)
	}
}

func (a *Analyzer) checkChannelDecl(s *ast.ChannelDecl) {
	name := s.Name.Name

	if prev, ok := a.channels[name]; ok {
		a.report(diag.CodeDuplicateChannel, fmt.Sprintf("channel '%s' already declared", name), s.Name.Span(), "redeclared here", "", &prev)
		return
	}
	a.channels[name] = s.Name.Span()

	if s.Role == ast.RoleLocal {
		return
	}

	if s.Host == "" {
		a.reportError(diag.CodeInvalidChannel, fmt.Sprintf("channel '%s' has an empty host", name), s.Span(), "")
	}
	if s.Port < 1 || s.Port > 65535 {
		a.reportError(
			diag.CodeInvalidChannel,
			fmt.Sprintf("invalid port %d for channel '%s'", s.Port, name),
			s.Span(),
			"ports range from 1 to 65535",
		)
	}
}

// checkChannelRef reports an undeclared channel once per name.
func (a *Analyzer) checkChannelRef(id *ast.Ident) {
	if _, ok := a.channels[id.Name]; ok {
		return
	}
	if a.missingChannels[id.Name] {
		return
	}
	a.missingChannels[id.Name] = true

	a.reportError(
		diag.CodeUndeclaredChannel,
		fmt.Sprintf("channel '%s' not declared", id.Name),
		id.Span(),
		didYouMean(id.Name, sortedKeys(a.channels)),
	)
}

// checkReceive requires plain variable targets. A target that is not yet
// visible is declared in the current scope with the wildcard type, which is
// how the interpreter binds it at run time. An existing target must hold text.
func (a *Analyzer) checkReceive(s *ast.ReceiveStmt) {
	a.checkChannelRef(s.Channel)

	for _, target := range s.Targets {
		id, ok := target.(*ast.Ident)
		if !ok {
			a.reportError(
				diag.CodeInvalidReceiveTarget,
				"receive target must be a variable name",
				target.Span(),
				"received values are bound to variables, e.g. `c.receive: x;`",
			)
			continue
		}

		sym, err := a.chain.Lookup(id.Name)
		if err != nil {
			a.declare(id, types.TypeAny)
			continue
		}
		if !isStringish(sym.Type) {
			a.report(
				diag.CodeTypeMismatch,
				fmt.Sprintf("cannot receive into '%s' of type %s", id.Name, sym.Type),
				id.Span(),
				"",
				"received messages are raw text; declare the target as string",
				&sym.Span,
			)
		}
	}
}

func (a *Analyzer) checkCondition(construct string, cond ast.Expr) {
	t := a.checkExpr(cond)
	if types.IsWildcard(t) || types.Is(t, types.Bool) {
		return
	}
	a.report(
		diag.CodeTypeMismatch,
		fmt.Sprintf("%s condition must be bool, found %s", construct, t),
		cond.Span(),
		"expected bool",
		"",
		nil,
	)
}

func (a *Analyzer) checkFor(s *ast.ForStmt) {
	iterType := a.checkExpr(s.Iter)

	_, isList := iterType.(*types.List)
	if !isList && !types.Is(iterType, types.String) && !types.IsWildcard(iterType) {
		a.report(
			diag.CodeTypeMismatch,
			fmt.Sprintf("cannot iterate over a value of type %s", iterType),
			s.Iter.Span(),
			"expected a list or a string",
			"",
			nil,
		)
	}

	a.chain.Enter("for")
	defer a.chain.Exit()

	a.declare(s.Var, types.TypeAny)
	for _, stmt := range s.Body.Stmts {
		a.checkStmt(stmt)
	}
}

// checkFuncDef checks a body inside its own "func_<name>" scope with the
// parameters bound as locals. The function itself was registered by
// collectFuncs.
func (a *Analyzer) checkFuncDef(s *ast.FuncDef) {
	a.chain.Enter(scope.FuncScopePrefix + s.Name.Name)
	defer a.chain.Exit()

	for _, p := range s.Params {
		a.declare(p.Name, typeOf(p.Type))
	}
	for _, stmt := range s.Body.Stmts {
		a.checkStmt(stmt)
	}
}

// checkInput auto-declares a missing target as string. An existing target
// must hold text: input is never converted to the declared type.
func (a *Analyzer) checkInput(s *ast.InputStmt) {
	sym, err := a.chain.Lookup(s.Target.Name)
	if err != nil {
		a.declare(s.Target, types.TypeString)
		return
	}
	if isStringish(sym.Type) {
		return
	}
	a.report(
		diag.CodeTypeMismatch,
		fmt.Sprintf("cannot read input into '%s' of type %s", s.Target.Name, sym.Type),
		s.Target.Span(),
		"",
		"input reads one line of text; declare the target as string",
		&sym.Span,
	)
}

func (a *Analyzer) reportUndeclared(id *ast.Ident) {
	a.reportError(
		diag.CodeUndeclaredName,
		(&scope.Error{Kind: scope.ErrUndeclaredName, Name: id.Name}).Error(),
		id.Span(),
		didYouMean(id.Name, a.table.Visible(a.chain.Current())),
	)
}

func typeOf(t ast.TypeExpr) types.Type {
	return types.FromAnnotation(t)
}
