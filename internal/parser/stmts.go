package parser

import (
	"errors"
	"strconv"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/diag"
	"github.com/AnriaW/minipar/internal/lexer"
	"github.com/AnriaW/minipar/internal/scope"
	"github.com/AnriaW/minipar/internal/types"
)

func (p *Parser) parseStmt() ast.Stmt {
	switch p.curTok.Type {
	case lexer.SEQ, lexer.PAR:
		return p.parseBlockStmt()
	case lexer.C_CHANNEL:
		return p.parseChannelDecl()
	case lexer.IDENT:
		return p.parseIdentStmt()
	case lexer.IF:
		return p.parseIfStmt()
	case lexer.WHILE:
		return p.parseWhileStmt()
	case lexer.FOR:
		return p.parseForStmt()
	case lexer.DEF:
		return p.parseFuncDef()
	case lexer.RETURN:
		return p.parseReturnStmt()
	case lexer.OUTPUT:
		return p.parseOutputStmt()
	case lexer.INPUT:
		return p.parseInputStmt()
	default:
		if lexer.IsTypeKeyword(p.curTok.Type) {
			return p.parseVarDecl()
		}
		p.reportUnexpected(p.curTok, "at start of statement")
		return nil
	}
}

// parseBlockStmt parses `SEQ { ... }` or `PAR { ... }`.
func (p *Parser) parseBlockStmt() ast.Stmt {
	kw := p.curTok

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	p.scopes.Enter(string(kw.Type))
	stmts, ok := p.parseStmtList()
	if !ok {
		return nil
	}
	p.scopes.Exit()

	span := p.spanWithFilename(mergeSpan(kw.Span, p.curTok.Span))
	if kw.Type == lexer.PAR {
		return ast.NewParBlock(stmts, span)
	}
	return ast.NewSeqBlock(stmts, span)
}

// parseStmtList parses statements after an opening '{' up to and including
// the matching '}'.
func (p *Parser) parseStmtList() ([]ast.Stmt, bool) {
	stmts := make([]ast.Stmt, 0)

	p.nextToken()

	for p.curTok.Type != lexer.RBRACE {
		if p.curTok.Type == lexer.EOF {
			p.reportErrorWithHelp("expected '}' to close block, found end of input", p.curTok.Span, "add the missing '}'")
			return nil, false
		}

		stmt := p.parseStmt()
		if stmt == nil || p.failed() {
			return nil, false
		}
		stmts = append(stmts, stmt)

		p.nextToken()
	}

	return stmts, true
}

// parseBody parses a braced body for a nested construct in its own scope.
// curTok is the '{' on entry.
func (p *Parser) parseBody(scopeName string, declare func()) *ast.Block {
	start := p.curTok.Span

	p.scopes.Enter(scopeName)
	if declare != nil {
		declare()
	}

	stmts, ok := p.parseStmtList()
	if !ok {
		return nil
	}
	p.scopes.Exit()

	return ast.NewBlock(stmts, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

// declareAdvisory records name in the current parse scope and warns on a
// same-scope redeclaration.
func (p *Parser) declareAdvisory(name *ast.Ident, typ types.Type) {
	_, err := p.scopes.Declare(name.Name, typ, nil, name.Span())
	if errors.Is(err, scope.ErrDuplicateDeclaration) {
		p.reportWarning(err.Error(), diag.CodeDuplicateDeclaration, name.Span())
	}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	start := p.curTok.Span

	typ := p.parseType()
	if typ == nil {
		return nil
	}

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Literal, p.spanWithFilename(p.curTok.Span))

	var value ast.Expr
	if p.peekTok.Type == lexer.ASSIGN {
		p.nextToken()
		p.nextToken()

		value = p.parseExpr()
		if value == nil {
			return nil
		}
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	p.declareAdvisory(name, types.FromAnnotation(typ))

	return ast.NewVarDecl(typ, name, value, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

// parseChannelDecl parses both channel forms:
//
//	c_channel name = server "host" port;
//	c_channel name endpointA endpointB;
func (p *Parser) parseChannelDecl() ast.Stmt {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Literal, p.spanWithFilename(p.curTok.Span))

	if p.peekTok.Type != lexer.ASSIGN {
		endpoints := make([]*ast.Ident, 0, 2)
		for i := 0; i < 2; i++ {
			if !p.expect(lexer.IDENT) {
				return nil
			}
			endpoints = append(endpoints, ast.NewIdent(p.curTok.Literal, p.spanWithFilename(p.curTok.Span)))
		}
		if !p.expect(lexer.SEMICOLON) {
			return nil
		}
		return ast.NewLocalChannelDecl(name, endpoints, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
	}

	p.nextToken() // '='

	if !p.expect(lexer.IDENT) {
		return nil
	}
	role, ok := ast.ParseChannelRole(p.curTok.Literal)
	if !ok {
		p.reportErrorWithHelp(
			"unknown channel role '"+p.curTok.Literal+"'",
			p.curTok.Span,
			"a channel role is either 'server' or 'client'",
		)
		return nil
	}

	if !p.expect(lexer.STRING) {
		return nil
	}
	host := p.curTok.Literal

	if !p.expect(lexer.INT) {
		return nil
	}
	port, err := strconv.Atoi(p.curTok.Literal)
	if err != nil {
		p.reportError("port "+p.curTok.Literal+" is out of range", p.curTok.Span)
		return nil
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	return ast.NewChannelDecl(name, role, host, port, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

// parseIdentStmt disambiguates a statement that starts with an identifier by
// the token that follows it: '=' assignment, '.' channel operation, '('
// function call.
func (p *Parser) parseIdentStmt() ast.Stmt {
	switch p.peekTok.Type {
	case lexer.ASSIGN:
		return p.parseAssignStmt()
	case lexer.DOT:
		return p.parseChannelOp()
	case lexer.LPAREN:
		return p.parseCallStmt()
	default:
		p.reportErrorWithHelp(
			"unexpected "+describeToken(p.peekTok)+" after identifier '"+p.curTok.Literal+"'",
			p.peekTok.Span,
			"expected '=', '.' or '(' after a name at the start of a statement",
		)
		return nil
	}
}

func (p *Parser) parseAssignStmt() ast.Stmt {
	start := p.curTok.Span
	name := ast.NewIdent(p.curTok.Literal, p.spanWithFilename(p.curTok.Span))

	p.nextToken() // '='
	p.nextToken()

	value := p.parseExpr()
	if value == nil {
		return nil
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	return ast.NewAssignStmt(name, value, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

// parseChannelOp parses `c.send: a, b;`, `c.receive: x;` and the call forms
// `c.send(a, b);` / `c.receive(x);`.
func (p *Parser) parseChannelOp() ast.Stmt {
	start := p.curTok.Span
	channel := ast.NewIdent(p.curTok.Literal, p.spanWithFilename(p.curTok.Span))

	p.nextToken() // '.'
	p.nextToken()

	op := p.curTok.Type
	if op != lexer.SEND && op != lexer.RECEIVE {
		p.reportErrorWithHelp(
			"expected 'send' or 'receive' after '.', found "+describeToken(p.curTok),
			p.curTok.Span,
			"channels only support send and receive",
		)
		return nil
	}

	var args []ast.Expr
	switch p.peekTok.Type {
	case lexer.COLON:
		p.nextToken()
		p.nextToken()

		first := p.parseExpr()
		if first == nil {
			return nil
		}
		args = append(args, first)

		for p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			p.nextToken()

			arg := p.parseExpr()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
		}
	case lexer.LPAREN:
		p.nextToken()

		list, ok := p.parseExprList(lexer.RPAREN)
		if !ok {
			return nil
		}
		args = list
	default:
		p.reportError("expected ':' or '(' after '"+keywordSpelling[op]+"', found "+describeToken(p.peekTok), p.peekTok.Span)
		return nil
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	span := p.spanWithFilename(mergeSpan(start, p.curTok.Span))
	if op == lexer.SEND {
		return ast.NewSendStmt(channel, args, span)
	}
	return ast.NewReceiveStmt(channel, args, span)
}

func (p *Parser) parseCallStmt() ast.Stmt {
	start := p.curTok.Span

	expr := p.parseExpr()
	if expr == nil {
		return nil
	}

	if _, ok := expr.(*ast.CallExpr); !ok {
		p.reportError("expected a function call statement", start)
		return nil
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	return ast.NewExprStmt(expr, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

func (p *Parser) parseIfStmt() ast.Stmt {
	start := p.curTok.Span

	p.nextToken()

	cond := p.parseExpr()
	if cond == nil {
		return nil
	}

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	then := p.parseBody("if", nil)
	if then == nil {
		return nil
	}

	var els ast.Stmt
	if p.peekTok.Type == lexer.ELSE {
		p.nextToken()

		if p.peekTok.Type == lexer.IF {
			p.nextToken()
			els = p.parseIfStmt()
		} else {
			if !p.expect(lexer.LBRACE) {
				return nil
			}
			if body := p.parseBody("else", nil); body != nil {
				els = body
			}
		}

		if els == nil {
			return nil
		}
	}

	return ast.NewIfStmt(cond, then, els, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	start := p.curTok.Span

	p.nextToken()

	cond := p.parseExpr()
	if cond == nil {
		return nil
	}

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	body := p.parseBody("while", nil)
	if body == nil {
		return nil
	}

	return ast.NewWhileStmt(cond, body, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

// parseForStmt parses `for (x in expr) { ... }`.
func (p *Parser) parseForStmt() ast.Stmt {
	start := p.curTok.Span

	if !p.expect(lexer.LPAREN) || !p.expect(lexer.IDENT) {
		return nil
	}
	v := ast.NewIdent(p.curTok.Literal, p.spanWithFilename(p.curTok.Span))

	if !p.expect(lexer.IN) {
		return nil
	}
	p.nextToken()

	iter := p.parseExpr()
	if iter == nil {
		return nil
	}

	if !p.expect(lexer.RPAREN) || !p.expect(lexer.LBRACE) {
		return nil
	}

	body := p.parseBody("for", func() { p.declareAdvisory(v, types.TypeAny) })
	if body == nil {
		return nil
	}

	return ast.NewForStmt(v, iter, body, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

// parseFuncDef parses `def name([type] a, ...) { ... }`.
func (p *Parser) parseFuncDef() ast.Stmt {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Literal, p.spanWithFilename(p.curTok.Span))

	if !p.expect(lexer.LPAREN) {
		return nil
	}

	params, ok := p.parseParams()
	if !ok {
		return nil
	}

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	body := p.parseBody(scope.FuncScopePrefix+name.Name, func() {
		for _, param := range params {
			p.declareAdvisory(param.Name, types.FromAnnotation(param.Type))
		}
	})
	if body == nil {
		return nil
	}

	return ast.NewFuncDef(name, params, body, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

// parseParams parses a parameter list; curTok is '(' on entry and ')' on
// return.
func (p *Parser) parseParams() ([]*ast.Param, bool) {
	params := make([]*ast.Param, 0)

	if p.peekTok.Type == lexer.RPAREN {
		p.nextToken()
		return params, true
	}

	for {
		p.nextToken()
		start := p.curTok.Span

		var typ ast.TypeExpr
		if lexer.IsTypeKeyword(p.curTok.Type) {
			typ = p.parseType()
			if typ == nil {
				return nil, false
			}
			if !p.expect(lexer.IDENT) {
				return nil, false
			}
		} else if p.curTok.Type != lexer.IDENT {
			p.reportError("expected parameter name, found "+describeToken(p.curTok), p.curTok.Span)
			return nil, false
		}

		name := ast.NewIdent(p.curTok.Literal, p.spanWithFilename(p.curTok.Span))
		params = append(params, ast.NewParam(typ, name, p.spanWithFilename(mergeSpan(start, p.curTok.Span))))

		if p.peekTok.Type != lexer.COMMA {
			break
		}
		p.nextToken()
	}

	if !p.expect(lexer.RPAREN) {
		return nil, false
	}

	return params, true
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	start := p.curTok.Span

	var value ast.Expr
	if p.peekTok.Type != lexer.SEMICOLON {
		p.nextToken()

		value = p.parseExpr()
		if value == nil {
			return nil
		}
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	return ast.NewReturnStmt(value, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

func (p *Parser) parseOutputStmt() ast.Stmt {
	start := p.curTok.Span

	if !p.expect(lexer.LPAREN) {
		return nil
	}

	args, ok := p.parseExprList(lexer.RPAREN)
	if !ok {
		return nil
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	return ast.NewOutputStmt(args, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

// parseInputStmt parses `input name;` or `input(prompt...);`.
func (p *Parser) parseInputStmt() ast.Stmt {
	start := p.curTok.Span

	if p.peekTok.Type == lexer.IDENT {
		p.nextToken()
		target := ast.NewIdent(p.curTok.Literal, p.spanWithFilename(p.curTok.Span))

		if !p.expect(lexer.SEMICOLON) {
			return nil
		}

		if _, err := p.scopes.Lookup(target.Name); err != nil {
			p.declareAdvisory(target, types.TypeString)
		}

		return ast.NewInputStmt(target, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
	}

	expr := p.parseInputExpr()
	if expr == nil {
		return nil
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	return ast.NewExprStmt(expr, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}
