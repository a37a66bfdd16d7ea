package parser

import (
	"strconv"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/lexer"
)

func (p *Parser) parseExpr() ast.Expr {
	return p.parseExprPrecedence(precedenceLowest)
}

func (p *Parser) parseExprPrecedence(precedence int) ast.Expr {
	if p.failed() {
		return nil
	}

	prefix := p.prefixFns[p.curTok.Type]
	if prefix == nil {
		p.reportUnexpected(p.curTok, "in expression")
		return nil
	}

	left := prefix()
	if left == nil {
		return nil
	}

	for p.peekTok.Type != lexer.SEMICOLON && precedence < p.peekPrecedence() {
		infix := p.infixFns[p.peekTok.Type]
		if infix == nil {
			break
		}

		p.nextToken()

		left = infix(left)
		if left == nil {
			return nil
		}
	}

	return left
}

func (p *Parser) parseIdentifier() ast.Expr {
	return ast.NewIdent(p.curTok.Literal, p.spanWithFilename(p.curTok.Span))
}

func (p *Parser) parseIntegerLiteral() ast.Expr {
	value, err := strconv.ParseInt(p.curTok.Literal, 10, 64)
	if err != nil {
		p.reportError("integer literal "+p.curTok.Literal+" is out of range", p.curTok.Span)
		return nil
	}
	return ast.NewIntLit(value, p.curTok.Literal, p.spanWithFilename(p.curTok.Span))
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	value, err := strconv.ParseFloat(p.curTok.Literal, 64)
	if err != nil {
		p.reportError("invalid float literal "+p.curTok.Literal, p.curTok.Span)
		return nil
	}
	return ast.NewFloatLit(value, p.curTok.Literal, p.spanWithFilename(p.curTok.Span))
}

func (p *Parser) parseStringLiteral() ast.Expr {
	return ast.NewStringLit(p.curTok.Literal, p.spanWithFilename(p.curTok.Span))
}

func (p *Parser) parseBoolLiteral() ast.Expr {
	return ast.NewBoolLit(p.curTok.Type == lexer.TRUE, p.spanWithFilename(p.curTok.Span))
}

// parsePrefixExpr handles `-x` and `not x`. The operand binds at
// precedencePrefix, so `not a and b` is `(not a) and b`.
func (p *Parser) parsePrefixExpr() ast.Expr {
	operatorTok := p.curTok

	p.nextToken()

	right := p.parseExprPrecedence(precedencePrefix)
	if right == nil {
		return nil
	}

	span := p.spanWithFilename(mergeSpan(operatorTok.Span, right.Span()))
	return ast.NewUnaryExpr(operatorTok.Type, right, span)
}

// parseGroupedExpr parses "(expr)" without introducing a node for the
// parentheses.
func (p *Parser) parseGroupedExpr() ast.Expr {
	p.nextToken()

	expr := p.parseExpr()
	if expr == nil {
		return nil
	}

	if !p.expect(lexer.RPAREN) {
		return nil
	}

	return expr
}

func (p *Parser) parseListLiteral() ast.Expr {
	start := p.curTok.Span

	elems, ok := p.parseExprList(lexer.RBRACKET)
	if !ok {
		return nil
	}

	return ast.NewListLit(elems, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

// parseInputExpr parses `input(prompt...)` used as a value.
func (p *Parser) parseInputExpr() ast.Expr {
	start := p.curTok.Span

	if !p.expect(lexer.LPAREN) {
		return nil
	}

	args, ok := p.parseExprList(lexer.RPAREN)
	if !ok {
		return nil
	}

	return ast.NewInputExpr(args, p.spanWithFilename(mergeSpan(start, p.curTok.Span)))
}

// parseInfixExpr parses a binary operator whose left operand is already
// built. Comparisons are non-associative: `a < b < c` is rejected instead of
// being read as `(a < b) < c`.
func (p *Parser) parseInfixExpr(left ast.Expr) ast.Expr {
	operatorTok := p.curTok
	precedence := precedences[operatorTok.Type]

	p.nextToken()

	right := p.parseExprPrecedence(precedence)
	if right == nil {
		return nil
	}

	if isComparison(operatorTok.Type) && isComparison(p.peekTok.Type) {
		p.reportErrorWithHelp(
			"comparison operators cannot be chained",
			p.peekTok.Span,
			"combine the comparisons with 'and', e.g. `a < b and b < c`",
		)
		return nil
	}

	span := p.spanWithFilename(mergeSpan(left.Span(), right.Span()))
	return ast.NewBinaryExpr(operatorTok.Type, left, right, span)
}

// parseCallExpr parses `name(args)`. Only plain identifiers are callable.
func (p *Parser) parseCallExpr(left ast.Expr) ast.Expr {
	callee, ok := left.(*ast.Ident)
	if !ok {
		p.reportError("only named functions can be called", p.curTok.Span)
		return nil
	}

	args, ok := p.parseExprList(lexer.RPAREN)
	if !ok {
		return nil
	}

	return ast.NewCallExpr(callee, args, p.spanWithFilename(mergeSpan(callee.Span(), p.curTok.Span)))
}

// parseExprList parses a comma-separated list. curTok is the opening
// delimiter on entry and the closing one on return.
func (p *Parser) parseExprList(closing lexer.TokenType) ([]ast.Expr, bool) {
	list := make([]ast.Expr, 0)

	if p.peekTok.Type == closing {
		p.nextToken()
		return list, true
	}

	p.nextToken()

	expr := p.parseExpr()
	if expr == nil {
		return nil, false
	}
	list = append(list, expr)

	for p.peekTok.Type == lexer.COMMA {
		p.nextToken()
		p.nextToken()

		expr := p.parseExpr()
		if expr == nil {
			return nil, false
		}
		list = append(list, expr)
	}

	if !p.expect(closing) {
		return nil, false
	}

	return list, true
}
