package parser

import (
	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/lexer"
)

var typeNames = map[lexer.TokenType]string{
	lexer.TYPE_INT:    "int",
	lexer.TYPE_FLOAT:  "float",
	lexer.TYPE_BOOL:   "bool",
	lexer.TYPE_STRING: "string",
}

// parseType parses a type annotation starting at curTok. Both spellings of a
// primitive (`int`, `Int`) normalise to the lowercase name.
func (p *Parser) parseType() ast.TypeExpr {
	start := p.curTok.Span

	if name, ok := typeNames[p.curTok.Type]; ok {
		return ast.NewNamedType(name, start)
	}

	if p.curTok.Type != lexer.TYPE_LIST {
		p.reportError("expected type, found "+describeToken(p.curTok), p.curTok.Span)
		return nil
	}

	if !p.expect(lexer.LT) {
		return nil
	}
	p.nextToken()

	elem := p.parseType()
	if elem == nil {
		return nil
	}

	if !p.expect(lexer.GT) {
		return nil
	}

	return ast.NewListType(elem, mergeSpan(start, p.curTok.Span))
}
