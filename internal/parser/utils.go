package parser

import (
	"github.com/AnriaW/minipar/internal/lexer"
)

// mergeSpan assumes start.End <= end.End and returns a span covering both.
// The parser relies on lexer spans being half-open; callers should pass the
// earliest start span first to preserve monotonic growth for AST nodes.
func mergeSpan(start, end lexer.Span) lexer.Span {
	span := start

	if span.Filename == "" {
		span.Filename = end.Filename
	}

	if end.End > span.End {
		span.End = end.End
	}

	return span
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekTok.Type]; ok {
		return prec
	}

	return precedenceLowest
}

func isComparison(tt lexer.TokenType) bool {
	switch tt {
	case lexer.EQ, lexer.NOT_EQ, lexer.LT, lexer.LE, lexer.GT, lexer.GE:
		return true
	default:
		return false
	}
}

// describeType names a token type for "expected ..." messages.
func describeType(tt lexer.TokenType) string {
	switch tt {
	case lexer.IDENT:
		return "identifier"
	case lexer.INT:
		return "integer literal"
	case lexer.FLOAT:
		return "float literal"
	case lexer.STRING:
		return "string literal"
	case lexer.EOF:
		return "end of input"
	default:
		if word, ok := keywordSpelling[tt]; ok {
			return "'" + word + "'"
		}
		return "'" + string(tt) + "'"
	}
}

// describeToken names a concrete token for "found ..." messages.
func describeToken(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.IDENT:
		return "identifier '" + tok.Literal + "'"
	default:
		return "'" + tok.Raw + "'"
	}
}

var keywordSpelling = map[lexer.TokenType]string{
	lexer.SEQ:       "SEQ",
	lexer.PAR:       "PAR",
	lexer.IF:        "if",
	lexer.ELSE:      "else",
	lexer.WHILE:     "while",
	lexer.FOR:       "for",
	lexer.IN:        "in",
	lexer.DEF:       "def",
	lexer.RETURN:    "return",
	lexer.INPUT:     "input",
	lexer.OUTPUT:    "output",
	lexer.SEND:      "send",
	lexer.RECEIVE:   "receive",
	lexer.TRUE:      "true",
	lexer.FALSE:     "false",
	lexer.AND:       "and",
	lexer.OR:        "or",
	lexer.NOT:       "not",
	lexer.C_CHANNEL: "c_channel",
}
