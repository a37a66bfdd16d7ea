package parser

import (
	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/lexer"
	"github.com/AnriaW/minipar/internal/scope"
)

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

type Option func(*options)

type options struct {
	filename string
}

// WithFilename configures the parser to attribute all emitted spans to the provided filename.
func WithFilename(name string) Option {
	return func(o *options) {
		o.filename = name
	}
}

const (
	precedenceLowest = iota
	precedenceOr
	precedenceAnd
	precedenceComparison
	precedenceSum
	precedenceProduct
	precedencePrefix
	precedencePostfix
)

var precedences = map[lexer.TokenType]int{
	lexer.OR:       precedenceOr,
	lexer.AND:      precedenceAnd,
	lexer.EQ:       precedenceComparison,
	lexer.NOT_EQ:   precedenceComparison,
	lexer.LT:       precedenceComparison,
	lexer.LE:       precedenceComparison,
	lexer.GT:       precedenceComparison,
	lexer.GE:       precedenceComparison,
	lexer.PLUS:     precedenceSum,
	lexer.MINUS:    precedenceSum,
	lexer.ASTERISK: precedenceProduct,
	lexer.SLASH:    precedenceProduct,
	lexer.LPAREN:   precedencePostfix,
}

// Parser is a Pratt-style recursive descent parser for MiniPar.
//
//   - Lookahead: curTok is the token under examination and peekTok the next
//     one. Both are only mutated via nextToken. Every parse function leaves
//     curTok on the last token of the construct it parsed.
//   - Errors: the first syntax or lexical error aborts the parse. Parse
//     functions return nil once err is set and callers unwind.
//   - Warnings: same-scope redeclarations found through the advisory scope
//     chain are collected and never abort the parse.
type Parser struct {
	lx      *lexer.Lexer
	curTok  lexer.Token
	peekTok lexer.Token

	err      *ParseError
	lexErr   *lexer.LexerError
	warnings []ParseError

	filename string
	scopes   *scope.Chain

	prefixFns map[lexer.TokenType]prefixParseFn
	infixFns  map[lexer.TokenType]infixParseFn
}

// New returns a parser initialised with the provided source input.
func New(input string, opts ...Option) *Parser {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Parser{
		lx:        lexer.NewFile(cfg.filename, input),
		filename:  cfg.filename,
		scopes:    scope.NewChain(scope.NewTable()),
		prefixFns: make(map[lexer.TokenType]prefixParseFn),
		infixFns:  make(map[lexer.TokenType]infixParseFn),
	}

	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.INT, p.parseIntegerLiteral)
	p.registerPrefix(lexer.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBoolLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBoolLiteral)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpr)
	p.registerPrefix(lexer.NOT, p.parsePrefixExpr)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpr)
	p.registerPrefix(lexer.LBRACKET, p.parseListLiteral)
	p.registerPrefix(lexer.INPUT, p.parseInputExpr)

	for _, tt := range []lexer.TokenType{
		lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH,
		lexer.AND, lexer.OR,
		lexer.EQ, lexer.NOT_EQ, lexer.LT, lexer.LE, lexer.GT, lexer.GE,
	} {
		p.registerInfix(tt, p.parseInfixExpr)
	}
	p.registerInfix(lexer.LPAREN, p.parseCallExpr)

	// Seed curTok/peekTok.
	p.nextToken()
	p.nextToken()

	return p
}

// Warnings returns the advisory diagnostics collected while parsing.
func (p *Parser) Warnings() []ParseError {
	return p.warnings
}

// ParseProgram parses a whole program: exactly one SEQ or PAR block
// followed by end of input. The returned error is a *lexer.LexerError or a
// *ParseError, whichever occurred first in the source.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	start := p.curTok.Span

	var body ast.Stmt
	if p.curTok.Type != lexer.SEQ && p.curTok.Type != lexer.PAR {
		p.reportError("program must start with a SEQ or PAR block, found "+describeToken(p.curTok), p.curTok.Span)
	} else {
		body = p.parseBlockStmt()
	}

	if p.err == nil && p.peekTok.Type != lexer.EOF {
		p.reportError("unexpected "+describeToken(p.peekTok)+" after the program block", p.peekTok.Span)
	}

	if err := p.firstError(); err != nil {
		return nil, err
	}

	return ast.NewProgram(body, mergeSpan(start, p.curTok.Span)), nil
}

// nextToken advances the parser's token window. Lexical errors are recorded
// the first time they surface in the peek slot.
func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.lx.NextToken()

	if p.lexErr == nil && len(p.lx.Errors) > 0 {
		lexErr := p.lx.Errors[0]
		p.lexErr = &lexErr
	}
}

// expect asserts that the peek token matches the provided type and, on
// success, promotes it into curTok.
func (p *Parser) expect(tt lexer.TokenType) bool {
	if p.err != nil {
		return false
	}

	if p.peekTok.Type == tt {
		p.nextToken()
		return true
	}

	p.reportError("expected "+describeType(tt)+", found "+describeToken(p.peekTok), p.peekTok.Span)
	return false
}

func (p *Parser) failed() bool {
	return p.err != nil
}

func (p *Parser) firstError() error {
	switch {
	case p.lexErr != nil && (p.err == nil || p.lexErr.Span.Start <= p.err.Span.Start):
		return p.lexErr
	case p.err != nil:
		return p.err
	default:
		return nil
	}
}

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixFns[tokenType] = fn
}

// Parse is a convenience wrapper around New and ParseProgram.
func Parse(filename, src string) (*ast.Program, []ParseError, error) {
	p := New(src, WithFilename(filename))
	prog, err := p.ParseProgram()
	return prog, p.Warnings(), err
}
