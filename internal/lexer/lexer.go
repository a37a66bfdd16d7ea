package lexer

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/AnriaW/minipar/internal/diag"
)

type LexerErrorKind int

const (
	ErrUnterminatedString LexerErrorKind = iota
	ErrMalformedNumber
	ErrIllegalRune
)

type LexerError struct {
	Kind    LexerErrorKind
	Message string
	Span    Span
}

// Error renders the error with its position so it can be returned as a plain error.
func (e *LexerError) Error() string {
	return fmt.Sprintf("lexical error at line %d, column %d: %s", e.Span.Line, e.Span.Column, e.Message)
}

func (k LexerErrorKind) diagnosticCode() diag.Code {
	switch k {
	case ErrUnterminatedString:
		return diag.CodeLexerUnterminatedString
	case ErrMalformedNumber:
		return diag.CodeLexerMalformedNumber
	case ErrIllegalRune:
		return diag.CodeLexerIllegalRune
	default:
		return diag.Code("LEXER_UNKNOWN_ERROR")
	}
}

// ToDiagnostic converts a lexer error into a shared diagnostic structure.
func (e LexerError) ToDiagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Stage:    diag.StageLexer,
		Severity: diag.SeverityError,
		Code:     e.Kind.diagnosticCode(),
		Message:  e.Message,
		Span: diag.Span{
			Filename: e.Span.Filename,
			Line:     e.Span.Line,
			Column:   e.Span.Column,
			Start:    e.Span.Start,
			End:      e.Span.End,
		},
	}
}

// Lexer represents the lexer state
type Lexer struct {
	input    []rune
	filename string
	pos      int  // index of the current rune
	ch       rune // current rune (0 = EOF)
	line     int  // current line number (1-based)
	column   int  // current column number (1-based)

	Errors []LexerError
}

func (l *Lexer) addError(kind LexerErrorKind, msg string, span Span) {
	l.Errors = append(l.Errors, LexerError{
		Kind:    kind,
		Message: msg,
		Span:    span,
	})
}

// New creates a new lexer for the given input
func New(input string) *Lexer {
	return NewFile("", input)
}

// NewFile creates a lexer whose spans carry filename.
func NewFile(filename, input string) *Lexer {
	l := &Lexer{
		input:    []rune(input),
		filename: filename,
		pos:      -1, // start before first rune
		line:     1,
		column:   0, // will be 1 after first read()
	}
	l.read()
	return l
}

// Tokenize lexes the whole input. Lexing stops at the first error, which is
// returned as a *LexerError; the tokens produced before it are returned too.
// On success the slice always ends with an EOF token.
func Tokenize(filename, input string) ([]Token, error) {
	l := NewFile(filename, input)
	var toks []Token
	for {
		tok := l.NextToken()
		if len(l.Errors) > 0 {
			err := l.Errors[0]
			return toks, &err
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, nil
		}
	}
}

// read advances the lexer to the next character.
// line/column always reflect the position of the character at pos.
func (l *Lexer) read() {
	l.pos++
	prevPos := l.pos - 1
	inputLen := len(l.input)

	if l.pos >= inputLen {
		// Moved past the last rune; normalize position to virtual EOF.
		if prevPos >= 0 && prevPos < inputLen {
			if l.input[prevPos] == '\n' {
				l.line++
				l.column = 1
			} else {
				l.column++
			}
		} else if prevPos < 0 {
			l.column = 1
		}
		l.pos = inputLen
		l.ch = 0
		return
	}

	l.ch = l.input[l.pos]

	if prevPos >= 0 && l.input[prevPos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
}

// peek returns the next character without advancing
func (l *Lexer) peek() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) currentSpanStart() (line, column, pos int) {
	return l.line, l.column, l.pos
}

func (l *Lexer) makeToken(tokType TokenType, startLine, startColumn, startPos, endPos int, raw, literal string) Token {
	return Token{
		Type:    tokType,
		Literal: literal,
		Raw:     raw,
		Span: Span{
			Filename: l.filename,
			Line:     startLine,
			Column:   startColumn,
			Start:    startPos,
			End:      endPos,
		},
	}
}

func (l *Lexer) span(startLine, startColumn, startPos int) Span {
	return Span{Filename: l.filename, Line: startLine, Column: startColumn, Start: startPos, End: l.pos}
}

// skipTrivia skips whitespace and '#' line comments.
func (l *Lexer) skipTrivia() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.read()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.read()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.read()
	}
	return string(l.input[start:l.pos])
}

// readNumber reads an integer or float literal. A literal with one decimal
// point is a float; a second decimal point is reported as malformed.
func (l *Lexer) readNumber(startLine, startColumn, startPos int) (string, TokenType) {
	for isDigit(l.ch) {
		l.read()
	}
	if l.ch != '.' {
		return string(l.input[startPos:l.pos]), INT
	}

	l.read() // consume '.'
	for isDigit(l.ch) {
		l.read()
	}

	if l.ch == '.' {
		for l.ch == '.' || isDigit(l.ch) {
			l.read()
		}
		literal := string(l.input[startPos:l.pos])
		l.addError(
			ErrMalformedNumber,
			"malformed number "+strconv.Quote(literal)+": more than one decimal point",
			l.span(startLine, startColumn, startPos),
		)
		return literal, ILLEGAL
	}

	return string(l.input[startPos:l.pos]), FLOAT
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipTrivia()

	startLine, startColumn, startPos := l.currentSpanStart()

	single := func(tt TokenType) Token {
		raw := string(l.ch)
		l.read()
		return l.makeToken(tt, startLine, startColumn, startPos, l.pos, raw, raw)
	}
	double := func(tt TokenType) Token {
		raw := string(l.ch) + string(l.peek())
		l.read()
		l.read()
		return l.makeToken(tt, startLine, startColumn, startPos, l.pos, raw, raw)
	}

	switch l.ch {
	case 0:
		return l.makeToken(EOF, startLine, startColumn, startPos, startPos, "", "")
	case '=':
		if l.peek() == '=' {
			return double(EQ)
		}
		return single(ASSIGN)
	case '!':
		if l.peek() == '=' {
			return double(NOT_EQ)
		}
	case '<':
		if l.peek() == '=' {
			return double(LE)
		}
		return single(LT)
	case '>':
		if l.peek() == '=' {
			return double(GE)
		}
		return single(GT)
	case '+':
		return single(PLUS)
	case '-':
		return single(MINUS)
	case '*':
		return single(ASTERISK)
	case '/':
		return single(SLASH)
	case ',':
		return single(COMMA)
	case ';':
		return single(SEMICOLON)
	case ':':
		return single(COLON)
	case '.':
		return single(DOT)
	case '(':
		return single(LPAREN)
	case ')':
		return single(RPAREN)
	case '{':
		return single(LBRACE)
	case '}':
		return single(RBRACE)
	case '[':
		return single(LBRACKET)
	case ']':
		return single(RBRACKET)
	case '"', '\'':
		raw, value, terminated := l.readString(startLine, startColumn, startPos, l.ch)
		if !terminated {
			return l.makeToken(ILLEGAL, startLine, startColumn, startPos, l.pos, raw, raw)
		}
		return l.makeToken(STRING, startLine, startColumn, startPos, l.pos, raw, value)
	}

	switch {
	case isLetter(l.ch):
		literal := l.readIdentifier()
		return l.makeToken(LookupIdent(literal), startLine, startColumn, startPos, l.pos, literal, literal)
	case isDigit(l.ch):
		literal, tokType := l.readNumber(startLine, startColumn, startPos)
		return l.makeToken(tokType, startLine, startColumn, startPos, l.pos, literal, literal)
	}

	raw := string(l.ch)
	l.read()
	tok := l.makeToken(ILLEGAL, startLine, startColumn, startPos, l.pos, raw, raw)
	l.addError(ErrIllegalRune, "illegal character "+strconv.Quote(raw), tok.Span)
	return tok
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isDigit(ch rune) bool {
	// Numeric literals are restricted to ASCII digits.
	return ch >= '0' && ch <= '9'
}

// readString reads a string literal delimited by quote, handling escape sequences.
// Returns both raw (with escapes) and decoded values, along with a flag
// indicating whether the string was properly terminated.
func (l *Lexer) readString(startLine, startColumn, startPos int, quote rune) (raw string, value string, terminated bool) {
	var decoded []rune

	l.read() // skip opening quote

	for {
		if l.ch == 0 {
			l.addError(ErrUnterminatedString, "unterminated string literal", l.span(startLine, startColumn, startPos))
			break
		}
		if l.ch == quote {
			l.read() // consume closing quote
			return string(l.input[startPos:l.pos]), string(decoded), true
		}
		if l.ch == '\n' || l.ch == '\r' {
			l.addError(ErrUnterminatedString, "newline in string literal", l.span(startLine, startColumn, startPos))
			break
		}
		if l.ch == '\\' {
			l.read() // skip '\'
			if l.ch == 0 {
				continue
			}
			switch l.ch {
			case 'n':
				decoded = append(decoded, '\n')
			case 't':
				decoded = append(decoded, '\t')
			case '\\':
				decoded = append(decoded, '\\')
			case quote:
				decoded = append(decoded, quote)
			default:
				// Unknown escapes pass through untouched.
				decoded = append(decoded, '\\', l.ch)
			}
			l.read()
			continue
		}
		decoded = append(decoded, l.ch)
		l.read()
	}

	return string(l.input[startPos:l.pos]), string(decoded), false
}
