package lexer

import "sort"

// TokenType represents the type of a token
type TokenType string

// Span represents the source location of a token
type Span struct {
	Filename string // optional source filename for diagnostics
	Line     int    // 1-based line number
	Column   int    // 1-based column number
	Start    int    // index in []rune of the source
	End      int    // exclusive end index
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string // decoded value (strings without quotes and with escapes applied)
	Raw     string // exact runes from source
	Span    Span
}

// Token type constants
const (
	// Special tokens
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Identifiers and literals
	IDENT  TokenType = "IDENT"  // x, total, chan1
	INT    TokenType = "INT"    // 1343456
	FLOAT  TokenType = "FLOAT"  // 3.14, 2.
	STRING TokenType = "STRING" // "hello", 'hello'

	// Operators
	ASSIGN   TokenType = "="
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	ASTERISK TokenType = "*"
	SLASH    TokenType = "/"

	LT     TokenType = "<"
	GT     TokenType = ">"
	EQ     TokenType = "=="
	NOT_EQ TokenType = "!="
	LE     TokenType = "<="
	GE     TokenType = ">="

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	COLON     TokenType = ":"
	DOT       TokenType = "."
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"

	// Block keywords
	SEQ TokenType = "SEQ"
	PAR TokenType = "PAR"

	// Keywords
	IF        TokenType = "IF"
	ELSE      TokenType = "ELSE"
	WHILE     TokenType = "WHILE"
	FOR       TokenType = "FOR"
	IN        TokenType = "IN"
	DEF       TokenType = "DEF"
	RETURN    TokenType = "RETURN"
	INPUT     TokenType = "INPUT"
	OUTPUT    TokenType = "OUTPUT"
	SEND      TokenType = "SEND"
	RECEIVE   TokenType = "RECEIVE"
	TRUE      TokenType = "TRUE"
	FALSE     TokenType = "FALSE"
	AND       TokenType = "AND"
	OR        TokenType = "OR"
	NOT       TokenType = "NOT"
	C_CHANNEL TokenType = "C_CHANNEL"

	// Type keywords
	TYPE_BOOL   TokenType = "TYPE_BOOL"
	TYPE_INT    TokenType = "TYPE_INT"
	TYPE_FLOAT  TokenType = "TYPE_FLOAT"
	TYPE_STRING TokenType = "TYPE_STRING"
	TYPE_LIST   TokenType = "TYPE_LIST"
)

var keywords = map[string]TokenType{
	"SEQ":       SEQ,
	"PAR":       PAR,
	"if":        IF,
	"else":      ELSE,
	"while":     WHILE,
	"for":       FOR,
	"in":        IN,
	"def":       DEF,
	"return":    RETURN,
	"input":     INPUT,
	"output":    OUTPUT,
	"send":      SEND,
	"receive":   RECEIVE,
	"true":      TRUE,
	"false":     FALSE,
	"and":       AND,
	"or":        OR,
	"not":       NOT,
	"c_channel": C_CHANNEL,

	// Both spellings of the type names are accepted.
	"Bool":   TYPE_BOOL,
	"bool":   TYPE_BOOL,
	"Int":    TYPE_INT,
	"int":    TYPE_INT,
	"Float":  TYPE_FLOAT,
	"float":  TYPE_FLOAT,
	"String": TYPE_STRING,
	"string": TYPE_STRING,
	"List":   TYPE_LIST,
	"list":   TYPE_LIST,
}

// LookupIdent checks if the identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Keywords returns every reserved word, sorted.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for w := range keywords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// IsTypeKeyword reports whether tt begins a type annotation.
func IsTypeKeyword(tt TokenType) bool {
	switch tt {
	case TYPE_BOOL, TYPE_INT, TYPE_FLOAT, TYPE_STRING, TYPE_LIST:
		return true
	default:
		return false
	}
}
