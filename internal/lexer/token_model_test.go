package lexer

import (
	"testing"
)

func expectTokenType(t *testing.T, tok Token, want TokenType) {
	t.Helper()
	if tok.Type != want {
		t.Fatalf("expected token %q, got %q", want, tok.Type)
	}
}

// TestTokenSpan_Basic tests that tokens have correct span information
func TestTokenSpan_Basic(t *testing.T) {
	input := `int x = 10;`

	l := New(input)
	tok := l.NextToken() // int

	if tok.Span.Line != 1 {
		t.Fatalf("expected line 1, got %d", tok.Span.Line)
	}
	if tok.Span.Column != 1 {
		t.Fatalf("expected column 1, got %d", tok.Span.Column)
	}
	if tok.Span.Start != 0 {
		t.Fatalf("expected start 0, got %d", tok.Span.Start)
	}
	if tok.Span.End != 3 {
		t.Fatalf("expected end 3, got %d", tok.Span.End)
	}

	tok = l.NextToken() // IDENT "x"
	if tok.Span.Line != 1 || tok.Span.Column != 5 {
		t.Fatalf("expected 1:5, got %d:%d", tok.Span.Line, tok.Span.Column)
	}
	if tok.Span.Start != 4 || tok.Span.End != 5 {
		t.Fatalf("expected [4,5), got [%d,%d)", tok.Span.Start, tok.Span.End)
	}
}

// TestTokenSpan_MultiLine tests span tracking across lines, comments included.
func TestTokenSpan_MultiLine(t *testing.T) {
	input := "int x = 10; # first\n\n   float y = 2.0;"

	l := New(input)

	for i := 0; i < 5; i++ {
		l.NextToken()
	}

	tok := l.NextToken()
	expectTokenType(t, tok, TYPE_FLOAT)
	if tok.Span.Line != 3 {
		t.Fatalf("expected line 3, got %d", tok.Span.Line)
	}
	if tok.Span.Column != 4 {
		t.Fatalf("expected column 4, got %d", tok.Span.Column)
	}
	if got := string([]rune(input)[tok.Span.Start:tok.Span.End]); got != "float" {
		t.Fatalf("span does not cover the keyword, got %q", got)
	}
}

// TestTokenSpan_CoversSource checks that every token's span slices back to its raw text.
func TestTokenSpan_CoversSource(t *testing.T) {
	input := "SEQ {\n\tstring s = 'a\\tb';\n\tc.send: s, 1.5;\n}"
	runes := []rune(input)

	toks, err := Tokenize("", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, tok := range toks {
		if tok.Type == EOF {
			if tok.Span.Start != len(runes) {
				t.Fatalf("EOF should sit at end of input, got %d", tok.Span.Start)
			}
			continue
		}
		if got := string(runes[tok.Span.Start:tok.Span.End]); got != tok.Raw {
			t.Fatalf("token %d: span text %q != raw %q", i, got, tok.Raw)
		}
	}
}

func TestTokenSpan_EOFPosition(t *testing.T) {
	tests := []struct {
		input  string
		line   int
		column int
	}{
		{"", 1, 1},
		{"x", 1, 2},
		{"x\n", 2, 1},
		{"# only a comment", 1, 17},
	}

	for i, tt := range tests {
		l := New(tt.input)
		var tok Token
		for tok = l.NextToken(); tok.Type != EOF; tok = l.NextToken() {
		}
		if tok.Span.Line != tt.line || tok.Span.Column != tt.column {
			t.Fatalf("tests[%d] - EOF at %d:%d, want %d:%d", i, tok.Span.Line, tok.Span.Column, tt.line, tt.column)
		}
	}
}
