package diag

import "fmt"

// Stage identifies which pipeline phase produced the diagnostic.
type Stage string

const (
	StageLexer    Stage = "lexer"
	StageParser   Stage = "parser"
	StageSemantic Stage = "semantic"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// LabeledSpan represents a span with an optional label.
type LabeledSpan struct {
	Span  Span
	Label string // Optional label (e.g., "expected `int`, found `string`")
	Style string // "primary" or "secondary" - primary spans are emphasized
}

// Code is a stable identifier for a diagnostic.
type Code string

const (
	// Lexer errors
	CodeLexerUnterminatedString Code = "LEXER_UNTERMINATED_STRING"
	CodeLexerMalformedNumber    Code = "LEXER_MALFORMED_NUMBER"
	CodeLexerIllegalRune        Code = "LEXER_ILLEGAL_RUNE"

	// Parser errors
	CodeParseUnexpectedToken Code = "PARSE_UNEXPECTED_TOKEN"

	// Semantic errors
	CodeDuplicateDeclaration  Code = "SEM_DUPLICATE_DECLARATION"
	CodeUndeclaredName        Code = "SEM_UNDECLARED_NAME"
	CodeDuplicateFunction     Code = "SEM_DUPLICATE_FUNCTION"
	CodeUnknownFunction       Code = "SEM_UNKNOWN_FUNCTION"
	CodeTypeMismatch          Code = "SEM_TYPE_MISMATCH"
	CodeArityMismatch         Code = "SEM_ARITY_MISMATCH"
	CodeDuplicateChannel      Code = "SEM_DUPLICATE_CHANNEL"
	CodeUndeclaredChannel     Code = "SEM_UNDECLARED_CHANNEL"
	CodeInvalidChannel        Code = "SEM_INVALID_CHANNEL"
	CodeInvalidReceiveTarget  Code = "SEM_INVALID_RECEIVE_TARGET"
	CodeReturnOutsideFunction Code = "SEM_RETURN_OUTSIDE_FUNCTION"
)

// Span represents a location in source code.
type Span struct {
	Filename string
	Line     int
	Column   int
	Start    int
	End      int
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsValid returns true if the span has valid location information.
func (s Span) IsValid() bool {
	return s.Line > 0 && s.Column > 0
}

// Diagnostic is a front-end diagnostic surfaced to end-users.
type Diagnostic struct {
	Stage    Stage
	Severity Severity
	Code     Code
	Message  string
	Span     Span
	// LabeledSpans allows multiple spans with labels. The first span is
	// treated as primary, others as secondary.
	LabeledSpans []LabeledSpan
	Notes        []string
	Help         string
}

// Error lets a diagnostic travel as an error value.
func (d Diagnostic) Error() string {
	if d.Span.IsValid() {
		return fmt.Sprintf("%s: %s", d.Span, d.Message)
	}
	return d.Message
}

// WithLabeledSpan adds a labeled span to the diagnostic.
func (d Diagnostic) WithLabeledSpan(span Span, label string, style string) Diagnostic {
	if style == "" {
		style = "primary"
	}
	d.LabeledSpans = append(d.LabeledSpans, LabeledSpan{
		Span:  span,
		Label: label,
		Style: style,
	})
	return d
}

// WithPrimarySpan adds a primary labeled span.
func (d Diagnostic) WithPrimarySpan(span Span, label string) Diagnostic {
	return d.WithLabeledSpan(span, label, "primary")
}

// WithSecondarySpan adds a secondary labeled span.
func (d Diagnostic) WithSecondarySpan(span Span, label string) Diagnostic {
	return d.WithLabeledSpan(span, label, "secondary")
}

// WithNote adds a note to the diagnostic.
func (d Diagnostic) WithNote(note string) Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// WithHelp adds help text to the diagnostic.
func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

// HasErrors reports whether any diagnostic in ds has error severity.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == SeverityError || d.Severity == "" {
			return true
		}
	}
	return false
}
