package parser

import (
	"fmt"

	"github.com/AnriaW/minipar/internal/diag"
	"github.com/AnriaW/minipar/internal/lexer"
)

// ParseError is a syntax error or an advisory warning with its location.
type ParseError struct {
	Message  string
	Span     lexer.Span
	Severity diag.Severity
	Code     diag.Code
	Help     string
}

func (e *ParseError) Error() string {
	kind := "syntax error"
	if e.Severity == diag.SeverityWarning {
		kind = "warning"
	}
	return fmt.Sprintf("%s at line %d, column %d: %s", kind, e.Span.Line, e.Span.Column, e.Message)
}

// ToDiagnostic converts a parse error into a shared diagnostic structure.
func (e ParseError) ToDiagnostic() diag.Diagnostic {
	code := e.Code
	if code == "" {
		code = diag.CodeParseUnexpectedToken
	}
	severity := e.Severity
	if severity == "" {
		severity = diag.SeverityError
	}

	return diag.Diagnostic{
		Stage:    diag.StageParser,
		Severity: severity,
		Code:     code,
		Message:  e.Message,
		Span: diag.Span{
			Filename: e.Span.Filename,
			Line:     e.Span.Line,
			Column:   e.Span.Column,
			Start:    e.Span.Start,
			End:      e.Span.End,
		},
		Help: e.Help,
	}
}

func (p *Parser) spanWithFilename(span lexer.Span) lexer.Span {
	if span.Filename == "" && p.filename != "" {
		span.Filename = p.filename
	}
	return span
}

// reportError records the first syntax error. Later calls are ignored since
// the parse is already unwinding.
func (p *Parser) reportError(msg string, span lexer.Span) {
	p.reportErrorWithHelp(msg, span, "")
}

func (p *Parser) reportErrorWithHelp(msg string, span lexer.Span, help string) {
	if p.err != nil {
		return
	}
	p.err = &ParseError{
		Message:  msg,
		Span:     p.spanWithFilename(span),
		Severity: diag.SeverityError,
		Code:     diag.CodeParseUnexpectedToken,
		Help:     help,
	}
}

func (p *Parser) reportWarning(msg string, code diag.Code, span lexer.Span) {
	p.warnings = append(p.warnings, ParseError{
		Message:  msg,
		Span:     p.spanWithFilename(span),
		Severity: diag.SeverityWarning,
		Code:     code,
	})
}

// reportUnexpected reports tok as out of place in context.
func (p *Parser) reportUnexpected(tok lexer.Token, context string) {
	msg := "unexpected " + describeToken(tok)
	if context != "" {
		msg += " " + context
	}
	p.reportError(msg, tok.Span)
}
