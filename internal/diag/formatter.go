package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// Formatter prints diagnostics with source snippets and carets under the
// offending span.
type Formatter struct {
	out         io.Writer
	sourceCache map[string]string // source text by filename

	errorColor   *color.Color
	warningColor *color.Color
	noteColor    *color.Color
	gutterColor  *color.Color
	caretColor   *color.Color
}

// NewFormatter creates a formatter writing to out. Colors follow the
// fatih/color global switch, which is off when out is not a terminal.
func NewFormatter(out io.Writer) *Formatter {
	return &Formatter{
		out:          out,
		sourceCache:  make(map[string]string),
		errorColor:   color.New(color.FgRed, color.Bold),
		warningColor: color.New(color.FgYellow, color.Bold),
		noteColor:    color.New(color.FgCyan, color.Bold),
		gutterColor:  color.New(color.FgBlue, color.Bold),
		caretColor:   color.New(color.FgRed),
	}
}

// AddSource registers in-memory source text for filename so snippets can be
// printed without reading the file again.
func (f *Formatter) AddSource(filename, src string) {
	f.sourceCache[filename] = src
}

// LoadSource loads source code for a file (cached).
func (f *Formatter) LoadSource(filename string) (string, error) {
	if src, ok := f.sourceCache[filename]; ok {
		return src, nil
	}
	if filename == "" {
		return "", fmt.Errorf("no source registered for diagnostic")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	src := string(data)
	f.sourceCache[filename] = src
	return src, nil
}

// FormatAll prints every diagnostic in order.
func (f *Formatter) FormatAll(ds []Diagnostic) {
	for i, d := range ds {
		if i > 0 {
			fmt.Fprintln(f.out)
		}
		f.Format(d)
	}
}

// Format prints one diagnostic.
func (f *Formatter) Format(d Diagnostic) {
	spans := f.collectSpans(d)
	if len(spans) == 0 {
		f.formatSimple(d)
		return
	}

	filename := spans[0].Span.Filename
	src, err := f.LoadSource(filename)
	if err != nil {
		f.formatSimple(d)
		return
	}

	f.printHeader(d)
	f.printSnippet(filename, src, spans)
	f.printHelp(d)
}

func (f *Formatter) collectSpans(d Diagnostic) []LabeledSpan {
	if len(d.LabeledSpans) > 0 {
		return d.LabeledSpans
	}
	if d.Span.IsValid() {
		return []LabeledSpan{{Span: d.Span, Style: "primary"}}
	}
	return nil
}

// printHeader prints "severity[CODE]: message".
func (f *Formatter) printHeader(d Diagnostic) {
	severity := d.Severity
	if severity == "" {
		severity = SeverityError
	}

	c := f.errorColor
	switch severity {
	case SeverityWarning:
		c = f.warningColor
	case SeverityNote:
		c = f.noteColor
	}

	if d.Code != "" {
		c.Fprintf(f.out, "%s[%s]", severity, d.Code)
	} else {
		c.Fprintf(f.out, "%s", severity)
	}
	fmt.Fprintf(f.out, ": %s\n", d.Message)
}

func (f *Formatter) printSnippet(filename, src string, spans []LabeledSpan) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Span.Line != spans[j].Span.Line {
			return spans[i].Span.Line < spans[j].Span.Line
		}
		return spans[i].Span.Column < spans[j].Span.Column
	})

	lines := strings.Split(src, "\n")
	spansByLine := make(map[int][]LabeledSpan)
	for _, span := range spans {
		if line := span.Span.Line; line > 0 && line <= len(lines) {
			spansByLine[line] = append(spansByLine[line], span)
		}
	}
	if len(spansByLine) == 0 {
		return
	}

	first := spans[0].Span.Line
	last := spans[len(spans)-1].Span.Line
	contextStart := max(1, first-1)
	contextEnd := min(len(lines), last+1)
	width := len(fmt.Sprintf("%d", contextEnd))
	pad := strings.Repeat(" ", width)

	name := filename
	if name == "" {
		name = "<input>"
	}
	f.gutterColor.Fprintf(f.out, "%s--> ", pad)
	fmt.Fprintf(f.out, "%s:%d:%d\n", name, spans[0].Span.Line, spans[0].Span.Column)
	f.gutterColor.Fprintf(f.out, "%s |\n", pad)

	for lineNum := contextStart; lineNum <= contextEnd; lineNum++ {
		content := lines[lineNum-1]
		f.gutterColor.Fprintf(f.out, "%*d | ", width, lineNum)
		fmt.Fprintln(f.out, content)

		if lineSpans := spansByLine[lineNum]; len(lineSpans) > 0 {
			f.printUnderlines(pad, content, lineSpans)
		}
	}
	f.gutterColor.Fprintf(f.out, "%s |\n", pad)
}

// printUnderlines marks primary spans with ^ and secondary spans with ~.
func (f *Formatter) printUnderlines(pad, content string, spans []LabeledSpan) {
	width := len([]rune(content))
	underline := []rune(strings.Repeat(" ", width+1))

	mark := func(span LabeledSpan, ch rune) {
		start := max(0, span.Span.Column-1)
		end := min(len(underline), start+max(1, span.Span.End-span.Span.Start))
		for i := start; i < end; i++ {
			if underline[i] == ' ' {
				underline[i] = ch
			}
		}
	}
	for _, span := range spans {
		if span.Style != "secondary" {
			mark(span, '^')
		}
	}
	for _, span := range spans {
		if span.Style == "secondary" {
			mark(span, '~')
		}
	}

	var labels []string
	for _, span := range spans {
		if span.Label != "" {
			labels = append(labels, span.Label)
		}
	}

	f.gutterColor.Fprintf(f.out, "%s | ", pad)
	f.caretColor.Fprint(f.out, strings.TrimRight(string(underline), " "))
	if len(labels) > 0 {
		fmt.Fprintf(f.out, " %s", strings.Join(labels, "; "))
	}
	fmt.Fprintln(f.out)
}

func (f *Formatter) printHelp(d Diagnostic) {
	for _, note := range d.Notes {
		fmt.Fprintf(f.out, "  = note: %s\n", note)
	}
	if d.Help != "" {
		f.noteColor.Fprint(f.out, "help")
		fmt.Fprintf(f.out, ": %s\n", d.Help)
	}
}

// formatSimple formats a diagnostic without source code (fallback).
func (f *Formatter) formatSimple(d Diagnostic) {
	f.printHeader(d)
	if d.Span.IsValid() {
		fmt.Fprintf(f.out, "  --> %s\n", d.Span.String())
	}
	f.printHelp(d)
}
