// Package repl is the interactive MiniPar shell. Each entry is compiled and
// run as a program of its own; nothing carries over between entries.
package repl

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/AnriaW/minipar/internal/diag"
	"github.com/AnriaW/minipar/internal/driver"
	"github.com/AnriaW/minipar/internal/lexer"
)

const (
	promptMain = "minipar> "
	promptCont = "...      "

	banner = "MiniPar REPL. Statements run inside SEQ { } unless they start with SEQ or PAR.\nType :help for commands, :quit or Ctrl-D to exit."
)

// Source is the file name given to every REPL entry in diagnostics.
const Source = "<repl>"

type REPL struct {
	driver      *driver.Driver
	historyPath string
	out         io.Writer
	errOut      io.Writer
	red         func(a ...interface{}) string
}

// New returns a shell that runs entries through d. historyFile is resolved
// against the home directory when relative; empty disables history.
func New(d *driver.Driver, historyFile string, out, errOut io.Writer) *REPL {
	path := historyFile
	if path != "" && !filepath.IsAbs(path) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path)
		}
	}

	return &REPL{
		driver:      d,
		historyPath: path,
		out:         out,
		errOut:      errOut,
		red:         color.New(color.FgRed).SprintFunc(),
	}
}

// Run reads entries until EOF, :quit or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if r.historyPath != "" {
		if f, err := os.Open(r.historyPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(r.historyPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for ctx.Err() == nil {
		entry, ok := r.read(ln)
		if !ok {
			fmt.Fprintln(r.out)
			return nil
		}

		trimmed := strings.TrimSpace(entry)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, ":"):
			if r.command(trimmed) {
				return nil
			}
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(entry, "\n", " "))
		r.Eval(ctx, entry)
	}
	return ctx.Err()
}

// Eval compiles and runs one entry, printing diagnostics or the runtime
// error. Program output goes wherever the driver's interpreter writes.
func (r *REPL) Eval(ctx context.Context, entry string) {
	src := Wrap(entry)

	u, err := r.driver.Run(ctx, Source, src)
	if u != nil && len(u.Diagnostics) > 0 {
		f := diag.NewFormatter(r.errOut)
		f.AddSource(Source, src)
		f.FormatAll(u.Diagnostics)
	}
	if err != nil && (u == nil || u.OK()) {
		fmt.Fprintln(r.errOut, r.red(err.Error()))
	}
}

// command handles a ':' command and reports whether the shell should exit.
func (r *REPL) command(cmd string) bool {
	switch strings.ToLower(cmd) {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprintln(r.out, "  :help   show this message")
		fmt.Fprintln(r.out, "  :quit   leave the shell")
	default:
		fmt.Fprintf(r.out, "unknown command %s. Type :help for commands.\n", cmd)
	}
	return false
}

// read collects lines until braces balance. An aborted prompt (Ctrl-C)
// discards the entry; EOF ends the session.
func (r *REPL) read(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}

		line, err := ln.Prompt(prompt)
		if stderrors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if !NeedsMore(b.String()) {
			return b.String(), true
		}
	}
}

// Wrap turns an entry into a program: entries that are not already a SEQ or
// PAR block are placed inside SEQ { }.
func Wrap(entry string) string {
	trimmed := strings.TrimSpace(entry)
	if toks, _ := lexer.Tokenize(Source, trimmed); len(toks) > 0 {
		if first := toks[0].Type; first == lexer.SEQ || first == lexer.PAR {
			return trimmed
		}
	}
	return "SEQ {\n" + trimmed + "\n}"
}

// NeedsMore reports whether src has more '{' than '}' so far. Text that
// does not lex is complete; the error is reported when it runs.
func NeedsMore(src string) bool {
	toks, err := lexer.Tokenize(Source, src)
	if err != nil {
		return false
	}

	depth := 0
	for _, tok := range toks {
		switch tok.Type {
		case lexer.LBRACE:
			depth++
		case lexer.RBRACE:
			depth--
		}
	}
	return depth > 0
}
